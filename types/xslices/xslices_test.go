// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAt(t *testing.T) {
	s := []int{1, 2, 3}
	assert.Equal(t, 3, At(s, -1))
	assert.Equal(t, 1, At(s, 0))
	assert.Equal(t, 3, Last(s))
	SetAt(s, -1, 7)
	assert.Equal(t, []int{1, 2, 7}, s)
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4}, Iota(2, 3))
	assert.Empty(t, Iota(0, 0))
}

func TestFillSlice(t *testing.T) {
	s := make([]float32, 7)
	FillSlice(s, float32(1.5))
	for _, v := range s {
		assert.Equal(t, float32(1.5), v)
	}
	FillSlice([]int{}, 0) // Must not panic.
}

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4}, Map([]int{1, 2}, func(e int) int { return 2 * e }))
}

func TestProduct(t *testing.T) {
	assert.Equal(t, 24, Product([]int{2, 3, 4}))
	assert.Equal(t, 1, Product[int](nil))
}

func TestCopy(t *testing.T) {
	s := []int{1, 2}
	s2 := Copy(s)
	s2[0] = 9
	assert.Equal(t, 1, s[0])
	assert.Nil(t, Copy[int](nil))
}
