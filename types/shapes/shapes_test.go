// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, 3, s.Dim(1))
	assert.Equal(t, 3, s.Dim(-1))
	assert.Equal(t, "(Float32)[2 3]", s.String())
	assert.True(t, s.Equal(Make(dtypes.Float32, 2, 3)))
	assert.False(t, s.Equal(Make(dtypes.Float64, 2, 3)))
	assert.True(t, s.EqualDimensions(Make(dtypes.Int32, 2, 3)))

	scalar := Scalar[float64]()
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, dtypes.Float64, scalar.DType)

	assert.False(t, Invalid().Ok())

	// Zero-sized dimensions make empty arrays; negative ones panic.
	assert.Equal(t, 0, Make(dtypes.Float32, 2, 0).Size())
	require.Panics(t, func() { Make(dtypes.Float32, 2, -1) })
	require.Panics(t, func() { s.Dim(2) })
}

func TestShapeStrides(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3, 4)
	assert.Equal(t, []int{12, 4, 1}, s.Strides())
	assert.Empty(t, Scalar[float32]().Strides())
}

func TestShapeClone(t *testing.T) {
	s := Make(dtypes.Int64, 5, 7)
	s2 := s.Clone()
	s2.Dimensions[0] = 11
	assert.Equal(t, 5, s.Dimensions[0])
	assert.Equal(t, dtypes.Float32, s.WithDType(dtypes.Float32).DType)
}
