// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/kernelgen/types/shapes"
)

func S(dims ...int) shapes.Shape {
	if len(dims) == 0 {
		return shapes.ScalarOf(dtypes.Float32)
	}
	return shapes.Make(dtypes.Float32, dims...)
}

func TestAdjustAxisToRank(t *testing.T) {
	axis, err := AdjustAxisToRank(-1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)

	axis, err = AdjustAxisToRank(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, axis)

	_, err = AdjustAxisToRank(3, 3)
	require.Error(t, err)
	_, err = AdjustAxisToRank(-4, 3)
	require.Error(t, err)
}

func TestNormalizeAxes(t *testing.T) {
	axes, err := NormalizeAxes([]int{-1, 0, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, axes)

	_, err = NormalizeAxes([]int{5}, 3)
	require.Error(t, err)
}

func TestBroadcastShapes(t *testing.T) {
	got, err := BroadcastShapes(S(2, 1), S(1, 3))
	require.NoError(t, err)
	assert.True(t, S(2, 3).Equal(got))

	// Lower rank operands align on trailing axes.
	got, err = BroadcastShapes(S(4, 1, 3), S(3))
	require.NoError(t, err)
	assert.True(t, S(4, 1, 3).Equal(got))

	// Scalars broadcast with everything.
	got, err = BroadcastShapes(S(), S(2, 2))
	require.NoError(t, err)
	assert.True(t, S(2, 2).Equal(got))

	// Mismatched non-1 dimensions are an error.
	_, err = BroadcastShapes(S(2, 3), S(2, 4))
	require.Error(t, err)

	// Mismatched dtypes are an error.
	_, err = BroadcastShapes(S(2), shapes.Make(dtypes.Float64, 2))
	require.Error(t, err)
}

func TestReduceShape(t *testing.T) {
	got, err := ReduceShape(S(2, 3, 4), []int{1}, false)
	require.NoError(t, err)
	assert.True(t, S(2, 4).Equal(got))

	got, err = ReduceShape(S(2, 3, 4), []int{1}, true)
	require.NoError(t, err)
	assert.True(t, S(2, 1, 4).Equal(got))

	got, err = ReduceShape(S(2, 3), []int{0, 1}, false)
	require.NoError(t, err)
	assert.True(t, got.IsScalar())

	_, err = ReduceShape(S(2, 3), []int{2}, false)
	require.Error(t, err)
}

func TestCheckAxisOrder(t *testing.T) {
	require.NoError(t, CheckAxisOrder([]int{2, 0}, 3))
	err := CheckAxisOrder([]int{0, 0}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "may not appear twice")
	require.Error(t, CheckAxisOrder([]int{3}, 3))
}
