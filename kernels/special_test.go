// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func axisOf(axis int) *int { return &axis }

func TestSoftmax(t *testing.T) {
	kernel, err := BuildSoftmax(axisOf(-1), 2, dtypes.Float64, DefaultCompileOptions())
	require.NoError(t, err)

	x := must.M1(FromFlat([]float64{1, 2, 3, 1000, 1001, 1002}, 2, 3))
	out, err := kernel.Call(x)
	require.NoError(t, err)
	require.True(t, x.Shape().Equal(out.Shape()))

	outFlat := FlatOf[float64](out)
	for row := 0; row < 2; row++ {
		sum := 0.0
		for col := 0; col < 3; col++ {
			value := outFlat[row*3+col]
			assert.True(t, value > 0 && value <= 1)
			sum += value
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	// Softmax only depends on differences: the overflow-prone second row
	// matches the first thanks to the max subtraction.
	for col := 0; col < 3; col++ {
		assert.InDelta(t, outFlat[col], outFlat[3+col], 1e-9)
	}
}

func TestSoftmaxWholeArray(t *testing.T) {
	opts := DefaultCompileOptions()
	kernel, err := BuildSoftmax(nil, 2, dtypes.Float64, opts)
	require.NoError(t, err)
	out, err := kernel.Call(must.M1(FromFlat([]float64{1, 1, 1, 1}, 2, 2)))
	require.NoError(t, err)
	for _, value := range FlatOf[float64](out) {
		assert.InDelta(t, 0.25, value, 1e-12)
	}

	// Whole-array softmax of a 2D array matches the softmax of the same
	// data flattened to a vector.
	flat := []float64{0.5, -1, 2, 7, 3, -4}
	out2d, err := kernel.Call(must.M1(FromFlat(flat, 2, 3)))
	require.NoError(t, err)
	kernel1d, err := BuildSoftmax(axisOf(0), 1, dtypes.Float64, opts)
	require.NoError(t, err)
	out1d, err := kernel1d.Call(must.M1(FromFlat(flat, 6)))
	require.NoError(t, err)
	// The 2D reduction sums per row first, so allow for rounding.
	for idx, want := range FlatOf[float64](out1d) {
		assert.InDelta(t, want, FlatOf[float64](out2d)[idx], 1e-12)
	}
}

func TestLogSoftmax(t *testing.T) {
	opts := DefaultCompileOptions()
	softmax, err := BuildSoftmax(axisOf(1), 2, dtypes.Float64, opts)
	require.NoError(t, err)
	logSoftmax, err := BuildLogSoftmax(axisOf(1), 2, dtypes.Float64, opts)
	require.NoError(t, err)

	x := must.M1(FromFlat([]float64{0.5, -1, 2, 7, 3, -4}, 2, 3))
	sm, err := softmax.Call(x)
	require.NoError(t, err)
	lsm, err := logSoftmax.Call(x)
	require.NoError(t, err)
	smFlat, lsmFlat := FlatOf[float64](sm), FlatOf[float64](lsm)
	for idx := range smFlat {
		assert.InDelta(t, math.Log(smFlat[idx]), lsmFlat[idx], 1e-9)
	}
}

func TestSoftmaxGrad(t *testing.T) {
	opts := DefaultCompileOptions()
	grad, err := BuildSoftmaxGrad(axisOf(-1), 2, dtypes.Float64, opts)
	require.NoError(t, err)

	sm := must.M1(FromFlat([]float64{0.2, 0.3, 0.5, 0.25, 0.25, 0.5}, 2, 3))
	dy := must.M1(FromFlat([]float64{1, 0, 0, 1, 2, 3}, 2, 3))
	out, err := grad.Call(dy, sm)
	require.NoError(t, err)

	// dx = dy*sm - sum(dy*sm)*sm, row-wise.
	outFlat := FlatOf[float64](out)
	smFlat, dyFlat := FlatOf[float64](sm), FlatOf[float64](dy)
	for row := 0; row < 2; row++ {
		sum := 0.0
		for col := 0; col < 3; col++ {
			sum += dyFlat[row*3+col] * smFlat[row*3+col]
		}
		for col := 0; col < 3; col++ {
			idx := row*3 + col
			assert.InDelta(t, dyFlat[idx]*smFlat[idx]-sum*smFlat[idx], outFlat[idx], 1e-12)
		}
	}
}

func TestSoftmaxErrors(t *testing.T) {
	opts := DefaultCompileOptions()
	_, err := BuildSoftmax(axisOf(0), 1, dtypes.Int32, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))

	_, err = BuildSoftmax(axisOf(2), 2, dtypes.Float32, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAxis))
}

func TestMaxAndArgmax(t *testing.T) {
	opts := DefaultCompileOptions()
	x := must.M1(FromFlat([]float32{3, 1, 2, 0, 5, 4}, 2, 3))

	kernel, err := BuildMaxAndArgmax([]int{1}, 2, dtypes.Float32, opts)
	require.NoError(t, err)
	outs, err := kernel.CallMulti(x)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, []float32{3, 5}, FlatOf[float32](outs[0]))
	assert.Equal(t, dtypes.Int64, outs[1].DType())
	assert.Equal(t, []int64{0, 1}, FlatOf[int64](outs[1]))

	// All axes: the index counts row-major over the whole array.
	kernel, err = BuildMaxAndArgmax(nil, 2, dtypes.Float32, opts)
	require.NoError(t, err)
	outs, err = kernel.CallMulti(x)
	require.NoError(t, err)
	assert.Equal(t, float32(5), outs[0].Item())
	assert.Equal(t, int64(4), outs[1].Item())
}

func TestMaxAndArgmaxLeadingAxis(t *testing.T) {
	// Reducing axis 0 counts indices along the columns.
	x := must.M1(FromFlat([]int32{3, 1, 2, 0, 5, 4}, 2, 3))
	kernel, err := BuildMaxAndArgmax([]int{0}, 2, dtypes.Int32, DefaultCompileOptions())
	require.NoError(t, err)
	outs, err := kernel.CallMulti(x)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 5, 4}, FlatOf[int32](outs[0]))
	assert.Equal(t, []int64{0, 1, 1}, FlatOf[int64](outs[1]))
}

func TestMaxAndArgmaxTies(t *testing.T) {
	// Ties resolve to the first occurrence.
	x := must.M1(FromFlat([]float64{7, 7, 7, 1, 7, 7}, 2, 3))
	kernel, err := BuildMaxAndArgmax([]int{1}, 2, dtypes.Float64, DefaultCompileOptions())
	require.NoError(t, err)
	outs, err := kernel.CallMulti(x)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, FlatOf[int64](outs[1]))
}

func TestMaxAndArgmaxRank0(t *testing.T) {
	kernel, err := BuildMaxAndArgmax(nil, 0, dtypes.Float32, DefaultCompileOptions())
	require.NoError(t, err)
	outs, err := kernel.CallMulti(FromScalar[float32](3.5))
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), outs[0].Item())
	assert.Equal(t, int64(0), outs[1].Item())
}

func TestKernelDeterminism(t *testing.T) {
	// Two kernels built from the same description produce identical results.
	opts := DefaultCompileOptions()
	x := must.M1(FromFlat([]float64{0.1, 0.9, -2, 4, 1e-3, 17}, 2, 3))
	k1, err := BuildSoftmax(axisOf(1), 2, dtypes.Float64, opts)
	require.NoError(t, err)
	k2, err := BuildSoftmax(axisOf(1), 2, dtypes.Float64, opts)
	require.NoError(t, err)
	out1, err := k1.Call(x)
	require.NoError(t, err)
	out2, err := k2.Call(x)
	require.NoError(t, err)
	assert.Equal(t, FlatOf[float64](out1), FlatOf[float64](out2))
}
