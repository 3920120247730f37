// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/kernelgen/types/shapes"
)

func addFn(args []float32) float32 { return args[0] + args[1] }

func TestElemwiseBroadcast(t *testing.T) {
	kernel, err := BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 2, 1), shapes.Make(dtypes.Float32, 1, 3)},
		InplaceInput: -1,
	}, DefaultCompileOptions())
	require.NoError(t, err)

	a := must.M1(FromFlat([]float32{1, 2}, 2, 1))
	b := must.M1(FromFlat([]float32{10, 20, 30}, 1, 3))
	out, err := kernel.Call(a, b)
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, 2, 3).Equal(out.Shape()))
	assert.Equal(t, []float32{11, 21, 31, 12, 22, 32}, FlatOf[float32](out))

	// Inputs were not modified.
	assert.Equal(t, []float32{1, 2}, FlatOf[float32](a))
	assert.Equal(t, []float32{10, 20, 30}, FlatOf[float32](b))
}

func TestElemwiseNAry(t *testing.T) {
	fma := func(args []float64) float64 { return args[0]*args[1] + args[2] }
	kernel, err := BuildElemwise("fma", fma, ElemwiseSpec{
		InputShapes: []shapes.Shape{
			shapes.Make(dtypes.Float64, 2),
			shapes.Make(dtypes.Float64, 2),
			shapes.Scalar[float64](),
		},
		InplaceInput: -1,
	}, DefaultCompileOptions())
	require.NoError(t, err)

	out, err := kernel.Call(
		must.M1(FromFlat([]float64{2, 3}, 2)),
		must.M1(FromFlat([]float64{10, 100}, 2)),
		FromScalar(1.0))
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 301}, FlatOf[float64](out))
}

func TestElemwiseInplace(t *testing.T) {
	kernel, err := BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 2, 3), shapes.Make(dtypes.Float32, 3)},
		InplaceInput: 0,
	}, DefaultCompileOptions())
	require.NoError(t, err)

	target := must.M1(FromFlat([]float32{1, 2, 3, 4, 5, 6}, 2, 3))
	other := must.M1(FromFlat([]float32{10, 20, 30}, 3))
	out, err := kernel.Call(target, other)
	require.NoError(t, err)

	// The output aliases the target's storage; the other input is untouched.
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, FlatOf[float32](target))
	assert.Same(t, &FlatOf[float32](target)[0], &FlatOf[float32](out)[0])
	assert.Equal(t, []float32{10, 20, 30}, FlatOf[float32](other))

	// An in-place target that is not the full broadcast shape is rejected
	// at build time.
	_, err = BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 3), shapes.Make(dtypes.Float32, 2, 3)},
		InplaceInput: 0,
	}, DefaultCompileOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestElemwiseInplaceMatchesOutOfPlace(t *testing.T) {
	// The in-place kernel applied to a copy of its target is bit-identical
	// to the out-of-place kernel.
	opts := DefaultCompileOptions()
	inputShapes := []shapes.Shape{shapes.Make(dtypes.Float32, 2, 3), shapes.Make(dtypes.Float32, 3)}
	div := func(args []float32) float32 { return args[0] / args[1] }
	outOfPlace, err := BuildElemwise("div", div, ElemwiseSpec{InputShapes: inputShapes, InplaceInput: -1}, opts)
	require.NoError(t, err)
	inPlace, err := BuildElemwise("div", div, ElemwiseSpec{InputShapes: inputShapes, InplaceInput: 0}, opts)
	require.NoError(t, err)

	a := must.M1(FromFlat([]float32{1, 2, 3, 4, 5, 6}, 2, 3))
	b := must.M1(FromFlat([]float32{7, 0.3, -0.11}, 3))
	want, err := outOfPlace.Call(a, b)
	require.NoError(t, err)
	got, err := inPlace.Call(a.Clone(), b)
	require.NoError(t, err)
	assert.Equal(t, FlatOf[float32](want), FlatOf[float32](got))
	assert.Equal(t, []float32{7, 0.3, -0.11}, FlatOf[float32](b))
}

func TestElemwiseInplaceScalar(t *testing.T) {
	// Rank-0 in-place target: the scalar round-trips through a one-element
	// view and comes back as a rank-0 result, equal to the out-of-place one.
	kernel, err := BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Scalar[float32](), shapes.Scalar[float32]()},
		InplaceInput: 0,
	}, DefaultCompileOptions())
	require.NoError(t, err)

	target := FromScalar[float32](3)
	other := FromScalar[float32](4)
	out, err := kernel.Call(target, other)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Rank())
	assert.Equal(t, float32(7), ScalarOf[float32](out))
	assert.Equal(t, float32(4), ScalarOf[float32](other))
}

func TestElemwiseErrors(t *testing.T) {
	// Multi-output requests are unsupported arity.
	_, err := BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 2)},
		NumOutputs:   2,
		InplaceInput: -1,
	}, DefaultCompileOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedArity))

	// Non-broadcastable build shapes.
	_, err = BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 2), shapes.Make(dtypes.Float32, 3)},
		InplaceInput: -1,
	}, DefaultCompileOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	// Runtime dimensions that no longer broadcast surface as a Call error,
	// not a panic.
	kernel, err := BuildElemwise("add", addFn, ElemwiseSpec{
		InputShapes:  []shapes.Shape{shapes.Make(dtypes.Float32, 2), shapes.Make(dtypes.Float32, 2)},
		InplaceInput: -1,
	}, DefaultCompileOptions())
	require.NoError(t, err)
	_, err = kernel.Call(
		must.M1(FromFlat([]float32{1, 2}, 2)),
		must.M1(FromFlat([]float32{1, 2, 3}, 3)))
	require.Error(t, err)
}
