// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// UpdateFn folds one operand into acc[accIdx] in place. count is the 0-based
// index of the fold step for that output cell; only running-mean style
// operators use it, the rest ignore it.
type UpdateFn[T dtypes.Supported] func(acc []T, accIdx int, operand T, count int)

// scalarUpdates maps (tag, dtype) to an UpdateFn[T] stored as any.
var scalarUpdates [OpTagLast]map[dtypes.DType]any

// RegisterScalarUpdate registers fn as the in-place update for tag on T's
// dtype, replacing any previous registration. Call it from an init() to
// extend or override the operator set.
func RegisterScalarUpdate[T dtypes.Supported](tag OpTag, fn UpdateFn[T]) {
	if tag <= OpTagInvalid || tag >= OpTagLast {
		exceptions.Panicf("RegisterScalarUpdate: invalid tag %d", tag)
	}
	dtype := dtypes.FromGenericsType[T]()
	if scalarUpdates[tag] == nil {
		scalarUpdates[tag] = make(map[dtypes.DType]any)
	}
	scalarUpdates[tag][dtype] = fn
}

// HasScalarUpdate reports whether tag has an update registered for dtype.
func HasScalarUpdate(tag OpTag, dtype dtypes.DType) bool {
	if tag <= OpTagInvalid || tag >= OpTagLast {
		return false
	}
	_, ok := scalarUpdates[tag][dtype]
	return ok
}

// EmitInPlaceUpdate returns the registered in-place update for tag on T's
// dtype. Unregistered combinations report ErrUnsupportedOperator.
func EmitInPlaceUpdate[T dtypes.Supported](tag OpTag) (UpdateFn[T], error) {
	dtype := dtypes.FromGenericsType[T]()
	if tag <= OpTagInvalid || tag >= OpTagLast {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "tag %d", tag)
	}
	fn, ok := scalarUpdates[tag][dtype]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedOperator,
			"operator %s has no in-place update registered for dtype %s", tag, dtype)
	}
	return fn.(UpdateFn[T]), nil
}

// Default registrations. Arithmetic tags cover every native numeric type;
// bitwise tags cover integers and bool; division and mean split per type
// class. Float16/BFloat16 fold through float32.

func registerCommonUpdates[T podNumericConstraints]() {
	RegisterScalarUpdate[T](OpTagAdd, func(acc []T, i int, v T, _ int) { acc[i] += v })
	RegisterScalarUpdate[T](OpTagSub, func(acc []T, i int, v T, _ int) { acc[i] -= v })
	RegisterScalarUpdate[T](OpTagMul, func(acc []T, i int, v T, _ int) { acc[i] *= v })
	RegisterScalarUpdate[T](OpTagMulWithoutZeros, func(acc []T, i int, v T, _ int) {
		// A zero accumulator takes the operand; a zero operand is skipped.
		if acc[i] == 0 {
			acc[i] = v
		} else if v != 0 {
			acc[i] *= v
		}
	})
	RegisterScalarUpdate[T](OpTagMax, func(acc []T, i int, v T, _ int) {
		if acc[i] < v {
			acc[i] = v
		}
	})
	RegisterScalarUpdate[T](OpTagMin, func(acc []T, i int, v T, _ int) {
		if acc[i] > v {
			acc[i] = v
		}
	})
}

func registerFloatUpdates[T podFloatConstraints]() {
	RegisterScalarUpdate[T](OpTagTrueDiv, func(acc []T, i int, v T, _ int) { acc[i] /= v })
	RegisterScalarUpdate[T](OpTagIntDiv, func(acc []T, i int, v T, _ int) {
		acc[i] = T(math.Floor(float64(acc[i]) / float64(v)))
	})
	RegisterScalarUpdate[T](OpTagMean, func(acc []T, i int, v T, count int) {
		acc[i] += (v - acc[i]) / T(count+1)
	})
}

func registerSignedIntUpdates[T podSignedIntConstraints]() {
	RegisterScalarUpdate[T](OpTagAnd, func(acc []T, i int, v T, _ int) { acc[i] &= v })
	RegisterScalarUpdate[T](OpTagOr, func(acc []T, i int, v T, _ int) { acc[i] |= v })
	RegisterScalarUpdate[T](OpTagXor, func(acc []T, i int, v T, _ int) { acc[i] ^= v })
	RegisterScalarUpdate[T](OpTagIntDiv, func(acc []T, i int, v T, _ int) {
		// Floor division: Go's integer division truncates towards zero.
		q := acc[i] / v
		if acc[i]%v != 0 && (acc[i] < 0) != (v < 0) {
			q--
		}
		acc[i] = q
	})
}

func registerUnsignedIntUpdates[T podUnsignedIntConstraints]() {
	RegisterScalarUpdate[T](OpTagAnd, func(acc []T, i int, v T, _ int) { acc[i] &= v })
	RegisterScalarUpdate[T](OpTagOr, func(acc []T, i int, v T, _ int) { acc[i] |= v })
	RegisterScalarUpdate[T](OpTagXor, func(acc []T, i int, v T, _ int) { acc[i] ^= v })
	RegisterScalarUpdate[T](OpTagIntDiv, func(acc []T, i int, v T, _ int) { acc[i] /= v })
}

// registerHalfFloatUpdate registers fn for both Float16 and BFloat16,
// computing through float32 the same way the simplego float16 executors do.
func registerHalfFloatUpdate(tag OpTag, fn func(acc, operand float32, count int) float32) {
	RegisterScalarUpdate[float16.Float16](tag, func(acc []float16.Float16, i int, v float16.Float16, count int) {
		acc[i] = float16.Fromfloat32(fn(acc[i].Float32(), v.Float32(), count))
	})
	RegisterScalarUpdate[bfloat16.BFloat16](tag, func(acc []bfloat16.BFloat16, i int, v bfloat16.BFloat16, count int) {
		acc[i] = bfloat16.FromFloat32(fn(acc[i].Float32(), v.Float32(), count))
	})
}

func init() {
	registerCommonUpdates[float32]()
	registerCommonUpdates[float64]()
	registerCommonUpdates[int8]()
	registerCommonUpdates[int16]()
	registerCommonUpdates[int32]()
	registerCommonUpdates[int64]()
	registerCommonUpdates[uint8]()
	registerCommonUpdates[uint16]()
	registerCommonUpdates[uint32]()
	registerCommonUpdates[uint64]()

	registerFloatUpdates[float32]()
	registerFloatUpdates[float64]()

	registerSignedIntUpdates[int8]()
	registerSignedIntUpdates[int16]()
	registerSignedIntUpdates[int32]()
	registerSignedIntUpdates[int64]()

	registerUnsignedIntUpdates[uint8]()
	registerUnsignedIntUpdates[uint16]()
	registerUnsignedIntUpdates[uint32]()
	registerUnsignedIntUpdates[uint64]()

	// Bool: logical connectives, with max==or and min==and.
	RegisterScalarUpdate[bool](OpTagAnd, func(acc []bool, i int, v bool, _ int) { acc[i] = acc[i] && v })
	RegisterScalarUpdate[bool](OpTagOr, func(acc []bool, i int, v bool, _ int) { acc[i] = acc[i] || v })
	RegisterScalarUpdate[bool](OpTagXor, func(acc []bool, i int, v bool, _ int) { acc[i] = acc[i] != v })
	RegisterScalarUpdate[bool](OpTagMax, func(acc []bool, i int, v bool, _ int) { acc[i] = acc[i] || v })
	RegisterScalarUpdate[bool](OpTagMin, func(acc []bool, i int, v bool, _ int) { acc[i] = acc[i] && v })

	registerHalfFloatUpdate(OpTagAdd, func(acc, v float32, _ int) float32 { return acc + v })
	registerHalfFloatUpdate(OpTagSub, func(acc, v float32, _ int) float32 { return acc - v })
	registerHalfFloatUpdate(OpTagMul, func(acc, v float32, _ int) float32 { return acc * v })
	registerHalfFloatUpdate(OpTagTrueDiv, func(acc, v float32, _ int) float32 { return acc / v })
	registerHalfFloatUpdate(OpTagMax, func(acc, v float32, _ int) float32 {
		if acc < v {
			return v
		}
		return acc
	})
	registerHalfFloatUpdate(OpTagMin, func(acc, v float32, _ int) float32 {
		if acc > v {
			return v
		}
		return acc
	})
	registerHalfFloatUpdate(OpTagMean, func(acc, v float32, count int) float32 {
		return acc + (v-acc)/float32(count+1)
	})
}
