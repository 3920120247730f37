// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// podNumericConstraints are the native Go numeric types executors specialize
// for. Float16 and BFloat16 are container types and get explicit
// registrations next to the generic ones.
type podNumericConstraints interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// podSignedIntConstraints are the native signed integer types.
type podSignedIntConstraints interface {
	int8 | int16 | int32 | int64
}

// podUnsignedIntConstraints are the native unsigned integer types.
type podUnsignedIntConstraints interface {
	uint8 | uint16 | uint32 | uint64
}

// podFloatConstraints are the native float types.
type podFloatConstraints interface {
	float32 | float64
}

// Element accessors through float64, used for dtype conversion and identity
// resolution. float64 represents every supported dtype's values exactly,
// except int64/uint64 magnitudes beyond 2^53.
var (
	flatToFloat64Table  = map[dtypes.DType]func(flat any, idx int) float64{}
	flatSetFloat64Table = map[dtypes.DType]func(flat any, idx int, value float64){}
)

func registerFloat64Access[T podNumericConstraints]() {
	dtype := dtypes.FromGenericsType[T]()
	flatToFloat64Table[dtype] = func(flat any, idx int) float64 {
		return float64(flat.([]T)[idx])
	}
	flatSetFloat64Table[dtype] = func(flat any, idx int, value float64) {
		flat.([]T)[idx] = T(value)
	}
}

func init() {
	registerFloat64Access[float32]()
	registerFloat64Access[float64]()
	registerFloat64Access[int8]()
	registerFloat64Access[int16]()
	registerFloat64Access[int32]()
	registerFloat64Access[int64]()
	registerFloat64Access[uint8]()
	registerFloat64Access[uint16]()
	registerFloat64Access[uint32]()
	registerFloat64Access[uint64]()

	flatToFloat64Table[dtypes.Bool] = func(flat any, idx int) float64 {
		if flat.([]bool)[idx] {
			return 1
		}
		return 0
	}
	flatSetFloat64Table[dtypes.Bool] = func(flat any, idx int, value float64) {
		flat.([]bool)[idx] = value != 0
	}

	flatToFloat64Table[dtypes.Float16] = func(flat any, idx int) float64 {
		return float64(flat.([]float16.Float16)[idx].Float32())
	}
	flatSetFloat64Table[dtypes.Float16] = func(flat any, idx int, value float64) {
		flat.([]float16.Float16)[idx] = float16.Fromfloat32(float32(value))
	}

	flatToFloat64Table[dtypes.BFloat16] = func(flat any, idx int) float64 {
		return float64(flat.([]bfloat16.BFloat16)[idx].Float32())
	}
	flatSetFloat64Table[dtypes.BFloat16] = func(flat any, idx int, value float64) {
		flat.([]bfloat16.BFloat16)[idx] = bfloat16.FromFloat32(float32(value))
	}
}

func flatToFloat64Fn(dtype dtypes.DType) func(flat any, idx int) float64 {
	fn, ok := flatToFloat64Table[dtype]
	if !ok {
		exceptions.Panicf("dtype %s has no element accessor registered", dtype)
	}
	return fn
}

func flatSetFloat64Fn(dtype dtypes.DType) func(flat any, idx int, value float64) {
	fn, ok := flatSetFloat64Table[dtype]
	if !ok {
		exceptions.Panicf("dtype %s has no element accessor registered", dtype)
	}
	return fn
}

// scalarOfDType converts value to a scalar of the Go type backing dtype.
func scalarOfDType(dtype dtypes.DType, value float64) any {
	switch dtype {
	case dtypes.Bool:
		return value != 0
	case dtypes.Int8:
		return int8(value)
	case dtypes.Int16:
		return int16(value)
	case dtypes.Int32:
		return int32(value)
	case dtypes.Int64:
		return int64(value)
	case dtypes.Uint8:
		return uint8(value)
	case dtypes.Uint16:
		return uint16(value)
	case dtypes.Uint32:
		return uint32(value)
	case dtypes.Uint64:
		return uint64(value)
	case dtypes.Float32:
		return float32(value)
	case dtypes.Float64:
		return value
	case dtypes.Float16:
		return float16.Fromfloat32(float32(value))
	case dtypes.BFloat16:
		return bfloat16.FromFloat32(float32(value))
	}
	exceptions.Panicf("dtype %s is not supported by kernels", dtype)
	return nil
}

// toFloat64 converts any supported scalar value to float64. The second
// result reports whether the value's type was recognized.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case float16.Float16:
		return float64(v.Float32()), true
	case bfloat16.BFloat16:
		return float64(v.Float32()), true
	}
	return 0, false
}
