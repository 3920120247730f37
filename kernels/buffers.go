// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/kernelgen/types/shapes"
)

// Buffer is the dense row-major array container kernels consume and produce.
// flat is a slice of the Go type corresponding to shape.DType, of length
// shape.Size(). A rank-0 Buffer holds a single element and is the scalar
// container: Item() unwraps it.
type Buffer struct {
	shape shapes.Shape
	flat  any
}

// NewBuffer returns a zero-initialized buffer of the given shape.
func NewBuffer(shape shapes.Shape) *Buffer {
	flat := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	return &Buffer{shape: shape, flat: flat.Interface()}
}

// FromFlat wraps (does not copy) a flat slice as a buffer with the given
// dimensions. No dimensions means rank-0, requiring len(flat) == 1.
func FromFlat[T dtypes.Supported](flat []T, dimensions ...int) (*Buffer, error) {
	var shape shapes.Shape
	if len(dimensions) == 0 {
		shape = shapes.Scalar[T]()
	} else {
		shape = shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	}
	if len(flat) != shape.Size() {
		return nil, errors.Wrapf(ErrShapeMismatch, "FromFlat: %d elements for shape %s (wants %d)",
			len(flat), shape, shape.Size())
	}
	return &Buffer{shape: shape, flat: flat}, nil
}

// FromScalar returns a rank-0 buffer holding the value.
func FromScalar[T dtypes.Supported](value T) *Buffer {
	return &Buffer{shape: shapes.Scalar[T](), flat: []T{value}}
}

// Shape of the buffer.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// DType of the buffer's elements.
func (b *Buffer) DType() dtypes.DType { return b.shape.DType }

// Rank of the buffer's shape.
func (b *Buffer) Rank() int { return b.shape.Rank() }

// Size is the number of elements stored.
func (b *Buffer) Size() int { return b.shape.Size() }

// Flat returns the underlying flat slice as an any. Use FlatOf for the typed
// version.
func (b *Buffer) Flat() any { return b.flat }

// FlatOf returns the buffer's flat slice typed. It panics if T doesn't match
// the buffer's dtype.
func FlatOf[T dtypes.Supported](b *Buffer) []T {
	flat, ok := b.flat.([]T)
	if !ok {
		exceptions.Panicf("buffer holds %s, accessed as %s", b.shape.DType, dtypes.FromGenericsType[T]())
	}
	return flat
}

// Item returns the single element of a size-1 buffer (typically rank-0).
// It panics for larger buffers.
func (b *Buffer) Item() any {
	if b.Size() != 1 {
		exceptions.Panicf("Buffer.Item on shape %s, only size-1 buffers have an item", b.shape)
	}
	return reflect.ValueOf(b.flat).Index(0).Interface()
}

// ScalarOf returns the single element of a size-1 buffer, typed.
func ScalarOf[T dtypes.Supported](b *Buffer) T {
	return FlatOf[T](b)[0]
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	src := reflect.ValueOf(b.flat)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return &Buffer{shape: b.shape.Clone(), flat: dst.Interface()}
}

// withDimensions returns a buffer sharing this buffer's storage but viewed
// with different dimensions of the same total size.
func (b *Buffer) withDimensions(dimensions ...int) *Buffer {
	var shape shapes.Shape
	if len(dimensions) == 0 {
		shape = shapes.ScalarOf(b.shape.DType)
	} else {
		shape = shapes.Make(b.shape.DType, dimensions...)
	}
	if shape.Size() != b.Size() {
		exceptions.Panicf("cannot view buffer %s with dimensions %v", b.shape, dimensions)
	}
	return &Buffer{shape: shape, flat: b.flat}
}

// convertToDType returns the buffer converted element-wise to the given
// dtype, or the buffer itself if it already matches. Conversion goes through
// float64, which covers every supported numeric dtype and bool (false=0).
func convertToDType(b *Buffer, dtype dtypes.DType) *Buffer {
	if b.shape.DType == dtype {
		return b
	}
	out := NewBuffer(b.shape.WithDType(dtype))
	get := flatToFloat64Fn(b.shape.DType)
	set := flatSetFloat64Fn(dtype)
	for idx := range b.Size() {
		set(out.flat, idx, get(b.flat, idx))
	}
	return out
}
