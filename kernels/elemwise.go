// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/kernelgen/shapeinference"
	"github.com/gomlx/kernelgen/types/shapes"
	"github.com/gomlx/kernelgen/types/xslices"
)

// ElemwiseSpec describes an elementwise kernel to build.
type ElemwiseSpec struct {
	// InputShapes declare the operands, in order. They must be mutually
	// broadcastable and share the kernel's dtype. The kernel specializes on
	// their ranks and dtype; runtime dimensions may differ as long as they
	// still broadcast together.
	InputShapes []shapes.Shape

	// NumOutputs must be 0 or 1 (0 means 1); anything larger is
	// ErrUnsupportedArity.
	NumOutputs int

	// InplaceInput is the input index whose storage receives the result, or
	// -1 for out-of-place. The in-place target's shape must equal the
	// broadcast output shape.
	InplaceInput int
}

// BuildElemwise compiles a kernel that applies scalarFn elementwise over its
// inputs, broadcast NumPy-style to a common shape.
//
// scalarFn receives one argument per input; the args slice is reused between
// elements and must not be retained.
//
// With InplaceInput >= 0 the result is written into that input's storage and
// the returned buffer aliases it. A rank-0 in-place target is routed through
// a one-element view of its storage and the single element is handed back as
// a rank-0 result; all other inputs are never written to.
func BuildElemwise[T dtypes.Supported](name string, scalarFn func(args []T) T, spec ElemwiseSpec, opts CompileOptions) (*Kernel, error) {
	if spec.NumOutputs > 1 {
		return nil, errors.Wrapf(ErrUnsupportedArity, "BuildElemwise(%s): %d outputs requested", name, spec.NumOutputs)
	}
	numInputs := len(spec.InputShapes)
	if numInputs == 0 {
		return nil, errors.Errorf("BuildElemwise(%s): at least one input is required", name)
	}
	dtype := dtypes.FromGenericsType[T]()
	for ii, s := range spec.InputShapes {
		if s.DType != dtype {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"BuildElemwise(%s): input #%d is %s, building for dtype %s", name, ii, s, dtype)
		}
	}
	buildOutShape, err := shapeinference.BroadcastShapes(spec.InputShapes...)
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "BuildElemwise(%s): %v", name, err)
	}
	inplace := spec.InplaceInput
	if inplace < -1 || inplace >= numInputs {
		return nil, errors.Errorf("BuildElemwise(%s): in-place input #%d out of range for %d inputs",
			name, inplace, numInputs)
	}
	if inplace >= 0 && !spec.InputShapes[inplace].Equal(buildOutShape) {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"BuildElemwise(%s): in-place input #%d is %s but the broadcast output is %s",
			name, inplace, spec.InputShapes[inplace], buildOutShape)
	}

	prog := Program{
		Name:       "elemwise:" + name,
		DType:      dtype,
		InputRanks: xslices.Map(spec.InputShapes, func(s shapes.Shape) int { return s.Rank() }),
		Inplace:    inplace,
	}
	sig := Signature{NumInputs: numInputs, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		runtimeShapes := make([]shapes.Shape, numInputs)
		for ii, input := range inputs {
			if opts.BoundsCheck && input.DType() != dtype {
				exceptions.Panicf("kernel %s: input #%d has dtype %s, built for %s",
					prog, ii, input.DType(), dtype)
			}
			runtimeShapes[ii] = input.Shape()
		}
		outShape, err := shapeinference.BroadcastShapes(runtimeShapes...)
		if err != nil {
			exceptions.Panicf("kernel %s: %v", prog, err)
		}

		scalarTarget := false
		var out *Buffer
		switch {
		case inplace < 0:
			out = NewBuffer(outShape)
		case inputs[inplace].Rank() == 0:
			// Scalar container target: compute through a one-element view
			// and unwrap to rank-0 at the end.
			if opts.BoundsCheck && outShape.Rank() != 0 {
				exceptions.Panicf("kernel %s: in-place target is a scalar but the broadcast output is %s",
					prog, outShape)
			}
			out = inputs[inplace].withDimensions(1)
			scalarTarget = true
		default:
			if opts.BoundsCheck && !inputs[inplace].Shape().EqualDimensions(outShape) {
				exceptions.Panicf("kernel %s: in-place target %s does not match broadcast output %s",
					prog, inputs[inplace].Shape(), outShape)
			}
			out = inputs[inplace]
		}

		outFlat := FlatOf[T](out)
		iterators := make([]*broadcastIterator, numInputs)
		flats := make([][]T, numInputs)
		for ii, input := range inputs {
			iterators[ii] = newBroadcastIterator(input.Shape().Dimensions, outShape.Dimensions)
			flats[ii] = FlatOf[T](input)
		}
		args := make([]T, numInputs)
		for idx := range outFlat {
			for ii := range args {
				args[ii] = flats[ii][iterators[ii].next()]
			}
			outFlat[idx] = scalarFn(args)
		}
		if scalarTarget {
			return []*Buffer{out.withDimensions()}
		}
		return []*Buffer{out}
	}
	return compile(prog, sig, opts, fn), nil
}
