// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/kernelgen/shapeinference"
	"github.com/gomlx/kernelgen/types/shapes"
	"github.com/gomlx/kernelgen/types/xslices"
)

// Composite numeric kernels: softmax, log-softmax, softmax gradient and
// max+argmax. They chain reducers built once at compile time with fused
// elementwise passes; nothing is rebuilt per call.
//
// The softmax family supports Float32 and Float64 only.

// softmaxStepFns are the dtype-specialized elementwise passes the softmax
// family chains between its reduction stages. Buffers named with a "b"
// prefix broadcast against the other arguments.
type softmaxStepFns struct {
	expSub    func(x, bz *Buffer) *Buffer // exp(x - bz)
	sub       func(x, bz *Buffer) *Buffer // x - bz
	exp       func(x *Buffer) *Buffer
	divBy     func(num, bden *Buffer)     // num /= bden, in place
	subLogOf  func(x, bw *Buffer)         // x -= log(bw), in place
	mul       func(a, b *Buffer) *Buffer  // a * b
	subScaled func(t, bs, sm *Buffer)     // t -= bs * sm, in place
}

func softmaxSteps[T podFloatConstraints]() softmaxStepFns {
	broadcastOf := func(b *Buffer, target *Buffer) *broadcastIterator {
		return newBroadcastIterator(b.Shape().Dimensions, target.Shape().Dimensions)
	}
	return softmaxStepFns{
		expSub: func(x, bz *Buffer) *Buffer {
			out := NewBuffer(x.Shape())
			xFlat, outFlat, zFlat := FlatOf[T](x), FlatOf[T](out), FlatOf[T](bz)
			it := broadcastOf(bz, x)
			for idx := range outFlat {
				outFlat[idx] = T(math.Exp(float64(xFlat[idx] - zFlat[it.next()])))
			}
			return out
		},
		sub: func(x, bz *Buffer) *Buffer {
			out := NewBuffer(x.Shape())
			xFlat, outFlat, zFlat := FlatOf[T](x), FlatOf[T](out), FlatOf[T](bz)
			it := broadcastOf(bz, x)
			for idx := range outFlat {
				outFlat[idx] = xFlat[idx] - zFlat[it.next()]
			}
			return out
		},
		exp: func(x *Buffer) *Buffer {
			out := NewBuffer(x.Shape())
			xFlat, outFlat := FlatOf[T](x), FlatOf[T](out)
			for idx := range outFlat {
				outFlat[idx] = T(math.Exp(float64(xFlat[idx])))
			}
			return out
		},
		divBy: func(num, bden *Buffer) {
			numFlat, denFlat := FlatOf[T](num), FlatOf[T](bden)
			it := broadcastOf(bden, num)
			for idx := range numFlat {
				numFlat[idx] /= denFlat[it.next()]
			}
		},
		subLogOf: func(x, bw *Buffer) {
			xFlat, wFlat := FlatOf[T](x), FlatOf[T](bw)
			it := broadcastOf(bw, x)
			for idx := range xFlat {
				xFlat[idx] -= T(math.Log(float64(wFlat[it.next()])))
			}
		},
		mul: func(a, b *Buffer) *Buffer {
			out := NewBuffer(a.Shape())
			aFlat, bFlat, outFlat := FlatOf[T](a), FlatOf[T](b), FlatOf[T](out)
			for idx := range outFlat {
				outFlat[idx] = aFlat[idx] * bFlat[idx]
			}
			return out
		},
		subScaled: func(t, bs, sm *Buffer) {
			tFlat, sFlat, smFlat := FlatOf[T](t), FlatOf[T](bs), FlatOf[T](sm)
			it := broadcastOf(bs, t)
			for idx := range tFlat {
				tFlat[idx] -= sFlat[it.next()] * smFlat[idx]
			}
		},
	}
}

func softmaxStepsFor(name string, dtype dtypes.DType) (softmaxStepFns, error) {
	switch dtype {
	case dtypes.Float32:
		return softmaxSteps[float32](), nil
	case dtypes.Float64:
		return softmaxSteps[float64](), nil
	}
	return softmaxStepFns{}, errors.Wrapf(ErrUnsupportedOperator,
		"%s only supports Float32 and Float64, got %s", name, dtype)
}

// softmaxReducers builds the max and sum reduction stages shared by the
// softmax family: single-axis with keepdims when axis is given, a
// whole-array reduction to a scalar when it is nil. Under FastMath the max
// stage (the overflow guard) is skipped and reduceMax comes back nil.
func softmaxReducers(axis *int, rank int, dtype dtypes.DType, opts CompileOptions) (reduceMax, reduceSum *Kernel, axes []int, err error) {
	if axis != nil {
		var adjusted int
		adjusted, err = shapeinference.AdjustAxisToRank(*axis, rank)
		if err != nil {
			err = errors.Wrapf(ErrInvalidAxis, "%v", err)
			return
		}
		axes = []int{adjusted}
		if !opts.FastMath {
			reduceMax, err = BuildAxisReducer(OpTagMax, nil, adjusted, rank, dtype, true, opts)
			if err != nil {
				return
			}
		}
		reduceSum, err = BuildAxisReducer(OpTagAdd, nil, adjusted, rank, dtype, true, opts)
		return
	}
	axes = xslices.Iota(0, rank)
	if !opts.FastMath {
		reduceMax, err = BuildMultiAxisReducer(OpTagMax, nil, nil, rank, dtype, opts)
		if err != nil {
			return
		}
	}
	reduceSum, err = BuildMultiAxisReducer(OpTagAdd, nil, nil, rank, dtype, opts)
	return
}

// BuildSoftmax compiles exp(x-max)/sum(exp(x-max)) over the given axis of a
// rank-`rank` operand, or over the whole array when axis is nil. The max
// subtraction keeps exp from overflowing; CompileOptions.FastMath drops it.
func BuildSoftmax(axis *int, rank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	steps, err := softmaxStepsFor("softmax", dtype)
	if err != nil {
		return nil, err
	}
	reduceMax, reduceSum, axes, err := softmaxReducers(axis, rank, dtype, opts)
	if err != nil {
		return nil, err
	}
	prog := Program{Name: "softmax", DType: dtype, InputRanks: []int{rank}, Axes: axes, Inplace: -1}
	sig := Signature{NumInputs: 1, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		x := inputs[0]
		var e *Buffer
		if reduceMax != nil {
			z := reduceMax.fn([]*Buffer{x})[0]
			e = steps.expSub(x, z)
		} else {
			e = steps.exp(x)
		}
		w := reduceSum.fn([]*Buffer{e})[0]
		steps.divBy(e, w)
		return []*Buffer{e}
	}
	return compile(prog, sig, opts, fn), nil
}

// BuildLogSoftmax compiles (x-max) - log(sum(exp(x-max))), the numerically
// stable log of BuildSoftmax's result.
func BuildLogSoftmax(axis *int, rank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	steps, err := softmaxStepsFor("log-softmax", dtype)
	if err != nil {
		return nil, err
	}
	reduceMax, reduceSum, axes, err := softmaxReducers(axis, rank, dtype, opts)
	if err != nil {
		return nil, err
	}
	prog := Program{Name: "log-softmax", DType: dtype, InputRanks: []int{rank}, Axes: axes, Inplace: -1}
	sig := Signature{NumInputs: 1, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		x := inputs[0]
		var xm *Buffer
		if reduceMax != nil {
			z := reduceMax.fn([]*Buffer{x})[0]
			xm = steps.sub(x, z)
		} else {
			xm = x.Clone()
		}
		w := reduceSum.fn([]*Buffer{steps.exp(xm)})[0]
		steps.subLogOf(xm, w)
		return []*Buffer{xm}
	}
	return compile(prog, sig, opts, fn), nil
}

// BuildSoftmaxGrad compiles the softmax backward pass: given the output
// gradient dy and the forward softmax result sm (same shape), it computes
// dy*sm - sum(dy*sm)*sm with the sum over the softmax axis.
func BuildSoftmaxGrad(axis *int, rank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	steps, err := softmaxStepsFor("softmax-grad", dtype)
	if err != nil {
		return nil, err
	}
	_, reduceSum, axes, err := softmaxReducers(axis, rank, dtype, opts)
	if err != nil {
		return nil, err
	}
	prog := Program{Name: "softmax-grad", DType: dtype, InputRanks: []int{rank, rank}, Axes: axes, Inplace: -1}
	sig := Signature{NumInputs: 2, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		dy, sm := inputs[0], inputs[1]
		if opts.BoundsCheck && !dy.Shape().EqualDimensions(sm.Shape()) {
			exceptions.Panicf("kernel %s: gradient %s and softmax output %s disagree",
				prog, dy.Shape(), sm.Shape())
		}
		dm := steps.mul(dy, sm)
		s := reduceSum.fn([]*Buffer{dm})[0]
		steps.subScaled(dm, s, sm)
		return []*Buffer{dm}
	}
	return compile(prog, sig, opts, fn), nil
}

// argmaxExecutor scans rowLength-sized rows of src, walked through it, and
// writes the offset of each row's first maximum into out (Int64).
func argmaxExecutor[T podNumericConstraints](src, out *Buffer, it *gatherIterator, rowLength int) {
	srcFlat := FlatOf[T](src)
	outFlat := FlatOf[int64](out)
	for row := range outFlat {
		best := srcFlat[it.next()]
		bestIdx := 0
		for col := 1; col < rowLength; col++ {
			value := srcFlat[it.next()]
			if value > best { // ties keep the first occurrence
				best = value
				bestIdx = col
			}
		}
		outFlat[row] = int64(bestIdx)
	}
}

// BuildMaxAndArgmax compiles a two-output kernel: the maximum over the given
// axes (all axes when empty) and the Int64 offset of its first occurrence,
// counted in row-major order over the reduced axes. A rank-0 operand yields
// the value itself and index 0.
func BuildMaxAndArgmax(axes []int, rank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	prog := Program{Name: "max-argmax", Tag: OpTagMax, DType: dtype, InputRanks: []int{rank}, Inplace: -1}
	sig := Signature{NumInputs: 1, NumOutputs: 2, DType: dtype}
	if rank == 0 {
		fn := func(inputs []*Buffer) []*Buffer {
			checkInputs(prog, sig, opts, inputs)
			return []*Buffer{inputs[0].Clone(), FromScalar(int64(0))}
		}
		return compile(prog, sig, opts, fn), nil
	}

	if len(axes) == 0 {
		axes = xslices.Iota(0, rank)
	}
	normalized, err := shapeinference.NormalizeAxes(axes, rank)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAxis, "BuildMaxAndArgmax: %v", err)
	}
	prog.Axes = normalized
	maxKernel, err := BuildMultiAxisReducer(OpTagMax, nil, normalized, rank, dtype, opts)
	if err != nil {
		return nil, err
	}
	var exec func(src, out *Buffer, it *gatherIterator, rowLength int)
	switch dtype {
	case dtypes.Float32:
		exec = argmaxExecutor[float32]
	case dtypes.Float64:
		exec = argmaxExecutor[float64]
	case dtypes.Int8:
		exec = argmaxExecutor[int8]
	case dtypes.Int16:
		exec = argmaxExecutor[int16]
	case dtypes.Int32:
		exec = argmaxExecutor[int32]
	case dtypes.Int64:
		exec = argmaxExecutor[int64]
	case dtypes.Uint8:
		exec = argmaxExecutor[uint8]
	case dtypes.Uint16:
		exec = argmaxExecutor[uint16]
	case dtypes.Uint32:
		exec = argmaxExecutor[uint32]
	case dtypes.Uint64:
		exec = argmaxExecutor[uint64]
	default:
		return nil, errors.Wrapf(ErrUnsupportedOperator, "argmax is not supported for dtype %s", dtype)
	}
	reducedSet := make([]bool, rank)
	for _, axis := range normalized {
		reducedSet[axis] = true
	}
	var keptAxes []int
	for axis := range rank {
		if !reducedSet[axis] {
			keptAxes = append(keptAxes, axis)
		}
	}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		x := inputs[0]
		if opts.BoundsCheck && x.DType() != dtype {
			exceptions.Panicf("kernel %s: input has dtype %s, built for %s", prog, x.DType(), dtype)
		}
		inDims := x.Shape().Dimensions
		inStrides := x.Shape().Strides()
		rowLength := 1
		for _, axis := range normalized {
			rowLength *= inDims[axis]
		}
		if rowLength == 0 {
			exceptions.Panicf("kernel %s: cannot take the argmax over zero-size axes of %s", prog, x.Shape())
		}

		// Walk the operand as if transposed to (kept axes..., reduced
		// axes...) and flattened to rows of rowLength.
		permDims := make([]int, 0, rank)
		permStrides := make([]int, 0, rank)
		for _, axis := range keptAxes {
			permDims = append(permDims, inDims[axis])
			permStrides = append(permStrides, inStrides[axis])
		}
		for _, axis := range normalized {
			permDims = append(permDims, inDims[axis])
			permStrides = append(permStrides, inStrides[axis])
		}

		maxOut := maxKernel.fn([]*Buffer{x})[0]
		var argmax *Buffer
		if len(keptAxes) == 0 {
			argmax = NewBuffer(shapes.ScalarOf(dtypes.Int64))
		} else {
			keptDims := make([]int, len(keptAxes))
			for ii, axis := range keptAxes {
				keptDims[ii] = inDims[axis]
			}
			argmax = NewBuffer(shapes.Make(dtypes.Int64, keptDims...))
		}
		exec(x, argmax, newGatherIterator(permDims, permStrides), rowLength)
		return []*Buffer{maxOut, argmax}
	}
	return compile(prog, sig, opts, fn), nil
}
