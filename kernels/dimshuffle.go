// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/kernelgen/shapeinference"
	"github.com/gomlx/kernelgen/types/shapes"
)

// DimShuffleSpec describes an axis shuffle: a permutation of a subset of the
// source axes, dropping the left-out source axes (which must have size 1 at
// runtime) and inserting new size-1 axes at chosen output positions.
type DimShuffleSpec struct {
	// AxisOrder lists the kept source axes in output order. A source axis
	// appearing twice is a build error.
	AxisOrder []int

	// InsertedAxes are the output positions receiving new size-1 axes.
	// Together with the kept axes they make up the full output rank.
	InsertedAxes []int

	// StaticOutputDims optionally fixes the output dimensions at build time,
	// one entry per output axis; the kernel then skips computing them from
	// the runtime input. Inserted positions must hold 1.
	StaticOutputDims []int

	// Inplace lets the output alias the input storage whenever the shuffle
	// does not move elements (the kept axes stay in ascending order).
	// Shuffles that move data always produce a new contiguous buffer.
	Inplace bool
}

// gatherExecutors copy src elements into dst following a gatherIterator,
// specialized per dtype.
var gatherExecutors = map[dtypes.DType]func(src, dst *Buffer, it *gatherIterator){}

func registerGatherExecutor[T dtypes.Supported]() {
	gatherExecutors[dtypes.FromGenericsType[T]()] = func(src, dst *Buffer, it *gatherIterator) {
		srcFlat := FlatOf[T](src)
		dstFlat := FlatOf[T](dst)
		for idx := range dstFlat {
			dstFlat[idx] = srcFlat[it.next()]
		}
	}
}

// BuildDimShuffle compiles an axis shuffle over a rank-`inputRank` operand.
//
// When the shuffle preserves the flat element order (kept axes ascending,
// identity permutations included) the kernel is a reshape: with spec.Inplace
// the result aliases the input storage, otherwise the elements are copied
// once. Shuffles that reorder elements gather into a fresh contiguous
// buffer. An empty output (no kept and no inserted axes) degenerates to the
// rank-0 scalar container.
func BuildDimShuffle(spec DimShuffleSpec, inputRank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	if err := shapeinference.CheckAxisOrder(spec.AxisOrder, inputRank); err != nil {
		return nil, errors.Wrapf(ErrInvalidAxis, "BuildDimShuffle: %v", err)
	}
	outRank := len(spec.AxisOrder) + len(spec.InsertedAxes)
	inserted := make([]bool, outRank)
	for _, pos := range spec.InsertedAxes {
		if pos < 0 || pos >= outRank {
			return nil, errors.Wrapf(ErrInvalidAxis,
				"BuildDimShuffle: inserted axis position %d out of range for output rank %d", pos, outRank)
		}
		if inserted[pos] {
			return nil, errors.Wrapf(ErrInvalidAxis,
				"BuildDimShuffle: output position %d may not receive two inserted axes", pos)
		}
		inserted[pos] = true
	}
	kept := make([]bool, inputRank)
	for _, axis := range spec.AxisOrder {
		kept[axis] = true
	}
	var droppedAxes []int
	for axis := range inputRank {
		if !kept[axis] {
			droppedAxes = append(droppedAxes, axis)
		}
	}
	if spec.StaticOutputDims != nil {
		if len(spec.StaticOutputDims) != outRank {
			return nil, errors.Wrapf(ErrShapeMismatch,
				"BuildDimShuffle: %d static output dimensions for output rank %d",
				len(spec.StaticOutputDims), outRank)
		}
		for pos, dim := range spec.StaticOutputDims {
			if inserted[pos] && dim != 1 {
				return nil, errors.Wrapf(ErrShapeMismatch,
					"BuildDimShuffle: inserted output axis %d must have size 1, got %d", pos, dim)
			}
		}
	}
	exec, ok := gatherExecutors[dtype]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "no dimshuffle executor for dtype %s", dtype)
	}
	pureReshape := slices.IsSorted(spec.AxisOrder)

	inplace := -1
	if spec.Inplace {
		inplace = 0
	}
	prog := Program{
		Name:       "dimshuffle",
		DType:      dtype,
		InputRanks: []int{inputRank},
		Axes:       slices.Clone(spec.AxisOrder),
		Inplace:    inplace,
	}
	sig := Signature{NumInputs: 1, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		input := inputs[0]
		if opts.BoundsCheck && input.DType() != dtype {
			exceptions.Panicf("kernel %s: input has dtype %s, built for %s", prog, input.DType(), dtype)
		}
		inDims := input.Shape().Dimensions
		for _, axis := range droppedAxes {
			if inDims[axis] != 1 {
				exceptions.Panicf("kernel %s: dropped axis %d has size %d, only size-1 axes can be dropped (input %s)",
					prog, axis, inDims[axis], input.Shape())
			}
		}

		outDims := spec.StaticOutputDims
		if outDims == nil {
			outDims = make([]int, outRank)
			keptPos := 0
			for pos := range outRank {
				if inserted[pos] {
					outDims[pos] = 1
				} else {
					outDims[pos] = inDims[spec.AxisOrder[keptPos]]
					keptPos++
				}
			}
		} else if opts.BoundsCheck {
			keptPos := 0
			for pos := range outRank {
				if inserted[pos] {
					continue
				}
				if outDims[pos] != inDims[spec.AxisOrder[keptPos]] {
					exceptions.Panicf("kernel %s: static output axis %d has size %d but input axis %d has size %d",
						prog, pos, outDims[pos], spec.AxisOrder[keptPos], inDims[spec.AxisOrder[keptPos]])
				}
				keptPos++
			}
		}
		var outShape shapes.Shape
		if outRank == 0 {
			outShape = shapes.ScalarOf(dtype)
		} else {
			outShape = shapes.Make(dtype, outDims...)
		}

		if pureReshape {
			if spec.Inplace {
				return []*Buffer{{shape: outShape, flat: input.flat}}
			}
			clone := input.Clone()
			return []*Buffer{{shape: outShape, flat: clone.flat}}
		}

		// The permutation moves elements: gather into a fresh contiguous
		// buffer, remapping the input strides onto the output axes.
		inStrides := input.Shape().Strides()
		srcStrides := make([]int, outRank)
		keptPos := 0
		for pos := range outRank {
			if inserted[pos] {
				continue
			}
			srcStrides[pos] = inStrides[spec.AxisOrder[keptPos]]
			keptPos++
		}
		out := NewBuffer(outShape)
		exec(input, out, newGatherIterator(outDims, srcStrides))
		return []*Buffer{out}
	}
	return compile(prog, sig, opts, fn), nil
}

func init() {
	registerGatherExecutor[bool]()
	registerGatherExecutor[int8]()
	registerGatherExecutor[int16]()
	registerGatherExecutor[int32]()
	registerGatherExecutor[int64]()
	registerGatherExecutor[uint8]()
	registerGatherExecutor[uint16]()
	registerGatherExecutor[uint32]()
	registerGatherExecutor[uint64]()
	registerGatherExecutor[float32]()
	registerGatherExecutor[float64]()
	registerGatherExecutor[float16.Float16]()
	registerGatherExecutor[bfloat16.BFloat16]()
}
