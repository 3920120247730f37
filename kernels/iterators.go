// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

// Flat-index iterators driving the executors. They all walk some array in
// row-major order while maintaining a second flat index through per-axis
// strides, avoiding any coordinate arithmetic in the inner loops.

// broadcastIterator yields, for each position of a row-major walk over the
// target dimensions, the flat index into an operand broadcast to the target.
// The operand aligns to the trailing axes of the target (NumPy convention)
// and its size-1 axes repeat.
type broadcastIterator struct {
	targetDims []int
	strides    []int // operand strides per target axis, 0 on broadcast axes
	perAxisIdx []int
	flatIdx    int
}

func newBroadcastIterator(operandDims, targetDims []int) *broadcastIterator {
	rank := len(targetDims)
	offset := rank - len(operandDims)
	strides := make([]int, rank)
	stride := 1
	for axis := len(operandDims) - 1; axis >= 0; axis-- {
		if operandDims[axis] != 1 {
			strides[axis+offset] = stride
		}
		stride *= operandDims[axis]
	}
	return &broadcastIterator{
		targetDims: targetDims,
		strides:    strides,
		perAxisIdx: make([]int, rank),
	}
}

func (it *broadcastIterator) next() int {
	idx := it.flatIdx
	for axis := len(it.targetDims) - 1; axis >= 0; axis-- {
		it.flatIdx += it.strides[axis]
		it.perAxisIdx[axis]++
		if it.perAxisIdx[axis] < it.targetDims[axis] {
			break
		}
		// Axis wrapped around: undo its contribution and carry.
		it.perAxisIdx[axis] = 0
		it.flatIdx -= it.strides[axis] * it.targetDims[axis]
	}
	return idx
}

// reduceIterator yields, for each position of a row-major walk over the
// operand, the flat index into the output with one axis reduced away, plus
// the 0-based fold count for that output cell (the coordinate along the
// reduced axis). The output flat layout is the same with or without
// keepdims.
type reduceIterator struct {
	operandDims []int
	axis        int
	outStrides  []int // output strides per operand axis, 0 at the reduced axis
	perAxisIdx  []int
	outIdx      int
}

func newReduceIterator(operandDims []int, axis int) *reduceIterator {
	rank := len(operandDims)
	outStrides := make([]int, rank)
	stride := 1
	for a := rank - 1; a >= 0; a-- {
		if a != axis {
			outStrides[a] = stride
			stride *= operandDims[a]
		}
	}
	return &reduceIterator{
		operandDims: operandDims,
		axis:        axis,
		outStrides:  outStrides,
		perAxisIdx:  make([]int, rank),
	}
}

func (it *reduceIterator) next() (outIdx, count int) {
	outIdx = it.outIdx
	count = it.perAxisIdx[it.axis]
	for a := len(it.operandDims) - 1; a >= 0; a-- {
		it.outIdx += it.outStrides[a]
		it.perAxisIdx[a]++
		if it.perAxisIdx[a] < it.operandDims[a] {
			break
		}
		it.perAxisIdx[a] = 0
		it.outIdx -= it.outStrides[a] * it.operandDims[a]
	}
	return
}

// gatherIterator yields, for each position of a row-major walk over the
// output dimensions, the flat index into a source array, given the source
// stride of each output axis (0 for output axes not backed by a source
// axis). It implements transposes and axis insertion by stride remapping.
type gatherIterator struct {
	outDims    []int
	srcStrides []int
	perAxisIdx []int
	srcIdx     int
}

func newGatherIterator(outDims, srcStrides []int) *gatherIterator {
	return &gatherIterator{
		outDims:    outDims,
		srcStrides: srcStrides,
		perAxisIdx: make([]int, len(outDims)),
	}
}

func (it *gatherIterator) next() int {
	idx := it.srcIdx
	for axis := len(it.outDims) - 1; axis >= 0; axis-- {
		it.srcIdx += it.srcStrides[axis]
		it.perAxisIdx[axis]++
		if it.perAxisIdx[axis] < it.outDims[axis] {
			break
		}
		it.perAxisIdx[axis] = 0
		it.srcIdx -= it.srcStrides[axis] * it.outDims[axis]
	}
	return idx
}
