// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference validates axes and calculates the shapes resulting
// from broadcasting, reductions and axis permutations, at kernel-build time.
//
// All functions here return errors (as opposed to panicking): they run during
// kernel synthesis, where failures are reported to the caller with the axis /
// shape that triggered them. Runtime shape mismatches inside compiled kernels
// are not handled here.
package shapeinference

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/gomlx/kernelgen/types/shapes"
)

// AdjustAxisToRank normalizes a possibly-negative axis to [0, rank).
// Negative values count from the end: axis=-1 means the last axis.
func AdjustAxisToRank(axis, rank int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Errorf("axis %d is out of range for rank %d", axis, rank)
	}
	return adjusted, nil
}

// NormalizeAxes normalizes every axis to [0, rank), removes duplicates and
// returns them sorted in ascending order.
func NormalizeAxes(axes []int, rank int) ([]int, error) {
	normalized := make([]int, 0, len(axes))
	for _, axis := range axes {
		adjusted, err := AdjustAxisToRank(axis, rank)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(normalized, adjusted) {
			normalized = append(normalized, adjusted)
		}
	}
	slices.Sort(normalized)
	return normalized, nil
}

// BroadcastShapes returns the NumPy-style broadcast shape of the operands:
// trailing dimensions align, size-1 dimensions stretch, and mismatched non-1
// sizes are a shape error. All operands must share the same dtype.
func BroadcastShapes(operands ...shapes.Shape) (shapes.Shape, error) {
	if len(operands) == 0 {
		return shapes.Invalid(), errors.Errorf("BroadcastShapes requires at least one operand")
	}
	dtype := operands[0].DType
	rank := 0
	for _, s := range operands {
		if s.DType != dtype {
			return shapes.Invalid(), errors.Errorf(
				"BroadcastShapes: mismatched dtypes %s and %s", dtype, s.DType)
		}
		rank = max(rank, s.Rank())
	}
	dims := make([]int, rank)
	for i := range dims {
		dims[i] = 1
	}
	for _, s := range operands {
		offset := rank - s.Rank()
		for axis, dim := range s.Dimensions {
			outAxis := axis + offset
			if dims[outAxis] == 1 {
				dims[outAxis] = dim
			} else if dim != 1 && dim != dims[outAxis] {
				return shapes.Invalid(), errors.Errorf(
					"BroadcastShapes: operand %s is not broadcastable to dimensions %v (axis %d: %d vs %d)",
					s, dims, axis, dim, dims[outAxis])
			}
		}
	}
	if rank == 0 {
		return shapes.ScalarOf(dtype), nil
	}
	return shapes.Make(dtype, dims...), nil
}

// ReduceShape returns the shape that results from reducing the given axes of
// operand: reduced axes are removed, or kept as size 1 if keepdims.
// Axes must already be normalized (see NormalizeAxes).
func ReduceShape(operand shapes.Shape, axes []int, keepdims bool) (shapes.Shape, error) {
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			return shapes.Invalid(), errors.Errorf(
				"ReduceShape: axis %d is out of range for %s", axis, operand)
		}
	}
	var dims []int
	for axis, dim := range operand.Dimensions {
		if slices.Contains(axes, axis) {
			if keepdims {
				dims = append(dims, 1)
			}
			continue
		}
		dims = append(dims, dim)
	}
	if len(dims) == 0 {
		return shapes.ScalarOf(operand.DType), nil
	}
	return shapes.Make(operand.DType, dims...), nil
}

// CheckAxisOrder validates a dimshuffle axis order over a source of the given
// rank: every entry must be a valid source axis, and no source axis may
// appear twice.
func CheckAxisOrder(axisOrder []int, rank int) error {
	seen := make([]bool, rank)
	for _, axis := range axisOrder {
		if axis < 0 || axis >= rank {
			return errors.Errorf("axis %d is out of range for rank %d", axis, rank)
		}
		if seen[axis] {
			return errors.Errorf("axis %d may not appear twice in axis order %v", axis, axisOrder)
		}
		seen[axis] = true
	}
	return nil
}
