// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/kernelgen/shapeinference"
	"github.com/gomlx/kernelgen/types/xslices"
)

// resolveIdentity picks the value every output cell is seeded with before
// folding:
//
//   - nil selects the operator's default identity;
//   - the strings "inf" and "-inf" select the dtype's highest and lowest
//     representable value, so integer dtypes saturate to their max/min and
//     float dtypes get the actual infinities;
//   - numeric values are converted to dtype, with ±Inf saturating the same
//     way.
func resolveIdentity(tag OpTag, identity any, dtype dtypes.DType) (any, error) {
	if identity == nil {
		return defaultIdentity(tag, dtype)
	}
	if s, ok := identity.(string); ok {
		switch s {
		case "inf":
			return dtype.HighestValue(), nil
		case "-inf":
			return dtype.LowestValue(), nil
		}
		return nil, errors.Errorf(
			"invalid textual identity %q for %s reduction, only \"inf\" and \"-inf\" are understood", s, tag)
	}
	if reflect.TypeOf(identity) == dtype.GoType() {
		return identity, nil
	}
	value, ok := toFloat64(identity)
	if !ok {
		return nil, errors.Errorf("identity %v (%T) is not a supported scalar for a %s reduction over %s",
			identity, identity, tag, dtype)
	}
	if math.IsInf(value, 1) {
		return dtype.HighestValue(), nil
	}
	if math.IsInf(value, -1) {
		return dtype.LowestValue(), nil
	}
	return scalarOfDType(dtype, value), nil
}

func defaultIdentity(tag OpTag, dtype dtypes.DType) (any, error) {
	switch tag {
	case OpTagAdd, OpTagSub, OpTagMean, OpTagOr, OpTagXor:
		return scalarOfDType(dtype, 0), nil
	case OpTagMul, OpTagMulWithoutZeros, OpTagTrueDiv, OpTagIntDiv:
		return scalarOfDType(dtype, 1), nil
	case OpTagAnd:
		return allOnes(dtype)
	case OpTagMax:
		return dtype.LowestValue(), nil
	case OpTagMin:
		return dtype.HighestValue(), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedOperator, "operator %s has no default reduction identity", tag)
}

// allOnes is the identity of bitwise And.
func allOnes(dtype dtypes.DType) (any, error) {
	switch dtype {
	case dtypes.Bool:
		return true, nil
	case dtypes.Int8:
		return int8(-1), nil
	case dtypes.Int16:
		return int16(-1), nil
	case dtypes.Int32:
		return int32(-1), nil
	case dtypes.Int64:
		return int64(-1), nil
	case dtypes.Uint8:
		return ^uint8(0), nil
	case dtypes.Uint16:
		return ^uint16(0), nil
	case dtypes.Uint32:
		return ^uint32(0), nil
	case dtypes.Uint64:
		return ^uint64(0), nil
	}
	return nil, errors.Errorf("no all-ones identity for dtype %s", dtype)
}

// reduceExecutors fold one axis of an operand into an identity-seeded output,
// specialized per dtype.
var reduceExecutors = map[dtypes.DType]func(tag OpTag, identity any, operand, out *Buffer, it *reduceIterator){}

func registerReduceExecutor[T dtypes.Supported]() {
	dtype := dtypes.FromGenericsType[T]()
	reduceExecutors[dtype] = func(tag OpTag, identity any, operand, out *Buffer, it *reduceIterator) {
		update, err := EmitInPlaceUpdate[T](tag)
		if err != nil {
			exceptions.Panicf("%v", err)
		}
		outFlat := FlatOf[T](out)
		xslices.FillSlice(outFlat, identity.(T))
		for _, value := range FlatOf[T](operand) {
			outIdx, count := it.next()
			update(outFlat, outIdx, value, count)
		}
	}
}

// BuildAxisReducer compiles a kernel that folds one axis of a rank-`rank`
// operand with the scalar operator tag. See resolveIdentity for the accepted
// identity values.
//
// The fold accumulates in dtype, which is also the output dtype: operands of
// any other dtype are converted first. With keepdims the reduced axis is
// kept as size 1, otherwise it is removed; a rank-1 operand then reduces to
// a rank-0 scalar container.
//
// A zero-length reduced axis yields an identity-filled output.
func BuildAxisReducer(tag OpTag, identity any, axis, rank int, dtype dtypes.DType, keepdims bool, opts CompileOptions) (*Kernel, error) {
	adjustedAxis, err := shapeinference.AdjustAxisToRank(axis, rank)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAxis, "BuildAxisReducer(%s): %v", tag, err)
	}
	if !HasScalarUpdate(tag, dtype) {
		return nil, errors.Wrapf(ErrUnsupportedOperator,
			"operator %s has no in-place update registered for dtype %s", tag, dtype)
	}
	identityValue, err := resolveIdentity(tag, identity, dtype)
	if err != nil {
		return nil, err
	}
	exec, ok := reduceExecutors[dtype]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "no reduce executor for dtype %s", dtype)
	}

	prog := Program{
		Name:       "reduce",
		Tag:        tag,
		DType:      dtype,
		InputRanks: []int{rank},
		Axes:       []int{adjustedAxis},
		KeepDims:   keepdims,
		Inplace:    -1,
	}
	sig := Signature{NumInputs: 1, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		operand := convertToDType(inputs[0], dtype)
		outShape, err := shapeinference.ReduceShape(operand.Shape(), []int{adjustedAxis}, keepdims)
		if err != nil {
			exceptions.Panicf("kernel %s: %v", prog, err)
		}
		out := NewBuffer(outShape)
		exec(tag, identityValue, operand, out, newReduceIterator(operand.Shape().Dimensions, adjustedAxis))
		return []*Buffer{out}
	}
	return compile(prog, sig, opts, fn), nil
}

// ReductionStage is one single-axis step of a multi-axis reduction: the axis
// it folds, relative to its input of the given rank.
type ReductionStage struct {
	Axis int
	Rank int
}

// ReductionPlan decomposes a multi-axis reduction into single-axis stages.
// Stages run in descending axis order, so earlier stages never shift the
// axis numbering the later ones rely on.
type ReductionPlan []ReductionStage

// NewReductionPlan normalizes axes against rank (negatives allowed,
// duplicates merged) and returns the stages in execution order. Empty axes
// means all axes.
func NewReductionPlan(axes []int, rank int) (ReductionPlan, error) {
	if len(axes) == 0 {
		axes = xslices.Iota(0, rank)
	}
	normalized, err := shapeinference.NormalizeAxes(axes, rank)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAxis, "%v", err)
	}
	plan := make(ReductionPlan, 0, len(normalized))
	for ii := len(normalized) - 1; ii >= 0; ii-- {
		plan = append(plan, ReductionStage{Axis: normalized[ii], Rank: rank - len(plan)})
	}
	return plan, nil
}

// Axes returns the reduced axes of the operand, ascending.
func (plan ReductionPlan) Axes() []int {
	axes := make([]int, 0, len(plan))
	for ii := len(plan) - 1; ii >= 0; ii-- {
		axes = append(axes, plan[ii].Axis)
	}
	return axes
}

// BuildMultiAxisReducer compiles a reduction over several axes as a chain of
// single-axis reducers built once here and composed by the kernel. Reduced
// axes are removed from the output; reducing all axes (or passing no axes)
// yields a rank-0 scalar container.
func BuildMultiAxisReducer(tag OpTag, identity any, axes []int, rank int, dtype dtypes.DType, opts CompileOptions) (*Kernel, error) {
	plan, err := NewReductionPlan(axes, rank)
	if err != nil {
		return nil, errors.WithMessagef(err, "BuildMultiAxisReducer(%s)", tag)
	}
	if len(plan) == 1 {
		return BuildAxisReducer(tag, identity, plan[0].Axis, rank, dtype, false, opts)
	}
	stages := make([]*Kernel, 0, len(plan))
	for _, stage := range plan {
		kernel, err := BuildAxisReducer(tag, identity, stage.Axis, stage.Rank, dtype, false, opts)
		if err != nil {
			return nil, err
		}
		stages = append(stages, kernel)
	}

	prog := Program{
		Name:       "reduce-multi",
		Tag:        tag,
		DType:      dtype,
		InputRanks: []int{rank},
		Axes:       plan.Axes(),
		Stages:     plan,
		Inplace:    -1,
	}
	sig := Signature{NumInputs: 1, NumOutputs: 1, DType: dtype}

	fn := func(inputs []*Buffer) []*Buffer {
		checkInputs(prog, sig, opts, inputs)
		buffer := inputs[0]
		for _, stage := range stages {
			buffer = stage.fn([]*Buffer{buffer})[0]
		}
		return []*Buffer{buffer}
	}
	return compile(prog, sig, opts, fn), nil
}

func init() {
	registerReduceExecutor[bool]()
	registerReduceExecutor[int8]()
	registerReduceExecutor[int16]()
	registerReduceExecutor[int32]()
	registerReduceExecutor[int64]()
	registerReduceExecutor[uint8]()
	registerReduceExecutor[uint16]()
	registerReduceExecutor[uint32]()
	registerReduceExecutor[uint64]()
	registerReduceExecutor[float32]()
	registerReduceExecutor[float64]()
	registerReduceExecutor[float16.Float16]()
	registerReduceExecutor[bfloat16.BFloat16]()
}
