// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

// OpTag names a scalar operator that kernels fold or map with. Tags only
// select registered update functions; they carry no semantics of their own,
// so new operators can be added by registering updates under a new tag.
type OpTag int

//go:generate go tool enumer -type=OpTag -trimprefix=OpTag -output=gen_optag_enumer.go optag.go

const (
	OpTagInvalid OpTag = iota
	OpTagAdd
	OpTagSub
	OpTagMul

	// OpTagMulWithoutZeros multiplies skipping zero operands: a zero
	// accumulator is replaced by the operand, a zero operand leaves the
	// accumulator unchanged.
	OpTagMulWithoutZeros

	OpTagAnd
	OpTagOr
	OpTagXor
	OpTagTrueDiv

	// OpTagIntDiv is floor division, also for floats.
	OpTagIntDiv

	OpTagMax
	OpTagMin

	// OpTagMean folds a running mean: acc += (operand-acc)/(count+1), with
	// count the 0-based index of the fold step.
	OpTagMean

	// OpTagLast is the marker for the number of tags, not an operator.
	OpTagLast
)
