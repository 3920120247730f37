// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels synthesizes executable array kernels from structured
// descriptions: elementwise maps with NumPy-style broadcasting, single- and
// multi-axis reductions, axis permutations (dimshuffle) and a small set of
// composite numeric kernels (softmax family, max+argmax).
//
// Builders run at "compile" time: they validate ranks, axes and dtypes,
// resolve scalar operators and reduction identities, assemble a structural
// Program and bind it to dtype-specialized executors. Failures there are
// errors wrapping the sentinels in errors.go. The resulting *Kernel executes
// with no further decisions to make; runtime shape disagreements panic inside
// the executor (exceptions.Panicf) and are recovered into an error at the
// Call boundary.
//
// Kernels are deterministic and stateless: two builds from the same
// parameters produce kernels with identical behavior, so callers may cache
// them keyed on the build parameters.
package kernels

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CompileOptions configure kernel synthesis. The zero value is valid;
// DefaultCompileOptions enables runtime input checking.
//
// Options are passed explicitly to every builder. There is no package-level
// configuration.
type CompileOptions struct {
	// Target labels the execution engine the kernel is built for. It is
	// informational: the pure-Go executors are the only engine here.
	Target string

	// FastMath allows value-changing floating-point shortcuts. The pure-Go
	// executors currently honor it only in the softmax family.
	FastMath bool

	// BoundsCheck makes kernels validate input count, dtypes and shapes on
	// every Call. Disable it only for callers that guarantee inputs match
	// the build-time description.
	BoundsCheck bool
}

// DefaultCompileOptions returns the options used when callers have no
// preference: pure-Go target with runtime input checking on.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Target: "go", BoundsCheck: true}
}

// Signature describes the calling convention of a compiled kernel.
type Signature struct {
	NumInputs  int
	NumOutputs int

	// DType of the kernel's output(s). Composite kernels with an index
	// output (max+argmax) report the value dtype here.
	DType dtypes.DType
}

// Program is the structural description a builder assembles before binding
// executors. It is inspectable (for caching, logging, debugging) and carries
// no executable state.
type Program struct {
	// Name identifies the kernel kind, e.g. "elemwise", "reduce", "softmax".
	Name string

	// Tag is the scalar operator driving the kernel, if any.
	Tag OpTag

	// DType the kernel computes in.
	DType dtypes.DType

	// InputRanks are the declared ranks of the inputs, in order.
	InputRanks []int

	// Axes the kernel operates over (normalized, ascending), if any.
	Axes []int

	// KeepDims preserves reduced axes as size 1.
	KeepDims bool

	// Stages is the single-axis decomposition of a multi-axis reduction.
	Stages ReductionPlan

	// Inplace is the input index whose storage the output aliases, or -1.
	Inplace int
}

func (p Program) String() string {
	if p.Tag != OpTagInvalid {
		return fmt.Sprintf("%s[%s, %s, axes=%v]", p.Name, p.Tag, p.DType, p.Axes)
	}
	return fmt.Sprintf("%s[%s, axes=%v]", p.Name, p.DType, p.Axes)
}

// kernelFunc is the bound executor. It panics (exceptions.Panicf) on runtime
// failures; Kernel.CallMulti recovers those into errors.
type kernelFunc func(inputs []*Buffer) []*Buffer

// Kernel is a compiled array kernel. Build one with BuildElemwise,
// BuildAxisReducer, BuildMultiAxisReducer, BuildDimShuffle or one of the
// composite builders. Kernels are immutable and safe for concurrent Call.
type Kernel struct {
	prog Program
	sig  Signature
	opts CompileOptions
	fn   kernelFunc
}

// compile finalizes a program into a Kernel. All builders funnel through
// here so that compile logging is uniform.
func compile(prog Program, sig Signature, opts CompileOptions, fn kernelFunc) *Kernel {
	if klog.V(1).Enabled() {
		klog.Infof("kernels: compiled %s -> %d output(s), target=%q, fastmath=%v",
			prog, sig.NumOutputs, opts.Target, opts.FastMath)
	}
	return &Kernel{prog: prog, sig: sig, opts: opts, fn: fn}
}

// Program returns the structural description the kernel was compiled from.
func (k *Kernel) Program() Program { return k.prog }

// Signature returns the kernel's calling convention.
func (k *Kernel) Signature() Signature { return k.sig }

// Call executes a single-output kernel.
func (k *Kernel) Call(inputs ...*Buffer) (*Buffer, error) {
	outputs, err := k.CallMulti(inputs...)
	if err != nil {
		return nil, err
	}
	return outputs[0], nil
}

// CallMulti executes the kernel and returns all outputs. Runtime failures
// inside the executor (shape disagreements, dtype mismatches) are recovered
// and returned as errors.
func (k *Kernel) CallMulti(inputs ...*Buffer) (outputs []*Buffer, err error) {
	err = exceptions.TryCatch[error](func() {
		outputs = k.fn(inputs)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "executing kernel %s", k.prog)
	}
	return outputs, nil
}

// checkInputs is the shared BoundsCheck validation run at the head of every
// executor. It panics on the first mismatch. Executors capture prog/sig/opts
// as build-time locals, hence the free function.
func checkInputs(prog Program, sig Signature, opts CompileOptions, inputs []*Buffer) {
	if !opts.BoundsCheck {
		return
	}
	if len(inputs) != sig.NumInputs {
		exceptions.Panicf("kernel %s takes %d inputs, got %d", prog, sig.NumInputs, len(inputs))
	}
	for ii, input := range inputs {
		if input == nil {
			exceptions.Panicf("kernel %s: input #%d is nil", prog, ii)
		}
		if ii < len(prog.InputRanks) && input.Rank() != prog.InputRanks[ii] {
			exceptions.Panicf("kernel %s: input #%d has rank %d, built for rank %d",
				prog, ii, input.Rank(), prog.InputRanks[ii])
		}
	}
}
