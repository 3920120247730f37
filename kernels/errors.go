package kernels

import "github.com/pkg/errors"

// Build-time error classes. All builders wrap one of these sentinels with the
// operator tag / axis / shape that triggered the failure, so callers can both
// test with errors.Is and report a diagnosable message.
//
// None of these surface at kernel execution time: a compiled kernel fails at
// runtime only on shape disagreements with what was assumed at build time,
// which it reports through Kernel.Call as an opaque error.
var (
	// ErrUnsupportedOperator indicates a scalar operator tag with no
	// registered in-place update for the requested dtype.
	ErrUnsupportedOperator = errors.New("unsupported scalar operator")

	// ErrUnsupportedArity indicates an elementwise node declaring more than
	// one output.
	ErrUnsupportedArity = errors.New("multi-output elementwise kernels are not supported")

	// ErrInvalidAxis indicates an out-of-range or duplicate axis.
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrShapeMismatch indicates build-time shapes that cannot be broadcast
	// or reduced together.
	ErrShapeMismatch = errors.New("shape mismatch")
)
