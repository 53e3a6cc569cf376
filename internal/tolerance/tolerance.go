// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tolerance judges numeric agreement between a candidate result
// and a reference result under per-kernel error bounds.
package tolerance

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch marks arrays of unequal length handed to Compare.
// It is a caller contract violation, distinct from a numeric mismatch.
var ErrLengthMismatch = errors.New("tolerance: array length mismatch")

// epsFloor keeps the relative-error denominator away from zero.
const epsFloor = 1e-12

// Spec holds one kernel's error budget. An element mismatches only when
// it exceeds BOTH bounds; passing either the absolute or the relative
// check is enough. Different kernels earn different budgets from
// summation order, reduced precision, and transcendental approximation.
type Spec struct {
	Abs           float64
	Rel           float64
	MaxMismatches int
}

// Default is a conservative budget for exact-arithmetic kernels.
func Default() Spec {
	return Spec{Abs: 1e-5, Rel: 1e-4}
}

// Result reports the outcome of one comparison. A failed Result is a test
// outcome, not an error: the harness records it and moves on.
type Result struct {
	Pass        bool
	MaxAbsError float64
	MaxRelError float64
	Mismatches  int
}

// Compare checks candidate against reference element by element.
// Per pair (c, r) it records |c-r| and |c-r|/max(|r|, eps); the element
// mismatches when both exceed the spec's bounds. The comparison passes
// when the mismatch count is within spec.MaxMismatches (default zero).
func Compare(candidate, reference []float32, spec Spec) (Result, error) {
	if len(candidate) != len(reference) {
		return Result{}, fmt.Errorf("%w: candidate %d vs reference %d",
			ErrLengthMismatch, len(candidate), len(reference))
	}

	var res Result
	for i := range candidate {
		c := float64(candidate[i])
		r := float64(reference[i])

		if math.IsNaN(c) || math.IsNaN(r) {
			// Matching NaNs agree; a lone NaN can never satisfy a bound.
			if !(math.IsNaN(c) && math.IsNaN(r)) {
				res.Mismatches++
			}
			continue
		}

		absErr := math.Abs(c - r)
		relErr := absErr / math.Max(math.Abs(r), epsFloor)

		if absErr > res.MaxAbsError {
			res.MaxAbsError = absErr
		}
		if relErr > res.MaxRelError {
			res.MaxRelError = relErr
		}

		if absErr > spec.Abs && relErr > spec.Rel {
			res.Mismatches++
		}
	}

	res.Pass = res.Mismatches <= spec.MaxMismatches
	return res, nil
}

// String formats a result the way failure logs want it.
func (r Result) String() string {
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	return fmt.Sprintf("%s: mismatches=%d maxAbsErr=%e maxRelErr=%e",
		status, r.Mismatches, r.MaxAbsError, r.MaxRelError)
}
