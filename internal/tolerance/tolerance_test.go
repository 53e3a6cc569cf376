// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tolerance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_Identical(t *testing.T) {
	x := []float32{1, -2.5, 0, 1e30, 1e-30}
	res, err := Compare(x, x, Spec{})
	require.NoError(t, err)
	assert.True(t, res.Pass)
	assert.Zero(t, res.Mismatches)
	assert.Zero(t, res.MaxAbsError)
}

func TestCompare_LengthMismatch(t *testing.T) {
	_, err := Compare([]float32{1, 2}, []float32{1}, Default())
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCompare_ORPolicy(t *testing.T) {
	spec := Spec{Abs: 0.1, Rel: 0.01}

	// Large absolute error but tiny relative error: within budget.
	res, err := Compare([]float32{1000.5}, []float32{1000}, spec)
	require.NoError(t, err)
	assert.True(t, res.Pass, "relative bound alone must admit the element")

	// Large relative error but tiny absolute error: within budget.
	res, err = Compare([]float32{0.05}, []float32{0.001}, spec)
	require.NoError(t, err)
	assert.True(t, res.Pass, "absolute bound alone must admit the element")

	// Both bounds exceeded: mismatch.
	res, err = Compare([]float32{2}, []float32{1}, spec)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Equal(t, 1, res.Mismatches)
}

func TestCompare_MismatchBudget(t *testing.T) {
	candidate := []float32{1, 5, 1, 1}
	reference := []float32{1, 1, 1, 1}
	spec := Spec{Abs: 0.01, Rel: 0.01, MaxMismatches: 1}

	res, err := Compare(candidate, reference, spec)
	require.NoError(t, err)
	assert.True(t, res.Pass, "one mismatch within a budget of one must pass")
	assert.Equal(t, 1, res.Mismatches)

	spec.MaxMismatches = 0
	res, err = Compare(candidate, reference, spec)
	require.NoError(t, err)
	assert.False(t, res.Pass)
}

func TestCompare_AllExceed(t *testing.T) {
	candidate := []float32{10, 20, 30}
	reference := []float32{1, 2, 3}

	res, err := Compare(candidate, reference, Spec{Abs: 1e-6, Rel: 1e-6})
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Equal(t, len(candidate), res.Mismatches)
	assert.InDelta(t, 27.0, res.MaxAbsError, 1e-9)
	assert.InDelta(t, 9.0, res.MaxRelError, 1e-9)
}

func TestCompare_NaN(t *testing.T) {
	nan := float32(math.NaN())

	// Matching NaNs agree.
	res, err := Compare([]float32{nan, 1}, []float32{nan, 1}, Default())
	require.NoError(t, err)
	assert.True(t, res.Pass)

	// A lone NaN is always a mismatch, regardless of budget.
	res, err = Compare([]float32{nan}, []float32{1}, Spec{Abs: 1e9, Rel: 1e9})
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Equal(t, 1, res.Mismatches)
}

func TestCompare_ZeroReference(t *testing.T) {
	// Near-zero reference must not blow up the relative error; the floor
	// keeps the division finite and the absolute bound decides.
	res, err := Compare([]float32{1e-7}, []float32{0}, Spec{Abs: 1e-6, Rel: 1e-6})
	require.NoError(t, err)
	assert.True(t, res.Pass)
}

func TestResultString(t *testing.T) {
	res := Result{Pass: true, Mismatches: 0}
	assert.Contains(t, res.String(), "PASS")
	res.Pass = false
	assert.Contains(t, res.String(), "FAIL")
}
