// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dispatch

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kerncheck/internal/tolerance"
)

func hostRuntime() *Runtime {
	return &Runtime{Log: zerolog.Nop()}
}

func doubler() RefFunc {
	return func(a Args) ([]float32, error) {
		out := make([]float32, len(a.F32[0]))
		for i, v := range a.F32[0] {
			out[i] = 2 * v
		}
		return out, nil
	}
}

func TestResolve_DeviceBackedDegradesWithoutDevice(t *testing.T) {
	op := Op{Name: "double", Mode: DeviceBacked, Reference: doubler()}
	r := Resolve(op, hostRuntime())

	assert.False(t, r.DeviceActive())

	out, err := r.Run(Args{F32: [][]float32{{1, 2, 3}}})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, out)
}

func TestResolve_ReferenceBackedIgnoresKernel(t *testing.T) {
	kernelCalled := false
	op := Op{
		Name: "double",
		Mode: ReferenceBacked,
		Kernel: func(rt *Runtime, a Args) ([]float32, error) {
			kernelCalled = true
			return nil, nil
		},
		Reference: doubler(),
	}
	r := Resolve(op, hostRuntime())

	out, err := r.Run(Args{F32: [][]float32{{5}}})
	require.NoError(t, err)
	assert.Equal(t, []float32{10}, out)
	assert.False(t, kernelCalled)
}

func TestResolve_DeviceOnlyUnavailableWithoutDevice(t *testing.T) {
	op := Op{Name: "fused", Mode: DeviceOnly}
	r := Resolve(op, hostRuntime())

	_, err := r.Run(Args{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestForceReference(t *testing.T) {
	op := Op{Name: "double", Mode: DeviceBacked, Reference: doubler()}
	r := Resolve(op, hostRuntime())
	require.NoError(t, r.ForceReference())
	assert.False(t, r.DeviceActive())

	fused := Resolve(Op{Name: "fused", Mode: DeviceOnly}, hostRuntime())
	assert.ErrorIs(t, fused.ForceReference(), ErrUnavailable)
}

func TestRunReference_NoReference(t *testing.T) {
	r := Resolve(Op{Name: "fused", Mode: DeviceOnly}, hostRuntime())
	_, err := r.RunReference(Args{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRun_PrepareFeedsBothPaths(t *testing.T) {
	op := Op{
		Name: "sum",
		Mode: ReferenceBacked,
		Prepare: func(a Args) (Args, error) {
			a.F32 = append(a.F32, []float32{100})
			return a, nil
		},
		Reference: func(a Args) ([]float32, error) {
			return []float32{a.F32[0][0] + a.F32[1][0]}, nil
		},
	}
	r := Resolve(op, hostRuntime())

	out, err := r.Run(Args{F32: [][]float32{{1}}})
	require.NoError(t, err)
	assert.Equal(t, []float32{101}, out)

	out, err = r.RunReference(Args{F32: [][]float32{{2}}})
	require.NoError(t, err)
	assert.Equal(t, []float32{102}, out)
}

func TestSetTolerance(t *testing.T) {
	r := Resolve(Op{Name: "x", Mode: ReferenceBacked, Reference: doubler(),
		Tolerance: tolerance.Spec{Abs: 1}}, hostRuntime())

	spec := r.Tolerance()
	spec.Abs = 7
	r.SetTolerance(spec)
	assert.Equal(t, 7.0, r.Tolerance().Abs)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "device-backed", DeviceBacked.String())
	assert.Equal(t, "reference-backed", ReferenceBacked.String())
	assert.Equal(t, "device-only", DeviceOnly.String())
}
