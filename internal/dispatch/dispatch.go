// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dispatch decides, once per harness construction, whether each
// operation runs on the device or on the host reference, and executes the
// stage -> invoke -> readback -> release sequence for device-backed runs.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/born-ml/kerncheck/internal/buffers"
	"github.com/born-ml/kerncheck/internal/device"
	"github.com/born-ml/kerncheck/internal/tolerance"
)

// ErrUnavailable marks an operation whose required device entry point is
// missing. Reference-backed operations never produce it; device-only ones
// do rather than silently substituting a reference result.
var ErrUnavailable = errors.New("dispatch: required device capability unavailable")

// Mode declares how an operation binds to its implementations.
type Mode int

const (
	// DeviceBacked runs the device kernel when one is resolvable and
	// degrades to the reference otherwise.
	DeviceBacked Mode = iota
	// ReferenceBacked always takes the reference path. This is a declared
	// per-operation policy, not an availability probe.
	ReferenceBacked
	// DeviceOnly has no reference twin; without a device the operation
	// fails with ErrUnavailable.
	DeviceOnly
)

// String names the mode for logs and reports.
func (m Mode) String() string {
	switch m {
	case DeviceBacked:
		return "device-backed"
	case ReferenceBacked:
		return "reference-backed"
	case DeviceOnly:
		return "device-only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Args carries one invocation's typed host inputs and literal parameters.
// The positional layout of each slice is operation-specific and documented
// on the operation's catalog entry.
type Args struct {
	F32     [][]float32 // dense float inputs
	I32     [][]int32   // index inputs
	Raw     [][]byte    // block-quantized payloads
	Dims    []int       // shape parameters (M, K, N, rows, cols, ...)
	Scalars []float32   // numeric parameters (alpha, eps, theta base, ...)
}

// Runtime bundles the shared device context one harness instance owns.
// Dev is nil when no adapter could be acquired; reference execution needs
// neither field.
type Runtime struct {
	Dev   *device.Device
	Arena *buffers.Arena
	Log   zerolog.Logger
}

// HasDevice reports whether device dispatch is possible at all.
func (rt *Runtime) HasDevice() bool {
	return rt != nil && rt.Dev != nil && rt.Arena != nil
}

// KernelFunc stages args onto the device, invokes the kernel, reads the
// result back to host precision and releases every buffer it created.
type KernelFunc func(rt *Runtime, args Args) ([]float32, error)

// RefFunc computes the operation purely in host memory.
type RefFunc func(args Args) ([]float32, error)

// PrepareFunc derives auxiliary host data (e.g. rotation angle tables)
// from shape parameters before either path runs. The derivation is
// identical for both paths, keeping their results comparable.
type PrepareFunc func(args Args) (Args, error)

// Op is one catalog entry: a named operation with its binding policy,
// optional device kernel, optional reference, and error budget.
type Op struct {
	Name      string
	Mode      Mode
	Kernel    KernelFunc
	Reference RefFunc
	Prepare   PrepareFunc
	Tolerance tolerance.Spec
}

// Runner is an Op resolved against a Runtime. The device/reference
// decision is taken here, once, and never re-checked per call.
type Runner struct {
	op        Op
	rt        *Runtime
	useDevice bool
}

// Resolve binds op to rt.
func Resolve(op Op, rt *Runtime) *Runner {
	useDevice := false
	if op.Mode != ReferenceBacked {
		useDevice = rt.HasDevice() && op.Kernel != nil
	}
	return &Runner{op: op, rt: rt, useDevice: useDevice}
}

// Name returns the operation name.
func (r *Runner) Name() string { return r.op.Name }

// Mode returns the declared binding policy.
func (r *Runner) Mode() Mode { return r.op.Mode }

// DeviceActive reports whether Run will take the device path.
func (r *Runner) DeviceActive() bool { return r.useDevice }

// Tolerance returns the operation's error budget.
func (r *Runner) Tolerance() tolerance.Spec { return r.op.Tolerance }

// SetTolerance overrides the error budget (config-driven).
func (r *Runner) SetTolerance(spec tolerance.Spec) { r.op.Tolerance = spec }

// ForceReference pins the runner to the reference path regardless of
// device availability. Device-only operations cannot be forced.
func (r *Runner) ForceReference() error {
	if r.op.Mode == DeviceOnly {
		return fmt.Errorf("%w: %s has no reference implementation", ErrUnavailable, r.op.Name)
	}
	r.useDevice = false
	return nil
}

// Run executes the operation along its resolved path. Device runs must
// leave the arena's live-buffer count untouched; a kernel that leaks is a
// defect and is surfaced, not swallowed.
func (r *Runner) Run(args Args) ([]float32, error) {
	if r.op.Prepare != nil {
		prepared, err := r.op.Prepare(args)
		if err != nil {
			return nil, err
		}
		args = prepared
	}

	if r.useDevice {
		before := r.rt.Arena.Live()
		out, err := r.op.Kernel(r.rt, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.op.Name, err)
		}
		if leaked := r.rt.Arena.Live() - before; leaked != 0 {
			return nil, fmt.Errorf("%s: %w: kernel leaked %d device buffers",
				r.op.Name, buffers.ErrMisuse, leaked)
		}
		return out, nil
	}

	if r.op.Mode == DeviceOnly {
		return nil, fmt.Errorf("%s: %w", r.op.Name, ErrUnavailable)
	}
	out, err := r.op.Reference(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op.Name, err)
	}
	return out, nil
}

// RunReference executes the reference path directly, bypassing the
// resolved binding. The conformance driver uses it to obtain the
// independent result a device run is judged against.
func (r *Runner) RunReference(args Args) ([]float32, error) {
	if r.op.Reference == nil {
		return nil, fmt.Errorf("%s: %w", r.op.Name, ErrUnavailable)
	}
	if r.op.Prepare != nil {
		prepared, err := r.op.Prepare(args)
		if err != nil {
			return nil, err
		}
		args = prepared
	}
	out, err := r.op.Reference(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op.Name, err)
	}
	return out, nil
}
