// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package harness

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/born-ml/kerncheck/internal/buffers"
	"github.com/born-ml/kerncheck/internal/config"
	"github.com/born-ml/kerncheck/internal/device"
	"github.com/born-ml/kerncheck/internal/dispatch"
	"github.com/born-ml/kerncheck/internal/tolerance"
)

// Options configures harness construction.
type Options struct {
	// ReferenceOnly skips device acquisition entirely; every operation
	// resolves to its reference (device-only operations become
	// unavailable).
	ReferenceOnly bool
	// Config optionally overrides tolerances and forces reference paths.
	Config *config.Config
	Log    zerolog.Logger
}

// Harness owns one device context and the resolved operation registry.
// Operations run strictly sequentially; the Harness must not be shared
// across goroutines.
type Harness struct {
	rt      *dispatch.Runtime
	runners map[string]*dispatch.Runner
	names   []string
	log     zerolog.Logger
}

// New acquires the device (unless ReferenceOnly), resolves every catalog
// operation once, and applies config overrides. A missing device is not
// an error: the harness degrades to reference execution and says so.
func New(opts Options) (*Harness, error) {
	rt := &dispatch.Runtime{Log: opts.Log}

	if !opts.ReferenceOnly {
		dev, err := device.New()
		if err != nil {
			opts.Log.Warn().Err(err).Msg("no device available, falling back to reference execution")
		} else {
			rt.Dev = dev
			rt.Arena = buffers.NewArena(dev)
			opts.Log.Info().Str("adapter", dev.Name()).Msg("device acquired")
		}
	}

	h := &Harness{
		rt:      rt,
		runners: make(map[string]*dispatch.Runner),
		log:     opts.Log,
	}

	for _, op := range Catalog() {
		runner := dispatch.Resolve(op, rt)
		if err := h.applyOverride(runner, opts.Config); err != nil {
			h.Release()
			return nil, err
		}
		h.runners[op.Name] = runner
		h.names = append(h.names, op.Name)
	}
	sort.Strings(h.names)

	return h, nil
}

func (h *Harness) applyOverride(r *dispatch.Runner, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	ov, ok := cfg.Ops[r.Name()]
	if !ok {
		return nil
	}

	spec := r.Tolerance()
	if ov.Abs != nil {
		spec.Abs = *ov.Abs
	}
	if ov.Rel != nil {
		spec.Rel = *ov.Rel
	}
	if ov.MaxMismatches != nil {
		spec.MaxMismatches = *ov.MaxMismatches
	}
	r.SetTolerance(spec)

	if ov.ForceReference {
		if err := r.ForceReference(); err != nil {
			return fmt.Errorf("harness: cannot force %s to reference: %w", r.Name(), err)
		}
	}
	return nil
}

// Ops returns the operation names in sorted order.
func (h *Harness) Ops() []string { return h.names }

// Runner returns the resolved runner for name.
func (h *Harness) Runner(name string) (*dispatch.Runner, error) {
	r, ok := h.runners[name]
	if !ok {
		return nil, fmt.Errorf("harness: unknown operation %q", name)
	}
	return r, nil
}

// HasDevice reports whether device dispatch is active.
func (h *Harness) HasDevice() bool { return h.rt.HasDevice() }

// AdapterName describes the execution backend for reports.
func (h *Harness) AdapterName() string {
	if h.rt.HasDevice() {
		return h.rt.Dev.Name()
	}
	return "reference"
}

// Arena exposes the buffer arena for resource-hygiene checks; nil without
// a device.
func (h *Harness) Arena() *buffers.Arena { return h.rt.Arena }

// Tolerance returns the resolved error budget for an operation.
func (h *Harness) Tolerance(name string) (tolerance.Spec, error) {
	r, err := h.Runner(name)
	if err != nil {
		return tolerance.Spec{}, err
	}
	return r.Tolerance(), nil
}

// Release frees the device context. The harness must not be used after.
func (h *Harness) Release() {
	if h.rt.Dev != nil {
		h.rt.Dev.Release()
		h.rt.Dev = nil
		h.rt.Arena = nil
	}
}
