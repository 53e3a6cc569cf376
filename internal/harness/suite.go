// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package harness

import (
	"encoding/binary"
	"errors"
	"math/rand"

	"github.com/born-ml/kerncheck/internal/dispatch"
	"github.com/born-ml/kerncheck/internal/quant"
	"github.com/born-ml/kerncheck/internal/ref"
	"github.com/born-ml/kerncheck/internal/report"
	"github.com/born-ml/kerncheck/internal/tolerance"
)

// suiteSeed fixes every generated input so runs are reproducible.
const suiteSeed = 0x6b65726e

// suiteCase is one conformance case: an operation, deterministic
// arguments, and optionally a literal expected result or an independent
// reference function (for operations without a reference twin in the
// catalog, like flash_attention).
type suiteCase struct {
	op        string
	name      string
	args      dispatch.Args
	expect    []float32
	reference func(args dispatch.Args) ([]float32, error)
}

// RunSuite executes every conformance case sequentially and aggregates a
// report. Device-backed cases compare the device result against the
// host reference; a failed comparison is a recorded outcome, not an
// error, and the suite continues.
func RunSuite(h *Harness) *report.Report {
	rep := report.New(h.AdapterName())

	for _, c := range suiteCases() {
		rep.Add(h.runCase(c))
	}
	return rep
}

func (h *Harness) runCase(c suiteCase) report.Case {
	rc := report.Case{Op: c.op, Case: c.name, Path: "reference"}

	runner, err := h.Runner(c.op)
	if err != nil {
		rc.Reason = err.Error()
		return rc
	}
	if runner.DeviceActive() {
		rc.Path = "device"
	}

	var before int64
	if arena := h.Arena(); arena != nil {
		before = arena.Live()
	}

	out, err := runner.Run(c.args)
	if errors.Is(err, dispatch.ErrUnavailable) {
		rc.Skipped = true
		rc.Reason = err.Error()
		h.log.Warn().Str("op", c.op).Str("case", c.name).Msg("capability unavailable, skipping")
		return rc
	}
	if err != nil {
		rc.Reason = err.Error()
		h.log.Error().Err(err).Str("op", c.op).Str("case", c.name).Msg("run failed")
		return rc
	}
	rc.Elements = len(out)

	if arena := h.Arena(); arena != nil && arena.Live() != before {
		rc.Reason = "device buffers leaked during run"
		h.log.Error().Str("op", c.op).Str("case", c.name).Msg(rc.Reason)
		return rc
	}

	want, err := h.referenceFor(runner, c)
	if err != nil {
		rc.Reason = err.Error()
		h.log.Error().Err(err).Str("op", c.op).Str("case", c.name).Msg("reference failed")
		return rc
	}

	res, err := tolerance.Compare(out, want, runner.Tolerance())
	if err != nil {
		rc.Reason = err.Error()
		return rc
	}
	rc.Pass = res.Pass
	rc.Mismatches = res.Mismatches
	rc.MaxAbsError = res.MaxAbsError
	rc.MaxRelError = res.MaxRelError

	if rc.Pass && c.expect != nil {
		exp, err := tolerance.Compare(out, c.expect, runner.Tolerance())
		if err != nil {
			rc.Reason = err.Error()
			rc.Pass = false
		} else if !exp.Pass {
			rc.Pass = false
			rc.Mismatches = exp.Mismatches
			rc.MaxAbsError = exp.MaxAbsError
			rc.MaxRelError = exp.MaxRelError
			rc.Reason = "result disagrees with pinned expectation"
		}
	}

	evt := h.log.Info()
	if !rc.Pass {
		evt = h.log.Error()
	}
	evt.Str("op", c.op).Str("case", c.name).Str("path", rc.Path).
		Bool("pass", rc.Pass).Int("mismatches", rc.Mismatches).
		Float64("max_abs_err", rc.MaxAbsError).Msg("case finished")
	return rc
}

func (h *Harness) referenceFor(runner *dispatch.Runner, c suiteCase) ([]float32, error) {
	if c.reference != nil {
		return c.reference(c.args)
	}
	return runner.RunReference(c.args)
}

// suiteCases builds the full deterministic case list.
func suiteCases() []suiteCase {
	rng := rand.New(rand.NewSource(suiteSeed))

	cases := []suiteCase{
		{
			// Pinned end-to-end matmul: A 2x3, B 3x2.
			op:   "matmul",
			name: "pinned_2x3_3x2",
			args: dispatch.Args{
				F32:  [][]float32{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}},
				Dims: []int{2, 3, 2},
			},
			expect: []float32{58, 64, 139, 154},
		},
		{
			op:   "matmul",
			name: "random_16x24x8",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 16*24), randF32(rng, 24*8)},
				Dims: []int{16, 24, 8},
			},
		},
		{
			op:   "matmul_scaled",
			name: "alpha_0p5",
			args: dispatch.Args{
				F32:     [][]float32{randF32(rng, 8*8), randF32(rng, 8*8)},
				Dims:    []int{8, 8, 8},
				Scalars: []float32{0.5},
			},
		},
		{
			op:   "matmul_q8_0",
			name: "random_4x32x8",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 4 * 32)},
				Raw:  [][]byte{randQ8Payload(rng, 8)}, // 8 blocks = 32*8 elements = [32,8]
				Dims: []int{4, 32, 8},
			},
		},
		{
			op:   "matmul_q4_k",
			name: "random_2x256x4",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 2 * 256)},
				Raw:  [][]byte{randKQuantPayload(rng, quant.Q4_K, 4)},
				Dims: []int{2, 256, 4},
			},
		},
		{
			op:   "matmul_q6_k",
			name: "random_2x256x4",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 2 * 256)},
				Raw:  [][]byte{randKQuantPayload(rng, quant.Q6_K, 4)},
				Dims: []int{2, 256, 4},
			},
		},
		{
			op:   "softmax",
			name: "random_8x64",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 8 * 64)},
				Dims: []int{8, 64},
			},
		},
		{
			op:   "topk",
			name: "k5_of_64",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 64)},
				Dims: []int{5},
			},
		},
		{
			op:   "attention",
			name: "random_4x6x16",
			args: dispatch.Args{
				F32:     [][]float32{randF32(rng, 4 * 16), randF32(rng, 6 * 16), randF32(rng, 6 * 16)},
				Dims:    []int{4, 6, 16},
				Scalars: []float32{ref.AttentionScale(16)},
			},
		},
		{
			op:   "flash_attention",
			name: "random_4x6x16",
			args: dispatch.Args{
				F32:     [][]float32{randF32(rng, 4 * 16), randF32(rng, 6 * 16), randF32(rng, 6 * 16)},
				Dims:    []int{4, 6, 16},
				Scalars: []float32{ref.AttentionScale(16)},
			},
			// No catalog reference; judged against the unfused host path.
			reference: func(a dispatch.Args) ([]float32, error) {
				return ref.Attention(a.F32[0], a.F32[1], a.F32[2], a.Dims[0], a.Dims[1], a.Dims[2], a.Scalars[0], false)
			},
		},
		{
			op:   "rmsnorm",
			name: "random_4x128",
			args: dispatch.Args{
				F32:     [][]float32{randF32(rng, 4 * 128), randF32(rng, 128)},
				Dims:    []int{4, 128},
				Scalars: []float32{1e-6},
			},
		},
		{
			op:   "silu",
			name: "random_1k",
			args: dispatch.Args{F32: [][]float32{randF32(rng, 1024)}},
		},
		{
			op:   "gelu",
			name: "random_1k",
			args: dispatch.Args{F32: [][]float32{randF32(rng, 1024)}},
		},
		{
			op:   "swiglu",
			name: "random_512",
			args: dispatch.Args{F32: [][]float32{randF32(rng, 512), randF32(rng, 512)}},
		},
		{
			op:   "geglu",
			name: "random_512",
			args: dispatch.Args{F32: [][]float32{randF32(rng, 512), randF32(rng, 512)}},
		},
		{
			op:   "gather",
			name: "rows_from_16x32",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 16 * 32)},
				I32:  [][]int32{{3, 0, 15, 7, 3}},
				Dims: []int{16, 32},
			},
		},
		{
			op:   "scatter_add",
			name: "duplicate_indices",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 8 * 16), randF32(rng, 4 * 16)},
				I32:  [][]int32{{1, 5, 1, 0}},
				Dims: []int{8, 16},
			},
		},
		{
			op:   "moe_route",
			name: "top2_of_8",
			args: dispatch.Args{
				F32:  [][]float32{randF32(rng, 6 * 8)},
				Dims: []int{6, 8, 2},
			},
		},
		{
			op:   "rope",
			name: "seq16_dim32",
			args: dispatch.Args{
				F32:     [][]float32{randF32(rng, 16 * 32)},
				Dims:    []int{16, 32},
				Scalars: []float32{10000},
			},
		},
		{
			op:   "dequant_q8_0",
			name: "4_blocks",
			args: dispatch.Args{Raw: [][]byte{randQ8Payload(rng, 4)}},
		},
		{
			op:   "dequant_q4_k",
			name: "2_blocks",
			args: dispatch.Args{Raw: [][]byte{randKQuantPayload(rng, quant.Q4_K, 2)}},
		},
		{
			op:   "dequant_q6_k",
			name: "2_blocks",
			args: dispatch.Args{Raw: [][]byte{randKQuantPayload(rng, quant.Q6_K, 2)}},
		},
	}
	return cases
}

// randF32 draws values in [-1, 1).
func randF32(rng *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = rng.Float32()*2 - 1
	}
	return out
}

// randQ8Payload builds well-formed Q8_0 blocks: a small half-precision
// scale followed by 32 signed byte weights.
func randQ8Payload(rng *rand.Rand, blocks int) []byte {
	t := quant.Q8_0.Trait()
	out := make([]byte, blocks*t.BlockBytes)
	for b := 0; b < blocks; b++ {
		base := b * t.BlockBytes
		scale := rng.Float32()*0.05 + 0.001
		binary.LittleEndian.PutUint16(out[base:], quant.HalfFromFloat32(scale))
		for i := 0; i < 32; i++ {
			out[base+2+i] = byte(rng.Intn(256))
		}
	}
	return out
}

// randKQuantPayload builds K-quant blocks from random bytes with the
// half-precision scale fields pinned to finite small values, so decoding
// never produces NaN or infinity.
func randKQuantPayload(rng *rand.Rand, format quant.Format, blocks int) []byte {
	t := format.Trait()
	out := make([]byte, blocks*t.BlockBytes)
	rng.Read(out)
	for b := 0; b < blocks; b++ {
		base := b * t.BlockBytes
		d := quant.HalfFromFloat32(rng.Float32()*0.01 + 0.001)
		switch format {
		case quant.Q4_K:
			binary.LittleEndian.PutUint16(out[base:], d)
			binary.LittleEndian.PutUint16(out[base+2:], quant.HalfFromFloat32(rng.Float32()*0.01))
		case quant.Q6_K:
			binary.LittleEndian.PutUint16(out[base+208:], d)
		}
	}
	return out
}
