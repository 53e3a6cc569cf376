// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package buffers

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kerncheck/internal/device"
)

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	if !device.IsAvailable() {
		t.Skip("WebGPU not available")
	}
	dev, err := device.New()
	require.NoError(t, err)
	t.Cleanup(dev.Release)
	return NewArena(dev)
}

func TestStageReadback_RoundTrip(t *testing.T) {
	arena := newTestArena(t)

	data := F32Bytes([]float32{1.5, -2.25, 0, 1e10})
	buf := arena.Stage(data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer buf.Release()

	got, err := arena.Readback(buf, buf.Size())
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, []float32{1.5, -2.25, 0, 1e10}, BytesToF32(got))
}

func TestReadback_SizeExceedsBuffer(t *testing.T) {
	arena := newTestArena(t)

	buf := arena.Stage(make([]byte, 16), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer buf.Release()

	_, err := arena.Readback(buf, 32)
	assert.Error(t, err)
}

func TestArena_LiveCounter(t *testing.T) {
	arena := newTestArena(t)
	require.Zero(t, arena.Live())

	a := arena.Stage(make([]byte, 64), wgpu.BufferUsageStorage)
	b := arena.Alloc(128, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	assert.Equal(t, int64(2), arena.Live())

	a.Release()
	assert.Equal(t, int64(1), arena.Live())
	b.Release()
	assert.Zero(t, arena.Live())

	stats := arena.Stats()
	assert.Equal(t, uint64(2), stats.TotalAllocated)
	assert.Equal(t, uint64(2), stats.TotalReleased)
	assert.Zero(t, stats.BytesInUse)
	assert.GreaterOrEqual(t, stats.PeakBytes, uint64(192))
}

func TestBuffer_DoubleReleasePanics(t *testing.T) {
	arena := newTestArena(t)

	buf := arena.Stage(make([]byte, 4), wgpu.BufferUsageStorage)
	buf.Release()

	assert.PanicsWithError(t, "buffers: resource misuse: double release", func() {
		buf.Release()
	})
}

func TestBuffer_UseAfterReleasePanics(t *testing.T) {
	arena := newTestArena(t)

	buf := arena.Stage(make([]byte, 4), wgpu.BufferUsageStorage)
	buf.Release()

	assert.Panics(t, func() { _ = buf.Raw() })
	assert.Panics(t, func() { _, _ = arena.Readback(buf, 4) })
}

func TestStageUniform_Alignment(t *testing.T) {
	arena := newTestArena(t)

	buf := arena.StageUniform(make([]byte, 12))
	defer buf.Release()
	assert.Equal(t, uint64(16), buf.Size())
}

func TestHostData_Conversions(t *testing.T) {
	f := []float32{1, -2, 3.5}
	assert.Equal(t, f, BytesToF32(F32Bytes(f)))

	u := []uint32{0, 1, 0xFFFFFFFF}
	assert.Equal(t, u, BytesToU32(U32Bytes(u)))

	i := []int32{-1, 0, 7}
	assert.Len(t, I32Bytes(i), 12)

	// Quantized payloads pad up to the next 4-byte boundary.
	assert.Len(t, PackBytes(make([]byte, 34)), 36)
	assert.Len(t, PackBytes(make([]byte, 36)), 36)
}
