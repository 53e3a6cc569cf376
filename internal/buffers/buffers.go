// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package buffers implements the device-buffer lifecycle: staging host
// arrays into device memory, reading device results back through a
// mappable staging buffer, and deterministic release with leak tracking.
//
// Every Buffer is exclusively owned by the operation that created it and
// must be released exactly once. Double release and use after release are
// caller contract violations and panic with ErrMisuse; they are
// programming defects, not recoverable states.
package buffers

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/kerncheck/internal/device"
)

// ErrMisuse marks a buffer used after release or released twice.
var ErrMisuse = errors.New("buffers: resource misuse")

// Buffer is a device-resident byte region with a fixed size and usage set.
type Buffer struct {
	raw      *wgpu.Buffer
	size     uint64
	usage    wgpu.BufferUsage
	arena    *Arena
	released bool
}

// Size returns the byte length fixed at creation.
func (b *Buffer) Size() uint64 { return b.size }

// Raw returns the underlying wgpu buffer for kernel binding.
func (b *Buffer) Raw() *wgpu.Buffer {
	if b.released {
		panic(fmt.Errorf("%w: use after release", ErrMisuse))
	}
	return b.raw
}

// Release frees the device memory. Releasing twice panics.
func (b *Buffer) Release() {
	if b.released {
		panic(fmt.Errorf("%w: double release", ErrMisuse))
	}
	b.released = true
	b.raw.Release()
	b.raw = nil
	b.arena.trackRelease(b.size)
}

// Stats reports arena-level allocation accounting. Live is the number of
// buffers currently allocated; a well-behaved operation leaves it where it
// found it.
type Stats struct {
	Live           int64
	TotalAllocated uint64
	TotalReleased  uint64
	BytesInUse     uint64
	PeakBytes      uint64
}

// Arena allocates and tracks device buffers for one harness instance.
// Operations run strictly one at a time, so the counters are unguarded.
type Arena struct {
	dev *device.Device

	live       int64
	allocated  uint64
	released   uint64
	bytesInUse uint64
	peakBytes  uint64
}

// NewArena creates an arena bound to dev.
func NewArena(dev *device.Device) *Arena {
	return &Arena{dev: dev}
}

// Stage copies a host byte array into a newly allocated device buffer of
// the same length. CopyDst is always added to the requested usage since
// staging writes into the buffer.
func (a *Arena) Stage(data []byte, usage wgpu.BufferUsage) *Buffer {
	size := uint64(len(data))

	raw := a.dev.Handle().CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mapped := raw.GetMappedRange(0, size)
	copy(unsafe.Slice((*byte)(mapped), size), data)
	raw.Unmap()

	return a.track(raw, size, usage|wgpu.BufferUsageCopyDst)
}

// Alloc creates an uninitialized device buffer, typically for kernel
// outputs with Storage|CopySrc|CopyDst usage.
func (a *Arena) Alloc(size uint64, usage wgpu.BufferUsage) *Buffer {
	raw := a.dev.Handle().CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
	return a.track(raw, size, usage)
}

// StageUniform copies params into a uniform buffer padded to the 16-byte
// alignment WGSL uniform structs require.
func (a *Arena) StageUniform(data []byte) *Buffer {
	size := uint64(len(data))
	aligned := (size + 15) &^ 15

	raw := a.dev.Handle().CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             aligned,
		MappedAtCreation: wgpu.True,
	})

	mapped := raw.GetMappedRange(0, aligned)
	copy(unsafe.Slice((*byte)(mapped), aligned), data)
	raw.Unmap()

	return a.track(raw, aligned, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

// Readback copies size bytes from offset 0 of buf into host memory.
// General-purpose buffers are not host-mappable, so the copy is routed
// through an intermediate MapRead staging buffer of matching length; the
// call suspends until the device signals the map is complete.
func (a *Arena) Readback(buf *Buffer, size uint64) ([]byte, error) {
	if buf.released {
		panic(fmt.Errorf("%w: readback after release", ErrMisuse))
	}
	if size > buf.size {
		return nil, fmt.Errorf("buffers: readback of %d bytes exceeds buffer size %d", size, buf.size)
	}

	staging := a.dev.Handle().CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := a.dev.Handle().CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(buf.Raw(), 0, staging, 0, size)
	cmd := encoder.Finish(nil)
	a.dev.Queue().Submit(cmd)

	if err := staging.MapAsync(a.dev.Handle(), wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("buffers: failed to map staging buffer: %w", err)
	}

	mapped := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()

	return out, nil
}

// Stats returns a snapshot of the arena's allocation counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Live:           a.live,
		TotalAllocated: a.allocated,
		TotalReleased:  a.released,
		BytesInUse:     a.bytesInUse,
		PeakBytes:      a.peakBytes,
	}
}

// Live returns the number of buffers allocated and not yet released.
func (a *Arena) Live() int64 { return a.live }

func (a *Arena) track(raw *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) *Buffer {
	a.live++
	a.allocated++
	a.bytesInUse += size
	if a.bytesInUse > a.peakBytes {
		a.peakBytes = a.bytesInUse
	}
	return &Buffer{raw: raw, size: size, usage: usage, arena: a}
}

func (a *Arena) trackRelease(size uint64) {
	a.live--
	a.released++
	if a.bytesInUse >= size {
		a.bytesInUse -= size
	}
}
