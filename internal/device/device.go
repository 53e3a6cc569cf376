// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device wraps WebGPU initialization into the single compute
// context every kernel and buffer operation requires. One Device lives
// per harness instance; it is created once, never copied, and released
// at shutdown.
package device

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Device is the capability object for an active WebGPU compute context.
// All kernel dispatch and buffer traffic goes through its device and queue.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	info *wgpu.AdapterInfoGo

	// Compiled WGSL modules and pipelines, keyed by kernel name.
	mu        sync.RWMutex
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
}

// New initializes the WebGPU instance, adapter, device and queue.
// A missing native library or absent adapter is a normal condition for
// this harness: the caller falls back to reference execution, so the
// failure is reported as an error rather than a panic.
func New() (dev *Device, err error) {
	// The bindings panic when wgpu_native cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("device: native library not available: %v", r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("device: failed to create instance: %w", err)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("device: failed to request adapter: %w", adapterErr)
	}

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to get adapter info: %w", infoErr)
	}

	wdev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to request device: %w", deviceErr)
	}

	queue := wdev.GetQueue()
	if queue == nil {
		wdev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to get queue")
	}

	return &Device{
		instance:  instance,
		adapter:   adapter,
		device:    wdev,
		queue:     queue,
		info:      info,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired on this
// system without committing to a full device.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// ListAdapters returns info for the default adapter. The WebGPU spec has
// no enumeration API, so at most one entry is returned.
func ListAdapters() (adapters []*wgpu.AdapterInfoGo, err error) {
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = fmt.Errorf("device: native library not available: %v", r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("device: failed to create instance: %w", err)
	}
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(nil)
	if adapterErr != nil {
		return nil, fmt.Errorf("device: no adapters available: %w", adapterErr)
	}
	defer adapter.Release()

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		return nil, fmt.Errorf("device: failed to get adapter info: %w", infoErr)
	}
	return []*wgpu.AdapterInfoGo{info}, nil
}

// Handle returns the underlying wgpu device.
func (d *Device) Handle() *wgpu.Device { return d.device }

// Queue returns the submission queue.
func (d *Device) Queue() *wgpu.Queue { return d.queue }

// Name describes the adapter backing this device.
func (d *Device) Name() string {
	if d.info != nil {
		return fmt.Sprintf("WebGPU (%s %s)", d.info.Device, d.info.Vendor)
	}
	return "WebGPU"
}

// Shader returns the compiled module for name, compiling code on first use.
func (d *Device) Shader(name, code string) *wgpu.ShaderModule {
	d.mu.RLock()
	if s, ok := d.shaders[name]; ok {
		d.mu.RUnlock()
		return s
	}
	d.mu.RUnlock()

	shader := d.device.CreateShaderModuleWGSL(code)

	d.mu.Lock()
	d.shaders[name] = shader
	d.mu.Unlock()
	return shader
}

// Pipeline returns the compute pipeline for name, creating it on first use
// with an auto-derived bind group layout and "main" as the entry point.
func (d *Device) Pipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	d.mu.RLock()
	if p, ok := d.pipelines[name]; ok {
		d.mu.RUnlock()
		return p
	}
	d.mu.RUnlock()

	pipeline := d.device.CreateComputePipelineSimple(nil, shader, "main")

	d.mu.Lock()
	d.pipelines[name] = pipeline
	d.mu.Unlock()
	return pipeline
}

// Release frees every cached pipeline and shader and the WebGPU objects.
// The Device must not be used afterwards.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.pipelines {
		p.Release()
	}
	d.pipelines = nil

	for _, s := range d.shaders {
		s.Release()
	}
	d.shaders = nil

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
