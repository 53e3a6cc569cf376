// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernels provides the WGSL device entry points the orchestrator
// can bind. Each kernel stages its inputs, dispatches one compute pass,
// reads the result back and releases every buffer it created.
package kernels

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// matmulShader computes C = A @ B for A [M,K] and B [K,N].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * b[k * params.N + col];
    }

    result[row * params.N + col] = sum;
}
`

// matmulQ8Shader computes C = A @ dequant(B) with B in Q8_0 encoding,
// bound as raw little-endian words. Each 34-byte block holds a half
// precision scale followed by 32 signed byte weights.
const matmulQ8Shader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> bq: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn load_byte(i: u32) -> u32 {
    return (bq[i / 4u] >> ((i % 4u) * 8u)) & 0xffu;
}

fn load_half(i: u32) -> f32 {
    let bits = load_byte(i) | (load_byte(i + 1u) << 8u);
    return unpack2x16float(bits).x;
}

fn dequant(e: u32) -> f32 {
    let block = e / 32u;
    let inner = e % 32u;
    let base = block * 34u;
    let d = load_half(base);
    let q = i32(load_byte(base + 2u + inner));
    return d * f32(select(q, q - 256, q > 127));
}

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * dequant(k * params.N + col);
    }

    result[row * params.N + col] = sum;
}
`

// dequantQ8Shader expands a Q8_0 payload into dense floats.
const dequantQ8Shader = `
@group(0) @binding(0) var<storage, read> bq: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn load_byte(i: u32) -> u32 {
    return (bq[i / 4u] >> ((i % 4u) * 8u)) & 0xffu;
}

fn load_half(i: u32) -> f32 {
    let bits = load_byte(i) | (load_byte(i + 1u) << 8u);
    return unpack2x16float(bits).x;
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.size) {
        return;
    }

    let block = idx / 32u;
    let inner = idx % 32u;
    let base = block * 34u;
    let d = load_half(base);
    let q = i32(load_byte(base + 2u + inner));
    result[idx] = d * f32(select(q, q - 256, q > 127));
}
`

// softmaxShader applies row-wise softmax with the max-shift trick.
const softmaxShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    if (row >= params.rows) {
        return;
    }

    let offset = row * params.cols;

    var max_val: f32 = input[offset];
    for (var i: u32 = 1u; i < params.cols; i = i + 1u) {
        max_val = max(max_val, input[offset + i]);
    }

    var sum: f32 = 0.0;
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        let e = exp(input[offset + i] - max_val);
        result[offset + i] = e;
        sum = sum + e;
    }

    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        result[offset + i] = result[offset + i] / sum;
    }
}
`

// rmsnormShader normalizes each row by its root mean square and applies
// the per-column weight.
const rmsnormShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> weight: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
    eps: f32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    if (row >= params.rows) {
        return;
    }

    let offset = row * params.cols;

    var sum_sq: f32 = 0.0;
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        let x = input[offset + i];
        sum_sq = sum_sq + x * x;
    }

    let inv = inverseSqrt(sum_sq / f32(params.cols) + params.eps);
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        result[offset + i] = input[offset + i] * inv * weight[i];
    }
}
`

// siluShader applies x * sigmoid(x).
const siluShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let x = input[idx];
        result[idx] = x / (1.0 + exp(-x));
    }
}
`

// geluShader applies the tanh-approximated GELU.
const geluShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let x = input[idx];
        let inner = 0.7978845608 * (x + 0.044715 * x * x * x);
        result[idx] = 0.5 * x * (1.0 + tanh(inner));
    }
}
`

// ropeShader rotates adjacent element pairs by precomputed angle tables.
// One thread per (position, pair).
const ropeShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read> cos_tab: array<f32>;
@group(0) @binding(2) var<storage, read> sin_tab: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;

struct Params {
    seq_len: u32,
    head_dim: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let pairs = params.head_dim / 2u;
    let idx = global_id.x;
    if (idx >= params.seq_len * pairs) {
        return;
    }

    let p = idx / pairs;
    let i = idx % pairs;

    let a = input[p * params.head_dim + 2u * i];
    let b = input[p * params.head_dim + 2u * i + 1u];
    let c = cos_tab[idx];
    let s = sin_tab[idx];

    result[p * params.head_dim + 2u * i] = a * c - b * s;
    result[p * params.head_dim + 2u * i + 1u] = a * s + b * c;
}
`

// gatherShader selects whole rows by index: out[i] = src[indices[i]].
const gatherShader = `
@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read> indices: array<u32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    count: u32,
    cols: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.count * params.cols) {
        return;
    }

    let i = idx / params.cols;
    let c = idx % params.cols;
    result[idx] = src[indices[i] * params.cols + c];
}
`

// flashAttentionShader fuses scaled dot-product attention with an online
// softmax: one thread per query row, single streaming pass over the keys
// and values with rescaling of the running accumulator.
const flashAttentionShader = `
@group(0) @binding(0) var<storage, read> q: array<f32>;
@group(0) @binding(1) var<storage, read> k: array<f32>;
@group(0) @binding(2) var<storage, read> v: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;

struct Params {
    seq_q: u32,
    seq_kv: u32,
    head_dim: u32,
    scale: f32,
}
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    if (row >= params.seq_q) {
        return;
    }

    let hd = params.head_dim;
    let out_base = row * hd;

    for (var d: u32 = 0u; d < hd; d = d + 1u) {
        result[out_base + d] = 0.0;
    }

    var m: f32 = -3.4e38;
    var l: f32 = 0.0;

    for (var j: u32 = 0u; j < params.seq_kv; j = j + 1u) {
        var s: f32 = 0.0;
        for (var d: u32 = 0u; d < hd; d = d + 1u) {
            s = s + q[out_base + d] * k[j * hd + d];
        }
        s = s * params.scale;

        let m_new = max(m, s);
        let corr = exp(m - m_new);
        let p = exp(s - m_new);

        l = l * corr + p;
        for (var d: u32 = 0u; d < hd; d = d + 1u) {
            result[out_base + d] = result[out_base + d] * corr + p * v[j * hd + d];
        }
        m = m_new;
    }

    for (var d: u32 = 0u; d < hd; d = d + 1u) {
        result[out_base + d] = result[out_base + d] / l;
    }
}
`
