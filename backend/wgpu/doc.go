// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the tiled.Driver interface on gogpu/wgpu's
// HAL layer.
//
// The driver wraps a hal.Device and hal.Queue supplied by the host
// compositor. Tile textures are plain RGBA8 sampled textures; uploads
// go through Queue.WriteTexture, which is safe to call from the paint
// worker, and compositing runs a small blit pipeline whose WGSL shader
// is compiled to SPIR-V with gogpu/naga at driver creation.
//
// Texture destruction is deferred: handles scheduled for deletion from
// any goroutine are destroyed when the GL goroutine calls RunDeferred,
// matching the tiled.Driver threading contract.
package wgpu
