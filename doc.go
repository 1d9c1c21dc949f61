// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tiled implements a tiled GPU texture cache and paint scheduler
// for hardware-accelerated compositing.
//
// A drawable surface (a page, or one compositor layer) is decomposed into a
// fixed grid of fixed-size tiles. A bounded pool of GPU textures is recycled
// across those tiles under memory pressure, repainted asynchronously on a
// background worker, and composited by a foreground GL goroutine.
//
// The main pieces:
//
//   - [Texture]: a reusable double-buffered GPU texture with a
//     producer/consumer lock, an ownership pointer and delayed release.
//   - [Tile]: one grid cell. Tracks dirty/ready/repaint-pending state driven
//     by monotonically increasing picture versions.
//   - [TileSet]: the visible-rect-driven tile collection for one [Surface].
//     Reserves textures, schedules paints, composites.
//   - [Queue]: the FIFO of paint operations drained by a single background
//     worker, with cancellation by predicate.
//   - [Manager]: the process-wide owner of the two texture pools (base and
//     layer). Selects eviction victims and tracks surface draw order.
//
// Exactly two long-lived goroutines cooperate on this core: the GL goroutine
// (owns the GL context, performs allocation, eviction, Prepare and Draw, and
// never blocks on paint work) and the paint worker (drains the queue and
// runs [Tile.PaintBitmap]). A tile that is not yet painted never stalls a
// frame; it simply reports that another redraw is needed.
//
// GPU access goes through the [Driver] interface. [SoftwareDriver] keeps
// textures in memory for tests and headless use; backend/wgpu provides a
// WebGPU implementation over gogpu/wgpu.
package tiled
