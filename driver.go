// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

// TextureHandle identifies one GPU texture allocation inside a Driver.
// A tiled.Texture holds two handles, one per buffer slot.
type TextureHandle interface {
	// Label returns the debug label of the texture.
	Label() string

	// Size returns the texture dimensions in pixels.
	Size() (w, h int)
}

// Driver abstracts the GL/EGL (or WebGPU) device the cache runs on.
//
// CreateTexture, Draw and RunDeferred must be called on the GL goroutine
// that owns the device context. Upload is called from the paint worker;
// implementations must make texture uploads safe from that goroutine
// (WebGPU queues are; classic GL drivers need a shared context).
// ScheduleDelete may be called from any goroutine: the actual delete is
// deferred until the GL goroutine runs RunDeferred, because textures must
// be destroyed on the context that created them.
type Driver interface {
	// CreateTexture allocates one GPU texture.
	CreateTexture(desc TextureDescriptor) (TextureHandle, error)

	// Upload replaces the texture contents with the bitmap pixels.
	Upload(h TextureHandle, b *Bitmap) error

	// Draw samples the texture and composites it into dst with the given
	// opacity. transform is nil for base tiles and the surface transform
	// for layer tiles.
	Draw(h TextureHandle, dst RectF, opacity float32, transform *Matrix) error

	// ScheduleDelete queues the texture for destruction on the GL goroutine.
	ScheduleDelete(h TextureHandle)

	// RunDeferred executes pending deletes. Call once per frame on the GL
	// goroutine.
	RunDeferred()
}
