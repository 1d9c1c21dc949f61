// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrTextureLimit is returned by the software driver when a create
// limit is configured and reached.
var ErrTextureLimit = errors.New("tiled: software texture limit reached")

// ErrTextureDeleted is returned when an operation targets a texture
// that has already been destroyed.
var ErrTextureDeleted = errors.New("tiled: texture deleted")

// SoftwareTexture is a CPU-memory texture handle. Uploads copy the
// bitmap pixels; Draw records the composite without producing output.
type SoftwareTexture struct {
	label  string
	width  int
	height int

	mu      sync.Mutex
	pixels  []uint8
	deleted bool
}

// Label returns the debug label of the texture.
func (t *SoftwareTexture) Label() string { return t.label }

// Size returns the texture dimensions in pixels.
func (t *SoftwareTexture) Size() (w, h int) { return t.width, t.height }

// Pixels returns a copy of the last uploaded contents, or nil if the
// texture was never written.
func (t *SoftwareTexture) Pixels() []uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pixels == nil {
		return nil
	}
	out := make([]uint8, len(t.pixels))
	copy(out, t.pixels)
	return out
}

// SoftwareDriver is an in-memory Driver with no GPU behind it. It backs
// the default manager configuration and the test suite: uploads land in
// CPU buffers, draws and deletes are counted, and a create limit can
// simulate allocation failure.
type SoftwareDriver struct {
	mu          sync.Mutex
	createLimit int // 0 = unlimited
	created     int
	deferred    []*SoftwareTexture

	uploads atomic.Int64
	draws   atomic.Int64
	deletes atomic.Int64
}

// NewSoftwareDriver creates an unlimited software driver.
func NewSoftwareDriver() *SoftwareDriver {
	return &SoftwareDriver{}
}

// SetCreateLimit caps the number of textures CreateTexture will make.
// Zero removes the cap.
func (d *SoftwareDriver) SetCreateLimit(n int) {
	d.mu.Lock()
	d.createLimit = n
	d.mu.Unlock()
}

// CreateTexture allocates a CPU texture.
func (d *SoftwareDriver) CreateTexture(desc TextureDescriptor) (TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createLimit > 0 && d.created >= d.createLimit {
		return nil, fmt.Errorf("%w: %d", ErrTextureLimit, d.createLimit)
	}
	d.created++
	return &SoftwareTexture{
		label:  desc.Label,
		width:  int(desc.Width),
		height: int(desc.Height),
	}, nil
}

// Upload copies the bitmap pixels into the texture buffer.
func (d *SoftwareDriver) Upload(h TextureHandle, b *Bitmap) error {
	tex, ok := h.(*SoftwareTexture)
	if !ok {
		return fmt.Errorf("tiled: foreign texture handle %T", h)
	}
	tex.mu.Lock()
	defer tex.mu.Unlock()
	if tex.deleted {
		return ErrTextureDeleted
	}
	if b.Width() != tex.width || b.Height() != tex.height {
		return fmt.Errorf("tiled: upload %dx%d into %dx%d texture %q",
			b.Width(), b.Height(), tex.width, tex.height, tex.label)
	}
	if tex.pixels == nil {
		tex.pixels = make([]uint8, len(b.Data()))
	}
	copy(tex.pixels, b.Data())
	d.uploads.Add(1)
	return nil
}

// Draw counts the composite. There is no output surface.
func (d *SoftwareDriver) Draw(h TextureHandle, dst RectF, opacity float32, transform *Matrix) error {
	tex, ok := h.(*SoftwareTexture)
	if !ok {
		return fmt.Errorf("tiled: foreign texture handle %T", h)
	}
	tex.mu.Lock()
	deleted := tex.deleted
	tex.mu.Unlock()
	if deleted {
		return ErrTextureDeleted
	}
	d.draws.Add(1)
	return nil
}

// ScheduleDelete queues the texture for destruction at the next
// RunDeferred.
func (d *SoftwareDriver) ScheduleDelete(h TextureHandle) {
	tex, ok := h.(*SoftwareTexture)
	if !ok {
		return
	}
	d.mu.Lock()
	d.deferred = append(d.deferred, tex)
	d.mu.Unlock()
}

// RunDeferred destroys every scheduled texture.
func (d *SoftwareDriver) RunDeferred() {
	d.mu.Lock()
	pending := d.deferred
	d.deferred = nil
	d.mu.Unlock()

	for _, tex := range pending {
		tex.mu.Lock()
		tex.deleted = true
		tex.pixels = nil
		tex.mu.Unlock()
		d.deletes.Add(1)
	}
}

// Uploads returns the number of completed uploads.
func (d *SoftwareDriver) Uploads() int64 { return d.uploads.Load() }

// Draws returns the number of completed draws.
func (d *SoftwareDriver) Draws() int64 { return d.draws.Load() }

// Deletes returns the number of destroyed textures.
func (d *SoftwareDriver) Deletes() int64 { return d.deletes.Load() }

// Created returns the number of textures created.
func (d *SoftwareDriver) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

var _ Driver = (*SoftwareDriver)(nil)
