// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	types "github.com/gogpu/gputypes"

	"github.com/gogpu/tiled"
)

// Texture is a tiled.TextureHandle backed by one hal.Texture.
type Texture struct {
	label  string
	width  int
	height int
	tex    hal.Texture
}

// Label returns the debug label of the texture.
func (t *Texture) Label() string { return t.label }

// Size returns the texture dimensions in pixels.
func (t *Texture) Size() (w, h int) { return t.width, t.height }

// HAL returns the underlying hal.Texture for host-side compositing.
func (t *Texture) HAL() hal.Texture { return t.tex }

// Driver implements tiled.Driver on a hal.Device and hal.Queue supplied
// by the host. The host typically obtains both from its gpucontext
// provider (see tiled.DeviceHandle) during window setup.
type Driver struct {
	device hal.Device
	queue  hal.Queue
	blit   *blitPipeline

	mu       sync.Mutex
	deferred []hal.Texture
	pending  []blitCommand
}

// New creates a driver on the given device and queue, compiling the
// blit shader up front. Call on the goroutine that owns the device.
func New(device hal.Device, queue hal.Queue) (*Driver, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	blit, err := newBlitPipeline(device)
	if err != nil {
		return nil, err
	}
	return &Driver{
		device: device,
		queue:  queue,
		blit:   blit,
	}, nil
}

// CreateTexture allocates one sampled RGBA tile texture.
func (d *Driver) CreateTexture(desc tiled.TextureDescriptor) (tiled.TextureHandle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: zero-sized texture %q", desc.Label)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        convertFormat(desc.Format),
		Usage:         types.TextureUsageCopyDst | types.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	return &Texture{
		label:  desc.Label,
		width:  int(desc.Width),
		height: int(desc.Height),
		tex:    tex,
	}, nil
}

// Upload writes the bitmap pixels into the texture through the queue.
// WebGPU queue writes are goroutine-safe, so the paint worker calls
// this directly.
func (d *Driver) Upload(h tiled.TextureHandle, b *tiled.Bitmap) error {
	tex, ok := h.(*Texture)
	if !ok {
		return fmt.Errorf("wgpu: foreign texture handle %T", h)
	}
	if b.Width() != tex.width || b.Height() != tex.height {
		return fmt.Errorf("wgpu: upload %dx%d into %dx%d texture %q",
			b.Width(), b.Height(), tex.width, tex.height, tex.label)
	}
	dst := &hal.ImageCopyTexture{
		Texture:  tex.tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
		Aspect:   types.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(tex.width) * tiled.BytesPerPixel,
		RowsPerImage: uint32(tex.height),
	}
	size := &hal.Extent3D{
		Width:              uint32(tex.width),
		Height:             uint32(tex.height),
		DepthOrArrayLayers: 1,
	}
	d.queue.WriteTexture(dst, b.Data(), layout, size)
	return nil
}

// Draw records one tile blit for the current frame. The blit is encoded
// and submitted by Flush.
func (d *Driver) Draw(h tiled.TextureHandle, dst tiled.RectF, opacity float32, transform *tiled.Matrix) error {
	tex, ok := h.(*Texture)
	if !ok {
		return fmt.Errorf("wgpu: foreign texture handle %T", h)
	}
	d.mu.Lock()
	d.pending = append(d.pending, blitCommand{
		tex:       tex,
		dst:       dst,
		opacity:   opacity,
		transform: transform,
	})
	d.mu.Unlock()
	return nil
}

// Flush encodes the recorded blits into one command buffer and submits
// it. Call once per frame on the GL goroutine, after compositing every
// tile set.
func (d *Driver) Flush() error {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "tiled-blit-encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("tiled-blit"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	d.blit.encode(encoder, pending)
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer cmd.Destroy()

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("wgpu: submit blits: %w", err)
	}
	return nil
}

// ScheduleDelete queues the texture for destruction at the next
// RunDeferred. Safe from any goroutine.
func (d *Driver) ScheduleDelete(h tiled.TextureHandle) {
	tex, ok := h.(*Texture)
	if !ok {
		return
	}
	d.mu.Lock()
	d.deferred = append(d.deferred, tex.tex)
	d.mu.Unlock()
}

// RunDeferred destroys every scheduled texture on the calling
// goroutine, which must own the device.
func (d *Driver) RunDeferred() {
	d.mu.Lock()
	pending := d.deferred
	d.deferred = nil
	d.mu.Unlock()
	for _, tex := range pending {
		d.device.DestroyTexture(tex)
	}
}

// convertFormat maps the gpucontext ecosystem format to the wgpu HAL
// format. Tile pools only use byte-per-channel color formats.
func convertFormat(format gputypes.TextureFormat) types.TextureFormat {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm:
		return types.TextureFormatBGRA8Unorm
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return types.TextureFormatRGBA8UnormSrgb
	default:
		return types.TextureFormatRGBA8Unorm
	}
}

var _ tiled.Driver = (*Driver)(nil)
