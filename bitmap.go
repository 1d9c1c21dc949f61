// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Bitmap represents a rectangular RGBA pixel buffer.
// It is the scratch canvas a painter fills before the pixels are uploaded
// into a texture's writable slot.
type Bitmap struct {
	width  int
	height int
	data   []uint8 // RGBA format, 4 bytes per pixel
}

// NewBitmap creates a new bitmap with the given dimensions.
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*BytesPerPixel),
	}
}

// Width returns the width of the bitmap.
func (b *Bitmap) Width() int {
	return b.width
}

// Height returns the height of the bitmap.
func (b *Bitmap) Height() int {
	return b.height
}

// Data returns the raw pixel data (RGBA format).
func (b *Bitmap) Data() []uint8 {
	return b.data
}

// Empty returns true if the bitmap has zero area.
// An empty bitmap skips the texture upload entirely.
func (b *Bitmap) Empty() bool {
	return b == nil || b.width == 0 || b.height == 0
}

// SetPixel sets the color of a single pixel.
func (b *Bitmap) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	i := (y*b.width + x) * 4
	b.data[i+0] = c.R
	b.data[i+1] = c.G
	b.data[i+2] = c.B
	b.data[i+3] = c.A
}

// GetPixel returns the color of a single pixel.
func (b *Bitmap) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return color.RGBA{}
	}
	i := (y*b.width + x) * 4
	return color.RGBA{R: b.data[i+0], G: b.data[i+1], B: b.data[i+2], A: b.data[i+3]}
}

// Clear fills the entire bitmap with a color.
func (b *Bitmap) Clear(c color.RGBA) {
	for i := 0; i < len(b.data); i += 4 {
		b.data[i+0] = c.R
		b.data[i+1] = c.G
		b.data[i+2] = c.B
		b.data[i+3] = c.A
	}
}

// RGBA returns the bitmap as an image.RGBA sharing the same pixel memory.
func (b *Bitmap) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.data,
		Stride: b.width * 4,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// DrawImage draws src into the destination rectangle dst of the bitmap,
// scaling as needed. Painters use this to place decoded content into a
// tile-sized canvas at the tile's scale.
func (b *Bitmap) DrawImage(src image.Image, dst image.Rectangle) {
	if b.Empty() || src == nil {
		return
	}
	dst = dst.Intersect(image.Rect(0, 0, b.width, b.height))
	if dst.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(b.RGBA(), dst, src, src.Bounds(), xdraw.Over, nil)
}
