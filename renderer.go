// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

// BitmapRenderer is the default Renderer: it rasterizes through the
// painter into a fresh CPU bitmap sized to the tile's texture.
//
// The dirty region names what minimally changed; BitmapRenderer always
// repaints the whole tile, because a full-texture upload replaces every
// pixel of the back slot and partial paints would resurrect contents
// from two swaps ago.
type BitmapRenderer struct{}

// NewBitmapRenderer creates the default renderer.
func NewBitmapRenderer() *BitmapRenderer {
	return &BitmapRenderer{}
}

// Render produces the pixels for one tile paint. It returns the painted
// bitmap and the picture version the painter observed. An empty bitmap
// means the painter had nothing to draw and the upload should be
// skipped.
func (r *BitmapRenderer) Render(info *TextureInfo, tile *Tile, painter Painter, dirty *Region, scale float32) (*Bitmap, uint32) {
	tex := tile.Texture()
	if tex == nil {
		return nil, 0
	}
	if !dirty.IsEmpty() {
		Logger().Debug("render tile",
			"x", tile.X(), "y", tile.Y(), "scale", scale,
			"dirty", dirty.Bounds())
	}

	canvas := NewBitmap(tex.Width(), tex.Height())
	painter.BeginPaint()
	defer painter.EndPaint()

	var pictureUsed uint32
	if !painter.Paint(tile, canvas, &pictureUsed) {
		return nil, pictureUsed
	}
	painter.PaintExtra(canvas)
	return canvas, pictureUsed
}
