// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import "image"

// RectF is an axis-aligned rectangle in float32 device coordinates,
// used for compositing tile quads.
type RectF struct {
	Left, Top, Right, Bottom float32
}

// MakeRectF builds a RectF from an origin and size.
func MakeRectF(x, y, w, h float32) RectF {
	return RectF{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the rectangle width.
func (r RectF) Width() float32 { return r.Right - r.Left }

// Height returns the rectangle height.
func (r RectF) Height() float32 { return r.Bottom - r.Top }

// Matrix is a 2D affine transform:
//
//	| XX YX X0 |
//	| XY YY Y0 |
//
// Layer surfaces supply one to position their tiles in device space.
type Matrix struct {
	XX, XY, YX, YY, X0, Y0 float32
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{XX: 1, YY: 1}
}

// Surface is a higher-level drawable: the base page, or one compositor
// layer. A surface owns a TileSet and supplies the visible geometry and
// the paint callback the set needs.
//
// Surface methods are called on the GL goroutine except Paint, BeginPaint,
// EndPaint and PaintExtra, which run on the paint worker.
type Surface interface {
	// VisibleArea returns the currently visible rectangle of the surface
	// in unscaled content coordinates.
	VisibleArea() image.Rectangle

	// Scale returns the current content-to-device scale factor.
	Scale() float32

	// Opacity returns the compositing opacity in [0, 1].
	Opacity() float32

	// IsLayer reports whether the surface is a compositor layer.
	// Layer surfaces draw from the layer texture pool.
	IsLayer() bool

	// Paint rasterizes the tile's content into canvas. pictureUsed receives
	// the picture version the paint observed. Returns false if nothing
	// could be painted.
	Paint(tile *Tile, canvas *Bitmap, pictureUsed *uint32) bool

	// BeginPaint and EndPaint bracket a paint pass on the worker.
	BeginPaint()
	EndPaint()

	// PaintExtra draws surface decorations on top of the tile content.
	PaintExtra(canvas *Bitmap)

	// Transform returns the surface's device transform, or nil for none.
	Transform() *Matrix
}

// Painter produces pixels for tiles. A TileSet implements Painter by
// delegating to its Surface; the painter identity recorded in texture
// metadata is what ties an upload to the surface that produced it.
type Painter interface {
	Paint(tile *Tile, canvas *Bitmap, pictureUsed *uint32) bool
	PaintExtra(canvas *Bitmap)
	BeginPaint()
	EndPaint()
	Transform() *Matrix
}

// Renderer turns a tile paint request into pixels. It is driven by
// Tile.PaintBitmap on the paint worker: render into a bitmap, report the
// picture version used. The returned bitmap may be empty when the painter
// produced nothing, in which case the upload is skipped.
type Renderer interface {
	Render(info *TextureInfo, tile *Tile, painter Painter, dirty *Region, scale float32) (*Bitmap, uint32)
}

// TextureOwner is the ownership contract a texture keeps with its tile.
// Tile implements it; tests may substitute fakes, including owners that
// refuse a steal.
type TextureOwner interface {
	// RemoveTexture notifies the owner that texture is being reassigned.
	// Returning false refuses the steal and leaves ownership unchanged.
	RemoveTexture(texture *Texture) bool

	// State returns the view state the owner's surface belongs to.
	State() *ViewState

	// Scale returns the owner's current scale.
	Scale() float32

	// IsRepaintPending reports whether a paint operation for the owner is
	// queued but not yet observed complete.
	IsRepaintPending() bool

	// DrawCount returns the view-state draw counter captured when the
	// owner last claimed its cell. Eviction prefers the oldest count.
	DrawCount() uint32
}

// ViewState identifies one rendering context (one web view) to the
// manager. Surfaces registered under the same state share a draw-order
// counter used for eviction tie-breaking.
type ViewState struct {
	name string
}

// NewViewState creates a view state handle with a debug name.
func NewViewState(name string) *ViewState {
	return &ViewState{name: name}
}

// Name returns the debug name of the view state.
func (s *ViewState) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}
