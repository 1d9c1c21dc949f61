// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"image"
	"sync"
)

// Tile is one grid cell of a tiled surface. It tracks which texture (if
// any) currently backs the cell, whether the cell's contents are stale,
// and which picture version last invalidated it.
//
// A tile is shared between the GL goroutine (prepare, draw, invalidate)
// and the paint worker (PaintBitmap). All mutable state is guarded by the
// tile mutex; the mutex is never held across calls into the texture or
// the manager, so the lock order is always texture-after-tile and never
// the reverse.
//
// Dirty tracking is double-buffered: while the worker paints one dirty
// region the GL goroutine keeps accumulating invalidations in the other,
// so no invalidation is lost to an in-flight paint.
type Tile struct {
	mgr         *Manager
	isLayerTile bool

	mu sync.Mutex

	painter   Painter
	viewState *ViewState
	x         int
	y         int
	scale     float32

	texture *Texture

	// dirty means the texture contents (if any) do not reflect the
	// current picture. lastDirtyPicture is the version of the most
	// recent invalidation; a finished paint may only clear dirty if it
	// observed that version or later.
	dirty            bool
	lastDirtyPicture uint32

	dirtyArea   [maxDirtyBuffers]*Region
	fullRepaint [maxDirtyBuffers]bool
	curDirty    int

	repaintPending bool
	usable         bool
	painted        bool
	usedLevel      int
	drawCount      uint32
}

// NewTile creates a tile for the given view state. Layer tiles draw from
// the layer texture pool and composite through the painter transform.
func NewTile(mgr *Manager, state *ViewState, isLayerTile bool) *Tile {
	t := &Tile{
		mgr:         mgr,
		viewState:   state,
		isLayerTile: isLayerTile,
		dirty:       true,
		usedLevel:   -1,
	}
	for i := range t.dirtyArea {
		t.dirtyArea[i] = NewRegion()
		t.fullRepaint[i] = true
	}
	return t
}

// SetContents assigns the tile to a grid cell of a painter. Changing any
// part of the identity discards the old contents with a full
// invalidation.
func (t *Tile) SetContents(painter Painter, x, y int, scale float32) {
	count := t.mgr.drawCount(t.viewState)
	t.mu.Lock()
	if t.painter != painter || t.x != x || t.y != y || t.scale != scale {
		t.fullInvalLocked()
	}
	t.painter = painter
	t.x = x
	t.y = y
	t.scale = scale
	t.drawCount = count
	t.mu.Unlock()
}

// ReserveTexture obtains a backing texture from the manager's pool. If
// the tile already owns a texture the call just refreshes the claim. A
// newly assigned texture forces a full repaint since its pixels belong
// to whatever tile used it last.
func (t *Tile) ReserveTexture() {
	tex := t.mgr.GetAvailableTexture(t)
	t.mu.Lock()
	if tex != nil && t.texture != tex {
		t.fullInvalLocked()
		t.texture = tex
	}
	if tex == nil && t.texture != nil {
		// Lost the pool race; the old claim is gone.
		t.texture = nil
	}
	t.mu.Unlock()
}

// DiscardTexture releases the tile's texture back to the pool and marks
// the tile for a full repaint.
func (t *Tile) DiscardTexture() {
	t.mu.Lock()
	tex := t.texture
	t.texture = nil
	t.fullInvalLocked()
	t.mu.Unlock()
	if tex != nil {
		tex.Release(t)
	}
}

// MarkDirty records an invalidation covering rect (tile-local pixels)
// observed at picture version picture. An empty rect marks the whole
// tile. Both dirty buffers receive the invalidation so a paint already
// consuming one buffer cannot miss it.
func (t *Tile) MarkDirty(picture uint32, rect image.Rectangle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if picture > t.lastDirtyPicture {
		t.lastDirtyPicture = picture
	}
	if rect.Empty() {
		for i := range t.fullRepaint {
			t.fullRepaint[i] = true
			t.dirtyArea[i].Clear()
		}
	} else {
		for i := range t.dirtyArea {
			if !t.fullRepaint[i] {
				t.dirtyArea[i].Union(rect)
			}
		}
	}
	t.dirty = true
}

// FullInval marks the whole tile dirty.
func (t *Tile) FullInval() {
	t.mu.Lock()
	t.fullInvalLocked()
	t.mu.Unlock()
}

func (t *Tile) fullInvalLocked() {
	for i := range t.fullRepaint {
		t.fullRepaint[i] = true
		t.dirtyArea[i].Clear()
	}
	t.dirty = true
	t.painted = false
	// Unlike a partial invalidation, whose stale pixels are still worth
	// compositing, fully invalidated contents are meaningless.
	t.usable = false
}

// IsDirty reports whether the tile needs repainting.
func (t *Tile) IsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// IsTileReady reports whether the tile can be composited as-is: it owns
// a painted, clean texture whose front contents match the tile identity.
func (t *Tile) IsTileReady() bool {
	t.mu.Lock()
	tex := t.texture
	dirty := t.dirty
	painted := t.painted
	t.mu.Unlock()
	if tex == nil || dirty || !painted {
		return false
	}
	if tex.Owner() != t {
		return false
	}
	return tex.ReadyFor(t)
}

// PaintBitmap rasterizes the tile's pending dirty region into the back
// slot of its texture and publishes the result. Runs on the paint
// worker.
//
// The paint can race three ways and stays correct in each:
//   - the texture was stolen between scheduling and ProducerLock: the
//     ownership recheck bails out and the dirty region is untouched;
//   - the painter observed a picture older than the latest invalidation:
//     the upload still lands (it is not wrong, just stale) but the tile
//     stays dirty so a follow-up paint happens;
//   - new invalidations arrived mid-paint: they went into the other
//     dirty buffer and keep the tile dirty after this paint validates
//     its own buffer.
func (t *Tile) PaintBitmap(renderer Renderer) {
	t.mu.Lock()
	if !t.dirty || t.texture == nil || t.painter == nil {
		t.mu.Unlock()
		return
	}
	tex := t.texture
	painter := t.painter
	x, y := t.x, t.y
	scale := t.scale
	cur := t.curDirty
	full := t.fullRepaint[cur]
	paintArea := t.dirtyArea[cur].Clone()
	t.curDirty ^= 1
	t.mu.Unlock()

	if full {
		w, h := t.sizePx()
		paintArea.Clear()
		paintArea.Union(image.Rect(0, 0, w, h))
	}
	if paintArea.IsEmpty() {
		t.validatePaint(0, false)
		return
	}

	slot := tex.ProducerLock()

	// Recheck after locking the producer: the GL goroutine may have
	// reassigned the texture or retargeted the tile while the paint
	// operation sat in the queue.
	t.mu.Lock()
	stale := t.texture != tex || t.painter != painter ||
		t.x != x || t.y != y || t.scale != scale
	t.mu.Unlock()
	if stale || tex.Owner() != t {
		tex.ProducerRelease()
		return
	}

	bmp, pictureUsed := renderer.Render(&slot.info, t, painter, paintArea, scale)
	tex.SetTile(slot, x, y, scale, painter, pictureUsed)
	swapped := bmp != nil && !bmp.Empty()
	tex.ProducerUpdate(slot, bmp)

	t.validatePaint(pictureUsed, swapped)
}

// validatePaint settles the dirty state after a paint that observed
// picture version pictureUsed.
func (t *Tile) validatePaint(pictureUsed uint32, swapped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if swapped {
		// Even a stale paint published pixels; they can be composited
		// while the repaint catches up.
		t.painted = true
		t.usable = true
	}
	if pictureUsed < t.lastDirtyPicture {
		// The paint ran against an old picture. Keep the buffer's region
		// so the content is painted again.
		return
	}
	// Every invalidation up to lastDirtyPicture was mirrored into the
	// consumed buffer, so observing that version settles both.
	for i := range t.dirtyArea {
		t.dirtyArea[i].Clear()
		t.fullRepaint[i] = false
	}
	t.dirty = false
}

// Draw composites the tile's front texture into rect at the given
// opacity. Runs on the GL goroutine. A tile that has never produced a
// swap, or whose texture was stolen, draws nothing.
func (t *Tile) Draw(opacity float32, rect RectF) {
	t.mu.Lock()
	tex := t.texture
	usable := t.usable
	painted := t.painted
	painter := t.painter
	isLayer := t.isLayerTile
	t.mu.Unlock()

	if tex == nil || !usable || !painted {
		return
	}
	if tex.Owner() != t {
		return
	}
	var transform *Matrix
	if isLayer && painter != nil {
		transform = painter.Transform()
	}
	if err := t.mgr.driver.Draw(tex.ConsumerHandle(), rect, opacity, transform); err != nil {
		Logger().Warn("tile draw failed", "x", t.X(), "y", t.Y(), "err", err)
	}
}

// RemoveTexture is the TextureOwner notification that texture is being
// reassigned to another tile. The tile drops its reference and will
// reserve a fresh texture on the next prepare.
func (t *Tile) RemoveTexture(texture *Texture) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.texture == texture {
		t.texture = nil
		t.fullInvalLocked()
	}
	return true
}

// IntersectWithRect maps rect (scaled content pixels) into tile-local
// coordinates and reports whether it overlaps the tile at all.
func (t *Tile) IntersectWithRect(rect image.Rectangle) (image.Rectangle, bool) {
	w, h := t.sizePx()
	t.mu.Lock()
	origin := image.Pt(t.x*w, t.y*h)
	t.mu.Unlock()
	cell := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
	local := rect.Intersect(cell).Sub(origin)
	return local, !local.Empty()
}

// State returns the view state the tile belongs to.
func (t *Tile) State() *ViewState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewState
}

// Scale returns the tile's current scale.
func (t *Tile) Scale() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scale
}

// IsRepaintPending reports whether a paint operation for the tile is
// queued or running.
func (t *Tile) IsRepaintPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repaintPending
}

// SetRepaintPending is maintained by the paint queue around the
// lifetime of a scheduled operation.
func (t *Tile) SetRepaintPending(pending bool) {
	t.mu.Lock()
	t.repaintPending = pending
	t.mu.Unlock()
}

// SetUsable controls whether Draw composites the tile. A full
// invalidation clears the flag and a published paint restores it;
// hosts may also clear it to blank a tile without discarding its
// texture.
func (t *Tile) SetUsable(usable bool) {
	t.mu.Lock()
	t.usable = usable
	t.mu.Unlock()
}

// SetUsedLevel records the tile's distance from the viewport and
// propagates it to the owned texture for eviction ranking.
func (t *Tile) SetUsedLevel(level int) {
	t.mu.Lock()
	t.usedLevel = level
	tex := t.texture
	t.mu.Unlock()
	if tex != nil && tex.Owner() == t {
		tex.SetUsedLevel(level)
	}
}

// UsedLevel returns the tile's recorded viewport distance.
func (t *Tile) UsedLevel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usedLevel
}

// DrawCount returns the view-state draw counter captured when the tile
// was last retargeted. Older counts lose eviction tie-breaks.
func (t *Tile) DrawCount() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.drawCount
}

// X returns the tile's column in the grid.
func (t *Tile) X() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.x
}

// Y returns the tile's row in the grid.
func (t *Tile) Y() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.y
}

// Painter returns the painter the tile is assigned to.
func (t *Tile) Painter() Painter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.painter
}

// Texture returns the tile's backing texture, or nil.
func (t *Tile) Texture() *Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.texture
}

// IsLayerTile reports whether the tile belongs to a layer surface.
func (t *Tile) IsLayerTile() bool { return t.isLayerTile }

// sizePx returns the tile pixel dimensions from the manager config.
func (t *Tile) sizePx() (w, h int) {
	if t.isLayerTile {
		return t.mgr.LayerTileWidth(), t.mgr.LayerTileHeight()
	}
	return t.mgr.TileWidth(), t.mgr.TileHeight()
}
