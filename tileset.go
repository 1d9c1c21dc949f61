// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"image"
	"slices"

	"github.com/chewxy/math32"
)

// TileSet covers one surface with a grid of tiles. It owns the tiles,
// converts the surface's visible area into grid coordinates, reserves
// textures and schedules paints in Prepare, and composites the grid in
// Draw.
//
// A TileSet is the Painter its tiles record in texture metadata: the
// set delegates rasterization to its surface, and the painter identity
// is what distinguishes uploads from different surfaces sharing a
// texture.
//
// Prepare and Draw run on the GL goroutine; the Painter methods run on
// the paint worker.
type TileSet struct {
	mgr     *Manager
	surface Surface
	state   *ViewState
	isLayer bool

	tiles []*Tile

	// area is the grid rectangle covered by the last Prepare, scale the
	// scale it was prepared at.
	area  image.Rectangle
	scale float32

	// prevTileY remembers the last top row to derive scroll direction;
	// rows are prepared toward the scroll so the next-visible content
	// paints first.
	prevTileY int
}

// NewTileSet creates a tile set for surface under the given view state.
func NewTileSet(mgr *Manager, state *ViewState, surface Surface) *TileSet {
	return &TileSet{
		mgr:     mgr,
		surface: surface,
		state:   state,
		isLayer: surface.IsLayer(),
		scale:   1,
	}
}

// Prepare updates the grid for the surface's current visible area and
// scale: it retargets tiles to the visible cells, reserves textures and
// schedules paints for every tile that is not ready. With fullRepaint
// every prepared tile is invalidated first. Call once per frame on the
// GL goroutine.
func (ts *TileSet) Prepare(fullRepaint bool) {
	newScale := ts.surface.Scale()
	if newScale <= 0 {
		return
	}

	// Every tile starts the frame unclaimed; prepareTile re-claims the
	// visible ones and rankOffscreenTiles grades the rest.
	for _, tile := range ts.tiles {
		tile.SetUsedLevel(-1)
	}
	if newScale != ts.scale {
		// Queued paints at the old scale would be discarded on arrival;
		// drop them now instead of wasting the worker on them.
		ts.mgr.CancelOperations(ScaleFilter{Target: ts, Scale: newScale})
		ts.scale = newScale
	}

	visible := ts.surface.VisibleArea()
	if visible.Empty() {
		ts.area = image.Rectangle{}
		return
	}

	tileW, tileH := ts.tileSize()
	firstX := int(math32.Floor(float32(visible.Min.X) * newScale / float32(tileW)))
	firstY := int(math32.Floor(float32(visible.Min.Y) * newScale / float32(tileH)))
	lastX := int(math32.Ceil(float32(visible.Max.X) * newScale / float32(tileW)))
	lastY := int(math32.Ceil(float32(visible.Max.Y) * newScale / float32(tileH)))
	area := image.Rect(firstX, firstY, lastX, lastY)

	goingDown := firstY > ts.prevTileY
	ts.prevTileY = firstY
	ts.area = area

	if !ts.isLayer {
		ts.mgr.SetMaxTextureCount(area.Dx() * area.Dy())
	}
	ts.mgr.NextDrawCount(ts.state)

	for row := 0; row < area.Dy(); row++ {
		y := area.Min.Y + row
		if !goingDown {
			y = area.Max.Y - 1 - row
		}
		for x := area.Min.X; x < area.Max.X; x++ {
			ts.prepareTile(x, y, newScale, fullRepaint)
		}
	}
	ts.rankOffscreenTiles(area)

	// Old-scale tiles linger until the pool steals their textures; once
	// a tile has nothing left to give back it can go.
	ts.tiles = slices.DeleteFunc(ts.tiles, func(t *Tile) bool {
		return t.Scale() != newScale && t.Texture() == nil
	})
}

func (ts *TileSet) prepareTile(x, y int, scale float32, fullRepaint bool) {
	tile := ts.tileAt(x, y)
	if tile == nil {
		tile = NewTile(ts.mgr, ts.state, ts.isLayer)
		ts.tiles = append(ts.tiles, tile)
	}
	tile.SetContents(ts, x, y, scale)
	if fullRepaint {
		tile.FullInval()
	}
	tile.SetUsedLevel(0)
	tile.ReserveTexture()
	if tile.Texture() == nil {
		Logger().Debug("tile has no texture after reserve", "x", x, "y", y)
		return
	}
	if (tile.IsDirty() || !tile.IsTileReady()) && !tile.IsRepaintPending() {
		ts.mgr.ScheduleOperation(NewPaintTileOperation(tile, ts.mgr.Renderer()))
	}
}

// tileAt returns the tile currently assigned to grid cell (x, y).
func (ts *TileSet) tileAt(x, y int) *Tile {
	for _, tile := range ts.tiles {
		if tile.X() == x && tile.Y() == y && tile.Scale() == ts.scale {
			return tile
		}
	}
	return nil
}

// rankOffscreenTiles records the Chebyshev distance from the visible
// area on every tile outside it, so eviction picks the farthest first.
func (ts *TileSet) rankOffscreenTiles(area image.Rectangle) {
	for _, tile := range ts.tiles {
		x, y := tile.X(), tile.Y()
		if image.Pt(x, y).In(area) {
			continue
		}
		dx, dy := 0, 0
		if x < area.Min.X {
			dx = area.Min.X - x
		} else if x >= area.Max.X {
			dx = x - area.Max.X + 1
		}
		if y < area.Min.Y {
			dy = area.Min.Y - y
		} else if y >= area.Max.Y {
			dy = y - area.Max.Y + 1
		}
		dist := dx
		if dy > dist {
			dist = dy
		}
		tile.SetUsedLevel(dist)
	}
}

// Draw composites every prepared tile and reports whether another frame
// is needed because some tile was not ready.
func (ts *TileSet) Draw() (askRedraw bool) {
	if ts.area.Empty() {
		return false
	}
	tileW, tileH := ts.tileSize()
	opacity := ts.surface.Opacity()
	for y := ts.area.Min.Y; y < ts.area.Max.Y; y++ {
		for x := ts.area.Min.X; x < ts.area.Max.X; x++ {
			tile := ts.tileAt(x, y)
			if tile == nil || !tile.IsTileReady() {
				askRedraw = true
			}
			if tile == nil {
				continue
			}
			rect := MakeRectF(
				float32(x*tileW), float32(y*tileH),
				float32(tileW), float32(tileH))
			tile.Draw(opacity, rect)
		}
	}
	return askRedraw
}

// IsReady reports whether every tile of the prepared area can be
// composited as-is.
func (ts *TileSet) IsReady() bool {
	if ts.area.Empty() {
		return true
	}
	for y := ts.area.Min.Y; y < ts.area.Max.Y; y++ {
		for x := ts.area.Min.X; x < ts.area.Max.X; x++ {
			tile := ts.tileAt(x, y)
			if tile == nil || !tile.IsTileReady() {
				return false
			}
		}
	}
	return true
}

// Invalidate marks the tiles covered by rect (unscaled content
// coordinates) dirty at picture version picture. An empty rect
// invalidates every tile.
func (ts *TileSet) Invalidate(picture uint32, rect image.Rectangle) {
	if rect.Empty() {
		for _, tile := range ts.tiles {
			tile.MarkDirty(picture, image.Rectangle{})
		}
		return
	}
	scaled := image.Rect(
		int(math32.Floor(float32(rect.Min.X)*ts.scale)),
		int(math32.Floor(float32(rect.Min.Y)*ts.scale)),
		int(math32.Ceil(float32(rect.Max.X)*ts.scale)),
		int(math32.Ceil(float32(rect.Max.Y)*ts.scale)))
	for _, tile := range ts.tiles {
		if local, ok := tile.IntersectWithRect(scaled); ok {
			tile.MarkDirty(picture, local)
		}
	}
}

// Discard cancels queued paints for the set and releases every tile's
// texture back to the pool. Call when the surface goes away.
func (ts *TileSet) Discard() {
	ts.mgr.CancelOperations(PainterFilter{Target: ts})
	for _, tile := range ts.tiles {
		tile.DiscardTexture()
	}
	ts.tiles = nil
	ts.area = image.Rectangle{}
}

// TileAt returns the tile at grid cell (x, y) at the current scale, or
// nil if no tile covers that cell.
func (ts *TileSet) TileAt(x, y int) *Tile { return ts.tileAt(x, y) }

// Owns reports whether any tile of the set currently backs onto tex.
func (ts *TileSet) Owns(tex *Texture) bool {
	for _, tile := range ts.tiles {
		if tile.Texture() == tex {
			return true
		}
	}
	return false
}

// Tiles returns the set's tiles, including retired off-screen ones.
func (ts *TileSet) Tiles() []*Tile { return ts.tiles }

// Area returns the grid rectangle covered by the last Prepare.
func (ts *TileSet) Area() image.Rectangle { return ts.area }

func (ts *TileSet) tileSize() (w, h int) {
	if ts.isLayer {
		return ts.mgr.LayerTileWidth(), ts.mgr.LayerTileHeight()
	}
	return ts.mgr.TileWidth(), ts.mgr.TileHeight()
}

// Painter implementation: rasterization is the surface's business; the
// set only lends it the painter identity.

// Paint rasterizes tile content through the surface.
func (ts *TileSet) Paint(tile *Tile, canvas *Bitmap, pictureUsed *uint32) bool {
	return ts.surface.Paint(tile, canvas, pictureUsed)
}

// PaintExtra draws surface decorations over the tile content.
func (ts *TileSet) PaintExtra(canvas *Bitmap) {
	ts.surface.PaintExtra(canvas)
}

// BeginPaint brackets the start of a paint pass.
func (ts *TileSet) BeginPaint() { ts.surface.BeginPaint() }

// EndPaint brackets the end of a paint pass.
func (ts *TileSet) EndPaint() { ts.surface.EndPaint() }

// Transform returns the surface's device transform.
func (ts *TileSet) Transform() *Matrix { return ts.surface.Transform() }
