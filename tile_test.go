// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"image"
	"image/color"
	"sync"
	"testing"
)

// fakePainter is a Painter that fills tiles with a solid color and
// reports a configurable picture version.
type fakePainter struct {
	mu        sync.Mutex
	picture   uint32
	fail      bool
	paints    int
	transform *Matrix
	onPaint   func(tile *Tile)
}

func (p *fakePainter) Paint(tile *Tile, canvas *Bitmap, pictureUsed *uint32) bool {
	p.mu.Lock()
	p.paints++
	pic := p.picture
	fail := p.fail
	onPaint := p.onPaint
	p.mu.Unlock()

	if onPaint != nil {
		onPaint(tile)
	}
	if fail {
		return false
	}
	canvas.Clear(color.RGBA{R: 255, A: 255})
	*pictureUsed = pic
	return true
}

func (p *fakePainter) PaintExtra(canvas *Bitmap) {}

func (p *fakePainter) BeginPaint() {}

func (p *fakePainter) EndPaint() {}

func (p *fakePainter) Transform() *Matrix { return p.transform }

func (p *fakePainter) setPicture(v uint32) {
	p.mu.Lock()
	p.picture = v
	p.mu.Unlock()
}

func (p *fakePainter) paintCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paints
}

func newPaintedTile(t *testing.T, m *Manager, painter *fakePainter) *Tile {
	t.Helper()
	tile := NewTile(m, NewViewState("test"), false)
	tile.SetContents(painter, 0, 0, 1)
	tile.ReserveTexture()
	if tile.Texture() == nil {
		t.Fatal("ReserveTexture() left tile without texture")
	}
	return tile
}

func TestTilePaintClearsDirty(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)

	if !tile.IsDirty() {
		t.Fatal("fresh tile IsDirty() = false, want true")
	}
	tile.PaintBitmap(NewBitmapRenderer())

	if tile.IsDirty() {
		t.Error("IsDirty() = true after paint, want false")
	}
	if !tile.IsTileReady() {
		t.Error("IsTileReady() = false after paint, want true")
	}
}

func TestTileStalePaintKeepsDirty(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 5}
	tile := newPaintedTile(t, m, painter)
	renderer := NewBitmapRenderer()

	tile.MarkDirty(10, image.Rect(0, 0, 16, 16))
	tile.PaintBitmap(renderer)
	if !tile.IsDirty() {
		t.Fatal("IsDirty() = false after stale paint (picture 5 < 10), want true")
	}

	painter.setPicture(10)
	tile.PaintBitmap(renderer)
	if tile.IsDirty() {
		t.Error("IsDirty() = true after up-to-date paint, want false")
	}
}

func TestTileInvalidationDuringPaint(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	renderer := NewBitmapRenderer()

	// The painter invalidates the tile mid-paint, as a page mutation
	// racing the worker would.
	painter.onPaint = func(tile *Tile) {
		tile.MarkDirty(2, image.Rect(0, 0, 8, 8))
	}
	tile.PaintBitmap(renderer)
	if !tile.IsDirty() {
		t.Fatal("IsDirty() = false after mid-paint invalidation, want true")
	}

	painter.onPaint = nil
	painter.setPicture(2)
	tile.PaintBitmap(renderer)
	if tile.IsDirty() {
		t.Error("IsDirty() = true after catch-up paint, want false")
	}
}

func TestTileRemoveTexture(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	tile.PaintBitmap(NewBitmapRenderer())

	tex := tile.Texture()
	if !tile.RemoveTexture(tex) {
		t.Fatal("RemoveTexture() = false, want true")
	}
	if tile.Texture() != nil {
		t.Error("Texture() != nil after removal")
	}
	if tile.IsTileReady() {
		t.Error("IsTileReady() = true after removal, want false")
	}
	if !tile.IsDirty() {
		t.Error("IsDirty() = false after removal, want true")
	}
}

func TestTilePaintBailsWhenTextureStolen(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)

	thief := &fakeOwner{state: NewViewState("thief")}
	if !tile.Texture().Acquire(thief, false) {
		t.Fatal("thief Acquire() = false, want true")
	}

	tile.PaintBitmap(NewBitmapRenderer())
	if got := painter.paintCount(); got != 0 {
		t.Errorf("painter paints = %d after steal, want 0", got)
	}
}

func TestTileDrawRequiresReady(t *testing.T) {
	driver := NewSoftwareDriver()
	m := newTestManager(t, WithDriver(driver), WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	rect := MakeRectF(0, 0, 256, 256)

	tile.Draw(1, rect)
	if got := driver.Draws(); got != 0 {
		t.Fatalf("driver draws = %d before paint, want 0", got)
	}

	tile.PaintBitmap(NewBitmapRenderer())
	tile.Draw(1, rect)
	if got := driver.Draws(); got != 1 {
		t.Errorf("driver draws = %d after paint, want 1", got)
	}
}

func TestTileFullInvalBlocksDraw(t *testing.T) {
	driver := NewSoftwareDriver()
	m := newTestManager(t, WithDriver(driver), WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	rect := MakeRectF(0, 0, 256, 256)

	tile.PaintBitmap(NewBitmapRenderer())
	tile.Draw(1, rect)
	if got := driver.Draws(); got != 1 {
		t.Fatalf("driver draws = %d after paint, want 1", got)
	}

	// A partial invalidation keeps the stale pixels compositable, a
	// full invalidation does not.
	tile.MarkDirty(2, image.Rect(0, 0, 8, 8))
	tile.Draw(1, rect)
	if got := driver.Draws(); got != 2 {
		t.Fatalf("driver draws = %d after partial invalidation, want 2", got)
	}

	tile.FullInval()
	tile.Draw(1, rect)
	if got := driver.Draws(); got != 2 {
		t.Errorf("driver draws = %d after full invalidation, want 2", got)
	}
}

func TestTileInvertedScreenInvalidatesReady(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	tile.PaintBitmap(NewBitmapRenderer())
	if !tile.IsTileReady() {
		t.Fatal("IsTileReady() = false after paint, want true")
	}

	m.SetInvertedScreen(true)
	if tile.IsTileReady() {
		t.Error("IsTileReady() = true after inversion flip, want false")
	}
}

func TestTileRetargetInvalidates(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	tile.PaintBitmap(NewBitmapRenderer())

	tile.SetContents(painter, 1, 0, 1)
	if !tile.IsDirty() {
		t.Error("IsDirty() = false after retarget, want true")
	}
	if tile.IsTileReady() {
		t.Error("IsTileReady() = true after retarget, want false")
	}
}

func TestTileDiscardTexture(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1}
	tile := newPaintedTile(t, m, painter)
	tex := tile.Texture()

	tile.DiscardTexture()
	if tile.Texture() != nil {
		t.Error("Texture() != nil after discard")
	}
	if tex.Owner() != nil {
		t.Error("texture Owner() != nil after discard, want released to pool")
	}
}

func TestTilePaintFailureLeavesNotReady(t *testing.T) {
	m := newTestManager(t, WithLayerTiles(0))
	m.SetMaxTextureCount(2)
	painter := &fakePainter{picture: 1, fail: true}
	tile := newPaintedTile(t, m, painter)

	tile.PaintBitmap(NewBitmapRenderer())
	if tile.IsTileReady() {
		t.Error("IsTileReady() = true after failed paint, want false")
	}
}
