// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Manager owns the shared texture pools and the paint queue. There is
// one manager per GPU context; every surface of every web view draws
// from its pools.
//
// Two pools exist: the base pool backs page-content tiles and grows on
// demand up to its allocation cap, the layer pool backs compositor-layer
// tiles and is sized once from the layer memory budget.
//
// Pool mutation and texture allocation happen on the GL goroutine.
// GetAvailableTexture is also GL-goroutine only; the paint worker never
// touches the pools.
type Manager struct {
	mu sync.Mutex

	cfg      config
	driver   Driver
	renderer Renderer
	queue    *Queue

	textures      []*Texture // base pool
	tilesTextures []*Texture // layer pool

	// maxTextureCount is how much of the base pool is currently in use;
	// it only grows, and is capped both by the configured allocation
	// limit and by allocation failures.
	maxTextureCount int

	states         map[*ViewState]*uint32
	invertedScreen atomic.Bool
	closed         bool
}

var (
	instance     *Manager
	instanceOnce sync.Once
)

// Instance returns the process-wide manager, creating it with defaults
// on first use. Hosts that need a configured manager should call New
// once and pass it around instead.
func Instance() *Manager {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a manager and starts its paint worker. The call returns
// once the worker is servicing the queue. With no options the manager
// uses the in-memory software driver and the bitmap renderer.
func New(opts ...Option) *Manager {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &Manager{
		cfg:    cfg,
		states: make(map[*ViewState]*uint32),
		queue:  NewQueue(),
	}
	m.driver = cfg.driver
	if m.driver == nil {
		m.driver = NewSoftwareDriver()
	}
	m.renderer = cfg.renderer
	if m.renderer == nil {
		m.renderer = NewBitmapRenderer()
	}
	m.invertedScreen.Store(cfg.invertedScreen)

	m.allocateLayerTextures()

	m.queue.Start()
	<-m.queue.Ready()
	return m
}

// allocateLayerTextures sizes the layer pool from the configured count,
// clamped to the layer memory budget.
func (m *Manager) allocateLayerTextures() {
	bytesPerTile := m.cfg.layerTileWidth * m.cfg.layerTileHeight * BytesPerPixel
	count := m.cfg.layerTiles
	if budget := MaxLayersAllocation / bytesPerTile; count > budget {
		Logger().Warn("layer pool clamped to memory budget",
			"requested", count, "allowed", budget)
		count = budget
	}
	for i := 0; i < count; i++ {
		tex, err := newTexture(m, m.cfg.layerTileWidth, m.cfg.layerTileHeight,
			fmt.Sprintf("layer-tile-%d", i))
		if err != nil {
			Logger().Warn("layer pool allocation stopped short",
				"allocated", i, "requested", count, "err", err)
			break
		}
		m.tilesTextures = append(m.tilesTextures, tex)
	}
}

// SetMaxTextureCount grows the base pool to hold max textures. The pool
// never shrinks, and max is clamped to the configured allocation cap.
// Call on the GL goroutine; surfaces call this from Prepare with the
// tile count of the visible area.
func (m *Manager) SetMaxTextureCount(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > m.cfg.maxTextureAllocation {
		max = m.cfg.maxTextureAllocation
	}
	if max <= m.maxTextureCount {
		return
	}
	m.maxTextureCount = max
	m.allocateBaseTexturesLocked()
}

// allocateBaseTexturesLocked grows the base pool up to maxTextureCount.
// A failed allocation caps the pool at its current size so the manager
// stops retrying a budget the device cannot provide.
func (m *Manager) allocateBaseTexturesLocked() {
	for len(m.textures) < m.maxTextureCount {
		tex, err := newTexture(m, m.cfg.tileWidth, m.cfg.tileHeight,
			fmt.Sprintf("base-tile-%d", len(m.textures)))
		if err != nil {
			Logger().Warn("base pool capped by allocation failure",
				"allocated", len(m.textures), "wanted", m.maxTextureCount, "err", err)
			m.maxTextureCount = len(m.textures)
			return
		}
		m.textures = append(m.textures, tex)
	}
}

// MaxTextureCount returns the current base pool budget.
func (m *Manager) MaxTextureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxTextureCount
}

// TextureCount returns the number of allocated base textures.
func (m *Manager) TextureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textures)
}

// LayerTextureCount returns the number of allocated layer textures.
func (m *Manager) LayerTextureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tilesTextures)
}

// GetAvailableTexture finds or evicts a texture for owner, claiming it
// via the ownership protocol. Returns nil when every candidate is in
// active use. Call on the GL goroutine.
func (m *Manager) GetAvailableTexture(owner *Tile) *Texture {
	// A tile that still owns its texture keeps it; reclaiming cancels
	// any delayed release left over from a discarded frame.
	if tex := owner.Texture(); tex != nil && tex.Owner() == owner {
		tex.Acquire(owner, false)
		tex.SetUsedLevel(0)
		return tex
	}

	var tex *Texture
	if owner.IsLayerTile() {
		tex = m.getAvailableLayerTexture(owner, m.gatherLayerTextures())
	} else {
		tex = m.getAvailableBaseTexture(owner, m.gatherTextures())
	}
	if tex == nil {
		Logger().Debug("no texture available",
			"x", owner.X(), "y", owner.Y(), "layer", owner.IsLayerTile())
		return nil
	}
	tex.SetUsedLevel(0)
	return tex
}

// gatherTextures snapshots the in-budget portion of the base pool.
func (m *Manager) gatherTextures() []*Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.maxTextureCount
	if n > len(m.textures) {
		n = len(m.textures)
	}
	return slices.Clone(m.textures[:n])
}

// gatherLayerTextures snapshots the layer pool.
func (m *Manager) gatherLayerTextures() []*Texture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tilesTextures)
}

// getAvailableLayerTexture scans the layer snapshot once, in pool
// order, taking the first texture that is unowned, unclaimed this
// frame, or left behind at a stale scale. Owners with a queued repaint
// are never robbed, since their paint is about to land.
func (m *Manager) getAvailableLayerTexture(owner *Tile, pool []*Texture) *Texture {
	for _, tex := range pool {
		o := tex.Owner()
		if o == owner {
			continue
		}
		if o == nil {
			if tex.Acquire(owner, false) {
				return tex
			}
			continue
		}
		if o.IsRepaintPending() {
			continue
		}
		if (tex.UsedLevel() != 0 || tex.Scale() != o.Scale()) &&
			tex.Acquire(owner, false) {
			return tex
		}
	}
	return nil
}

// getAvailableBaseTexture picks the farthest-and-oldest candidate: an
// unowned or unclaimed-this-frame texture wins instantly; otherwise the
// texture with the highest used level is chosen, ties broken by the
// owner's lowest draw count, then by pool order.
func (m *Manager) getAvailableBaseTexture(owner *Tile, pool []*Texture) *Texture {
	var best *Texture
	bestLevel := -1
	var bestCount uint32
	for _, tex := range pool {
		o := tex.Owner()
		if o == nil {
			if tex.Acquire(owner, false) {
				return tex
			}
			continue
		}
		if o == owner || o.IsRepaintPending() {
			continue
		}
		level := tex.UsedLevel()
		if level == -1 {
			if tex.Acquire(owner, false) {
				return tex
			}
			continue
		}
		count := o.DrawCount()
		if best == nil || level > bestLevel ||
			(level == bestLevel && count < bestCount) {
			best = tex
			bestLevel = level
			bestCount = count
		}
	}
	if best != nil && best.Acquire(owner, false) {
		return best
	}
	return nil
}

// ResetTextureUsage marks every base texture owned by state as unclaimed
// for the coming frame, so prepare can rank fresh claims against old
// ones. A nil state resets all base textures. Call once per frame on
// the GL goroutine before preparing surfaces.
func (m *Manager) ResetTextureUsage(state *ViewState) {
	m.mu.Lock()
	pool := slices.Clone(m.textures)
	m.mu.Unlock()
	for _, tex := range pool {
		if state != nil {
			o := tex.Owner()
			if o == nil || o.State() != state {
				continue
			}
		}
		tex.SetUsedLevel(-1)
	}
}

// RegisterViewState registers a rendering context with the manager.
// Each state carries its own draw counter for eviction ordering.
func (m *Manager) RegisterViewState(state *ViewState) {
	m.mu.Lock()
	if _, ok := m.states[state]; !ok {
		m.states[state] = new(uint32)
	}
	m.mu.Unlock()
}

// UnregisterViewState removes a rendering context. Queued paints for
// the state's tiles are discarded, and its textures are released back
// to the pool.
func (m *Manager) UnregisterViewState(state *ViewState) {
	m.mu.Lock()
	delete(m.states, state)
	base := slices.Clone(m.textures)
	layer := slices.Clone(m.tilesTextures)
	m.mu.Unlock()

	m.queue.CancelMatching(viewStateFilter{state: state})
	for _, tex := range append(base, layer...) {
		if o := tex.Owner(); o != nil && o.State() == state {
			tex.Release(o)
		}
	}
}

// viewStateFilter removes queued operations belonging to one view state.
type viewStateFilter struct {
	state *ViewState
}

func (f viewStateFilter) Check(op Operation) bool {
	return op.Tile().State() == f.state
}

// NextDrawCount advances and returns the state's draw counter. Surfaces
// call it once per prepared frame; tiles capture the value when they
// claim a cell.
func (m *Manager) NextDrawCount(state *ViewState) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.states[state]
	if !ok {
		c = new(uint32)
		m.states[state] = c
	}
	*c++
	return *c
}

// drawCount reads the state's current draw counter.
func (m *Manager) drawCount(state *ViewState) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.states[state]; ok {
		return *c
	}
	return 0
}

// ScheduleOperation hands a paint operation to the queue.
func (m *Manager) ScheduleOperation(op Operation) bool {
	return m.queue.Schedule(op)
}

// CancelOperations removes queued operations matching the filter.
func (m *Manager) CancelOperations(f OperationFilter) int {
	return m.queue.CancelMatching(f)
}

// Queue returns the manager's paint queue.
func (m *Manager) Queue() *Queue { return m.queue }

// Driver returns the manager's GPU driver.
func (m *Manager) Driver() Driver { return m.driver }

// Renderer returns the renderer paint operations run with.
func (m *Manager) Renderer() Renderer { return m.renderer }

// InvertedScreen reports the current screen inversion state.
func (m *Manager) InvertedScreen() bool {
	return m.invertedScreen.Load()
}

// SetInvertedScreen flips the screen inversion state. Textures record
// the inversion they were painted under, so flipping makes every tile
// not-ready and forces a repaint on its next prepare.
func (m *Manager) SetInvertedScreen(inverted bool) {
	m.invertedScreen.Store(inverted)
}

// TileWidth returns the base tile width in pixels.
func (m *Manager) TileWidth() int { return m.cfg.tileWidth }

// TileHeight returns the base tile height in pixels.
func (m *Manager) TileHeight() int { return m.cfg.tileHeight }

// LayerTileWidth returns the layer tile width in pixels.
func (m *Manager) LayerTileWidth() int { return m.cfg.layerTileWidth }

// LayerTileHeight returns the layer tile height in pixels.
func (m *Manager) LayerTileHeight() int { return m.cfg.layerTileHeight }

// Close stops the paint worker, destroys every pool texture and runs
// the driver's deferred deletes. Call on the GL goroutine; the manager
// is unusable afterwards.
func (m *Manager) Close() {
	m.queue.Close()
	m.queue.Drain()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	base := m.textures
	layer := m.tilesTextures
	m.textures = nil
	m.tilesTextures = nil
	m.maxTextureCount = 0
	m.mu.Unlock()

	for _, tex := range base {
		tex.destroy()
	}
	for _, tex := range layer {
		tex.destroy()
	}
	m.driver.RunDeferred()
}
