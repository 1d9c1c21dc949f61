// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"fmt"
	"sync"
)

// TextureInfo records what was last uploaded into a texture slot. A tile is
// ready only when the front slot's record matches the tile's identity.
type TextureInfo struct {
	X        int
	Y        int
	Scale    float32
	Painter  Painter
	Picture  uint32
	Inverted bool
}

// TextureSlot is one half of the double buffer: a GPU texture handle plus
// the metadata describing its contents.
type TextureSlot struct {
	handle TextureHandle
	info   TextureInfo
}

// Texture is a reusable GPU texture shared across tiles under memory
// pressure. It is double-buffered: the paint worker writes the back slot
// through the producer API while the GL goroutine samples the front slot;
// ProducerReleaseAndSwap flips the pair.
//
// Ownership is a single back-pointer to a TextureOwner (normally a Tile).
// The producer marks the texture busy for the duration of an upload; a
// release requested while busy is deferred until the upload finishes, so
// the GL goroutine never blocks on an in-progress upload and the worker
// never loses its slot mid-write.
//
// State machine for (busy, delayedRelease):
//
//	(0,0) --ProducerLock-->       (1,0)
//	(1,0) --ProducerRelease*-->   (0,0)            owner unchanged
//	(1,0) --Release(owner)-->     (1,1)            deferred
//	(1,1) --ProducerRelease*-->   (0,0), owner cleared if still matching
//	(0,0) --Release(owner)-->     (0,0), owner cleared immediately
type Texture struct {
	width  int
	height int

	// mu guards all fields below plus the busy condition. It pairs with
	// cond so a forced ownership change can wait out an upload.
	mu   sync.Mutex
	cond *sync.Cond

	busy                bool
	delayedRelease      bool
	delayedReleaseOwner TextureOwner
	owner               TextureOwner
	usedLevel           int

	slots    [2]TextureSlot
	writeIdx int // index of the writable (back) slot

	manager *Manager
}

// newTexture allocates a texture with both buffer slots backed by the
// manager's driver. Must run on the GL goroutine.
func newTexture(m *Manager, width, height int, label string) (*Texture, error) {
	t := &Texture{
		width:     width,
		height:    height,
		usedLevel: -1,
		manager:   m,
	}
	t.cond = sync.NewCond(&t.mu)
	for i := range t.slots {
		desc := DefaultTextureDescriptor(uint32(width), uint32(height))
		desc.Label = fmt.Sprintf("%s[%c]", label, 'a'+i)
		h, err := m.driver.CreateTexture(desc)
		if err != nil {
			// Release the first slot if the second failed.
			for j := 0; j < i; j++ {
				m.driver.ScheduleDelete(t.slots[j].handle)
			}
			return nil, fmt.Errorf("tiled: allocate %dx%d texture: %w", width, height, err)
		}
		t.slots[i].handle = h
	}
	return t, nil
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// ProducerLock acquires the writable back slot and marks the texture busy.
// Called by the paint worker before rendering.
func (t *Texture) ProducerLock() *TextureSlot {
	t.mu.Lock()
	t.busy = true
	slot := &t.slots[t.writeIdx]
	t.mu.Unlock()
	return slot
}

// ProducerUpdate uploads the bitmap into the locked slot and releases the
// producer hold. An empty bitmap skips the upload and releases without a
// swap, leaving the front slot on its old contents.
func (t *Texture) ProducerUpdate(slot *TextureSlot, b *Bitmap) {
	if b.Empty() {
		t.ProducerRelease()
		return
	}
	if err := t.manager.driver.Upload(slot.handle, b); err != nil {
		Logger().Warn("texture upload failed", "texture", slot.handle.Label(), "err", err)
		t.ProducerRelease()
		return
	}
	t.ProducerReleaseAndSwap()
}

// ProducerRelease releases the producer hold without swapping buffers.
func (t *Texture) ProducerRelease() {
	t.setNotBusy(false)
}

// ProducerReleaseAndSwap releases the producer hold and flips the
// front/back pair so the next consumer read sees the new contents.
func (t *Texture) ProducerReleaseAndSwap() {
	t.setNotBusy(true)
}

// setNotBusy clears the busy flag, optionally swaps the buffer pair, and
// consummates a pending delayed release if the recorded owner still
// matches. All of it is one atomic step under the texture mutex.
func (t *Texture) setNotBusy(swap bool) {
	t.mu.Lock()
	if swap {
		t.writeIdx ^= 1
	}
	t.busy = false
	if t.delayedRelease {
		if t.owner == t.delayedReleaseOwner {
			t.owner = nil
		}
		t.delayedRelease = false
		t.delayedReleaseOwner = nil
	}
	t.cond.Broadcast()
	t.mu.Unlock()
}

// Busy reports whether the producer currently holds the texture.
func (t *Texture) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Owner returns the current owner, or nil.
func (t *Texture) Owner() TextureOwner {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

// Acquire makes candidate the owner of the texture. If candidate already
// owns it, any pending delayed release is cancelled and Acquire succeeds.
// Otherwise ownership is transferred via setOwner; with force the caller
// waits for an in-flight upload to finish first.
//
// Called on the GL goroutine.
func (t *Texture) Acquire(candidate TextureOwner, force bool) bool {
	t.mu.Lock()
	if t.owner == candidate {
		t.delayedRelease = false
		t.delayedReleaseOwner = nil
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()
	return t.setOwner(candidate, force)
}

// TryAcquire succeeds only if the texture is not busy and the current
// owner belongs to a different view state than candidate. Used to steal
// textures from other views without disturbing the one being composited.
func (t *Texture) TryAcquire(candidate TextureOwner) bool {
	t.mu.Lock()
	ok := !t.busy && t.owner != nil && t.owner.State() != candidate.State()
	t.mu.Unlock()
	if !ok {
		return false
	}
	return t.Acquire(candidate, false)
}

// setOwner transfers ownership to candidate. With force it waits on the
// busy condition until the upload completes; without force a busy texture
// refuses the transfer. A prior owner is asked to remove the texture and
// may refuse, in which case ownership is unchanged.
func (t *Texture) setOwner(candidate TextureOwner, force bool) bool {
	t.mu.Lock()
	for t.busy && force {
		t.cond.Wait()
	}
	busy := t.busy
	prior := t.owner
	t.mu.Unlock()

	if busy {
		return false
	}

	// The prior owner's RemoveTexture is serialized with its paint path by
	// the owner's own mutex: either the removal lands first and the paint
	// bails out on the ownership check, or the paint marks the texture
	// busy first and the transfer above already refused.
	proceed := true
	if prior != nil && prior != candidate {
		proceed = prior.RemoveTexture(t)
	}
	if !proceed {
		return false
	}

	t.mu.Lock()
	t.owner = candidate
	t.mu.Unlock()
	return true
}

// Release gives up ownership. Called by the recorded owner; a release
// requested while the producer is busy is deferred until the upload
// finishes and only completes if ownership has not moved meanwhile.
// Returns false if owner does not own the texture.
func (t *Texture) Release(owner TextureOwner) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.owner != owner {
		return false
	}
	if !t.busy {
		t.owner = nil
	} else {
		t.delayedRelease = true
		t.delayedReleaseOwner = owner
	}
	return true
}

// SetTile records the tile identity about to be painted into the writable
// slot. The record becomes visible to ReadyFor after the swap.
func (t *Texture) SetTile(slot *TextureSlot, x, y int, scale float32, painter Painter, picture uint32) {
	slot.info = TextureInfo{
		X:        x,
		Y:        y,
		Scale:    scale,
		Painter:  painter,
		Picture:  picture,
		Inverted: t.manager.InvertedScreen(),
	}
}

// FrontInfo returns the metadata of the last swapped-in upload.
func (t *Texture) FrontInfo() TextureInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[t.writeIdx^1].info
}

// ConsumerHandle returns the GPU handle of the front slot for sampling.
func (t *Texture) ConsumerHandle() TextureHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[t.writeIdx^1].handle
}

// ReadyFor reports whether the texture's front contents match the tile:
// same cell, same scale, same painter, same screen inversion.
func (t *Texture) ReadyFor(tile *Tile) bool {
	info := t.FrontInfo()
	if info.X == tile.X() &&
		info.Y == tile.Y() &&
		info.Scale == tile.Scale() &&
		info.Painter != nil && info.Painter == tile.Painter() &&
		info.Inverted == t.manager.InvertedScreen() {
		return true
	}
	Logger().Debug("texture not ready for tile",
		"tile.x", tile.X(), "tile.y", tile.Y(), "tile.scale", tile.Scale(),
		"info.x", info.X, "info.y", info.Y, "info.scale", info.Scale)
	return false
}

// Scale returns the scale of the front contents.
func (t *Texture) Scale() float32 {
	return t.FrontInfo().Scale
}

// UsedLevel returns the texture's viewport distance: 0 is visible, larger
// is farther, -1 means unclaimed this frame.
func (t *Texture) UsedLevel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usedLevel
}

// SetUsedLevel records the texture's viewport distance.
func (t *Texture) SetUsedLevel(level int) {
	t.mu.Lock()
	t.usedLevel = level
	t.mu.Unlock()
}

// destroy schedules both GPU slots for deletion on the GL goroutine.
// Textures are only destroyed on renderer shutdown.
func (t *Texture) destroy() {
	for i := range t.slots {
		if t.slots[i].handle != nil {
			t.manager.driver.ScheduleDelete(t.slots[i].handle)
			t.slots[i].handle = nil
		}
	}
}
