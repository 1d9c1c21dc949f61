// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import "image"

// maxRegionRects caps the rect list of a Region. Past the cap the region
// collapses to its bounding rectangle, trading repaint precision for a
// bounded footprint.
const maxRegionRects = 8

// Region is an ordered list of dirty rectangles in tile-local pixel
// coordinates. It accumulates invalidations between paints; the paint
// worker consumes a whole region at once.
//
// Region is not safe for concurrent use. Tiles guard their regions with
// the tile mutex.
type Region struct {
	rects []image.Rectangle
}

// NewRegion creates an empty region.
func NewRegion() *Region {
	return &Region{}
}

// IsEmpty returns true if the region contains no area.
func (r *Region) IsEmpty() bool {
	return r == nil || len(r.rects) == 0
}

// Union merges a rectangle into the region. Rectangles that touch or
// overlap an existing entry are coalesced; otherwise the rect is appended.
// When the list exceeds its cap the region collapses to its bounds.
func (r *Region) Union(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	for i, existing := range r.rects {
		if existing.Overlaps(rect) || existing.Union(rect) == existing {
			r.rects[i] = existing.Union(rect)
			return
		}
	}
	r.rects = append(r.rects, rect)
	if len(r.rects) > maxRegionRects {
		bounds := r.Bounds()
		r.rects = r.rects[:1]
		r.rects[0] = bounds
	}
}

// Bounds returns the bounding rectangle of the region.
func (r *Region) Bounds() image.Rectangle {
	if r.IsEmpty() {
		return image.Rectangle{}
	}
	bounds := r.rects[0]
	for _, rect := range r.rects[1:] {
		bounds = bounds.Union(rect)
	}
	return bounds
}

// Intersects returns true if any rect of the region overlaps rect.
func (r *Region) Intersects(rect image.Rectangle) bool {
	if r.IsEmpty() || rect.Empty() {
		return false
	}
	for _, existing := range r.rects {
		if existing.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Rects returns the rectangles of the region in insertion order.
// The returned slice is owned by the region; callers must not modify it.
func (r *Region) Rects() []image.Rectangle {
	if r == nil {
		return nil
	}
	return r.rects
}

// Len returns the number of rectangles in the region.
func (r *Region) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rects)
}

// Clear removes all rectangles from the region.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Clone returns an independent copy of the region.
func (r *Region) Clone() *Region {
	if r == nil {
		return NewRegion()
	}
	out := &Region{rects: make([]image.Rectangle, len(r.rects))}
	copy(out.rects, r.rects)
	return out
}

// Merge unions every rect of other into the region.
func (r *Region) Merge(other *Region) {
	if other.IsEmpty() {
		return
	}
	for _, rect := range other.rects {
		r.Union(rect)
	}
}
