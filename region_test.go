// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"image"
	"testing"
)

func TestRegionEmpty(t *testing.T) {
	r := NewRegion()
	if !r.IsEmpty() {
		t.Error("NewRegion().IsEmpty() = false, want true")
	}
	var nilRegion *Region
	if !nilRegion.IsEmpty() {
		t.Error("nil region IsEmpty() = false, want true")
	}
	if got := r.Bounds(); !got.Empty() {
		t.Errorf("empty region Bounds() = %v, want empty", got)
	}
}

func TestRegionUnion(t *testing.T) {
	tests := []struct {
		name       string
		rects      []image.Rectangle
		wantLen    int
		wantBounds image.Rectangle
	}{
		{
			name:       "single rect",
			rects:      []image.Rectangle{image.Rect(0, 0, 10, 10)},
			wantLen:    1,
			wantBounds: image.Rect(0, 0, 10, 10),
		},
		{
			name: "overlapping rects coalesce",
			rects: []image.Rectangle{
				image.Rect(0, 0, 10, 10),
				image.Rect(5, 5, 15, 15),
			},
			wantLen:    1,
			wantBounds: image.Rect(0, 0, 15, 15),
		},
		{
			name: "disjoint rects stay separate",
			rects: []image.Rectangle{
				image.Rect(0, 0, 10, 10),
				image.Rect(100, 100, 110, 110),
			},
			wantLen:    2,
			wantBounds: image.Rect(0, 0, 110, 110),
		},
		{
			name: "contained rect absorbed",
			rects: []image.Rectangle{
				image.Rect(0, 0, 100, 100),
				image.Rect(10, 10, 20, 20),
			},
			wantLen:    1,
			wantBounds: image.Rect(0, 0, 100, 100),
		},
		{
			name:    "empty rect ignored",
			rects:   []image.Rectangle{{}},
			wantLen: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegion()
			for _, rect := range tt.rects {
				r.Union(rect)
			}
			if got := r.Len(); got != tt.wantLen {
				t.Errorf("Len() = %d, want %d", got, tt.wantLen)
			}
			if got := r.Bounds(); got != tt.wantBounds {
				t.Errorf("Bounds() = %v, want %v", got, tt.wantBounds)
			}
		})
	}
}

func TestRegionCollapsesToBounds(t *testing.T) {
	r := NewRegion()
	// Insert more disjoint rects than the cap.
	for i := 0; i <= maxRegionRects; i++ {
		x := i * 100
		r.Union(image.Rect(x, 0, x+10, 10))
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() after overflow = %d, want 1", got)
	}
	want := image.Rect(0, 0, maxRegionRects*100+10, 10)
	if got := r.Bounds(); got != want {
		t.Errorf("Bounds() after overflow = %v, want %v", got, want)
	}
}

func TestRegionIntersects(t *testing.T) {
	r := NewRegion()
	r.Union(image.Rect(0, 0, 10, 10))
	r.Union(image.Rect(100, 100, 110, 110))

	if !r.Intersects(image.Rect(5, 5, 6, 6)) {
		t.Error("Intersects inner rect = false, want true")
	}
	if r.Intersects(image.Rect(50, 50, 60, 60)) {
		t.Error("Intersects gap rect = true, want false")
	}
	if r.Intersects(image.Rectangle{}) {
		t.Error("Intersects empty rect = true, want false")
	}
}

func TestRegionCloneIndependent(t *testing.T) {
	r := NewRegion()
	r.Union(image.Rect(0, 0, 10, 10))
	c := r.Clone()
	c.Union(image.Rect(100, 100, 110, 110))
	if r.Len() != 1 {
		t.Errorf("original Len() = %d after clone mutation, want 1", r.Len())
	}
	if c.Len() != 2 {
		t.Errorf("clone Len() = %d, want 2", c.Len())
	}
}

func TestRegionMerge(t *testing.T) {
	a := NewRegion()
	a.Union(image.Rect(0, 0, 10, 10))
	b := NewRegion()
	b.Union(image.Rect(5, 0, 20, 10))
	b.Union(image.Rect(100, 0, 110, 10))

	a.Merge(b)
	if got := a.Bounds(); got != image.Rect(0, 0, 110, 10) {
		t.Errorf("Bounds() after merge = %v, want %v", got, image.Rect(0, 0, 110, 10))
	}

	a.Merge(nil)
	if got := a.Bounds(); got != image.Rect(0, 0, 110, 10) {
		t.Errorf("Bounds() after nil merge = %v, want unchanged", got)
	}
}

func TestRegionClear(t *testing.T) {
	r := NewRegion()
	r.Union(image.Rect(0, 0, 10, 10))
	r.Clear()
	if !r.IsEmpty() {
		t.Error("IsEmpty() after Clear = false, want true")
	}
}
