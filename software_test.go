// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

import (
	"errors"
	"image/color"
	"testing"
)

func TestSoftwareDriverCreateLimit(t *testing.T) {
	d := NewSoftwareDriver()
	d.SetCreateLimit(2)

	desc := DefaultTextureDescriptor(4, 4)
	for i := 0; i < 2; i++ {
		if _, err := d.CreateTexture(desc); err != nil {
			t.Fatalf("CreateTexture(%d) = %v, want nil", i, err)
		}
	}
	_, err := d.CreateTexture(desc)
	if !errors.Is(err, ErrTextureLimit) {
		t.Errorf("CreateTexture() over limit = %v, want ErrTextureLimit", err)
	}

	d.SetCreateLimit(0)
	if _, err := d.CreateTexture(desc); err != nil {
		t.Errorf("CreateTexture() after lifting limit = %v, want nil", err)
	}
}

func TestSoftwareDriverUpload(t *testing.T) {
	d := NewSoftwareDriver()
	h, err := d.CreateTexture(DefaultTextureDescriptor(2, 2))
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}

	b := NewBitmap(2, 2)
	b.SetPixel(1, 1, color.RGBA{R: 255, A: 255})
	if err := d.Upload(h, b); err != nil {
		t.Fatalf("Upload() = %v", err)
	}

	pixels := h.(*SoftwareTexture).Pixels()
	// Pixel (1,1) starts at byte offset (1*2+1)*4.
	if pixels[12] != 255 || pixels[15] != 255 {
		t.Errorf("uploaded pixel = %v, want red at (1,1)", pixels[12:16])
	}

	wrong := NewBitmap(4, 4)
	if err := d.Upload(h, wrong); err == nil {
		t.Error("Upload() with mismatched size = nil, want error")
	}
}

func TestSoftwareDriverDeferredDelete(t *testing.T) {
	d := NewSoftwareDriver()
	h, err := d.CreateTexture(DefaultTextureDescriptor(2, 2))
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}

	d.ScheduleDelete(h)
	// Not deleted until RunDeferred.
	if err := d.Upload(h, NewBitmap(2, 2)); err != nil {
		t.Errorf("Upload() before RunDeferred = %v, want nil", err)
	}

	d.RunDeferred()
	if err := d.Upload(h, NewBitmap(2, 2)); !errors.Is(err, ErrTextureDeleted) {
		t.Errorf("Upload() after RunDeferred = %v, want ErrTextureDeleted", err)
	}
	if err := d.Draw(h, MakeRectF(0, 0, 2, 2), 1, nil); !errors.Is(err, ErrTextureDeleted) {
		t.Errorf("Draw() after RunDeferred = %v, want ErrTextureDeleted", err)
	}
	if got := d.Deletes(); got != 1 {
		t.Errorf("Deletes() = %d, want 1", got)
	}
}

func TestSoftwareDriverCounters(t *testing.T) {
	d := NewSoftwareDriver()
	h, _ := d.CreateTexture(DefaultTextureDescriptor(2, 2))

	if err := d.Draw(h, MakeRectF(0, 0, 2, 2), 0.5, nil); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	d.Upload(h, NewBitmap(2, 2))

	if got := d.Created(); got != 1 {
		t.Errorf("Created() = %d, want 1", got)
	}
	if got := d.Draws(); got != 1 {
		t.Errorf("Draws() = %d, want 1", got)
	}
	if got := d.Uploads(); got != 1 {
		t.Errorf("Uploads() = %d, want 1", got)
	}
}
