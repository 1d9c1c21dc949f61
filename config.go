// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tiled

// Default pool and tile geometry. The base pool backs the page content,
// the layer pool backs compositor layers; both use 256x256 RGBA tiles.
const (
	// DefaultMaxTextureAllocation is the hard cap on the base texture pool.
	DefaultMaxTextureAllocation = 51

	// DefaultLayerTiles is the size of the layer texture pool.
	DefaultLayerTiles = 50

	// DefaultTileWidth is the base tile width in pixels.
	DefaultTileWidth = 256

	// DefaultTileHeight is the base tile height in pixels.
	DefaultTileHeight = 256

	// DefaultLayerTileWidth is the layer tile width in pixels.
	DefaultLayerTileWidth = 256

	// DefaultLayerTileHeight is the layer tile height in pixels.
	DefaultLayerTileHeight = 256

	// MaxLayersAllocation is the total memory budget for layer textures.
	MaxLayersAllocation = 32 << 20 // 32 MiB

	// MaxLayerAllocation is the memory budget for a single layer.
	MaxLayerAllocation = 8 << 20 // 8 MiB

	// BytesPerPixel is the texture pixel size (RGBA8888).
	BytesPerPixel = 4
)

// maxDirtyBuffers is the depth of the per-tile dirty region ring. One slot
// is consumed by an in-flight paint while the GL goroutine marks the other.
const maxDirtyBuffers = 2

// Option configures a Manager during creation.
// Use functional options to customize Manager behavior.
//
// Example:
//
//	// Default software driver
//	m := tiled.New()
//
//	// Custom GPU driver (dependency injection)
//	m := tiled.New(tiled.WithDriver(gpuDriver))
type Option func(*config)

// config holds optional configuration for Manager creation.
type config struct {
	driver               Driver
	renderer             Renderer
	maxTextureAllocation int
	layerTiles           int
	tileWidth            int
	tileHeight           int
	layerTileWidth       int
	layerTileHeight      int
	invertedScreen       bool
}

// defaultConfig returns the default manager configuration.
func defaultConfig() config {
	return config{
		driver:               nil, // Will be set to SoftwareDriver if nil
		renderer:             nil, // Will be set to BitmapRenderer if nil
		maxTextureAllocation: DefaultMaxTextureAllocation,
		layerTiles:           DefaultLayerTiles,
		tileWidth:            DefaultTileWidth,
		tileHeight:           DefaultTileHeight,
		layerTileWidth:       DefaultLayerTileWidth,
		layerTileHeight:      DefaultLayerTileHeight,
	}
}

// WithDriver sets the GPU driver for the Manager.
// Use this for dependency injection of a real GPU backend, for example
// backend/wgpu. The default is an in-memory SoftwareDriver.
func WithDriver(d Driver) Option {
	return func(c *config) {
		c.driver = d
	}
}

// WithRenderer sets the tile renderer used by paint operations.
// The default BitmapRenderer drives the tile's painter into a scratch
// bitmap; a custom renderer can rasterize recorded pictures directly.
func WithRenderer(r Renderer) Option {
	return func(c *config) {
		c.renderer = r
	}
}

// WithMaxTextureAllocation caps the base texture pool.
// Values above DefaultMaxTextureAllocation are clamped at allocation time.
func WithMaxTextureAllocation(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTextureAllocation = n
		}
	}
}

// WithLayerTiles sets the layer texture pool size.
func WithLayerTiles(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.layerTiles = n
		}
	}
}

// WithTileSize sets the base tile dimensions in pixels.
func WithTileSize(w, h int) Option {
	return func(c *config) {
		if w > 0 && h > 0 {
			c.tileWidth = w
			c.tileHeight = h
		}
	}
}

// WithLayerTileSize sets the layer tile dimensions in pixels.
func WithLayerTileSize(w, h int) Option {
	return func(c *config) {
		if w > 0 && h > 0 {
			c.layerTileWidth = w
			c.layerTileHeight = h
		}
	}
}

// WithInvertedScreen sets the initial screen inversion state.
// Tiles painted under one inversion state are not ready under the other.
func WithInvertedScreen(inverted bool) Option {
	return func(c *config) {
		c.invertedScreen = inverted
	}
}
