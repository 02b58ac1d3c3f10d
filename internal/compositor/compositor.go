// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compositor flattens a trait combination into one raster. Layer
// images are fetched by asset key, decoded, scaled onto a square canvas in
// category stacking order (lowest order index painted first), and encoded
// once as PNG for output-size predictability.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"layerforge/internal/models"
)

const (
	// PreviewSize is the fixed square edge for preview renders.
	PreviewSize = 384

	// MaxFullResolution caps the full-export edge to bound memory and CPU.
	MaxFullResolution = 3000

	// DefaultFullResolution is used when a project has not configured an
	// export resolution.
	DefaultFullResolution = 2048

	// maxImagePixels caps decoded layer size to prevent memory bombs.
	// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
	maxImagePixels = 100_000_000
)

// Fetcher supplies layer raster bytes by asset key.
type Fetcher interface {
	FetchRaster(ctx context.Context, key string) ([]byte, error)
}

// Compositor renders combinations against a configured export resolution.
type Compositor struct {
	fetch   Fetcher
	fullRes int
}

// New creates a compositor. fullRes is the project's export edge in pixels;
// values outside (0, MaxFullResolution] are clamped.
func New(fetch Fetcher, fullRes int) *Compositor {
	if fullRes <= 0 {
		fullRes = DefaultFullResolution
	}
	if fullRes > MaxFullResolution {
		fullRes = MaxFullResolution
	}
	return &Compositor{fetch: fetch, fullRes: fullRes}
}

// CanvasSize returns the square canvas edge for a resolution mode.
func (c *Compositor) CanvasSize(mode models.ResolutionMode) int {
	if mode == models.ModeFull {
		return c.fullRes
	}
	return PreviewSize
}

// Render composites one combination at the requested resolution. It is a
// pure function of (combination, stored assets, mode): the same inputs
// always produce the same bytes. A missing or corrupt layer asset fails
// this render only; the caller decides how to degrade.
func (c *Compositor) Render(ctx context.Context, combo models.Combination, mode models.ResolutionMode) ([]byte, error) {
	size := c.CanvasSize(mode)
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))

	// Selections arrive in category order-index order: paint bottom-up.
	for _, sel := range combo.Selections {
		layer, err := c.decodeLayer(ctx, sel.AssetKey)
		if err != nil {
			return nil, fmt.Errorf("layer %s/%s: %w", sel.CategoryName, sel.TraitName, err)
		}
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), layer, layer.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeLayer fetches and decodes one layer asset, rejecting image bombs
// before the full decode.
func (c *Compositor) decodeLayer(ctx context.Context, key string) (image.Image, error) {
	data, err := c.fetch.FetchRaster(ctx, key)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
