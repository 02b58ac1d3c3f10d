package compositor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/uuid"

	"layerforge/internal/assetstore"
	"layerforge/internal/models"
)

// solidPNG encodes a solid-color square as PNG bytes.
func solidPNG(t *testing.T, size int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// testCombo builds a two-layer combination backed by the given store.
func testCombo(t *testing.T, store *assetstore.MemoryStore) models.Combination {
	t.Helper()
	store.Put("bg.png", solidPNG(t, 16, color.RGBA{R: 255, A: 255}))
	store.Put("eyes.png", solidPNG(t, 16, color.RGBA{B: 255, A: 255}))
	return models.Combination{Selections: []models.Selection{
		{CategoryID: uuid.New(), CategoryName: "background", TraitID: uuid.New(), TraitName: "red", AssetKey: "bg.png"},
		{CategoryID: uuid.New(), CategoryName: "eyes", TraitID: uuid.New(), TraitName: "blue", AssetKey: "eyes.png"},
	}}
}

func TestRenderPreviewSize(t *testing.T) {
	store := assetstore.NewMemoryStore()
	combo := testCombo(t, store)
	c := New(store, 1024)

	out, err := c.Render(context.Background(), combo, models.ModePreview)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Errorf("output format = %s, want png", format)
	}
	if cfg.Width != PreviewSize || cfg.Height != PreviewSize {
		t.Errorf("preview size = %dx%d, want %dx%d", cfg.Width, cfg.Height, PreviewSize, PreviewSize)
	}
}

func TestRenderFullSize(t *testing.T) {
	store := assetstore.NewMemoryStore()
	combo := testCombo(t, store)
	c := New(store, 512)

	out, err := c.Render(context.Background(), combo, models.ModeFull)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 512 || cfg.Height != 512 {
		t.Errorf("full size = %dx%d, want 512x512", cfg.Width, cfg.Height)
	}
}

func TestFullResolutionClamping(t *testing.T) {
	tests := []struct {
		name    string
		fullRes int
		want    int
	}{
		{"zero falls back to default", 0, DefaultFullResolution},
		{"negative falls back to default", -100, DefaultFullResolution},
		{"over cap is clamped", 9000, MaxFullResolution},
		{"in range kept", 1500, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(assetstore.NewMemoryStore(), tt.fullRes)
			if got := c.CanvasSize(models.ModeFull); got != tt.want {
				t.Errorf("CanvasSize(full) with fullRes=%d = %d, want %d", tt.fullRes, got, tt.want)
			}
		})
	}
}

func TestRenderStackingOrder(t *testing.T) {
	// The topmost opaque layer must win: blue eyes cover the red background.
	store := assetstore.NewMemoryStore()
	combo := testCombo(t, store)
	c := New(store, 512)

	out, err := c.Render(context.Background(), combo, models.ModePreview)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r, _, b, _ := img.At(PreviewSize/2, PreviewSize/2).RGBA()
	if b <= r {
		t.Errorf("center pixel r=%d b=%d, want blue dominant (top layer)", r>>8, b>>8)
	}
}

func TestRenderTransparencyPreserved(t *testing.T) {
	// A transparent top layer must not hide the one below it.
	store := assetstore.NewMemoryStore()
	store.Put("bg.png", solidPNG(t, 16, color.RGBA{R: 255, A: 255}))
	store.Put("clear.png", solidPNG(t, 16, color.RGBA{}))
	combo := models.Combination{Selections: []models.Selection{
		{CategoryName: "background", TraitName: "red", AssetKey: "bg.png"},
		{CategoryName: "accessory", TraitName: "none", AssetKey: "clear.png"},
	}}

	out, err := New(store, 512).Render(context.Background(), combo, models.ModePreview)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, _, b, _ := img.At(10, 10).RGBA()
	if r == 0 || b > r {
		t.Errorf("background not visible through transparent layer: r=%d b=%d", r>>8, b>>8)
	}
}

func TestRenderMissingAsset(t *testing.T) {
	store := assetstore.NewMemoryStore()
	combo := models.Combination{Selections: []models.Selection{
		{CategoryName: "background", TraitName: "red", AssetKey: "nope.png"},
	}}

	_, err := New(store, 512).Render(context.Background(), combo, models.ModePreview)
	if err == nil {
		t.Fatal("render with missing asset succeeded, want error")
	}
}

func TestRenderCorruptAsset(t *testing.T) {
	store := assetstore.NewMemoryStore()
	store.Put("junk.png", []byte("definitely not an image"))
	combo := models.Combination{Selections: []models.Selection{
		{CategoryName: "background", TraitName: "junk", AssetKey: "junk.png"},
	}}

	_, err := New(store, 512).Render(context.Background(), combo, models.ModePreview)
	if err == nil {
		t.Fatal("render with corrupt asset succeeded, want error")
	}
}

func TestRenderDeterministic(t *testing.T) {
	store := assetstore.NewMemoryStore()
	combo := testCombo(t, store)
	c := New(store, 512)

	a, err := c.Render(context.Background(), combo, models.ModePreview)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := c.Render(context.Background(), combo, models.ModePreview)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two renders of the same combination differ")
	}
}
