package sheet

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"layerforge/internal/models"
)

func tokenWithImage(t *testing.T, index, size int, c color.RGBA) models.Token {
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
	return models.Token{Index: index, Image: buf.Bytes()}
}

func TestMontageLayout(t *testing.T) {
	tests := []struct {
		name     string
		tokens   int
		columns  int
		wantCols int
		wantRows int
	}{
		{"exact grid", 6, 3, 3, 2},
		{"ragged last row", 7, 3, 3, 3},
		{"fewer tokens than columns", 2, 5, 2, 1},
		{"default columns", 10, 0, 5, 2},
		{"single token", 1, 4, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokens []models.Token
			for i := 0; i < tt.tokens; i++ {
				tokens = append(tokens, tokenWithImage(t, i, 32, color.RGBA{R: uint8(i * 20), A: 255}))
			}

			out, err := Montage(tokens, tt.columns)
			if err != nil {
				t.Fatalf("montage: %v", err)
			}

			cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode sheet: %v", err)
			}
			wantW := tt.wantCols*CellSize + (tt.wantCols+1)*8
			wantH := tt.wantRows*CellSize + (tt.wantRows+1)*8
			if cfg.Width != wantW || cfg.Height != wantH {
				t.Errorf("sheet = %dx%d, want %dx%d", cfg.Width, cfg.Height, wantW, wantH)
			}
		})
	}
}

func TestMontageEmptyBatch(t *testing.T) {
	if _, err := Montage(nil, 3); err == nil {
		t.Error("montage of an empty batch succeeded, want error")
	}
}

func TestMontageCorruptToken(t *testing.T) {
	tokens := []models.Token{{Index: 0, Image: []byte("not a png")}}
	if _, err := Montage(tokens, 1); err == nil {
		t.Error("montage with a corrupt token image succeeded, want error")
	}
}
