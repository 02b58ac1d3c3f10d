// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sheet renders a contact-sheet montage of a generated batch: the
// tokens laid out on a grid in batch order, one cell per token. Creators
// review the sheet before spending credits on a full-resolution run.
package sheet

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png" // token images are PNG-encoded

	"github.com/fogleman/gg"

	"layerforge/internal/models"
)

const (
	// CellSize is the square edge each token is drawn into.
	CellSize = 192

	// cellPadding separates cells on the sheet.
	cellPadding = 8

	// DefaultColumns is used when the caller passes a non-positive count.
	DefaultColumns = 5
)

// Montage lays the batch's tokens out on a grid and returns the sheet as
// PNG bytes. Tokens are placed in batch order, left to right, top to
// bottom. Fails if the batch is empty or a token image cannot be decoded.
func Montage(tokens []models.Token, columns int) ([]byte, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("montage: empty batch")
	}
	if columns <= 0 {
		columns = DefaultColumns
	}
	if columns > len(tokens) {
		columns = len(tokens)
	}
	rows := (len(tokens) + columns - 1) / columns

	width := columns*CellSize + (columns+1)*cellPadding
	height := rows*CellSize + (rows+1)*cellPadding

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.96, 0.96, 0.96)
	dc.Clear()

	for i, tok := range tokens {
		img, _, err := image.Decode(bytes.NewReader(tok.Image))
		if err != nil {
			return nil, fmt.Errorf("montage: decode token %d: %w", tok.Index, err)
		}

		col := i % columns
		row := i / columns
		x := cellPadding + col*(CellSize+cellPadding)
		y := cellPadding + row*(CellSize+cellPadding)

		cell := scaleToCell(img)
		dc.DrawImage(cell, x, y)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("montage: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleToCell fits a token image into a CellSize square.
func scaleToCell(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == CellSize && b.Dy() == CellSize {
		return img
	}
	cell := gg.NewContext(CellSize, CellSize)
	cell.Scale(float64(CellSize)/float64(b.Dx()), float64(CellSize)/float64(b.Dy()))
	cell.DrawImage(img, 0, 0)
	return cell.Image()
}
