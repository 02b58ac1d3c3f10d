// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"

	"github.com/google/uuid"
)

// Selection records the trait chosen for one category of a combination.
type Selection struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	TraitID      uuid.UUID `json:"trait_id"`
	TraitName    string    `json:"trait_name"`
	AssetKey     string    `json:"asset_key"`
}

// Combination is one token's full selection: exactly one trait per
// sample-eligible category, in category stacking order. Two combinations
// are equal iff every category maps to the same trait.
type Combination struct {
	Selections []Selection `json:"selections"`
}

// Key returns the canonical identity of the combination: the ordered tuple
// of chosen trait IDs. Batch deduplication operates on this key.
func (c Combination) Key() string {
	var b strings.Builder
	for i, s := range c.Selections {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(s.TraitID.String())
	}
	return b.String()
}
