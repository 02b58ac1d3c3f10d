// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the domain types shared across the trait-composition
// engine: categories, traits, combinations, and generation requests/results.
package models

import (
	"github.com/google/uuid"
)

// Category represents a layer slot in a project (e.g., "background", "eyes").
// Its OrderIndex controls both stacking order during composition (lowest
// painted first) and display order in the authoring UI. Order indices are
// unique within a project.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`         // machine name parsed from filenames, lowercase
	DisplayName string    `json:"display_name"` // human-readable label
	OrderIndex  int       `json:"order_index"`
	Traits      []Trait   `json:"traits"`
}

// Trait is one selectable layer variant within a category. Weight is the
// unnormalized rarity weight; a weight of zero means the trait is never
// selected automatically. Trait names are unique within their category.
type Trait struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	AssetKey   string    `json:"asset_key"` // raster reference in the asset store
	OrderIndex int       `json:"order_index"`
	Weight     float64   `json:"weight"`
}

// EligibleTraits returns the traits of c that carry a positive weight, in
// their stored order. Only these participate in weighted sampling.
func (c *Category) EligibleTraits() []Trait {
	var out []Trait
	for _, t := range c.Traits {
		if t.Weight > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Snapshot is an immutable deep copy of a project's trait catalog, taken at
// the start of a generation run. Categories are ordered by OrderIndex
// ascending, traits within each category by their OrderIndex ascending.
// A run holds its snapshot for its whole lifetime; concurrent catalog edits
// are never visible mid-run.
type Snapshot struct {
	ProjectID  uuid.UUID
	Categories []Category
}
