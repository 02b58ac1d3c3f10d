// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sampler draws rarity-weighted trait combinations from a catalog
// snapshot. Cumulative-weight tables are built once per run, so each draw
// costs O(log k) per category via binary search. The randomness source is
// injected and seedable, making runs reproducible for identical seeds.
package sampler

import (
	"fmt"
	"math"
	"sort"

	"layerforge/internal/models"
)

// Source yields uniform random values in [0,1). Implementations must be
// deterministic for a fixed seed.
type Source interface {
	Next() float64
}

// NoEligibleTraitError reports a category whose traits are all zero-weight
// (or absent). This is a catalog misconfiguration: skipping the category
// would silently change the shape of every combination, so the run is
// refused instead.
type NoEligibleTraitError struct {
	Category string
}

func (e *NoEligibleTraitError) Error() string {
	return fmt.Sprintf("category %q has no trait with positive weight", e.Category)
}

// table holds one category's eligible traits and their cumulative weights.
type table struct {
	category models.Category
	traits   []models.Trait
	cum      []float64 // cum[i] = sum of weights of traits[0..i]
	total    float64
}

// Sampler draws one trait per category, per token, in catalog order.
type Sampler struct {
	tables []table
	src    Source
}

// New builds a sampler over the snapshot. Every category must have at
// least one positive-weight trait; otherwise a *NoEligibleTraitError is
// returned and no sampler is constructed.
func New(snap *models.Snapshot, src Source) (*Sampler, error) {
	s := &Sampler{src: src}
	for _, cat := range snap.Categories {
		eligible := cat.EligibleTraits()
		if len(eligible) == 0 {
			return nil, &NoEligibleTraitError{Category: cat.Name}
		}
		tb := table{
			category: cat,
			traits:   eligible,
			cum:      make([]float64, len(eligible)),
		}
		for i, tr := range eligible {
			tb.total += tr.Weight
			tb.cum[i] = tb.total
		}
		s.tables = append(s.tables, tb)
	}
	return s, nil
}

// Draw selects one trait per category according to the configured weights
// and returns the resulting combination in category stacking order.
func (s *Sampler) Draw() models.Combination {
	combo := models.Combination{Selections: make([]models.Selection, 0, len(s.tables))}
	for _, tb := range s.tables {
		r := s.src.Next() * tb.total
		// First index whose cumulative weight exceeds r.
		i := sort.SearchFloat64s(tb.cum, r)
		if i < len(tb.cum) && tb.cum[i] == r {
			i++ // SearchFloat64s returns the exact-match slot; r belongs to the next trait
		}
		if i >= len(tb.traits) {
			i = len(tb.traits) - 1
		}
		tr := tb.traits[i]
		combo.Selections = append(combo.Selections, models.Selection{
			CategoryID:   tb.category.ID,
			CategoryName: tb.category.Name,
			TraitID:      tr.ID,
			TraitName:    tr.Name,
			AssetKey:     tr.AssetKey,
		})
	}
	return combo
}

// FeasibleCombinations returns the size of the combination space: the
// product of eligible trait counts across categories, saturating at
// math.MaxInt64 for very large catalogs.
func (s *Sampler) FeasibleCombinations() int64 {
	product := int64(1)
	for _, tb := range s.tables {
		k := int64(len(tb.traits))
		if product > math.MaxInt64/k {
			return math.MaxInt64
		}
		product *= k
	}
	return product
}

// CategoryCount returns the number of sample-eligible categories.
func (s *Sampler) CategoryCount() int {
	return len(s.tables)
}
