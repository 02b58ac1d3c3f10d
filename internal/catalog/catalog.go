// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog holds the in-memory trait catalog of a project: an
// ordered set of categories, each with its ordered, rarity-weighted trait
// variants. Mutations are validated up front and applied all-or-nothing;
// a generation run reads a frozen Snapshot so concurrent edits never touch
// an in-flight batch.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"layerforge/internal/assets"
	"layerforge/internal/models"
)

// ConflictError reports a catalog mutation that would violate a uniqueness
// invariant (duplicate order index, duplicate name). The mutation is
// rejected and the catalog is left unchanged.
type ConflictError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("catalog conflict on %s %q: %s", e.Field, e.Value, e.Reason)
}

// Catalog is the mutable trait catalog of one project. All methods are safe
// for concurrent use; mutations are serialized by a single writer lock.
type Catalog struct {
	mu         sync.RWMutex
	projectID  uuid.UUID
	categories []models.Category // kept sorted by OrderIndex
}

// New creates an empty catalog for the given project.
func New(projectID uuid.UUID) *Catalog {
	return &Catalog{projectID: projectID}
}

// DefaultWeight is assigned to traits built from uploads that carry no
// explicit rarity configuration yet.
const DefaultWeight = 1.0

// Build assembles a catalog from grouped, validated uploads. Categories are
// ordered by each group's minimum asset order; every trait starts at
// DefaultWeight until the author tunes rarity.
func Build(projectID uuid.UUID, groups []assets.Group) (*Catalog, error) {
	c := New(projectID)
	for i, g := range groups {
		catID, err := c.AddCategory(g.Category, g.Category, i)
		if err != nil {
			return nil, fmt.Errorf("build catalog: %w", err)
		}
		for j, m := range g.Members {
			if _, err := c.AddTrait(catID, m.Trait, m.Filename, j, DefaultWeight); err != nil {
				return nil, fmt.Errorf("build catalog: %w", err)
			}
		}
	}
	return c, nil
}

// AddCategory appends a new layer slot. Fails with *ConflictError if the
// name or order index is already taken.
func (c *Catalog) AddCategory(name, displayName string, orderIndex int) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cat := range c.categories {
		if cat.Name == name {
			return uuid.Nil, &ConflictError{Field: "category name", Value: name, Reason: "already exists"}
		}
		if cat.OrderIndex == orderIndex {
			return uuid.Nil, &ConflictError{Field: "order index", Value: fmt.Sprint(orderIndex), Reason: "already taken by " + cat.Name}
		}
	}

	cat := models.Category{
		ID:          uuid.New(),
		Name:        name,
		DisplayName: displayName,
		OrderIndex:  orderIndex,
	}
	c.categories = append(c.categories, cat)
	c.sortLocked()
	return cat.ID, nil
}

// AddTrait inserts a layer variant into a category. Fails with
// *ConflictError when the trait name already exists in the category or the
// weight is negative.
func (c *Catalog) AddTrait(categoryID uuid.UUID, name, assetKey string, orderIndex int, weight float64) (uuid.UUID, error) {
	if weight < 0 {
		return uuid.Nil, &ConflictError{Field: "weight", Value: fmt.Sprint(weight), Reason: "must be non-negative"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.findCategoryLocked(categoryID)
	if idx < 0 {
		return uuid.Nil, fmt.Errorf("add trait: category %s not found", categoryID)
	}
	for _, t := range c.categories[idx].Traits {
		if t.Name == name {
			return uuid.Nil, &ConflictError{Field: "trait name", Value: name, Reason: "already exists in category " + c.categories[idx].Name}
		}
	}

	trait := models.Trait{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Name:       name,
		AssetKey:   assetKey,
		OrderIndex: orderIndex,
		Weight:     weight,
	}
	c.categories[idx].Traits = append(c.categories[idx].Traits, trait)
	sort.SliceStable(c.categories[idx].Traits, func(i, j int) bool {
		return c.categories[idx].Traits[i].OrderIndex < c.categories[idx].Traits[j].OrderIndex
	})
	return trait.ID, nil
}

// ReorderItem is one entry of a category reorder request.
type ReorderItem struct {
	ID       uuid.UUID `json:"id"`
	NewIndex int       `json:"new_index"`
}

// ReorderCategories applies new order indices to the listed categories.
// The whole list is validated first: unknown IDs or a resulting duplicate
// index reject the entire operation and leave the catalog unchanged.
func (c *Catalog) ReorderCategories(items []ReorderItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Resolve requested indices on a scratch map before touching anything.
	next := make(map[uuid.UUID]int, len(c.categories))
	for _, cat := range c.categories {
		next[cat.ID] = cat.OrderIndex
	}
	for _, item := range items {
		if _, ok := next[item.ID]; !ok {
			return fmt.Errorf("reorder: category %s not found", item.ID)
		}
		next[item.ID] = item.NewIndex
	}

	seen := make(map[int]uuid.UUID, len(next))
	for id, idx := range next {
		if other, dup := seen[idx]; dup {
			return &ConflictError{
				Field:  "order index",
				Value:  fmt.Sprint(idx),
				Reason: fmt.Sprintf("assigned to both %s and %s", other, id),
			}
		}
		seen[idx] = id
	}

	for i := range c.categories {
		c.categories[i].OrderIndex = next[c.categories[i].ID]
	}
	c.sortLocked()
	return nil
}

// RemoveCategory deletes a layer slot and, explicitly, every trait it
// holds. Returns the number of cascaded trait removals.
func (c *Catalog) RemoveCategory(id uuid.UUID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.findCategoryLocked(id)
	if idx < 0 {
		return 0, fmt.Errorf("remove category: %s not found", id)
	}
	removed := len(c.categories[idx].Traits)
	c.categories = append(c.categories[:idx], c.categories[idx+1:]...)
	return removed, nil
}

// SetWeight updates a trait's rarity weight. Weight zero excludes the
// trait from sampling without deleting it.
func (c *Catalog) SetWeight(traitID uuid.UUID, weight float64) error {
	if weight < 0 {
		return &ConflictError{Field: "weight", Value: fmt.Sprint(weight), Reason: "must be non-negative"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.categories {
		for j := range c.categories[i].Traits {
			if c.categories[i].Traits[j].ID == traitID {
				c.categories[i].Traits[j].Weight = weight
				return nil
			}
		}
	}
	return fmt.Errorf("set weight: trait %s not found", traitID)
}

// Categories returns a copy of the current category list in stacking order.
func (c *Catalog) Categories() []models.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopy(c.categories)
}

// Snapshot freezes the catalog for a generation run. The returned copy
// shares no memory with the live catalog; edits made while a run is in
// flight are invisible to it.
func (c *Catalog) Snapshot() *models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &models.Snapshot{
		ProjectID:  c.projectID,
		Categories: deepCopy(c.categories),
	}
}

// findCategoryLocked returns the index of the category with the given ID,
// or -1. Callers must hold the lock.
func (c *Catalog) findCategoryLocked(id uuid.UUID) int {
	for i, cat := range c.categories {
		if cat.ID == id {
			return i
		}
	}
	return -1
}

// sortLocked restores OrderIndex ordering after a mutation.
func (c *Catalog) sortLocked() {
	sort.SliceStable(c.categories, func(i, j int) bool {
		return c.categories[i].OrderIndex < c.categories[j].OrderIndex
	})
}

// deepCopy clones categories including their trait slices.
func deepCopy(cats []models.Category) []models.Category {
	out := make([]models.Category, len(cats))
	for i, cat := range cats {
		out[i] = cat
		out[i].Traits = make([]models.Trait, len(cat.Traits))
		copy(out[i].Traits, cat.Traits)
	}
	return out
}
