// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package assets parses uploaded layer-asset filenames into their
// (order, category, trait) triples and groups them by category. Uploads
// must follow the fixed naming convention
//
//	{order}_{category}_{trait}.png
//
// where order is a non-negative integer controlling stacking position,
// category is a lowercase alphanumeric token, and trait is an alphanumeric
// token that may contain underscores and hyphens.
// All functions here are pure; malformed input is reported, never thrown.
package assets

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// ExpectedFormat is the naming convention communicated back to users when
// a filename fails to parse.
const ExpectedFormat = "{order}_{category}_{trait}.png (e.g., 01_background_red.png)"

// filenamePattern captures order, category, and trait from a layer filename.
// The trait token is greedy so multi-part names like "laser_eyes-v2" stay
// in the trait position.
var filenamePattern = regexp.MustCompile(`^(\d+)_([a-z0-9]+)_([A-Za-z0-9_-]+)\.(png|PNG)$`)

// Parsed is a successfully parsed layer filename.
type Parsed struct {
	Filename string `json:"filename"`
	Order    int    `json:"order"`
	Category string `json:"category"`
	Trait    string `json:"trait"`
}

// Invalid pairs a rejected filename with the reason it was rejected.
type Invalid struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ParseError reports a filename that does not follow the naming convention.
type ParseError struct {
	Filename string
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid layer filename %q: expected %s", e.Filename, e.Expected)
}

// Parse extracts the (order, category, trait) triple from a layer filename.
// Returns a *ParseError carrying the expected format when the name does not
// match the convention.
func Parse(filename string) (Parsed, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return Parsed{}, &ParseError{Filename: filename, Expected: ExpectedFormat}
	}
	order, err := strconv.Atoi(m[1])
	if err != nil {
		// Digits that overflow int (absurdly long order prefix).
		return Parsed{}, &ParseError{Filename: filename, Expected: ExpectedFormat}
	}
	return Parsed{
		Filename: filename,
		Order:    order,
		Category: m[2],
		Trait:    m[3],
	}, nil
}

// Partition splits a set of uploaded filenames into parsed and rejected
// entries. It never fails: every input lands in exactly one of the two
// result slices, preserving input order.
func Partition(filenames []string) (valid []Parsed, invalid []Invalid) {
	for _, name := range filenames {
		p, err := Parse(name)
		if err != nil {
			invalid = append(invalid, Invalid{Filename: name, Reason: err.Error()})
			continue
		}
		valid = append(valid, p)
	}
	return valid, invalid
}

// Group is the set of parsed assets sharing one category. MinOrder is the
// smallest order among members and is used to derive the category's display
// order when no explicit order has been configured.
type Group struct {
	Category string   `json:"category"`
	MinOrder int      `json:"min_order"`
	Members  []Parsed `json:"members"`
}

// GroupByCategory clusters parsed assets by category. Members within each
// group are sorted by order ascending; groups themselves are sorted by
// MinOrder ascending (ties broken by category name) so the slice is ready
// to become a catalog's category order.
func GroupByCategory(parsed []Parsed) []Group {
	byCategory := make(map[string]*Group)
	var order []string
	for _, p := range parsed {
		g, ok := byCategory[p.Category]
		if !ok {
			g = &Group{Category: p.Category, MinOrder: p.Order}
			byCategory[p.Category] = g
			order = append(order, p.Category)
		}
		if p.Order < g.MinOrder {
			g.MinOrder = p.Order
		}
		g.Members = append(g.Members, p)
	}

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		g := byCategory[name]
		sort.SliceStable(g.Members, func(i, j int) bool {
			return g.Members[i].Order < g.Members[j].Order
		})
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].MinOrder != groups[j].MinOrder {
			return groups[i].MinOrder < groups[j].MinOrder
		}
		return groups[i].Category < groups[j].Category
	})
	return groups
}
