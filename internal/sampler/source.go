// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sampler

import "math/rand/v2"

// seededSource is the default Source: a PCG generator seeded explicitly so
// the same seed always replays the same draw sequence.
type seededSource struct {
	rng *rand.Rand
}

// NewSeededSource returns a deterministic Source for the given seed.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *seededSource) Next() float64 {
	return s.rng.Float64()
}
