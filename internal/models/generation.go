// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// ResolutionMode selects the output size and the credit unit price of a
// generation run.
type ResolutionMode string

const (
	// ModePreview renders small fixed-size squares for cheap iteration.
	ModePreview ResolutionMode = "preview"
	// ModeFull renders at the project's configured export resolution.
	ModeFull ResolutionMode = "full"
)

// Valid reports whether m is a known resolution mode.
func (m ResolutionMode) Valid() bool {
	return m == ModePreview || m == ModeFull
}

// Request describes one generation batch: who is asking, how many tokens,
// at which resolution, and the seed that makes the run reproducible.
// Requests are created by the caller, validated, costed, executed, and
// closed; the engine never persists them.
type Request struct {
	Principal string         `json:"principal"`
	BatchSize int            `json:"batch_size"`
	Mode      ResolutionMode `json:"mode"`
	Seed      uint64         `json:"seed"`
}

// Token is one successfully generated collection item: its combination,
// the encoded output raster, and the credits debited for it.
type Token struct {
	Index       int         `json:"index"`
	Combination Combination `json:"combination"`
	Image       []byte      `json:"-"`
	Cost        float64     `json:"cost"`
}

// RenderFailure records a per-token render error (missing or corrupt
// asset). Failures are localized: the rest of the batch continues.
type RenderFailure struct {
	Index int    `json:"index"`
	Key   string `json:"combination_key"`
	Err   error  `json:"-"`
}

// Result is the immutable outcome of a generation run. Tokens holds the
// accepted, unique, successfully rendered items in batch order. Exhausted
// is set when the uniqueness retry cap was hit before reaching the
// requested batch size; the result then carries what was accepted.
type Result struct {
	Tokens          []Token         `json:"tokens"`
	Exhausted       bool            `json:"exhausted"`
	RejectedDraws   int             `json:"rejected_draws"`
	DrawIterations  int             `json:"draw_iterations"`
	RenderFailures  []RenderFailure `json:"render_failures,omitempty"`
	CreditsDebited  float64         `json:"credits_debited"`
	CreditsReleased float64         `json:"credits_released"`
}
