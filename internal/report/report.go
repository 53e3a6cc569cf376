// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package report models the machine-readable outcome of one suite run.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Case is the outcome of one conformance case. A failed comparison is a
// recorded result; only infrastructure errors carry a Reason.
type Case struct {
	Op          string  `json:"op"`
	Case        string  `json:"case"`
	Path        string  `json:"path"` // "device" or "reference"
	Pass        bool    `json:"pass"`
	Skipped     bool    `json:"skipped,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Elements    int     `json:"elements,omitempty"`
	Mismatches  int     `json:"mismatches"`
	MaxAbsError float64 `json:"max_abs_error"`
	MaxRelError float64 `json:"max_rel_error"`
}

// Report aggregates a full suite run.
type Report struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Adapter   string    `json:"adapter"`
	Cases     []Case    `json:"cases"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
}

// New starts a report for the named adapter ("reference" when no device
// is in play).
func New(adapter string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Adapter:   adapter,
	}
}

// Add records a case outcome and updates the counters.
func (r *Report) Add(c Case) {
	r.Cases = append(r.Cases, c)
	switch {
	case c.Skipped:
		r.Skipped++
	case c.Pass:
		r.Passed++
	default:
		r.Failed++
	}
}

// Ok reports whether no case failed.
func (r *Report) Ok() bool { return r.Failed == 0 }

// Summary is the one-line human rendering.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped", r.Passed, r.Failed, r.Skipped)
}

// WriteJSON streams the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
