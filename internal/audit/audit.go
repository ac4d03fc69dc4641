package audit

import (
	"fmt"
	"strings"

	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/location"
	"github.com/example/violation-audit/internal/violation"
)

// ScoringMode selects how matches turn into a score.
type ScoringMode string

const (
	// Binary fails the audit completely on any violation.
	Binary ScoringMode = "binary"
	// Proportional scores 1 - violations/considered diagnostics.
	Proportional ScoringMode = "proportional"
)

// ParseScoringMode converts config input into a ScoringMode. Empty input means Binary.
func ParseScoringMode(value string) (ScoringMode, error) {
	switch ScoringMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", Binary:
		return Binary, nil
	case Proportional:
		return Proportional, nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q (want binary or proportional)", value)
	}
}

// Score display modes written to results.
const (
	DisplayBinary  = "binary"
	DisplayNumeric = "numeric"
	DisplayError   = "error"
)

// ColumnSourceKey is the UI string key for the source-location column heading.
const ColumnSourceKey = "columnSource"

// Heading describes one column of the details table. Text holds a UI string key until
// the report layer localizes it.
type Heading struct {
	Key      string `json:"key"`
	ItemType string `json:"itemType"`
	Text     string `json:"text"`
}

// SourceHeadings is the single source-location column used by violation audits.
func SourceHeadings() []Heading {
	return []Heading{{Key: "source", ItemType: location.ItemType, Text: ColumnSourceKey}}
}

// Definition configures one audit type.
type Definition struct {
	ID                string
	Signature         violation.Signature
	Headings          []Heading
	Scoring           ScoringMode
	Dedupe            bool
	Sources           []string
	RequiredArtifacts []string
}

func (d Definition) options() violation.Options {
	return violation.Options{Sources: d.Sources, Dedupe: d.Dedupe}
}

// Table is the details payload of a result.
type Table struct {
	Type     string            `json:"type"`
	Headings []Heading         `json:"headings"`
	Items    []violation.Match `json:"items"`
}

// Result is the outcome of one audit over one snapshot.
type Result struct {
	ID               string   `json:"id"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	ErrorMessage     string   `json:"errorMessage,omitempty"`
	Details          Table    `json:"details"`
}

// Passed reports whether the audit found no violations.
func (r Result) Passed() bool {
	return r.Score != nil && *r.Score == 1
}

// Errored reports whether the audit could not be evaluated.
func (r Result) Errored() bool {
	return r.ScoreDisplayMode == DisplayError
}

// Evaluate runs the matcher and scorer of def over snap.
func Evaluate(def Definition, snap *artifact.Snapshot, resolver *location.Resolver) Result {
	if err := snap.Require(def.RequiredArtifacts...); err != nil {
		return errorResult(def, err)
	}

	opts := def.options()
	matches := violation.Find(def.Signature, snap.ConsoleMessages, resolver, opts)
	return Score(def, matches, violation.CountConsidered(snap.ConsoleMessages, opts))
}

func errorResult(def Definition, err error) Result {
	return Result{
		ID:               def.ID,
		ScoreDisplayMode: DisplayError,
		ErrorMessage:     err.Error(),
		Details:          Table{Type: "table", Headings: def.Headings, Items: []violation.Match{}},
	}
}
