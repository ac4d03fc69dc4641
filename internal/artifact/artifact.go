package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Artifact names as they appear as top-level keys in a snapshot file.
const (
	ConsoleMessages = "ConsoleMessages"
	Scripts         = "Scripts"
	SourceMaps      = "SourceMaps"
)

// ErrArtifactMissing is returned when an audit needs an artifact the snapshot does not carry.
var ErrArtifactMissing = errors.New("required artifact missing")

// ConsoleMessage is a single diagnostic captured by the browser log collector.
// Lines are 1-based, columns 0-based, which is what source map lookups expect. Collectors
// that record raw DevTools protocol positions (0-based lines) must set
// Snapshot.ZeroBasedLines so Decode can shift them.
type ConsoleMessage struct {
	EventType    string  `json:"eventType,omitempty"`
	Source       string  `json:"source,omitempty"`
	Level        string  `json:"level,omitempty"`
	Text         string  `json:"text"`
	URL          string  `json:"url,omitempty"`
	ScriptID     string  `json:"scriptId,omitempty"`
	LineNumber   int     `json:"lineNumber,omitempty"`
	ColumnNumber int     `json:"columnNumber,omitempty"`
	Timestamp    float64 `json:"timestamp,omitempty"`
}

// Script is a parsed script as seen by the page.
type Script struct {
	ScriptID string `json:"scriptId"`
	URL      string `json:"url,omitempty"`
	Name     string `json:"name,omitempty"`
	Content  string `json:"content,omitempty"`
}

// SourceMap carries the raw v3 map fetched for a script, or the reason it could not be fetched.
type SourceMap struct {
	ScriptID     string          `json:"scriptId"`
	ScriptURL    string          `json:"scriptUrl,omitempty"`
	SourceMapURL string          `json:"sourceMapUrl,omitempty"`
	Map          json.RawMessage `json:"map,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Snapshot is the immutable set of artifacts gathered for one page load.
// A nil slice means the artifact was not collected; an empty slice means it was collected and empty.
type Snapshot struct {
	ConsoleMessages []ConsoleMessage `json:"ConsoleMessages"`
	Scripts         []Script         `json:"Scripts"`
	SourceMaps      []SourceMap      `json:"SourceMaps"`

	// ZeroBasedLines marks ConsoleMessages line numbers as 0-based. Decode normalizes them
	// to 1-based and clears the flag.
	ZeroBasedLines bool `json:"zeroBasedLines,omitempty"`
}

// Has reports whether the named artifact is present.
func (s *Snapshot) Has(name string) bool {
	if s == nil {
		return false
	}
	switch name {
	case ConsoleMessages:
		return s.ConsoleMessages != nil
	case Scripts:
		return s.Scripts != nil
	case SourceMaps:
		return s.SourceMaps != nil
	default:
		return false
	}
}

// Require returns ErrArtifactMissing wrapped with the first absent artifact name.
func (s *Snapshot) Require(names ...string) error {
	for _, name := range names {
		if !s.Has(name) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, name)
		}
	}
	return nil
}
