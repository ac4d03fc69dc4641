package audit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/violation"
)

// Built-in audit ids.
const (
	PassiveEventListenersID = "uses-passive-event-listeners"
	NoDocumentWriteID       = "no-document-write"
	GeolocationOnStartID    = "geolocation-on-start"
	NotificationOnStartID   = "notification-on-start"
)

// Registry maps audit ids to constructors.
type Registry map[string]Factory

// Factory builds an audit definition.
type Factory func() Definition

// DefaultRegistry contains built-in audits. Use Clone before registering custom audits.
var DefaultRegistry = Registry{
	PassiveEventListenersID: PassiveEventListeners,
	NoDocumentWriteID:       NoDocumentWrite,
	GeolocationOnStartID:    GeolocationOnStart,
	NotificationOnStartID:   NotificationOnStart,
}

// PassiveEventListeners flags scroll-blocking touch and wheel listeners registered without passive.
func PassiveEventListeners() Definition {
	return Definition{
		ID:                PassiveEventListenersID,
		Signature:         violation.MustCompile("passive event listener"),
		Headings:          SourceHeadings(),
		Scoring:           Binary,
		RequiredArtifacts: []string{artifact.ConsoleMessages},
	}
}

// NoDocumentWrite flags document.write calls reported by the browser.
func NoDocumentWrite() Definition {
	return browserViolation(NoDocumentWriteID, `document\.write`)
}

// GeolocationOnStart flags geolocation permission requests made on page load.
func GeolocationOnStart() Definition {
	return browserViolation(GeolocationOnStartID, "geolocation")
}

// NotificationOnStart flags notification permission requests made on page load.
func NotificationOnStart() Definition {
	return browserViolation(NotificationOnStartID, "notification permission")
}

func browserViolation(id, pattern string) Definition {
	return Definition{
		ID:                id,
		Signature:         violation.MustCompile(pattern),
		Headings:          SourceHeadings(),
		Scoring:           Binary,
		Dedupe:            true,
		Sources:           []string{"violation"},
		RequiredArtifacts: []string{artifact.ConsoleMessages},
	}
}

// Clone returns a copy that can be extended without touching r.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r))
	for id, factory := range r {
		out[id] = factory
	}
	return out
}

// Register adds a custom audit definition.
func (r Registry) Register(def Definition) error {
	if def.ID == "" {
		return errors.New("audit id cannot be empty")
	}
	if _, dup := r[def.ID]; dup {
		return fmt.Errorf("audit %s already registered", def.ID)
	}
	if def.Signature.String() == "" {
		return fmt.Errorf("audit %s has no violation pattern", def.ID)
	}
	if len(def.Headings) == 0 {
		def.Headings = SourceHeadings()
	}
	if def.Scoring == "" {
		def.Scoring = Binary
	}
	if len(def.RequiredArtifacts) == 0 {
		def.RequiredArtifacts = []string{artifact.ConsoleMessages}
	}
	r[def.ID] = func() Definition { return def }
	return nil
}

// IDs returns the registered audit ids in sorted order.
func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build instantiates definitions for the provided ids, keeping their order.
func (r Registry) Build(ids []string) ([]Definition, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var defs []Definition
	seen := map[string]struct{}{}
	for _, id := range ids {
		factory, ok := r[id]
		if !ok {
			return nil, fmt.Errorf("unknown audit: %s", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		defs = append(defs, factory())
	}
	return defs, nil
}
