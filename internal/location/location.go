package location

import (
	"fmt"
	"strconv"
)

// ItemType is the table item type renderers use to format a clickable file:line:column link.
const ItemType = "source-location"

// URL providers.
const (
	ProviderNetwork = "network"
	ProviderComment = "comment"
	ProviderUnknown = "unknown"
)

// UnknownURL is the placeholder used when no origin can be resolved.
const UnknownURL = "<unknown>"

// Original is a position in the authored source a generated location maps back to.
type Original struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// SourceLocation identifies where a diagnostic originated.
type SourceLocation struct {
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	URLProvider string    `json:"urlProvider"`
	Line        int       `json:"line"`
	Column      int       `json:"column"`
	Original    *Original `json:"original,omitempty"`
}

// Unknown returns the placeholder location.
func Unknown() SourceLocation {
	return SourceLocation{Type: ItemType, URL: UnknownURL, URLProvider: ProviderUnknown}
}

// IsUnknown reports whether l is the placeholder location.
func (l SourceLocation) IsUnknown() bool {
	return l.URLProvider == ProviderUnknown
}

// Key identifies a location for deduplication.
func (l SourceLocation) Key() string {
	return l.URL + "!" + strconv.Itoa(l.Line) + "!" + strconv.Itoa(l.Column)
}

// String renders url:line:column, preferring the original position when mapped.
func (l SourceLocation) String() string {
	if l.IsUnknown() {
		return UnknownURL
	}
	if l.Original != nil {
		return fmt.Sprintf("%s:%d:%d", l.Original.File, l.Original.Line, l.Original.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.URL, l.Line, l.Column)
}
