package location

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-sourcemap/sourcemap"

	"github.com/example/violation-audit/internal/artifact"
)

var sourceURLComment = regexp.MustCompile(`(?m)^\s*//[#@]\s*sourceURL\s*=\s*(\S+)\s*$`)

// Resolver turns a console message's generated position into a SourceLocation.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	scriptsByID  map[string]artifact.Script
	scriptsByURL map[string]artifact.Script
	mapsByID     map[string]*sourcemap.Consumer
	mapsByURL    map[string]*sourcemap.Consumer
}

// NewResolver indexes scripts and parses source maps. Maps that cannot be used are
// skipped and reported in the returned warnings; they never make the resolver unusable.
func NewResolver(scripts []artifact.Script, maps []artifact.SourceMap) (*Resolver, []error) {
	r := &Resolver{
		scriptsByID:  make(map[string]artifact.Script, len(scripts)),
		scriptsByURL: make(map[string]artifact.Script, len(scripts)),
		mapsByID:     make(map[string]*sourcemap.Consumer, len(maps)),
		mapsByURL:    make(map[string]*sourcemap.Consumer, len(maps)),
	}

	for _, script := range scripts {
		if script.ScriptID != "" {
			r.scriptsByID[script.ScriptID] = script
		}
		if script.URL != "" {
			if _, dup := r.scriptsByURL[script.URL]; !dup {
				r.scriptsByURL[script.URL] = script
			}
		}
	}

	var warnings []error
	for _, sm := range maps {
		consumer, err := parseSourceMap(sm)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		if sm.ScriptID != "" {
			r.mapsByID[sm.ScriptID] = consumer
		}
		if sm.ScriptURL != "" {
			r.mapsByURL[sm.ScriptURL] = consumer
		}
	}

	return r, warnings
}

// NewResolverFromSnapshot builds a resolver from the snapshot's Scripts and SourceMaps.
func NewResolverFromSnapshot(snap *artifact.Snapshot) (*Resolver, []error) {
	if snap == nil {
		return NewResolver(nil, nil)
	}
	return NewResolver(snap.Scripts, snap.SourceMaps)
}

func parseSourceMap(sm artifact.SourceMap) (*sourcemap.Consumer, error) {
	label := sm.ScriptID
	if sm.ScriptURL != "" {
		label = sm.ScriptURL
	}

	if sm.ErrorMessage != "" {
		return nil, fmt.Errorf("source map for %s: %s", label, sm.ErrorMessage)
	}
	if len(sm.Map) == 0 {
		return nil, fmt.Errorf("source map for %s: empty map", label)
	}

	mapURL := sm.SourceMapURL
	if mapURL == "" {
		mapURL = sm.ScriptURL
	}

	consumer, err := sourcemap.Parse(mapURL, sm.Map)
	if err != nil {
		return nil, fmt.Errorf("source map for %s: %w", label, err)
	}
	return consumer, nil
}

// Resolve returns the best location it can find for msg. A nil resolver only uses the
// message's own url, line and column.
func (r *Resolver) Resolve(msg artifact.ConsoleMessage) SourceLocation {
	script, hasScript := r.script(msg)

	url := msg.URL
	if url == "" && hasScript {
		url = script.URL
	}
	if url == "" {
		return Unknown()
	}

	loc := SourceLocation{
		Type:        ItemType,
		URL:         url,
		URLProvider: ProviderNetwork,
		Line:        msg.LineNumber,
		Column:      msg.ColumnNumber,
	}

	if hasScript {
		if name := displayName(script); name != "" {
			loc.URL = name
			loc.URLProvider = ProviderComment
		}
	}

	if consumer := r.sourceMap(msg, url); consumer != nil {
		file, _, line, column, ok := consumer.Source(msg.LineNumber, msg.ColumnNumber)
		if ok && file != "" {
			loc.Original = &Original{File: file, Line: line, Column: column}
		}
	}

	return loc
}

func (r *Resolver) script(msg artifact.ConsoleMessage) (artifact.Script, bool) {
	if r == nil {
		return artifact.Script{}, false
	}
	if msg.ScriptID != "" {
		if s, ok := r.scriptsByID[msg.ScriptID]; ok {
			return s, true
		}
	}
	if msg.URL != "" {
		if s, ok := r.scriptsByURL[msg.URL]; ok {
			return s, true
		}
	}
	return artifact.Script{}, false
}

func (r *Resolver) sourceMap(msg artifact.ConsoleMessage, url string) *sourcemap.Consumer {
	if r == nil {
		return nil
	}
	if msg.ScriptID != "" {
		if c, ok := r.mapsByID[msg.ScriptID]; ok {
			return c
		}
	}
	return r.mapsByURL[url]
}

// displayName returns the name a script declared for itself through a sourceURL comment.
func displayName(script artifact.Script) string {
	if script.Name != "" && script.Name != script.URL {
		return script.Name
	}
	if script.Content == "" || !strings.Contains(script.Content, "sourceURL") {
		return ""
	}
	all := sourceURLComment.FindAllStringSubmatch(script.Content, -1)
	if len(all) == 0 {
		return ""
	}
	// the last comment wins, as in browsers
	return all[len(all)-1][1]
}
