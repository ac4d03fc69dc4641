package violation

import (
	"github.com/example/violation-audit/internal/artifact"
	"github.com/example/violation-audit/internal/location"
)

// Match is a diagnostic that hit a Signature; only its origin is kept.
type Match struct {
	Source location.SourceLocation `json:"source"`
}

// Options narrows which diagnostics are considered and how matches are reported.
type Options struct {
	// Sources restricts matching to messages whose source is listed. Empty means any source.
	Sources []string
	// Dedupe drops matches whose url, line and column were already reported.
	Dedupe bool
}

// Find returns one Match per message that hits sig, in input order.
// Messages without text never match. resolver may be nil.
func Find(sig Signature, messages []artifact.ConsoleMessage, resolver *location.Resolver, opts Options) []Match {
	var matches []Match
	seen := map[string]struct{}{}

	for _, msg := range messages {
		if !Considered(msg, opts) {
			continue
		}
		if !sig.Match(msg.Text) {
			continue
		}

		loc := resolver.Resolve(msg)
		if opts.Dedupe {
			key := loc.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		matches = append(matches, Match{Source: loc})
	}

	return matches
}

// Considered reports whether msg takes part in matching under opts.
func Considered(msg artifact.ConsoleMessage, opts Options) bool {
	if msg.Text == "" {
		return false
	}
	if len(opts.Sources) == 0 {
		return true
	}
	for _, source := range opts.Sources {
		if msg.Source == source {
			return true
		}
	}
	return false
}

// CountConsidered returns how many messages take part in matching under opts.
func CountConsidered(messages []artifact.ConsoleMessage, opts Options) int {
	n := 0
	for _, msg := range messages {
		if Considered(msg, opts) {
			n++
		}
	}
	return n
}
