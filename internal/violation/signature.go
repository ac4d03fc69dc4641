package violation

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// MatchTimeout bounds a single Match call. Patterns that backtrack past it count as no match.
var MatchTimeout = time.Second

// Signature is a compiled pattern identifying one class of undesirable diagnostic.
// Patterns use the ECMAScript dialect, are case-sensitive and unanchored.
type Signature struct {
	re *regexp2.Regexp
}

// Compile parses pattern into a Signature.
func Compile(pattern string) (Signature, error) {
	if pattern == "" {
		return Signature{}, errors.New("empty violation pattern")
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return Signature{}, fmt.Errorf("compile violation pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = MatchTimeout
	return Signature{re: re}, nil
}

// MustCompile is like Compile but panics on error. Intended for built-in audits.
func MustCompile(pattern string) Signature {
	sig, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return sig
}

// Match reports whether text contains a match. Engine errors count as no match.
func (s Signature) Match(text string) bool {
	if s.re == nil || text == "" {
		return false
	}
	ok, err := s.re.MatchString(text)
	return err == nil && ok
}

// String returns the source pattern.
func (s Signature) String() string {
	if s.re == nil {
		return ""
	}
	return s.re.String()
}
