package location

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/violation-audit/internal/artifact"
)

const minifiedMap = `{"version":3,"file":"min.js","sources":["src/app.js"],"names":[],"mappings":"AAAA;AACA;AACA"}`

func TestResolveWithoutResolverUsesMessageOrigin(t *testing.T) {
	var r *Resolver
	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", URL: "a.js", LineNumber: 10, ColumnNumber: 2})

	assert.Equal(t, ItemType, loc.Type)
	assert.Equal(t, "a.js", loc.URL)
	assert.Equal(t, ProviderNetwork, loc.URLProvider)
	assert.Equal(t, 10, loc.Line)
	assert.Equal(t, 2, loc.Column)
	assert.Nil(t, loc.Original)
	assert.Equal(t, "a.js:10:2", loc.String())
}

func TestResolveUnknownWhenNoOrigin(t *testing.T) {
	r, warnings := NewResolver(nil, nil)
	require.Empty(t, warnings)

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "missing"})
	assert.True(t, loc.IsUnknown())
	assert.Equal(t, UnknownURL, loc.String())
}

func TestResolveFallsBackToScriptURL(t *testing.T) {
	r, _ := NewResolver([]artifact.Script{{ScriptID: "12", URL: "https://cdn.test/app.js"}}, nil)

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "12", LineNumber: 4})
	assert.Equal(t, "https://cdn.test/app.js", loc.URL)
	assert.Equal(t, ProviderNetwork, loc.URLProvider)
	assert.Equal(t, 4, loc.Line)
}

func TestResolveSourceURLComment(t *testing.T) {
	scripts := []artifact.Script{
		{ScriptID: "1", URL: "https://cdn.test/eval.js", Content: "console.log(1)\n//# sourceURL=widgets/menu.js\n"},
		{ScriptID: "2", URL: "https://cdn.test/named.js", Name: "named-by-collector.js"},
	}
	r, _ := NewResolver(scripts, nil)

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "1", URL: "https://cdn.test/eval.js"})
	assert.Equal(t, "widgets/menu.js", loc.URL)
	assert.Equal(t, ProviderComment, loc.URLProvider)

	loc = r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "2"})
	assert.Equal(t, "named-by-collector.js", loc.URL)
	assert.Equal(t, ProviderComment, loc.URLProvider)
}

func TestResolveSourceURLCommentLastWins(t *testing.T) {
	content := "//# sourceURL=first.js\nconsole.log(1)\n//# sourceURL=bundler/final.js\n"
	r, _ := NewResolver([]artifact.Script{{ScriptID: "9", URL: "https://cdn.test/bundle.js", Content: content}}, nil)

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "9"})
	assert.Equal(t, "bundler/final.js", loc.URL)
	assert.Equal(t, ProviderComment, loc.URLProvider)
}

func TestResolveAttachesOriginalPosition(t *testing.T) {
	maps := []artifact.SourceMap{{
		ScriptID:     "9",
		ScriptURL:    "https://cdn.test/min.js",
		SourceMapURL: "https://cdn.test/min.js.map",
		Map:          json.RawMessage(minifiedMap),
	}}
	r, warnings := NewResolver([]artifact.Script{{ScriptID: "9", URL: "https://cdn.test/min.js"}}, maps)
	require.Empty(t, warnings)

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "9", URL: "https://cdn.test/min.js", LineNumber: 1})
	require.NotNil(t, loc.Original)
	assert.True(t, strings.HasSuffix(loc.Original.File, "src/app.js"), loc.Original.File)
	assert.Equal(t, "https://cdn.test/min.js", loc.URL, "generated url is kept alongside the original")

	byURL := r.Resolve(artifact.ConsoleMessage{Text: "x", URL: "https://cdn.test/min.js", LineNumber: 1})
	require.NotNil(t, byURL.Original)
	assert.True(t, strings.HasPrefix(byURL.String(), byURL.Original.File))
}

func TestResolveDegradesOnBrokenMaps(t *testing.T) {
	maps := []artifact.SourceMap{
		{ScriptID: "1", ScriptURL: "https://cdn.test/one.js", Map: json.RawMessage(`{"version":3,"mappings":`)},
		{ScriptID: "2", ScriptURL: "https://cdn.test/two.js", ErrorMessage: "404 fetching map"},
		{ScriptID: "3", ScriptURL: "https://cdn.test/three.js"},
	}
	r, warnings := NewResolver(nil, maps)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[1].Error(), "404 fetching map")

	loc := r.Resolve(artifact.ConsoleMessage{Text: "x", ScriptID: "1", URL: "https://cdn.test/one.js", LineNumber: 5, ColumnNumber: 1})
	assert.Nil(t, loc.Original)
	assert.Equal(t, "https://cdn.test/one.js:5:1", loc.String())
}

func TestResolveConcurrentUse(t *testing.T) {
	r, _ := NewResolverFromSnapshot(&artifact.Snapshot{
		Scripts: []artifact.Script{{ScriptID: "9", URL: "https://cdn.test/min.js"}},
		SourceMaps: []artifact.SourceMap{{
			ScriptID: "9", ScriptURL: "https://cdn.test/min.js", Map: json.RawMessage(minifiedMap),
		}},
	})

	want := r.Resolve(artifact.ConsoleMessage{ScriptID: "9", LineNumber: 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := r.Resolve(artifact.ConsoleMessage{ScriptID: "9", LineNumber: 1})
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestLocationKey(t *testing.T) {
	a := SourceLocation{URL: "a.js", Line: 1, Column: 2}
	b := SourceLocation{URL: "a.js", Line: 1, Column: 2, URLProvider: ProviderComment}
	c := SourceLocation{URL: "a.js", Line: 12}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
