package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/violation-audit/internal/config"
	"github.com/example/violation-audit/internal/events"
	"github.com/example/violation-audit/internal/report"
)

const fixtureArtifacts = `{
  "ConsoleMessages": [
    {"eventType": "log", "source": "violation", "level": "verbose", "url": "https://example.com/app.js", "lineNumber": 10, "columnNumber": 4,
     "text": "Added non-passive event listener to a scroll-blocking 'touchstart' event. Consider marking event handler as 'passive' to make the page more responsive."},
    {"eventType": "log", "source": "violation", "level": "verbose", "url": "https://example.com/legacy.js", "lineNumber": 3, "columnNumber": 0,
     "text": "Avoid using document.write()."},
    {"eventType": "log", "source": "network", "level": "error", "url": "https://example.com/missing.png",
     "text": "Failed to load resource: the server responded with a status of 404"}
  ]
}`

func testApp(configPath string) *app {
	return &app{loader: &config.Loader{ConfigPath: configPath}}
}

func writeArtifacts(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "artifacts.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	return path
}

func readEvents(t *testing.T, data []byte) []events.Event {
	t.Helper()
	var out []events.Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var evt events.Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("decode event %q: %v", scanner.Text(), err)
		}
		out = append(out, evt)
	}
	return out
}

func TestRunCommandWritesResults(t *testing.T) {
	dir := t.TempDir()
	artifacts := writeArtifacts(t, dir, fixtureArtifacts)
	outputDir := filepath.Join(dir, "out")
	summaryPath := filepath.Join(dir, "summary.json")
	metricsPath := filepath.Join(dir, "metrics", "violation_audit.prom")

	cmd := newRunCmd(testApp(""))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"--artifacts", artifacts,
		"--audits", "uses-passive-event-listeners,no-document-write,geolocation-on-start",
		"--output-dir", outputDir,
		"--formats", "json,csv",
		"--summary-file", summaryPath,
		"--metrics-file", metricsPath,
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command failed: %v\nOutput: %s", err, buf.String())
	}

	files, err := filepath.Glob(filepath.Join(outputDir, "audit_*.json"))
	if err != nil {
		t.Fatalf("glob results: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one json result, found %d (%v)", len(files), files)
	}
	if csvFiles, _ := filepath.Glob(filepath.Join(outputDir, "audit_*.csv")); len(csvFiles) != 1 {
		t.Fatalf("expected one csv result, found %v", csvFiles)
	}

	doc, err := report.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if len(doc.Audits) != 3 {
		t.Fatalf("expected 3 audits, got %d", len(doc.Audits))
	}

	passive := doc.Audits[0]
	if passive.ID != "uses-passive-event-listeners" || passive.Score == nil || *passive.Score != 0 {
		t.Fatalf("unexpected passive result: %+v", passive)
	}
	if len(passive.Details.Items) != 1 || passive.Details.Items[0].Source.URL != "https://example.com/app.js" {
		t.Fatalf("unexpected passive items: %+v", passive.Details.Items)
	}
	if passive.Details.Items[0].Source.Line != 10 || passive.Details.Items[0].Source.Column != 4 {
		t.Fatalf("unexpected passive location: %+v", passive.Details.Items[0].Source)
	}
	if !strings.HasPrefix(passive.Title, "Does not use passive listeners") {
		t.Fatalf("expected failure title, got %q", passive.Title)
	}
	if passive.Details.Headings[0].Text != "Source" {
		t.Fatalf("expected localized heading, got %q", passive.Details.Headings[0].Text)
	}

	if doc.Audits[1].ID != "no-document-write" || len(doc.Audits[1].Details.Items) != 1 {
		t.Fatalf("unexpected document.write result: %+v", doc.Audits[1])
	}
	if !doc.Audits[2].Passed() {
		t.Fatalf("geolocation audit should pass: %+v", doc.Audits[2])
	}

	evts := readEvents(t, buf.Bytes())
	if len(evts) == 0 || evts[0].Type != events.TypeRunStart || evts[len(evts)-1].Type != events.TypeRunFinished {
		t.Fatalf("unexpected event sequence: %+v", evts)
	}
	var resultEvents int
	for _, evt := range evts {
		if evt.RunID != doc.RunID {
			t.Fatalf("event run id %q does not match document %q", evt.RunID, doc.RunID)
		}
		if evt.Type == events.TypeAuditResult {
			resultEvents++
		}
	}
	if resultEvents != 3 {
		t.Fatalf("expected 3 audit-result events, got %d", resultEvents)
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not created: %v", err)
	}
	var summary struct {
		Summary report.Summary `json:"summary"`
		Outputs []string       `json:"outputs"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if summary.Summary.Failed != 2 || summary.Summary.Passed != 1 || len(summary.Outputs) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics not created: %v", err)
	}
	if !bytes.Contains(metrics, []byte(`violation_audit_score{audit="no-document-write"} 0`)) {
		t.Fatalf("metrics missing audit score:\n%s", metrics)
	}
}

func TestRunCommandFailOnViolation(t *testing.T) {
	dir := t.TempDir()
	artifacts := writeArtifacts(t, dir, fixtureArtifacts)

	cmd := newRunCmd(testApp(""))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--artifacts", artifacts, "--output-dir", dir, "--fail-on-violation"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected run to fail when an audit reports violations")
	}
	if !strings.Contains(err.Error(), "1 of 1 audits did not pass") {
		t.Fatalf("unexpected error: %v", err)
	}

	if files, _ := filepath.Glob(filepath.Join(dir, "audit_*.json")); len(files) != 1 {
		t.Fatalf("results should still be written, found %v", files)
	}
}

func TestRunCommandMissingConsoleMessages(t *testing.T) {
	dir := t.TempDir()
	artifacts := writeArtifacts(t, dir, `{"Scripts": []}`)

	cmd := newRunCmd(testApp(""))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--artifacts", artifacts, "--output-dir", dir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "audit_*.json"))
	if len(files) != 1 {
		t.Fatalf("expected one result, found %v", files)
	}
	doc, err := report.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read result: %v", err)
	}

	res := doc.Audits[0]
	if !res.Errored() || res.Score != nil {
		t.Fatalf("expected errored result with no score, got %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "ConsoleMessages") {
		t.Fatalf("error should name the missing artifact, got %q", res.ErrorMessage)
	}
}

func TestRunCommandMissingArtifactsFile(t *testing.T) {
	dir := t.TempDir()

	cmd := newRunCmd(testApp(""))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--artifacts", filepath.Join(dir, "absent.json"), "--output-dir", dir})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected run to fail for a missing artifacts file")
	}
}

func TestRunCommandCustomAuditFromConfig(t *testing.T) {
	dir := t.TempDir()
	artifacts := writeArtifacts(t, dir, fixtureArtifacts)
	configPath := filepath.Join(dir, "violation-audit.yml")
	configBody := `audits: [no-failed-requests]
locale: es
customAudits:
  - id: no-failed-requests
    pattern: "status of 4\\d\\d"
    scoring: proportional
    title: No failed requests
    failureTitle: Some requests failed
`
	if err := os.WriteFile(configPath, []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRunCmd(testApp(configPath))
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--artifacts", artifacts, "--output-dir", dir, "--formats", "msgpack"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command failed: %v\nOutput: %s", err, buf.String())
	}

	files, _ := filepath.Glob(filepath.Join(dir, "audit_*.msgpack"))
	if len(files) != 1 {
		t.Fatalf("expected one msgpack result, found %v", files)
	}
	doc, err := report.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read result: %v", err)
	}

	res := doc.Audits[0]
	if res.Score == nil {
		t.Fatalf("expected a score, got %+v", res)
	}
	if got, want := *res.Score, 1-1.0/3.0; got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
	if res.ScoreDisplayMode != "numeric" {
		t.Fatalf("expected numeric display mode, got %q", res.ScoreDisplayMode)
	}
	if res.Title != "Some requests failed" {
		t.Fatalf("custom strings should fall back to English, got %q", res.Title)
	}
	if doc.Locale != "es" || res.Details.Headings[0].Text != "Fuente" {
		t.Fatalf("expected Spanish heading, got locale %q heading %q", doc.Locale, res.Details.Headings[0].Text)
	}
}

func TestBuildRegistryRejectsBadPattern(t *testing.T) {
	_, _, err := buildRegistry([]config.CustomAudit{{ID: "broken", Pattern: "("}})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected compile error naming the audit, got %v", err)
	}

	_, _, err = buildRegistry([]config.CustomAudit{{ID: "uses-passive-event-listeners", Pattern: "x"}})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}
