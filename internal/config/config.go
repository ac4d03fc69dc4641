package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/example/violation-audit/internal/audit"
	"github.com/example/violation-audit/internal/report"
)

const (
	DefaultConfigPath = "violation-audit.yml"
	MaxWorkers        = 32

	envArtifacts       = "VIOLATION_ARTIFACTS"
	envAudits          = "VIOLATION_AUDITS"
	envWorkers         = "VIOLATION_WORKERS"
	envOutputDir       = "VIOLATION_OUTPUT_DIR"
	envFormats         = "VIOLATION_FORMATS"
	envLocale          = "VIOLATION_LOCALE"
	envSummaryFile     = "VIOLATION_SUMMARY_FILE"
	envMetricsFile     = "VIOLATION_METRICS_FILE"
	envFailOnViolation = "VIOLATION_FAIL_ON_VIOLATION"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// CustomAudit declares a violation audit in the config file.
type CustomAudit struct {
	ID           string   `yaml:"id" toml:"id"`
	Pattern      string   `yaml:"pattern" toml:"pattern"`
	Scoring      string   `yaml:"scoring" toml:"scoring"`
	Dedupe       bool     `yaml:"dedupe" toml:"dedupe"`
	Sources      []string `yaml:"sources" toml:"sources"`
	Title        string   `yaml:"title" toml:"title"`
	FailureTitle string   `yaml:"failureTitle" toml:"failureTitle"`
	Description  string   `yaml:"description" toml:"description"`
}

// RuntimeConfig contains the fully merged settings required by sub-commands.
type RuntimeConfig struct {
	Artifacts       string
	Audits          []string
	Workers         int
	OutputDir       string
	Formats         []string
	Locale          string
	SummaryFile     string
	MetricsFile     string
	FailOnViolation bool
	CustomAudits    []CustomAudit
}

// Overrides captures values coming from the config file, env vars or CLI flags.
type Overrides struct {
	Artifacts       string
	Audits          []string
	Workers         int
	WorkersSet      bool
	OutputDir       string
	Formats         []string
	Locale          string
	SummaryFile     string
	MetricsFile     string
	FailOnViolation *bool
	CustomAudits    []CustomAudit
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Audits:    []string{audit.PassiveEventListenersID},
		Workers:   4,
		OutputDir: "audit-results",
		Formats:   []string{report.FormatJSON},
		Locale:    "en",
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.apply(fileOv)
	}

	cfg.apply(overridesFromEnv())
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for run/watch commands.
func (c RuntimeConfig) Validate() error {
	if c.Artifacts == "" {
		return errors.New("no artifacts configured; provide --artifacts or set VIOLATION_ARTIFACTS")
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	}

	if len(c.Audits) == 0 {
		return errors.New("at least one audit must be selected")
	}

	if len(c.Formats) == 0 {
		return errors.New("at least one output format must be specified")
	}
	for _, format := range c.Formats {
		if !report.SupportedFormat(format) {
			return fmt.Errorf("unsupported format %s (want one of %s)", format, strings.Join(report.Formats, ", "))
		}
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	seen := map[string]struct{}{}
	for i, ca := range c.CustomAudits {
		if ca.ID == "" {
			return fmt.Errorf("customAudits[%d]: id is required", i)
		}
		if ca.Pattern == "" {
			return fmt.Errorf("customAudits[%d] %s: pattern is required", i, ca.ID)
		}
		if _, dup := seen[ca.ID]; dup {
			return fmt.Errorf("customAudits[%d]: duplicate id %s", i, ca.ID)
		}
		seen[ca.ID] = struct{}{}
	}

	return nil
}

func (c *RuntimeConfig) apply(src Overrides) {
	if src.Artifacts != "" {
		c.Artifacts = src.Artifacts
	}

	if len(src.Audits) > 0 {
		c.Audits = cleanList(src.Audits)
	}

	if src.WorkersSet {
		c.Workers = src.Workers
	}

	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}

	if len(src.Formats) > 0 {
		c.Formats = normalizeFormats(src.Formats)
	}

	if src.Locale != "" {
		c.Locale = src.Locale
	}

	if src.SummaryFile != "" {
		c.SummaryFile = src.SummaryFile
	}

	if src.MetricsFile != "" {
		c.MetricsFile = src.MetricsFile
	}

	if src.FailOnViolation != nil {
		c.FailOnViolation = *src.FailOnViolation
	}

	if len(src.CustomAudits) > 0 {
		c.CustomAudits = src.CustomAudits
	}
}

type rawConfig struct {
	Artifacts       string        `yaml:"artifacts" toml:"artifacts"`
	Audits          auditList     `yaml:"audits" toml:"audits"`
	Workers         *int          `yaml:"workers" toml:"workers"`
	OutputDir       string        `yaml:"outputDir" toml:"outputDir"`
	Formats         []string      `yaml:"formats" toml:"formats"`
	Locale          string        `yaml:"locale" toml:"locale"`
	SummaryFile     string        `yaml:"summaryFile" toml:"summaryFile"`
	MetricsFile     string        `yaml:"metricsFile" toml:"metricsFile"`
	FailOnViolation *bool         `yaml:"failOnViolation" toml:"failOnViolation"`
	CustomAudits    []CustomAudit `yaml:"customAudits" toml:"customAudits"`
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Overrides{}, err
	}

	var raw rawConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Overrides{}, err
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Artifacts:       raw.Artifacts,
		Audits:          raw.Audits,
		OutputDir:       raw.OutputDir,
		Formats:         raw.Formats,
		Locale:          raw.Locale,
		SummaryFile:     raw.SummaryFile,
		MetricsFile:     raw.MetricsFile,
		FailOnViolation: raw.FailOnViolation,
		CustomAudits:    raw.CustomAudits,
	}

	if raw.Workers != nil {
		over.Workers = *raw.Workers
		over.WorkersSet = true
	}

	return over, nil
}

func overridesFromEnv() Overrides {
	ov := Overrides{}

	if value := os.Getenv(envArtifacts); value != "" {
		ov.Artifacts = value
	}

	if value := os.Getenv(envAudits); value != "" {
		ov.Audits = ParseAuditList(value)
	}

	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Workers = parsed
			ov.WorkersSet = true
		}
	}

	if value := os.Getenv(envOutputDir); value != "" {
		ov.OutputDir = value
	}

	if value := os.Getenv(envFormats); value != "" {
		ov.Formats = ParseFormats(value)
	}

	if value := os.Getenv(envLocale); value != "" {
		ov.Locale = value
	}

	if value := os.Getenv(envSummaryFile); value != "" {
		ov.SummaryFile = value
	}

	if value := os.Getenv(envMetricsFile); value != "" {
		ov.MetricsFile = value
	}

	if value := os.Getenv(envFailOnViolation); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.FailOnViolation = &parsed
	}

	return ov
}

// ParseAuditList turns comma or newline separated input into individual audit ids.
func ParseAuditList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r'})
}

// ParseFormats splits comma separated format strings.
func ParseFormats(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func splitOnDelimiters(input string, delims []rune) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	return cleanList(strings.FieldsFunc(trimmed, separator))
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func normalizeFormats(values []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, v := range cleanList(values) {
		format := strings.ToLower(v)
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		out = append(out, format)
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// auditList enables YAML and TOML fields that can be specified as a scalar or sequence.
type auditList []string

func (a *auditList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*a = cleanList(out)
	case yaml.ScalarNode:
		*a = ParseAuditList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for audits")
	}
	return nil
}

func (a *auditList) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case string:
		*a = ParseAuditList(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			id, ok := item.(string)
			if !ok {
				return fmt.Errorf("audits: unsupported TOML value %v", item)
			}
			out = append(out, id)
		}
		*a = cleanList(out)
	default:
		return fmt.Errorf("unsupported TOML type for audits")
	}
	return nil
}
