package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/violation-audit/internal/audit"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatMsgpack = "msgpack"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatCSV, FormatMsgpack}

// SupportedFormat reports whether format can be written.
func SupportedFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Document is the full output of one run.
type Document struct {
	RunID       string         `json:"runId"`
	GeneratedAt string         `json:"generatedAt"`
	Artifacts   string         `json:"artifacts"`
	Locale      string         `json:"locale"`
	Audits      []audit.Result `json:"audits"`
}

// Summary aggregates a document for quick inspection.
type Summary struct {
	Audits     int `json:"audits"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Errored    int `json:"errored"`
	Violations int `json:"violations"`
}

// Summarize counts outcomes in doc.
func Summarize(doc Document) Summary {
	s := Summary{Audits: len(doc.Audits)}
	for _, res := range doc.Audits {
		switch {
		case res.Errored():
			s.Errored++
		case res.Passed():
			s.Passed++
		default:
			s.Failed++
		}
		s.Violations += len(res.Details.Items)
	}
	return s
}

// Write encodes doc to w in format.
func Write(w io.Writer, format string, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(doc)
	case FormatCSV:
		return writeCSV(w, doc)
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

// WriteFile writes doc to path, creating parent directories.
func WriteFile(path, format string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, doc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile loads a document written by WriteFile in json or msgpack format.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Document{}, err
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		err = dec.Decode(&doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"audit", "score", "url", "line", "column", "original"}); err != nil {
		return err
	}

	for _, res := range doc.Audits {
		score := ""
		if res.Score != nil {
			score = strconv.FormatFloat(*res.Score, 'f', -1, 64)
		}

		if len(res.Details.Items) == 0 {
			if err := cw.Write([]string{res.ID, score, "", "", "", ""}); err != nil {
				return err
			}
			continue
		}

		for _, item := range res.Details.Items {
			src := item.Source
			original := ""
			if src.Original != nil {
				original = fmt.Sprintf("%s:%d:%d", src.Original.File, src.Original.Line, src.Original.Column)
			}
			row := []string{res.ID, score, src.URL, strconv.Itoa(src.Line), strconv.Itoa(src.Column), original}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
