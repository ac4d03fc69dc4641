package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/violation-audit/internal/audit"
)

// Event types emitted during a run.
const (
	TypeRunStart        = "run-start"
	TypeResolverWarning = "resolver-warning"
	TypeAuditResult     = "audit-result"
	TypeArtifactWritten = "artifact-written"
	TypeRunFinished     = "run-finished"
)

// Event represents a single NDJSON record for machine-readable run logs.
type Event struct {
	Type      string                 `json:"type"`
	RunID     string                 `json:"runId,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Audit     string                 `json:"audit,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
// Every event carries the emitter's run id.
type Emitter struct {
	writer io.Writer
	runID  string
	mu     sync.Mutex
}

// NewEmitter returns an emitter with a fresh run id.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w, runID: uuid.NewString()}
}

// RunID returns the id stamped on every event.
func (e *Emitter) RunID() string {
	return e.runID
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// EmitResult records the outcome of one audit.
func (e *Emitter) EmitResult(res audit.Result) error {
	fields := map[string]interface{}{
		"violations":       len(res.Details.Items),
		"scoreDisplayMode": res.ScoreDisplayMode,
	}
	if res.Score != nil {
		fields["score"] = *res.Score
	}

	msg := res.Title
	if res.Errored() {
		msg = res.ErrorMessage
	}

	return e.Emit(Event{Type: TypeAuditResult, Audit: res.ID, Message: msg, Fields: fields})
}
