// Package trace writes the append-only JSONL audit trail of a grading run.
// Every event carries the SHA-256 of the previous line, so a trail that was
// edited after the fact fails Verify.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates trace event types.
type EventType string

const (
	EventRunStart    EventType = "run_start"
	EventExecution   EventType = "execution"
	EventCheck       EventType = "check"
	EventSummary     EventType = "summary"
	EventRunComplete EventType = "run_complete"
)

// Genesis is the prev_hash of the first event.
var Genesis = strings.Repeat("0", 64)

// Event is a single line of the trail.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Seq       int            `json:"seq"`
	PrevHash  string         `json:"prev_hash"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer appends events to a JSONL stream.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	runID  string
	seq    int
	prev   string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// NewWriter creates a trace writer on w. An empty runID gets a fresh one.
func NewWriter(w io.Writer, runID string) *Writer {
	if runID == "" {
		runID = NewRunID()
	}
	return &Writer{w: w, runID: runID, prev: Genesis}
}

// NewFileWriter creates a trace writer that truncates and writes path.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := NewWriter(f, runID)
	tw.closer = f
	return tw, nil
}

// RunID is the identifier stamped on every event.
func (tw *Writer) RunID() string { return tw.runID }

// Close closes the underlying file when the writer owns one.
func (tw *Writer) Close() error {
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

// Emit writes a single event and advances the hash chain.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.seq++
	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     tw.runID,
		Seq:       tw.seq,
		PrevHash:  tw.prev,
		Data:      data,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	sum := sha256.Sum256(line)
	tw.prev = hex.EncodeToString(sum[:])
	_, err = tw.w.Write(append(line, '\n'))
	return err
}

// ChainHash is the hash of the last event written.
func (tw *Writer) ChainHash() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.prev
}

// EmitRunStart records the suite and candidate being graded.
func (tw *Writer) EmitRunStart(suite, candidate, candidateHash string) error {
	return tw.Emit(EventRunStart, map[string]any{
		"suite":          suite,
		"candidate":      candidate,
		"candidate_hash": candidateHash,
	})
}

// EmitExecution records one sandbox run.
func (tw *Writer) EmitExecution(program, outcome, detail string, elapsed time.Duration, instrumented bool) error {
	data := map[string]any{
		"program":  program,
		"outcome":  outcome,
		"duration": elapsed.String(),
	}
	if detail != "" {
		data["detail"] = detail
	}
	if instrumented {
		data["instrumented"] = true
	}
	return tw.Emit(EventExecution, data)
}

// EmitCheck records one test record.
func (tw *Writer) EmitCheck(kind string, passed bool, message string) error {
	return tw.Emit(EventCheck, map[string]any{
		"kind":    kind,
		"passed":  passed,
		"message": message,
	})
}

// EmitSummary records the totals.
func (tw *Writer) EmitSummary(total, passed, failed int, score string) error {
	return tw.Emit(EventSummary, map[string]any{
		"total":  total,
		"passed": passed,
		"failed": failed,
		"score":  score,
	})
}

// EmitRunComplete closes the trail with the chain hash of everything
// before it.
func (tw *Writer) EmitRunComplete(status string, duration time.Duration) error {
	return tw.Emit(EventRunComplete, map[string]any{
		"status":     status,
		"duration":   duration.String(),
		"chain_hash": tw.ChainHash(),
	})
}
