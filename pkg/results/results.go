// Package results keeps the ordered log of check outcomes and derives the
// summary from it.
package results

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// TestRecord is the outcome of one check. Message is what is shown: the
// instructor's feedback when supplied, otherwise DefaultMessage.
type TestRecord struct {
	Kind           string `json:"kind"`
	Description    string `json:"description,omitempty"`
	Expected       any    `json:"expected,omitempty"`
	Observed       any    `json:"observed,omitempty"`
	Passed         bool   `json:"passed"`
	Message        string `json:"message"`
	DefaultMessage string `json:"default_message"`
}

// Summary totals a log. It is recomputed on every call.
type Summary struct {
	Total       int          `json:"total_tests"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	SuccessRate float64      `json:"success_rate"`
	Score       string       `json:"score"`
	Records     []TestRecord `json:"results"`
}

// Log is an append-only record list, safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	records []TestRecord
}

// Add appends a record and returns it.
func (l *Log) Add(r TestRecord) TestRecord {
	if r.Message == "" {
		r.Message = r.DefaultMessage
	}
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
	return r
}

// Record appends a record without custom feedback.
func (l *Log) Record(kind, description string, expected, observed any, passed bool, message string) TestRecord {
	return l.Add(TestRecord{
		Kind:           kind,
		Description:    description,
		Expected:       expected,
		Observed:       observed,
		Passed:         passed,
		Message:        message,
		DefaultMessage: message,
	})
}

// Records returns a copy of the log.
func (l *Log) Records() []TestRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TestRecord(nil), l.records...)
}

// Len is the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Summary recomputes the totals.
func (l *Log) Summary() Summary {
	return Summarize(l.Records())
}

// Summarize totals records. An empty list has a success rate of 0.
func Summarize(records []TestRecord) Summary {
	s := Summary{Total: len(records), Records: records}
	for _, r := range records {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total) * 100
	}
	s.Score = fmt.Sprintf("%d/%d", s.Passed, s.Total)
	return s
}

const rule = "============================================================"

// Format renders the fixed summary block.
func (s Summary) Format() string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("AUTOGRADER SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Score: %s\n", s.Score)
	fmt.Fprintf(&b, "Total Tests: %d\n", s.Total)
	fmt.Fprintf(&b, "Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", s.SuccessRate)
	b.WriteString(rule + "\n")
	return b.String()
}

// Line renders a record the way it is echoed as checks run.
func (r TestRecord) Line() string {
	if r.Passed {
		return "✓ PASS: " + r.Message
	}
	return "✗ FAIL: " + r.Message
}

// Print writes the summary block preceded by a blank line.
func (s Summary) Print(w io.Writer) error {
	_, err := io.WriteString(w, "\n"+s.Format())
	return err
}
