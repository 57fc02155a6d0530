package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// VerifyResult is the outcome of verifying a trail.
type VerifyResult struct {
	EventCount int
	Valid      bool
	BrokenAt   int // -1 if no break
	RunID      string
	ChainHash  string
	Error      string
}

// VerifyFile verifies the hash chain of a trace file.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify checks that every event's prev_hash is the hash of the line
// before it and that all events share one run id.
func Verify(r io.Reader) (*VerifyResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	expected := Genesis
	res := &VerifyResult{Valid: true, BrokenAt: -1}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.EventCount++

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return broken(res, fmt.Sprintf("event %d: invalid JSON: %v", res.EventCount, err)), nil
		}
		if evt.PrevHash != expected {
			return broken(res, fmt.Sprintf("event %d: prev_hash mismatch (expected %s..., got %s...)",
				res.EventCount, short(expected), short(evt.PrevHash))), nil
		}
		if res.RunID == "" {
			res.RunID = evt.RunID
		} else if evt.RunID != res.RunID {
			return broken(res, fmt.Sprintf("event %d: run_id %s does not match %s", res.EventCount, evt.RunID, res.RunID)), nil
		}
		sum := sha256.Sum256(line)
		expected = hex.EncodeToString(sum[:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	res.ChainHash = expected
	return res, nil
}

func broken(res *VerifyResult, msg string) *VerifyResult {
	res.Valid = false
	res.BrokenAt = res.EventCount
	res.Error = msg
	return res
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
