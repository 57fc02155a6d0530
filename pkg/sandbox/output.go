package sandbox

import (
	"strings"
	"sync"
)

const truncatedMarker = "\n... [output truncated]\n"

// boundedBuffer keeps at most limit bytes of output. Writes can arrive from
// an abandoned run after the result was built, so access is locked.
type boundedBuffer struct {
	mu        sync.Mutex
	b         strings.Builder
	limit     int
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (w *boundedBuffer) WriteString(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return
	}
	if room := w.limit - w.b.Len(); len(s) > room {
		w.b.WriteString(s[:room])
		w.b.WriteString(truncatedMarker)
		w.truncated = true
		return
	}
	w.b.WriteString(s)
}

func (w *boundedBuffer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}
