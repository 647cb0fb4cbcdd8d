package pipeline

import (
	"sync"
	"time"
)

// StageEntry is one line in the pipeline trace log. Counts only; stage
// payloads live in their own artifacts.
type StageEntry struct {
	Stage       string    `json:"stage"`
	InputCount  int       `json:"input_count"`
	OutputCount int       `json:"output_count"`
	At          time.Time `json:"at"`
	Note        string    `json:"note,omitempty"`
}

// TraceLog collects stage entries; safe for concurrent appends.
type TraceLog struct {
	mu      sync.Mutex
	entries []StageEntry
}

func NewTraceLog() *TraceLog {
	return &TraceLog{}
}

func (t *TraceLog) Append(stage string, in, out int) {
	t.append(StageEntry{Stage: stage, InputCount: in, OutputCount: out, At: time.Now().UTC()})
}

func (t *TraceLog) AppendNote(stage, note string) {
	t.append(StageEntry{Stage: stage, Note: note, At: time.Now().UTC()})
}

func (t *TraceLog) append(e StageEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a copy of the log in append order.
func (t *TraceLog) Entries() []StageEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
