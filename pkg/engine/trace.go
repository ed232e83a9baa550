package engine

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/start-out/starter/pkg/providers"
	"github.com/start-out/starter/pkg/report"
)

// GenerateRunID creates a run ID in format YYYYMMDDTHHmmss-xxxx.
func GenerateRunID() string {
	ts := time.Now().Format("20060102T150405")
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%x", ts, suffix)
}

// TraceEvent wraps an entity outcome for JSONL trace output.
type TraceEvent struct {
	Type      string               `json:"type"` // entity_result
	Timestamp time.Time            `json:"timestamp"`
	RunID     string               `json:"run_id"`
	Entity    *report.Entity       `json:"entity"`
	Result    *providers.RunResult `json:"result,omitempty"`
}

// TraceWriter writes entity outcomes to a JSONL trace file. The mutex keeps
// lines whole when concurrent wave workers record at the same time.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewTraceWriter creates a trace writer that appends to the given file.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &TraceWriter{file: f, writer: w, enc: json.NewEncoder(w)}, nil
}

// Write appends one event and flushes, so a crashed run keeps its trace up
// to the last completed entity.
func (tw *TraceWriter) Write(runID string, entity *report.Entity, result *providers.RunResult) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	event := TraceEvent{
		Type:      "entity_result",
		Timestamp: time.Now(),
		RunID:     runID,
		Entity:    entity,
		Result:    result,
	}
	if err := tw.enc.Encode(event); err != nil {
		return fmt.Errorf("encode trace event: %w", err)
	}
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("sync trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := tw.writer.Flush(); err != nil {
		return err
	}
	return tw.file.Close()
}
