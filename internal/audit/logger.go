// Package audit writes an append-only JSONL trail of relay activity:
// who steered, what the rover reported, which frames arrived. Files
// rotate through lumberjack so a long-running relay does not fill disk.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Action names recorded by the relay.
const (
	ActionIntentRecorded = "intent.recorded"
	ActionReportServed   = "report.served"
	ActionFrameReceived  = "frame.received"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time              `json:"ts"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
}

// Logger appends audit entries as JSON lines.
type Logger struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewLogger creates an audit logger writing to audit.jsonl under logDir,
// rotating at 10 MB and keeping five generations.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Logger{
		out: &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "audit.jsonl"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		},
	}, nil
}

// NewLoggerWithWriter creates an audit logger over an arbitrary writer.
func NewLoggerWithWriter(out io.WriteCloser) *Logger {
	return &Logger{out: out}
}

// Record appends one entry. Marshal or write failures are reported on
// stderr rather than surfaced to the request path.
func (l *Logger) Record(actor, action string, params map[string]interface{}, outcome string) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Params:    params,
		Outcome:   outcome,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// Close flushes and closes the underlying writer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
