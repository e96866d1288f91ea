package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type captureWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestRecordWritesJSONLine(t *testing.T) {
	out := &captureWriter{}
	logger := NewLoggerWithWriter(out)

	logger.Record("alice", ActionIntentRecorded,
		map[string]interface{}{"direction": 4}, "accepted")

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("No audit line written")
	}

	var entry Entry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Audit line is not valid JSON: %v", err)
	}

	if entry.Actor != "alice" {
		t.Errorf("Expected actor alice, got %s", entry.Actor)
	}
	if entry.Action != ActionIntentRecorded {
		t.Errorf("Expected action %s, got %s", ActionIntentRecorded, entry.Action)
	}
	if entry.Outcome != "accepted" {
		t.Errorf("Expected outcome accepted, got %s", entry.Outcome)
	}
	if entry.Params["direction"] != float64(4) {
		t.Errorf("Expected direction param 4, got %v", entry.Params["direction"])
	}
	if entry.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestRecordOneLinePerEntry(t *testing.T) {
	out := &captureWriter{}
	logger := NewLoggerWithWriter(out)

	logger.Record("rover-1", ActionReportServed, nil, "ok")
	logger.Record("rover-1", ActionFrameReceived,
		map[string]interface{}{"bytes": 1024}, "ok")

	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	lines := 0
	for scanner.Scan() {
		lines++
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Errorf("Line %d is not valid JSON: %v", lines, err)
		}
	}
	if lines != 2 {
		t.Errorf("Expected 2 lines, got %d", lines)
	}
}

func TestConcurrentRecord(t *testing.T) {
	out := &captureWriter{}
	logger := NewLoggerWithWriter(out)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Record("operator", ActionIntentRecorded, nil, "accepted")
		}()
	}
	wg.Wait()

	lines := strings.Count(out.String(), "\n")
	if lines != 20 {
		t.Errorf("Expected 20 lines, got %d", lines)
	}
}

func TestNewLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	defer logger.Close()

	logger.Record("alice", ActionIntentRecorded, nil, "accepted")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("Audit file not written: %v", err)
	}
	if !strings.Contains(string(data), ActionIntentRecorded) {
		t.Errorf("Audit file missing entry: %s", data)
	}
}
