package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer collects JSON log lines written by concurrent goroutines.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// GetLogEntries decodes every non-blank line as one JSON log record.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]any, error) {
	var entries []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(b.String()))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// EntriesWithMessage returns the records whose msg equals msg.
func (b *TestLogBuffer) EntriesWithMessage(msg string) ([]map[string]any, error) {
	entries, err := b.GetLogEntries()
	if err != nil {
		return nil, err
	}
	var matched []map[string]any
	for _, entry := range entries {
		if entry[slog.MessageKey] == msg {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// GetTestLogger returns a debug-level JSON logger and the buffer it writes to.
func GetTestLogger(t *testing.T) (*slog.Logger, *TestLogBuffer) {
	t.Helper()
	buf := &TestLogBuffer{}
	return New(buf, slog.LevelDebug), buf
}

// CaptureLogs runs fn with a test logger and returns its raw output.
func CaptureLogs(t *testing.T, fn func(*slog.Logger)) string {
	t.Helper()
	l, buf := GetTestLogger(t)
	fn(l)
	return buf.String()
}
