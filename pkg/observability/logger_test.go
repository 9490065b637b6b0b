package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/subledger/subledger/pkg/contextkeys"
)

type logEntry struct {
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) logEntry {
	t.Helper()
	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		entry := decodeEntry(t, &buf)
		if entry.Level != "INFO" {
			t.Errorf("Expected level INFO, got %s", entry.Level)
		}
		if entry.Message != "info message" {
			t.Errorf("Expected message 'info message', got %s", entry.Message)
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Errorf("payment %s failed", "txn-1")
		entry := decodeEntry(t, &buf)
		if entry.Level != "ERROR" {
			t.Errorf("Expected level ERROR, got %s", entry.Level)
		}
		if entry.Message != "payment txn-1 failed" {
			t.Errorf("Unexpected message %q", entry.Message)
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("plan", "premium").Info("subscription created")

	entry := decodeEntry(t, &buf)
	if entry.Plan != "premium" {
		t.Errorf("Expected plan field 'premium', got %q", entry.Plan)
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("gateway unreachable")).Error("charge failed")

	entry := decodeEntry(t, &buf)
	if entry.Error != "gateway unreachable" {
		t.Errorf("Expected error field, got %q", entry.Error)
	}

	// nil errors add nothing
	buf.Reset()
	logger.WithError(nil).Info("ok")
	entry = decodeEntry(t, &buf)
	if entry.Error != "" {
		t.Errorf("Expected no error field, got %q", entry.Error)
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-42")
	ctx = contextkeys.WithUserID(ctx, "user-1")

	logger.WithContext(ctx).Info("handled")

	entry := decodeEntry(t, &buf)
	if entry.RequestID != "req-42" {
		t.Errorf("Expected request_id req-42, got %q", entry.RequestID)
	}
	if entry.UserID != "user-1" {
		t.Errorf("Expected user_id user-1, got %q", entry.UserID)
	}

	// bare context adds nothing and does not panic
	buf.Reset()
	logger.WithContext(context.Background()).Info("handled")
	entry = decodeEntry(t, &buf)
	if entry.RequestID != "" || entry.UserID != "" {
		t.Error("Expected no context fields on a bare context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"Warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"nonsense", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
