package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, slog.LevelDebug))
	ctx = WithRequestID(ctx, "req-1")

	Info(ctx, "hello", "task_id", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["msg"] != "hello" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["request_id"] != "req-1" {
		t.Errorf("request_id = %v", line["request_id"])
	}
	if line["task_id"] != float64(3) {
		t.Errorf("task_id = %v", line["task_id"])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != defaultLogger {
		t.Fatal("expected default logger")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, slog.LevelWarn))
	Debug(ctx, "dropped")
	Info(ctx, "dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}
	Error(ctx, "kept")
	if buf.Len() == 0 {
		t.Fatal("expected error to be logged")
	}
}
