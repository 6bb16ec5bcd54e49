package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	configs "github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
)

func consoleOnly() *configs.LoggerConfig {
	return &configs.LoggerConfig{
		Detail:   configs.LogOutputConfig{Console: true},
		Summary:  configs.LogOutputConfig{Console: true},
		Rotation: configs.DefaultRotationConfig(),
	}
}

func newBufferedLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l := NewLoggerWithConfig("test", "1.0.0", consoleOnly()).(*Logger)
	l.out = buf
	return l, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []DetailLog {
	t.Helper()
	var logs []DetailLog
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var l DetailLog
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		logs = append(logs, l)
	}
	return logs
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("test-service", "1.0.0")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
}

func TestSettersAndGetters(t *testing.T) {
	logger := NewLogger("test", "1.0.0").(*Logger)

	logger.SetSessionID("session-123")
	if logger.SessionID() != "session-123" {
		t.Error("Expected session ID to match")
	}

	logger.SetTransactionID("txn-456")
	if logger.TransactionID() != "txn-456" {
		t.Error("Expected transaction ID to match")
	}

	logger.SetUseCase("login")
	if logger.UseCase != "login" {
		t.Error("Expected use case to match")
	}
}

func TestLoggerContext(t *testing.T) {
	logger := NewLogger("test", "1.0.0")
	ctx := SetLogger(context.Background(), logger)

	if GetLogger(ctx) == nil {
		t.Fatal("Expected to retrieve logger from context")
	}

	//lint:ignore SA1012 nil context is part of the contract
	if GetLogger(nil) != nil {
		t.Error("Expected nil logger from nil context")
	}

	if GetLogger(context.Background()) != nil {
		t.Error("Expected nil logger from empty context")
	}
}

func TestDependencyMetadataAppliesToNextLineOnly(t *testing.T) {
	l, buf := newBufferedLogger(t)
	action := logAction.HTTP_RESPONSE("GET", "jwks response")

	l.SetDependencyMetadata(DependencyMetadata{
		Dependency:   "jwks",
		ResponseTime: 42,
		ResultCode:   "200",
	}).Debug(action, map[string]any{"keys": 2})
	l.Debug(action, "second")

	logs := decodeLines(t, buf)
	if len(logs) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(logs))
	}
	if logs[0].Dependency != "jwks" || logs[0].ResponseTime != 42 || logs[0].ResultCode != "200" {
		t.Errorf("dependency metadata missing: %+v", logs[0])
	}
	if logs[1].Dependency != "" {
		t.Errorf("dependency metadata leaked into next line: %+v", logs[1])
	}
	if logs[0].Action != "[HTTP_RESPONSE]" || logs[0].SubAction != "GET" {
		t.Errorf("unexpected action: %+v", logs[0])
	}
}

func TestDetailMasking(t *testing.T) {
	l, buf := newBufferedLogger(t)
	l.Info(logAction.INBOUND("login"), map[string]any{
		"body": map[string]any{
			"email":    "alice@example.com",
			"password": "hunter22",
		},
	}, MaskingRule{Field: "body.email", Type: MaskingTypeEmail},
		MaskingRule{Field: "body.password", Type: MaskingTypeFull})

	out := buf.String()
	if strings.Contains(out, "hunter22") || strings.Contains(out, "alice@example.com") {
		t.Errorf("sensitive data leaked: %s", out)
	}
	if !strings.Contains(out, `a****@example.com`) {
		t.Errorf("expected masked email in %s", out)
	}
}

func TestFlushWritesSummaryAndResetsMetadata(t *testing.T) {
	l, buf := newBufferedLogger(t)
	l.SetSessionID("sess-123")
	l.SetTransactionID("txn-456")
	l.AddMetadata("test", "value")

	l.Flush(200, "success")
	l.FlushError(500, "internal_server_error")

	logs := decodeLines(t, buf)
	if len(logs) != 2 {
		t.Fatalf("expected 2 summary lines, got %d", len(logs))
	}
	if logs[0].Type != TypeSummary || logs[0].StatusCode != 200 || logs[0].Metadata["test"] != "value" {
		t.Errorf("unexpected summary: %+v", logs[0])
	}
	if logs[1].Level != LevelError || len(logs[1].Metadata) != 0 {
		t.Errorf("metadata should be cleared after flush: %+v", logs[1])
	}
	if logs[0].SessionID != "sess-123" || logs[0].TransactionID != "txn-456" {
		t.Errorf("ids missing from summary: %+v", logs[0])
	}
}

func TestFileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	config := &configs.LoggerConfig{
		Detail:   configs.LogOutputConfig{File: true, Path: tmpDir},
		Summary:  configs.LogOutputConfig{File: true, Path: tmpDir},
		Rotation: configs.DefaultRotationConfig(),
	}

	logger := NewLoggerWithConfig("test", "1.0.0", config)
	logger.Info(logAction.BUSINESS("file output"), "test message")
	logger.Flush(200, "done")

	detail, err := os.ReadFile(filepath.Join(tmpDir, "detail.log"))
	if err != nil {
		t.Fatalf("detail log not written: %v", err)
	}
	if !strings.Contains(string(detail), "test message") {
		t.Errorf("unexpected detail log: %s", detail)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "summary.log")); err != nil {
		t.Errorf("summary log not written: %v", err)
	}
}

func TestConcurrentLogging(t *testing.T) {
	parent, _ := newBufferedLogger(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parent.AddSuccess("hits", 1)
			parent.SetDependencyMetadata(DependencyMetadata{Dependency: "redis"})
		}()
	}
	wg.Wait()

	arr, ok := parent.metadata["hits"].([]any)
	if !ok || len(arr) != 10 {
		t.Errorf("expected 10 accumulated hits, got %v", parent.metadata["hits"])
	}
}

func TestAddSuccess(t *testing.T) {
	logger := NewLogger("test", "1.0.0").(*Logger)

	logger.AddSuccess("results", "result1")
	if logger.metadata["results"] != "result1" {
		t.Error("Expected first value to be stored directly")
	}

	logger.AddSuccess("results", "result2")
	arr, ok := logger.metadata["results"].([]any)
	if !ok || len(arr) != 2 {
		t.Error("Expected metadata to be converted to array")
	}
}

func TestDataToString(t *testing.T) {
	if dataToString(nil) != "" {
		t.Error("Expected empty string for nil")
	}
	if dataToString("hello") != "hello" {
		t.Error("Expected string to be returned as-is")
	}
	if dataToString(map[string]int{"a": 1}) != `{"a":1}` {
		t.Error("Expected JSON encoding for maps")
	}
}
