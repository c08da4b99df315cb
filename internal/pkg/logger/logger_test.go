package logger

import (
	"log/slog"
	"sync"
	"testing"
)

func resetLogger() {
	global = nil
	once = sync.Once{}
}

// TestInit uses table-driven tests (Go best practice from go.dev/doc).
func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel slog.Level
		wantErr   bool
	}{
		{"json info", "info", "json", slog.LevelInfo, false},
		{"console debug", "debug", "console", slog.LevelDebug, false},
		{"json warn", "warn", "json", slog.LevelWarn, false},
		{"json error", "error", "json", slog.LevelError, false},
		{"invalid level", "invalid", "json", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()
			err := Init(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
				return
			}
			if !tt.wantErr && GetLevel() != tt.wantLevel {
				t.Errorf("GetLevel() = %v, want %v", GetLevel(), tt.wantLevel)
			}
		})
	}
}

// TestSetLevel verifies dynamic log level changes via the shared LevelVar.
func TestSetLevel(t *testing.T) {
	resetLogger()

	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		name      string
		level     string
		wantLevel slog.Level
		wantErr   bool
	}{
		{"to debug", "debug", slog.LevelDebug, false},
		{"to error", "error", slog.LevelError, false},
		{"back to info", "info", slog.LevelInfo, false},
		{"invalid", "bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
				return
			}
			if !tt.wantErr && GetLevel() != tt.wantLevel {
				t.Errorf("GetLevel() = %v, want %v", GetLevel(), tt.wantLevel)
			}
		})
	}
}

func TestL_PanicsWithoutInit(t *testing.T) {
	resetLogger()

	defer func() {
		if r := recover(); r == nil {
			t.Error("L() should panic without Init()")
		}
	}()

	L()
}

func TestLoggingFunctions(t *testing.T) {
	resetLogger()

	if err := Init("debug", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// These should not panic.
	Debug("test debug")
	Info("test info", "key", "value")
	Warn("test warn")
	Error("test error")
}

func TestWith(t *testing.T) {
	resetLogger()

	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	child := With("component", "test")
	if child == nil {
		t.Error("With() returned nil")
	}
}

func TestHTTPHandler(t *testing.T) {
	resetLogger()

	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	handler := HTTPHandler()
	if handler == nil {
		t.Error("HTTPHandler() returned nil")
	}
	if handler.Level() != slog.LevelInfo {
		t.Errorf("HTTPHandler().Level() = %v, want LevelInfo", handler.Level())
	}
}

func TestSync(t *testing.T) {
	resetLogger()

	// Sync on an uninitialized logger should not error.
	if err := Sync(); err != nil {
		t.Errorf("Sync() on nil logger error = %v", err)
	}

	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
