package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/OpenTraceLab/OpenTraceLayout/internal/config"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Log
		verbose bool
		want    zapcore.Level
	}{
		{"info", config.Log{Level: "info"}, false, zapcore.InfoLevel},
		{"warn", config.Log{Level: "warn", Format: "json"}, false, zapcore.WarnLevel},
		{"bad level falls back", config.Log{Level: "loud"}, false, zapcore.InfoLevel},
		{"verbose wins", config.Log{Level: "error"}, true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg, tt.verbose)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := log.Level(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otl.log")
	log, err := New(config.Log{Level: "info", Format: "json", Output: path}, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("saved layout")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", line, err)
	}
	if entry["msg"] != "saved layout" {
		t.Errorf("msg = %v", entry["msg"])
	}
}
