package config

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_LevelMapping(t *testing.T) {
	tests := []struct {
		level     string
		wantLevel slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text"})
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.TODO(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > slog.LevelDebug && log.Enabled(context.TODO(), tt.wantLevel-1) {
				t.Errorf("expected level %v to be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil); err == nil {
		t.Fatal("SetupLogger(nil) expected error")
	}
}

func TestSetupLogger_ConsoleAndFile(t *testing.T) {
	log, err := SetupLogger(&LogConfig{
		Level:           "info",
		Format:          "json",
		FilePath:        filepath.Join(t.TempDir(), "bankoffice.log"),
		MaxSizeMB:       10,
		CompressRotated: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()
}

func TestSetupLogger_SetsDefault(t *testing.T) {
	log, err := SetupLogger(&LogConfig{Level: "warn", Format: "text", Color: boolPtr(false)})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	if slog.Default().Handler() != log.Handler() {
		t.Error("SetupLogger did not set slog.Default()")
	}
}

func TestBuildLoggerOpts(t *testing.T) {
	const baseCount = 4

	tests := []struct {
		name      string
		cfg       *LogConfig
		wantCount int
	}{
		{"nil config", nil, 0},
		{"console only", &LogConfig{Level: "debug", Format: "text"}, baseCount},
		{"file adds path and format", &LogConfig{Level: "info", Format: "json", FilePath: "app.log"}, baseCount + 2},
		{
			name: "file with rotation",
			cfg: &LogConfig{
				Level: "info", Format: "json", FilePath: "app.log",
				MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3, CompressRotated: boolPtr(true),
			},
			wantCount: baseCount + 6,
		},
		{"rotation ignored without file", &LogConfig{Level: "info", Format: "text", MaxSizeMB: 10}, baseCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(buildLoggerOpts(tt.cfg)); got != tt.wantCount {
				t.Errorf("len(buildLoggerOpts) = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestNewCLILogger_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewCLILogger("debug", &buf)
	if err != nil {
		t.Fatalf("NewCLILogger error: %v", err)
	}
	defer log.Close()

	log.Debug("fetching clients", slog.Int("page", 2))
	if !strings.Contains(buf.String(), "fetching clients") {
		t.Errorf("output = %q, want the message", buf.String())
	}
}

func TestNewCLILogger_NilWriter(t *testing.T) {
	if _, err := NewCLILogger("info", nil); err == nil {
		t.Fatal("NewCLILogger(nil writer) expected error")
	}
}
