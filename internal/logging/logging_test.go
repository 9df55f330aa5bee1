package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		level    string
		expected LogLevel
	}{
		{"Debug via LOG_LEVEL", "", "debug", LevelDebug},
		{"Info via LOG_LEVEL", "", "info", LevelInfo},
		{"Warn via LOG_LEVEL", "", "warn", LevelWarn},
		{"Warning alias", "", "warning", LevelWarn},
		{"Error via LOG_LEVEL", "", "error", LevelError},
		{"Case insensitive", "", "DEBUG", LevelDebug},
		{"Unknown defaults to info", "", "verbose", LevelInfo},
		{"Empty defaults to info", "", "", LevelInfo},
		{"DEBUG=true wins", "true", "error", LevelDebug},
		{"DEBUG=1", "1", "", LevelDebug},
		{"DEBUG=false ignored", "false", "warn", LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.debug, tt.level); got != tt.expected {
				t.Errorf("parseLevel(%q, %q) = %v, want %v", tt.debug, tt.level, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestComponentLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	oldOut := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(oldOut)

	oldLevel := GetLevel()
	SetLevel(LevelDebug)
	defer SetLevel(oldLevel)

	l := For("pipeline")
	l.Info("clip %d done", 7)
	l.Debug("state %s", "Finalizing")

	out := buf.String()
	if !strings.Contains(out, "[INFO] [pipeline] clip 7 done") {
		t.Errorf("info line missing component prefix: %q", out)
	}
	if !strings.Contains(out, "[DEBUG] [pipeline] state Finalizing") {
		t.Errorf("debug line missing component prefix: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	oldOut := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(oldOut)

	oldLevel := GetLevel()
	SetLevel(LevelWarn)
	defer SetLevel(oldLevel)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Errorf("warn message missing: %q", out)
	}
}
