package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jcalc/jcalc-go/jcalc"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCLIConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
addr = "10.0.0.7:8000"
request_timeout_ms = 2500
log_level = "verbose"
trace_file = "trace.msgpack"
`)

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "10.0.0.7:8000" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.RequestTimeout != 2500*time.Millisecond {
		t.Fatalf("unexpected request timeout: %v", cfg.RequestTimeout)
	}
	if cfg.HandshakeTimeout != 0 {
		t.Fatalf("expected zero handshake timeout for absent key, got %v", cfg.HandshakeTimeout)
	}
	if cfg.LogLevel != jcalc.LogVerbose {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
	want := filepath.Join(filepath.Dir(path), "trace.msgpack")
	if cfg.TraceFile != want {
		t.Fatalf("unexpected trace file: %q", cfg.TraceFile)
	}
}

func TestLoadCLIConfigAbsentKeysKeepDefaults(t *testing.T) {
	path := writeConfig(t, ``)

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != jcalc.DefaultAddr {
		t.Fatalf("unexpected default addr: %q", cfg.Addr)
	}
	if cfg.LogLevel != jcalc.LogError {
		t.Fatalf("unexpected default log level: %v", cfg.LogLevel)
	}
	if cfg.TraceFile != "" {
		t.Fatalf("expected no trace file, got %q", cfg.TraceFile)
	}
}

func TestLoadCLIConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero timeout":      `request_timeout_ms = 0`,
		"negative timeout":  `handshake_timeout_ms = -5`,
		"unknown log level": `log_level = "chatty"`,
		"malformed toml":    `addr = `,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, content)
			if _, err := loadCLIConfig(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadCLIConfigAbsoluteTracePath(t *testing.T) {
	path := writeConfig(t, `trace_file = "/var/tmp/jcalc.msgpack"`)

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.TraceFile != "/var/tmp/jcalc.msgpack" {
		t.Fatalf("absolute trace path must not be rebased, got %q", cfg.TraceFile)
	}
}

func TestParseLogLevel(t *testing.T) {
	for name, want := range map[string]jcalc.LogLevel{
		"none":    jcalc.LogNone,
		"error":   jcalc.LogError,
		"warn":    jcalc.LogWarning,
		"warning": jcalc.LogWarning,
		"info":    jcalc.LogInfo,
		"verbose": jcalc.LogVerbose,
		"DEBUG":   jcalc.LogDebug,
	} {
		got, err := parseLogLevel(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v, want %v", name, got, want)
		}
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
