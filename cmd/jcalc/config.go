package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jcalc/jcalc-go/jcalc"
)

// jcalc config.toml key mapping to client settings.
type fileConfig struct {
	Addr               string `toml:"addr"`
	RequestTimeoutMS   int64  `toml:"request_timeout_ms"`
	HandshakeTimeoutMS int64  `toml:"handshake_timeout_ms"`
	LogLevel           string `toml:"log_level"`
	TraceFile          string `toml:"trace_file"`
}

type cliConfig struct {
	Addr             string
	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
	LogLevel         jcalc.LogLevel
	TraceFile        string
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Addr:     jcalc.DefaultAddr,
		LogLevel: jcalc.LogError,
	}
}

// loadCLIConfig reads a TOML config and overlays it on the defaults; keys
// absent from the file keep their default values.
func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load jcalc config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("request_timeout_ms") {
		if raw.RequestTimeoutMS <= 0 {
			return cliConfig{}, fmt.Errorf("load jcalc config: request_timeout_ms must be positive, got %d", raw.RequestTimeoutMS)
		}
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("handshake_timeout_ms") {
		if raw.HandshakeTimeoutMS <= 0 {
			return cliConfig{}, fmt.Errorf("load jcalc config: handshake_timeout_ms must be positive, got %d", raw.HandshakeTimeoutMS)
		}
		cfg.HandshakeTimeout = time.Duration(raw.HandshakeTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("log_level") {
		level, err := parseLogLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return cliConfig{}, fmt.Errorf("load jcalc config: %w", err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("trace_file") {
		trace := strings.TrimSpace(raw.TraceFile)
		if trace != "" && !filepath.IsAbs(trace) {
			trace = filepath.Join(filepath.Dir(path), trace)
		}
		cfg.TraceFile = trace
	}

	return cfg, nil
}

func parseLogLevel(name string) (jcalc.LogLevel, error) {
	switch strings.ToLower(name) {
	case "none":
		return jcalc.LogNone, nil
	case "error":
		return jcalc.LogError, nil
	case "warn", "warning":
		return jcalc.LogWarning, nil
	case "info":
		return jcalc.LogInfo, nil
	case "verbose":
		return jcalc.LogVerbose, nil
	case "debug":
		return jcalc.LogDebug, nil
	}
	return jcalc.LogNone, fmt.Errorf("unknown log level %q", name)
}
