// Package config provides configuration loading and validation for the service.
// Configuration is loaded from YAML files with environment variable overrides
// using a layered system: defaults -> base.yaml -> {profile}.yaml -> env vars.
package config

import "time"

// Config holds all configuration for the service.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// ResponseTimeout bounds how long an application may take to start its
	// response. Zero disables the limit.
	ResponseTimeout time.Duration `koanf:"response_timeout"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// Backend selects the logger used for fault events: "slog" or "zap".
	Backend string `koanf:"backend"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// DiagnosticsConfig controls the exception pages.
type DiagnosticsConfig struct {
	// Enabled wraps applications with the exception-intercepting middleware.
	Enabled bool `koanf:"enabled"`

	// ShowRequest adds request metadata with redacted headers to the 500 page.
	ShowRequest bool `koanf:"show_request"`

	// MaxFrames caps rendered stack frames. Zero renders all.
	MaxFrames int `koanf:"max_frames"`
}
