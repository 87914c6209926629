package config

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

const (
	defaultServerPort = 8080
	defaultMaxFrames  = 50
)

// defaults returns the default configuration values.
// These are loaded first and can be overridden by base.yaml, profile YAML, and env vars.
func defaults() map[string]any {
	return map[string]any{
		"server.host":             "0.0.0.0",
		"server.port":             defaultServerPort,
		"server.read_timeout":     "5s",
		"server.write_timeout":    "10s",
		"server.idle_timeout":     "120s",
		"server.response_timeout": "0s",

		"log.level":   "info",
		"log.format":  "json",
		"log.backend": "slog",

		"telemetry.enabled":      false,
		"telemetry.exporter":     "stdout",
		"telemetry.endpoint":     "",
		"telemetry.service_name": "showexceptions",

		"diagnostics.enabled":      true,
		"diagnostics.show_request": false,
		"diagnostics.max_frames":   defaultMaxFrames,
	}
}

// defaultsProvider is a koanf.Provider over a flat map with dotted keys.
type defaultsProvider map[string]any

func (p defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}

func (p defaultsProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p, "."), nil
}
