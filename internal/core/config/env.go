package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DVAMODEL_[SECTION]_[KEY] (e.g., DVAMODEL_SCAN_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.ProjectRoot, "DVAMODEL_PROJECT_ROOT")

	// Parser
	setEnvString(&cfg.Parser.Codegen, "DVAMODEL_PARSER_CODEGEN")
	setEnvBool(&cfg.Parser.ErrorRecovery, "DVAMODEL_PARSER_ERROR_RECOVERY")
	setEnvString(&cfg.Parser.SourceType, "DVAMODEL_PARSER_SOURCE_TYPE")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DVAMODEL_WATCH_DEBOUNCE")

	// Scan
	setEnvInt(&cfg.Scan.Workers, "DVAMODEL_SCAN_WORKERS")
	setEnvFloat64(&cfg.Scan.RateLimit, "DVAMODEL_SCAN_RATE_LIMIT")

	// Store
	setEnvBool(&cfg.Store.Enabled, "DVAMODEL_STORE_ENABLED")
	setEnvString(&cfg.Store.Path, "DVAMODEL_STORE_PATH")
	setEnvDuration(&cfg.Store.BusyTimeout, "DVAMODEL_STORE_BUSY_TIMEOUT")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "DVAMODEL_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "DVAMODEL_OBSERVABILITY_ADDRESS")
	setEnvBool(&cfg.Observability.EnableTracing, "DVAMODEL_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DVAMODEL_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
