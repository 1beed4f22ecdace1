package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: MODGRAPH_[SECTION]_[KEY] (e.g., MODGRAPH_ANALYSIS_MAX_DEPTH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Analysis.Cwd, "MODGRAPH_ANALYSIS_CWD")
	setEnvInt(&cfg.Analysis.MaxDepth, "MODGRAPH_ANALYSIS_MAX_DEPTH")
	setEnvInt(&cfg.Analysis.MaxModules, "MODGRAPH_ANALYSIS_MAX_MODULES")
	setEnvBool(&cfg.Analysis.FollowDynamicImports, "MODGRAPH_ANALYSIS_FOLLOW_DYNAMIC_IMPORTS")

	setEnvBool(&cfg.Store.Enabled, "MODGRAPH_STORE_ENABLED")
	setEnvString(&cfg.Store.Path, "MODGRAPH_STORE_PATH")
	setEnvInt(&cfg.Store.Keep, "MODGRAPH_STORE_KEEP")

	setEnvDuration(&cfg.Watch.Debounce, "MODGRAPH_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddr, "MODGRAPH_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "MODGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
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

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
