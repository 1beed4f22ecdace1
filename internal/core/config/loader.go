package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML config file, applies defaults and env overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML content into a validated Config.
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Analysis.MaxDepth <= 0 {
		cfg.Analysis.MaxDepth = DefaultMaxDepth
	}
	if cfg.Analysis.MaxModules <= 0 {
		cfg.Analysis.MaxModules = DefaultMaxModules
	}
	if cfg.Analysis.MaxFileSize <= 0 {
		cfg.Analysis.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Resolver.CacheSize == 0 {
		cfg.Resolver.CacheSize = DefaultResolverCache
	}

	if len(cfg.Exclude.Paths) == 0 {
		cfg.Exclude.Paths = []string{"node_modules/**", "**/node_modules/**", "**/.git/**"}
	}

	if strings.TrimSpace(cfg.PackageJSON.Path) == "" {
		cfg.PackageJSON.Path = "package.json"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RateLimit <= 0 {
		cfg.Watch.RateLimit = 1
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = "data/modgraph.db"
	}
	if strings.TrimSpace(cfg.Store.Project) == "" {
		cfg.Store.Project = "default"
	}
	if cfg.Store.Keep <= 0 {
		cfg.Store.Keep = DefaultStoreKeep
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "modgraph"
	}
}
