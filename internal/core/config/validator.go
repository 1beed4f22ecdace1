package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate re-checks cfg after callers mutate a loaded config.
func (cfg *Config) Validate() error {
	return validate(cfg)
}

func validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateAnalysis(cfg); err != nil {
		return err
	}
	if err := validateResolver(cfg); err != nil {
		return err
	}
	if err := validatePatterns(cfg); err != nil {
		return err
	}
	return validateOutput(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	for i, entry := range cfg.Analysis.Entries {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("analysis.entries[%d] must not be empty", i)
		}
	}
	return nil
}

func validateResolver(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Resolver.Aliases))
	for i, alias := range cfg.Resolver.Aliases {
		ref := fmt.Sprintf("resolver.alias[%d]", i)
		prefix := strings.TrimSpace(alias.Prefix)
		if prefix == "" {
			return fmt.Errorf("%s.prefix must not be empty", ref)
		}
		if strings.TrimSpace(alias.Target) == "" {
			return fmt.Errorf("%s.target must not be empty", ref)
		}
		if seen[prefix] {
			return fmt.Errorf("duplicate resolver alias prefix %q", prefix)
		}
		seen[prefix] = true
	}
	for i, ext := range cfg.Resolver.External {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("resolver.external[%d] must not be empty", i)
		}
	}
	if cfg.Resolver.CacheSize < 0 {
		return fmt.Errorf("resolver.cache_size must be >= 0, got %d", cfg.Resolver.CacheSize)
	}
	return nil
}

func validatePatterns(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Paths {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("exclude.paths: invalid glob %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Rules.ExportPatterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("rules.export_patterns: invalid glob %q: %w", pattern, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Output.Format)) {
	case "text", "json", "dot", "markdown", "sarif", "mermaid":
	default:
		return fmt.Errorf("output.format must be one of: text, json, dot, markdown, sarif, mermaid")
	}
	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path must not be empty when store.enabled=true")
	}
	return nil
}
