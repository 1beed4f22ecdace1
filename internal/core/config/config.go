// # internal/core/config/config.go
package config

import "time"

const (
	DefaultMaxDepth      = 1000
	DefaultMaxModules    = 100000
	DefaultMaxFileSize   = 10 * 1024 * 1024
	DefaultResolverCache = 4096
	DefaultStoreKeep     = 100
)

type Config struct {
	Version       int           `toml:"version"`
	Analysis      Analysis      `toml:"analysis"`
	Resolver      Resolver      `toml:"resolver"`
	Exclude       Exclude       `toml:"exclude"`
	Rules         Rules         `toml:"rules"`
	PackageJSON   PackageJSON   `toml:"package_json"`
	Watch         Watch         `toml:"watch"`
	Store         Store         `toml:"store"`
	Output        Output        `toml:"output"`
	Observability Observability `toml:"observability"`
}

type Analysis struct {
	Cwd                  string   `toml:"cwd"`
	Entries              []string `toml:"entries"`
	MaxDepth             int      `toml:"max_depth"`
	MaxModules           int      `toml:"max_modules"`
	MaxFileSize          int64    `toml:"max_file_size"`
	FollowDynamicImports bool     `toml:"follow_dynamic_imports"`
	IncludeTypeImports   bool     `toml:"include_type_imports"`
	ChainTarget          string   `toml:"chain_target"`
}

type Resolver struct {
	External  []string `toml:"external"`
	Aliases   []Alias  `toml:"alias"`
	CacheSize int      `toml:"cache_size"`
}

// Alias maps a specifier prefix (for example "@") to a target directory.
// Aliases are matched in declaration order.
type Alias struct {
	Prefix string `toml:"prefix"`
	Target string `toml:"target"`
}

type Exclude struct {
	Paths []string `toml:"paths"`
}

type Rules struct {
	React          *bool    `toml:"react"`
	NextJS         *bool    `toml:"nextjs"`
	ConfigFiles    *bool    `toml:"config_files"`
	ExportPatterns []string `toml:"export_patterns"`
}

type PackageJSON struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	IncludeDev  bool   `toml:"include_dev"`
	IncludePeer bool   `toml:"include_peer"`
}

type Watch struct {
	Debounce  time.Duration `toml:"debounce"`
	RateLimit float64       `toml:"rate_limit"`
	Burst     int           `toml:"burst"`
}

type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Project string `toml:"project"`
	// Keep is the number of runs retained per project.
	Keep int `toml:"keep"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

func enabled(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

func (r Rules) ReactEnabled() bool       { return enabled(r.React) }
func (r Rules) NextJSEnabled() bool      { return enabled(r.NextJS) }
func (r Rules) ConfigFilesEnabled() bool { return enabled(r.ConfigFiles) }
