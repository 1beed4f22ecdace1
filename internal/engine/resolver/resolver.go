// # internal/engine/resolver/resolver.go
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"modgraph/internal/engine/runtime"
	"modgraph/internal/shared/observability"
)

// Extensions are probed in this order, both on the bare candidate and for
// index files.
var Extensions = []string{"ts", "tsx", "js", "jsx", "mjs", "json"}

type Kind string

const (
	KindLocal      Kind = "local"
	KindExternal   Kind = "external"
	KindUnresolved Kind = "unresolved"
)

// Resolution is the outcome of resolving one specifier. Path is set for
// Local and Unresolved (the last probed candidate); Name is set for External.
type Resolution struct {
	Kind Kind
	Path string
	Name string
}

func Local(p string) Resolution         { return Resolution{Kind: KindLocal, Path: p} }
func External(name string) Resolution   { return Resolution{Kind: KindExternal, Name: name} }
func Unresolved(p string) Resolution    { return Resolution{Kind: KindUnresolved, Path: p} }
func (r Resolution) IsLocal() bool      { return r.Kind == KindLocal }
func (r Resolution) IsExternal() bool   { return r.Kind == KindExternal }
func (r Resolution) IsUnresolved() bool { return r.Kind == KindUnresolved }

// Alias rewrites specifiers starting with Prefix to Target.
type Alias struct {
	Prefix string
	Target string
}

type Config struct {
	// Cwd overrides the runtime working directory when set.
	Cwd       string
	External  []string
	Aliases   []Alias
	CacheSize int
}

type cacheKey struct {
	base      string
	specifier string
}

// Resolver maps import specifiers to files with Node.js-style probing.
type Resolver struct {
	rt     runtime.Runtime
	cfg    Config
	cache  *lruCache[cacheKey, Resolution]
	logger *slog.Logger
}

func New(rt runtime.Runtime, cfg Config) *Resolver {
	return &Resolver{
		rt:     rt,
		cfg:    cfg,
		cache:  newLRUCache[cacheKey, Resolution](cfg.CacheSize),
		logger: slog.Default().With("component", "resolver"),
	}
}

// Cwd returns the configured working directory or the runtime's.
func (r *Resolver) Cwd() (string, error) {
	if r.cfg.Cwd != "" {
		return clean(r.cfg.Cwd), nil
	}
	cwd, err := r.rt.Cwd()
	if err != nil {
		return "", fmt.Errorf("resolve cwd: %w", err)
	}
	return clean(cwd), nil
}

// Resolve maps specifier, imported from the file at from, to a Resolution.
// Unmapped specifiers are downgraded to External or Unresolved; the only
// error is a missing working directory.
func (r *Resolver) Resolve(ctx context.Context, specifier, from string) (Resolution, error) {
	res, err := r.resolve(ctx, specifier, from)
	if err == nil {
		observability.ResolutionsTotal.WithLabelValues(string(res.Kind)).Inc()
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, specifier, from string) (Resolution, error) {
	if r.IsExternal(specifier) {
		return External(specifier), nil
	}

	cwd, err := r.Cwd()
	if err != nil {
		return Resolution{}, err
	}

	if target, ok := r.rewriteAlias(specifier); ok {
		candidate := target
		if !path.IsAbs(candidate) {
			candidate = path.Join(cwd, candidate)
		}
		if p, ok := r.probe(ctx, candidate); ok {
			return Local(p), nil
		}
		r.logger.Debug("alias matched but no file found", "specifier", specifier, "candidate", candidate)
	}

	if !strings.HasPrefix(specifier, ".") && !strings.HasPrefix(specifier, "/") {
		return External(specifier), nil
	}

	base := path.Dir(clean(from))
	if strings.HasPrefix(specifier, "/") {
		base = cwd
	}
	key := cacheKey{base: base, specifier: specifier}
	if cached, ok := r.cache.get(key); ok {
		observability.ResolverCacheHitsTotal.Inc()
		return cached, nil
	}

	candidate := path.Join(base, specifier)
	if strings.HasPrefix(specifier, "/") {
		candidate = path.Join(cwd, strings.TrimPrefix(specifier, "/"))
		if strings.HasPrefix(clean(specifier), cwd+"/") {
			candidate = clean(specifier)
		}
	}
	res := Unresolved(candidate)
	if p, ok := r.probe(ctx, candidate); ok {
		res = Local(p)
	}
	r.cache.put(key, res)
	return res, nil
}

// IsExternal reports an exact or package-boundary prefix match against the
// configured externals: "react" matches "react" and "react/jsx-runtime" but
// not "react-dom".
func (r *Resolver) IsExternal(specifier string) bool {
	for _, ext := range r.cfg.External {
		if specifier == ext || strings.HasPrefix(specifier, ext+"/") {
			return true
		}
	}
	return false
}

// rewriteAlias applies the first alias whose prefix matches.
func (r *Resolver) rewriteAlias(specifier string) (string, bool) {
	for _, alias := range r.cfg.Aliases {
		if alias.Prefix == "" || !strings.HasPrefix(specifier, alias.Prefix) {
			continue
		}
		rest := strings.TrimPrefix(specifier[len(alias.Prefix):], "/")
		target := alias.Target
		switch {
		case strings.HasPrefix(target, "/"), strings.HasPrefix(target, "."):
		default:
			target = "./" + target
		}
		if rest == "" {
			return target, true
		}
		return strings.TrimSuffix(target, "/") + "/" + rest, true
	}
	return "", false
}

// probe tries the candidate as a file, then with each extension appended,
// then as a directory holding an index file.
func (r *Resolver) probe(ctx context.Context, candidate string) (string, bool) {
	if r.isFile(ctx, candidate) {
		return candidate, true
	}
	for _, ext := range Extensions {
		if p := candidate + "." + ext; r.isFile(ctx, p) {
			return p, true
		}
	}
	if meta, err := r.rt.Metadata(ctx, candidate); err == nil && meta.IsDir {
		for _, ext := range Extensions {
			if p := path.Join(candidate, "index."+ext); r.isFile(ctx, p) {
				return p, true
			}
		}
	}
	return "", false
}

func (r *Resolver) isFile(ctx context.Context, p string) bool {
	if !r.rt.Exists(p) {
		return false
	}
	meta, err := r.rt.Metadata(ctx, p)
	return err == nil && meta.IsFile
}

// ClearCache drops memoized resolutions, e.g. after files changed on disk.
func (r *Resolver) ClearCache() {
	r.cache.clear()
}

func clean(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
