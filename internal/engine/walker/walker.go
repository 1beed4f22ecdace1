package walker

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"
	"unicode/utf8"

	"modgraph/internal/core/config"
	"modgraph/internal/core/ports"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/parser"
	"modgraph/internal/engine/resolver"
	"modgraph/internal/engine/runtime"
	"modgraph/internal/shared/observability"
	"modgraph/internal/shared/util"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Config struct {
	Entries              []string
	MaxDepth             int
	MaxModules           int
	MaxFileSize          int64
	FollowDynamicImports bool
	IncludeTypeImports   bool
	Exclude              []string
}

// Walker collects every module reachable from the configured entries.
type Walker struct {
	rt       runtime.Runtime
	resolver *resolver.Resolver
	parser   ports.CodeParser
	scripts  ports.ScriptExtractor
	cfg      Config
	exclude  []glob.Glob
	logger   *slog.Logger
}

type queued struct {
	path  string
	depth int
}

// New builds a walker. Zero limits fall back to the config package defaults;
// scripts may be nil when framework files are not expected.
func New(rt runtime.Runtime, res *resolver.Resolver, p ports.CodeParser, scripts ports.ScriptExtractor, cfg Config) (*Walker, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = config.DefaultMaxDepth
	}
	if cfg.MaxModules <= 0 {
		cfg.MaxModules = config.DefaultMaxModules
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = config.DefaultMaxFileSize
	}
	w := &Walker{
		rt:       rt,
		resolver: res,
		parser:   p,
		scripts:  scripts,
		cfg:      cfg,
		logger:   slog.Default().With("component", "walker"),
	}
	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		w.exclude = append(w.exclude, g)
	}
	return w, nil
}

// Walk runs a breadth-first traversal from the entries. Modules are keyed by
// their slash path relative to the working directory.
func (w *Walker) Walk(ctx context.Context) (*graph.CollectionState, error) {
	ctx, span := observability.Tracer.Start(ctx, "walk")
	defer span.End()
	defer observability.ObserveTask("walk", time.Now())

	state, err := w.walk(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("modules", len(state.Modules)),
		attribute.Int("entries", len(state.EntryPoints)),
	)
	return state, nil
}

func (w *Walker) walk(ctx context.Context) (*graph.CollectionState, error) {
	if len(w.cfg.Entries) == 0 {
		return nil, &Error{Kind: ErrNoEntries}
	}
	cwd, err := w.resolver.Cwd()
	if err != nil {
		return nil, &Error{Kind: ErrResolutionFailed, Reason: "working directory", Err: err}
	}

	state := graph.NewCollectionState()
	depths := make(map[string]int)
	visited := make(map[string]bool)
	entries := make(map[string]bool)
	var queue []queued

	for _, entry := range w.cfg.Entries {
		abs := absolute(cwd, entry)
		if !util.IsWithin(cwd, abs) {
			return nil, &Error{Kind: ErrPathTraversal, Path: abs, Specifier: entry, Reason: "entry outside working directory"}
		}
		entries[abs] = true
		if _, seen := depths[abs]; !seen {
			depths[abs] = 0
			queue = append(queue, queued{path: abs})
		}
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > w.cfg.MaxDepth {
			return nil, &Error{
				Kind:   ErrMaxDepthExceeded,
				Path:   cur.path,
				Depth:  cur.depth,
				Reason: fmt.Sprintf("limit is %d", w.cfg.MaxDepth),
			}
		}
		if visited[cur.path] {
			continue
		}
		visited[cur.path] = true

		if len(state.Modules) >= w.cfg.MaxModules {
			return nil, &Error{
				Kind:   ErrTooManyModules,
				Path:   cur.path,
				Depth:  cur.depth,
				Reason: fmt.Sprintf("limit is %d", w.cfg.MaxModules),
			}
		}

		mod, next, err := w.visit(ctx, cwd, cur)
		if err != nil {
			return nil, err
		}
		mod.IsEntry = entries[cur.path]
		state.AddModule(util.RelativeTo(cwd, cur.path), mod)
		observability.WalkedModulesTotal.Inc()

		for _, p := range next {
			if visited[p] {
				continue
			}
			if _, seen := depths[p]; seen {
				continue
			}
			depths[p] = cur.depth + 1
			queue = append(queue, queued{path: p, depth: cur.depth + 1})
		}
	}

	for _, entry := range w.cfg.Entries {
		state.MarkEntry(util.RelativeTo(cwd, absolute(cwd, entry)))
	}
	w.logger.Debug("walk complete", "modules", len(state.Modules), "entries", len(state.EntryPoints))
	return state, nil
}

// visit reads and parses one module and returns the absolute paths it wants
// followed. Files no grammar covers (stylesheets, images) are recorded as
// side-effect-only modules without being read.
func (w *Walker) visit(ctx context.Context, cwd string, cur queued) (*graph.CollectedModule, []string, error) {
	if !w.parser.IsSupportedPath(cur.path) {
		w.logger.Debug("recording non-script module", "path", cur.path)
		return &graph.CollectedModule{Path: cur.path, Format: graph.FormatUnknown, HasSideEffects: true}, nil, nil
	}
	meta, err := w.rt.Metadata(ctx, cur.path)
	if err != nil {
		return nil, nil, &Error{Kind: ErrReadFile, Path: cur.path, Depth: cur.depth, Err: err}
	}
	if meta.Size > w.cfg.MaxFileSize {
		return nil, nil, &Error{
			Kind:   ErrFileTooLarge,
			Path:   cur.path,
			Depth:  cur.depth,
			Reason: fmt.Sprintf("%d bytes exceeds limit of %d", meta.Size, w.cfg.MaxFileSize),
		}
	}
	data, err := w.rt.ReadFile(ctx, cur.path)
	if err != nil {
		return nil, nil, &Error{Kind: ErrReadFile, Path: cur.path, Depth: cur.depth, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, nil, &Error{Kind: ErrReadFile, Path: cur.path, Depth: cur.depth, Reason: "invalid UTF-8"}
	}

	code := data
	if parser.IsFrameworkFile(cur.path) {
		if w.scripts == nil {
			return nil, nil, &Error{Kind: ErrExtractionFailed, Path: cur.path, Depth: cur.depth, Reason: "no script extractor configured"}
		}
		fragments, err := w.scripts.Extract(cur.path, data)
		if err != nil {
			return nil, nil, &Error{Kind: ErrExtractionFailed, Path: cur.path, Depth: cur.depth, Err: err}
		}
		code = []byte(parser.JoinScripts(fragments))
	}

	mod := &graph.CollectedModule{
		Path:   cur.path,
		Code:   string(data),
		Format: graph.FormatUnknown,
	}
	res, err := w.parser.Parse(cur.path, code)
	if err != nil {
		observability.ParseFailuresTotal.Inc()
		w.logger.Warn("parse failed, assuming side effects", "path", cur.path, "error", err)
		mod.HasSideEffects = true
		mod.ParseFailed = true
		return mod, nil, nil
	}
	mod.HasSideEffects = res.HasSideEffects
	mod.Format = res.Format
	mod.Symbols = res.Symbols

	var next []string
	for _, imp := range res.Imports {
		target, err := w.resolveLocal(ctx, cwd, cur, imp.Source)
		if err != nil {
			return nil, nil, err
		}
		if target != "" {
			imp.ResolvedPath = util.RelativeTo(cwd, target)
			if w.follows(imp.Kind) {
				next = append(next, target)
			}
		}
		mod.Imports = append(mod.Imports, imp)
	}
	for _, exp := range res.Exports {
		if exp.IsReExport() {
			target, err := w.resolveLocal(ctx, cwd, cur, exp.Source)
			if err != nil {
				return nil, nil, err
			}
			if target != "" {
				exp.ResolvedPath = util.RelativeTo(cwd, target)
				if !exp.IsTypeOnly || w.cfg.IncludeTypeImports {
					next = append(next, target)
				}
			}
		}
		mod.Exports = append(mod.Exports, exp)
	}
	return mod, next, nil
}

// resolveLocal returns the absolute path specifier resolves to, or "" when it
// is external, unresolved or excluded.
func (w *Walker) resolveLocal(ctx context.Context, cwd string, cur queued, specifier string) (string, error) {
	res, err := w.resolver.Resolve(ctx, specifier, cur.path)
	if err != nil {
		return "", &Error{Kind: ErrResolutionFailed, Path: cur.path, Specifier: specifier, Depth: cur.depth, Err: err}
	}
	if !res.IsLocal() {
		return "", nil
	}
	target := util.NormalizePath(res.Path)
	if !util.IsWithin(cwd, target) {
		return "", &Error{
			Kind:      ErrPathTraversal,
			Path:      cur.path,
			Specifier: specifier,
			Depth:     cur.depth,
			Reason:    fmt.Sprintf("%s is outside %s", target, cwd),
		}
	}
	if w.excluded(util.RelativeTo(cwd, target)) {
		w.logger.Debug("skipping excluded module", "path", target, "importer", cur.path)
		return "", nil
	}
	return target, nil
}

func (w *Walker) follows(kind graph.ImportKind) bool {
	switch kind {
	case graph.ImportDynamic:
		return w.cfg.FollowDynamicImports
	case graph.ImportTypeOnly:
		return w.cfg.IncludeTypeImports
	default:
		return true
	}
}

func (w *Walker) excluded(rel string) bool {
	for _, g := range w.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func absolute(cwd, p string) string {
	p = util.NormalizePath(p)
	if path.IsAbs(p) {
		return p
	}
	return path.Join(cwd, p)
}
