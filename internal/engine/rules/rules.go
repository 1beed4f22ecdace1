// Package rules marks exports that look unused but are consumed by framework
// conventions, such as React hooks or Next.js page data functions.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"modgraph/internal/core/config"
	"modgraph/internal/engine/graph"
	"modgraph/internal/shared/observability"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
)

// Rule marks framework-consumed exports in place. Implementations clone the
// modules they change and re-insert them through AddModule.
type Rule interface {
	Name() string
	Description() string
	Apply(ctx context.Context, g *graph.ModuleGraph) error
}

// exportRule marks every export for which match returns true.
type exportRule struct {
	name        string
	description string
	match       func(mod *graph.Module, exp graph.Export) bool
}

func (r *exportRule) Name() string        { return r.name }
func (r *exportRule) Description() string { return r.description }

func (r *exportRule) Apply(ctx context.Context, g *graph.ModuleGraph) error {
	_, err := markExports(ctx, g, r.match)
	return err
}

// markExports returns the number of exports newly marked.
func markExports(ctx context.Context, g *graph.ModuleGraph, match func(*graph.Module, graph.Export) bool) (int, error) {
	marked := 0
	for _, mod := range g.Modules() {
		if err := ctx.Err(); err != nil {
			return marked, err
		}
		changed := false
		for i := range mod.Exports {
			exp := &mod.Exports[i]
			if exp.IsFrameworkUsed || !match(mod, *exp) {
				continue
			}
			exp.MarkFrameworkUsed()
			changed = true
			marked++
		}
		if changed {
			if err := g.AddModule(mod); err != nil {
				return marked, fmt.Errorf("update module %s: %w", mod.ID, err)
			}
		}
	}
	return marked, nil
}

// PatternRule marks exports whose name matches any configured glob.
type PatternRule struct {
	patterns []string
	globs    []glob.Glob
}

func NewPatternRule(patterns []string) (*PatternRule, error) {
	r := &PatternRule{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile export pattern %q: %w", p, err)
		}
		r.globs = append(r.globs, g)
	}
	return r, nil
}

func (r *PatternRule) Name() string { return "ExportPatternRule" }

func (r *PatternRule) Description() string {
	return fmt.Sprintf("Marks exports matching %v as framework-used", r.patterns)
}

func (r *PatternRule) Apply(ctx context.Context, g *graph.ModuleGraph) error {
	_, err := markExports(ctx, g, func(_ *graph.Module, exp graph.Export) bool {
		for _, gl := range r.globs {
			if gl.Match(exp.Name) {
				return true
			}
		}
		return false
	})
	return err
}

// FromConfig returns the enabled built-in rules followed by the pattern rule,
// when patterns are configured.
func FromConfig(cfg config.Rules) ([]Rule, error) {
	var out []Rule
	if cfg.ReactEnabled() {
		out = append(out, ReactHooksRule())
	}
	if cfg.NextJSEnabled() {
		out = append(out, NextJSRule())
	}
	if cfg.ConfigFilesEnabled() {
		out = append(out, ConfigFileRule())
	}
	if len(cfg.ExportPatterns) > 0 {
		pr, err := NewPatternRule(cfg.ExportPatterns)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, nil
}

// ApplyAll runs rules in order and stops at the first failure.
func ApplyAll(ctx context.Context, g *graph.ModuleGraph, rules []Rule) error {
	ctx, span := observability.Tracer.Start(ctx, "rules.apply")
	defer span.End()
	defer observability.ObserveTask("rules", time.Now())

	logger := slog.Default().With("component", "rules")
	before := len(g.FrameworkUsedExports())
	for _, rule := range rules {
		if err := rule.Apply(ctx, g); err != nil {
			return fmt.Errorf("apply rule %s: %w", rule.Name(), err)
		}
		after := len(g.FrameworkUsedExports())
		logger.Debug("rule applied", "rule", rule.Name(), "marked", after-before)
		before = after
	}
	span.SetAttributes(attribute.Int("rules", len(rules)), attribute.Int("framework_exports", before))
	return nil
}
