package rules

import (
	"context"
	"errors"
	"testing"

	"modgraph/internal/core/config"
	"modgraph/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleWithExports(id string, names ...string) *graph.Module {
	mod := graph.NewModule(graph.MustModuleID(id), "/proj/"+id)
	for _, name := range names {
		kind := graph.ExportNamed
		if name == "default" {
			kind = graph.ExportDefault
		}
		mod.Exports = append(mod.Exports, graph.Export{Name: name, Kind: kind})
	}
	return mod
}

func buildGraph(t *testing.T, mods ...*graph.Module) *graph.ModuleGraph {
	t.Helper()
	g := graph.NewModuleGraph()
	for _, mod := range mods {
		require.NoError(t, g.AddModule(mod))
	}
	return g
}

func frameworkUsed(g *graph.ModuleGraph) map[string][]string {
	out := make(map[string][]string)
	for _, fe := range g.FrameworkUsedExports() {
		out[string(fe.ModuleID)] = append(out[string(fe.ModuleID)], fe.Export.Name)
	}
	return out
}

func TestReactHooksRule(t *testing.T) {
	g := buildGraph(t, moduleWithExports("src/hooks.ts", "useAuth", "useX", "use", "user", "helper"))

	require.NoError(t, ReactHooksRule().Apply(context.Background(), g))
	assert.ElementsMatch(t, []string{"useAuth", "useX"}, frameworkUsed(g)["src/hooks.ts"])

	mod, ok := g.Module("src/hooks.ts")
	require.True(t, ok)
	exp, _ := mod.Export("useAuth")
	assert.True(t, exp.IsUsed)
}

func TestNextJSRule(t *testing.T) {
	g := buildGraph(t,
		moduleWithExports("pages/index.tsx", "default", "getServerSideProps", "helper"),
		moduleWithExports("src/pages/blog/[slug].tsx", "default", "getStaticPaths", "getStaticProps"),
		moduleWithExports("app/api/users/route.ts", "GET", "POST", "internal"),
		moduleWithExports("app/dashboard/page.tsx", "default", "generateMetadata", "GET"),
		moduleWithExports("app/dashboard/chart.tsx", "GET"),
		moduleWithExports("src/components/Button.tsx", "default", "getStaticProps"),
	)

	require.NoError(t, NextJSRule().Apply(context.Background(), g))
	used := frameworkUsed(g)
	assert.ElementsMatch(t, []string{"default", "getServerSideProps"}, used["pages/index.tsx"])
	assert.ElementsMatch(t, []string{"default", "getStaticPaths", "getStaticProps"}, used["src/pages/blog/[slug].tsx"])
	assert.ElementsMatch(t, []string{"GET", "POST"}, used["app/api/users/route.ts"])
	assert.ElementsMatch(t, []string{"default", "generateMetadata", "GET"}, used["app/dashboard/page.tsx"])
	assert.Empty(t, used["app/dashboard/chart.tsx"])
	assert.Empty(t, used["src/components/Button.tsx"])
}

func TestConfigFileRule(t *testing.T) {
	g := buildGraph(t,
		moduleWithExports("vite.config.ts", "default"),
		moduleWithExports("tools/jest.config.mjs", "default", "helper"),
		moduleWithExports("src/config.ts", "default"),
	)

	require.NoError(t, ConfigFileRule().Apply(context.Background(), g))
	used := frameworkUsed(g)
	assert.Equal(t, []string{"default"}, used["vite.config.ts"])
	assert.Equal(t, []string{"default"}, used["tools/jest.config.mjs"])
	assert.Empty(t, used["src/config.ts"])
}

func TestPatternRule(t *testing.T) {
	rule, err := NewPatternRule([]string{"handle*", "on{Click,Submit}"})
	require.NoError(t, err)
	assert.Contains(t, rule.Description(), "handle*")

	g := buildGraph(t, moduleWithExports("src/events.ts", "handleClick", "onClick", "onSubmit", "onHover"))
	require.NoError(t, rule.Apply(context.Background(), g))
	assert.ElementsMatch(t, []string{"handleClick", "onClick", "onSubmit"}, frameworkUsed(g)["src/events.ts"])

	_, err = NewPatternRule([]string{"["})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	off := false

	t.Run("defaults", func(t *testing.T) {
		rules, err := FromConfig(config.Rules{})
		require.NoError(t, err)
		names := make([]string, 0, len(rules))
		for _, r := range rules {
			names = append(names, r.Name())
		}
		assert.Equal(t, []string{"ReactHooksRule", "NextJSRule", "ConfigFileRule"}, names)
	})

	t.Run("disabled with patterns", func(t *testing.T) {
		rules, err := FromConfig(config.Rules{React: &off, NextJS: &off, ConfigFiles: &off, ExportPatterns: []string{"x*"}})
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "ExportPatternRule", rules[0].Name())
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := FromConfig(config.Rules{ExportPatterns: []string{"["}})
		assert.Error(t, err)
	})
}

type failingRule struct{}

func (failingRule) Name() string                                    { return "Failing" }
func (failingRule) Description() string                             { return "always fails" }
func (failingRule) Apply(context.Context, *graph.ModuleGraph) error { return errors.New("boom") }

func TestApplyAll(t *testing.T) {
	g := buildGraph(t,
		moduleWithExports("src/hooks.ts", "useTheme"),
		moduleWithExports("next.config.js", "default"),
	)

	require.NoError(t, ApplyAll(context.Background(), g, []Rule{ReactHooksRule(), ConfigFileRule()}))
	assert.Len(t, g.FrameworkUsedExports(), 2)

	unused, err := g.UnusedExports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unused)

	err = ApplyAll(context.Background(), g, []Rule{failingRule{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply rule Failing")
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := buildGraph(t, moduleWithExports("src/hooks.ts", "useTheme"))

	err := ReactHooksRule().Apply(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}
