package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modgraph/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-format", "json", "-chain", "src/lib.ts", "-store", "-o", "out.json", "src/index.ts", "src/cli.ts"})
	require.NoError(t, err)
	assert.Equal(t, "json", opts.format)
	assert.Equal(t, "src/lib.ts", opts.chain)
	assert.True(t, opts.store)
	assert.Equal(t, "out.json", opts.outputPath)
	assert.Equal(t, []string{"src/index.ts", "src/cli.ts"}, opts.args)

	_, err = parseOptions([]string{"-nope"})
	assert.Error(t, err)
}

func TestApplyModeOptions_Conflicts(t *testing.T) {
	cases := []struct {
		name string
		opts cliOptions
		want string
	}{
		{"once and watch", cliOptions{once: true, watch: true, args: []string{"a.ts"}}, "-once cannot be combined"},
		{"once and ui", cliOptions{once: true, ui: true, args: []string{"a.ts"}}, "-once cannot be combined"},
		{"ui and output", cliOptions{ui: true, outputPath: "r.txt", args: []string{"a.ts"}}, "-o cannot be combined"},
		{"no entries", cliOptions{}, "no entry points"},
		{"bad format", cliOptions{format: "yaml", args: []string{"a.ts"}}, "output.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			_, err := applyModeOptions(&opts, config.Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestApplyModeOptions_Overrides(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Entries = []string{"src/original.ts"}
	opts := cliOptions{
		args:       []string{"src/index.ts"},
		format:     "sarif",
		outputPath: "reports/out.sarif",
		chain:      "src/lib.ts",
		store:      true,
	}

	mode, err := applyModeOptions(&opts, cfg)
	require.NoError(t, err)
	assert.Equal(t, modeOnce, mode)
	assert.Equal(t, []string{"src/index.ts"}, cfg.Analysis.Entries)
	assert.Equal(t, "sarif", cfg.Output.Format)
	assert.Equal(t, "reports/out.sarif", cfg.Output.Path)
	assert.Equal(t, "src/lib.ts", cfg.Analysis.ChainTarget)
	assert.True(t, cfg.Store.Enabled)
}

func TestApplyModeOptions_Modes(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Entries = []string{"src/index.ts"}

	mode, err := applyModeOptions(&cliOptions{watch: true}, cfg)
	require.NoError(t, err)
	assert.Equal(t, modeWatch, mode)

	mode, err = applyModeOptions(&cliOptions{ui: true, watch: true}, cfg)
	require.NoError(t, err)
	assert.Equal(t, modeUI, mode)
}

func TestLoadConfig_DiscoversCandidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".modgraph.toml"), `
[analysis]
cwd = "web"
entries = ["src/main.ts"]
`)

	cfg, path, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".modgraph.toml"), path)
	assert.Equal(t, filepath.Join(dir, "web"), cfg.Analysis.Cwd)
	assert.Equal(t, []string{"src/main.ts"}, cfg.Analysis.Entries)
}

func TestLoadConfig_PrefersFirstCandidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "modgraph.toml"), "[output]\nformat = \"json\"\n")
	writeFile(t, filepath.Join(dir, "data", "config", "modgraph.toml"), "[output]\nformat = \"dot\"\n")

	cfg, path, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "modgraph.toml"), path)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, dir, cfg.Analysis.Cwd)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, dir, cfg.Analysis.Cwd)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), t.TempDir())
	assert.Error(t, err)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "modgraph v"+versionString+"\n", stdout.String())
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-bogus"}, &stdout, &stderr))
}

func TestRun_NoEntries(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "modgraph.toml")
	writeFile(t, cfgPath, "version = 1\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", cfgPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no entry points")
	assert.Empty(t, stdout.String())
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "index.ts"), `import { used } from './lib';

console.log(used);
`)
	writeFile(t, filepath.Join(dir, "src", "lib.ts"), `export const used = 1;
export const unused = 2;
`)
	writeFile(t, filepath.Join(dir, "modgraph.toml"), `
[analysis]
entries = ["src/index.ts"]
`)
	return dir
}

func TestRun_OnceJSON(t *testing.T) {
	dir := writeProject(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(dir, "modgraph.toml"), "-format", "json", "-once"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var doc struct {
		Report struct {
			UnusedExports []struct {
				ModuleID string `json:"module_id"`
				Export   struct {
					Name string `json:"name"`
				} `json:"export"`
			} `json:"unused_exports"`
		} `json:"report"`
		Graph struct {
			EntryPoints []string `json:"entry_points"`
		} `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	require.Len(t, doc.Report.UnusedExports, 1)
	assert.Equal(t, "unused", doc.Report.UnusedExports[0].Export.Name)
	assert.Equal(t, []string{"src/index.ts"}, doc.Graph.EntryPoints)
}

func TestRun_WritesReportFile(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(dir, "reports", "modgraph.md")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", filepath.Join(dir, "modgraph.toml"), "-format", "markdown", "-o", out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))
	assert.Contains(t, string(data), "`unused`")
}
