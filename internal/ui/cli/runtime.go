package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	coreapp "modgraph/internal/core/app"
	"modgraph/internal/core/config"
	"modgraph/internal/engine/graph"
	"modgraph/internal/shared/observability"
	"modgraph/internal/shared/util"
	"modgraph/internal/ui/report"
)

type runMode int

const (
	modeOnce runMode = iota
	modeWatch
	modeUI
)

// Run is the modgraph command line entry point. It returns the process exit
// code.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(parent context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "modgraph v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose, stderr)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if cfgPath != "" {
		slog.Debug("loaded config", "path", cfgPath)
	}

	mode, err := applyModeOptions(&opts, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close snapshot store", "error", err)
		}
	}()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		health := coreapp.NewHealthService(a)
		go func() {
			if err := observability.ServeMetrics(ctx, addr, observability.Route{Pattern: "/healthz", Handler: health}); err != nil {
				slog.Error("observability server failed", "error", err)
			}
		}()
	}

	out := reportWriter{
		stdout: stdout,
		path:   cfg.Output.Path,
		format: format,
		opts: report.Options{
			ProjectRoot: cfg.Analysis.Cwd,
			Version:     versionString,
			Verbose:     opts.verbose,
		},
	}

	switch mode {
	case modeUI:
		if err := runUI(ctx, a); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	case modeWatch:
		err := a.Watch(ctx, func(r *coreapp.Report, runErr error) {
			if runErr != nil {
				slog.Error("analysis failed", "error", runErr)
				return
			}
			if err := out.write(r, a.Graph()); err != nil {
				slog.Error("failed to write report", "error", err)
			}
		})
		if err != nil {
			slog.Error("watch failed", "error", err)
			return 1
		}
		return 0
	default:
		r, err := a.Run(ctx)
		if err != nil {
			slog.Error("analysis failed", "error", err)
			return 1
		}
		if err := out.write(r, a.Graph()); err != nil {
			slog.Error("failed to write report", "error", err)
			return 1
		}
		return 0
	}
}

type reportWriter struct {
	stdout io.Writer
	path   string
	format report.Format
	opts   report.Options
}

// write renders r to the configured file, or to stdout when no path is set.
func (w reportWriter) write(r *coreapp.Report, g *graph.ModuleGraph) error {
	opts := w.opts
	opts.GeneratedAt = r.StartedAt
	if w.path == "" {
		return report.Render(w.stdout, w.format, r, g, opts)
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, w.format, r, g, opts); err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(w.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", w.path, err)
	}
	slog.Info("report written", "path", w.path, "format", w.format)
	return nil
}

// loadConfig loads path, or the first discovered candidate below cwd when
// path is empty. Without any config file the defaults apply. A relative
// analysis.cwd is resolved against the config file's directory.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) == "" {
		for _, candidate := range configCandidates {
			p := filepath.Join(cwd, candidate)
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	var cfg *config.Config
	base := cwd
	if path == "" {
		cfg = config.Default()
		config.ApplyEnvOverrides(cfg)
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
		if abs, err := filepath.Abs(path); err == nil {
			base = filepath.Dir(abs)
		}
	}

	switch {
	case strings.TrimSpace(cfg.Analysis.Cwd) == "":
		cfg.Analysis.Cwd = base
	case !filepath.IsAbs(cfg.Analysis.Cwd):
		cfg.Analysis.Cwd = filepath.Join(base, cfg.Analysis.Cwd)
	}
	return cfg, path, nil
}

// applyModeOptions folds command line overrides into cfg and picks the run
// mode.
func applyModeOptions(opts *cliOptions, cfg *config.Config) (runMode, error) {
	if opts.once && (opts.watch || opts.ui) {
		return modeOnce, errors.New("-once cannot be combined with -watch or -ui")
	}
	if opts.ui && opts.outputPath != "" {
		return modeOnce, errors.New("-o cannot be combined with -ui")
	}

	if len(opts.args) > 0 {
		cfg.Analysis.Entries = append([]string(nil), opts.args...)
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.outputPath != "" {
		cfg.Output.Path = opts.outputPath
	}
	if opts.chain != "" {
		cfg.Analysis.ChainTarget = opts.chain
	}
	if opts.store {
		cfg.Store.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return modeOnce, err
	}
	if len(cfg.Analysis.Entries) == 0 {
		return modeOnce, errors.New("no entry points: pass them as arguments or set analysis.entries")
	}

	switch {
	case opts.ui:
		return modeUI, nil
	case opts.watch:
		return modeWatch, nil
	default:
		return modeOnce, nil
	}
}

// configureLogging installs the default slog logger. Logs go to stderr so
// stdout carries only reports; in UI mode they go to a state file instead.
func configureLogging(uiMode, verbose bool, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "modgraph", "modgraph.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "modgraph", "modgraph.log")
	}

	return "modgraph.log"
}
