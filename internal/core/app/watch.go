package app

import (
	"context"

	"modgraph/internal/core/watcher"
	"modgraph/internal/shared/util"
)

// watchExcludeDirs are never registered with the file watcher.
var watchExcludeDirs = []string{"node_modules", ".git", "dist", "build", "coverage"}

// Watch runs an initial analysis and then reruns on debounced module
// changes below the working directory until ctx is done. Reruns are
// throttled by the configured token bucket. onResult receives every
// outcome, failures included.
func (a *App) Watch(ctx context.Context, onResult func(*Report, error)) error {
	cwd, err := a.resolver.Cwd()
	if err != nil {
		return err
	}
	limiter := util.NewLimiter(a.Config.Watch.RateLimit, a.Config.Watch.Burst)

	onResult(a.Run(ctx))

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, watchExcludeDirs, nil, func(paths []string) {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		a.logger.Info("changes detected, re-running analysis", "files", len(paths))
		a.resolver.ClearCache()
		onResult(a.Run(ctx))
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{cwd}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
