package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modgraph_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source_type"})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modgraph_parse_failures_total",
		Help: "Total number of files whose parse failed and was recovered with side effects assumed.",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modgraph_resolutions_total",
		Help: "Total number of import specifiers resolved, by outcome.",
	}, []string{"outcome"})

	ResolverCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modgraph_resolver_cache_hits_total",
		Help: "Total number of resolutions served from the resolver cache.",
	})

	WalkedModulesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modgraph_walked_modules_total",
		Help: "Total number of modules visited by graph walks.",
	})

	GraphModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_graph_modules",
		Help: "Number of modules in the most recently built graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_graph_edges",
		Help: "Number of dependency edges in the most recently built graph.",
	})

	UnusedExports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_unused_exports",
		Help: "Number of unused exports found by the most recent analysis.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modgraph_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// ObserveTask records the elapsed time since start under the given task label.
func ObserveTask(task string, start time.Time) {
	AnalysisDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
}

// ObserveParse records a parse of the given source type started at start.
func ObserveParse(sourceType string, start time.Time) {
	ParsingDuration.WithLabelValues(sourceType).Observe(time.Since(start).Seconds())
}

// Route is an extra handler mounted next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// ServeMetrics exposes the default registry on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, routes ...Route) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
