package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if report := s.app.LastReport(); report == nil {
		status.Components["graph"] = "not built"
	} else {
		status.Components["graph"] = fmt.Sprintf("ok (%d modules, run %s)", report.Statistics.ModuleCount, report.RunID)
	}

	switch {
	case s.app.persist:
		status.Components["store"] = "ok"
	case s.app.Config.Store.Enabled:
		status.Status = "degraded"
		status.Components["store"] = "missing but enabled in config"
	default:
		status.Components["store"] = "disabled"
	}

	if _, err := s.app.resolver.Cwd(); err != nil {
		status.Status = "degraded"
		status.Components["runtime"] = err.Error()
	} else {
		status.Components["runtime"] = "ok"
	}

	if err := ctx.Err(); err != nil {
		status.Status = "degraded"
	}
	return status
}

// ServeHTTP reports the health status as JSON; degraded maps to 503.
func (s *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := s.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
