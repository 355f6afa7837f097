package app

import (
	"context"
	"fmt"
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

	cfg, modelParser, _, _ := s.app.current()
	if modelParser != nil {
		status.Components["parser"] = fmt.Sprintf("ok (codegen=%s)", cfg.Parser.Codegen)
	} else {
		status.Status = "degraded"
		status.Components["parser"] = "missing"
	}

	files, models := s.app.registry.Counts()
	status.Components["registry"] = fmt.Sprintf("ok (%d files, %d models)", files, models)

	if s.app.index != nil {
		status.Components["store"] = "ok"
	} else if cfg.Store.Enabled {
		status.Status = "degraded"
		status.Components["store"] = "missing but enabled in config"
	}

	if s.app.activeWatcher != nil {
		status.Components["watcher"] = "running"
	}
	return status
}
