package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness. It never touches dependencies.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady checks each named dependency and reports per-dependency status.
// Any failing check turns the response into a 503 so load balancers stop
// routing traffic, but the body still names the broken dependency.
func HealthReady(deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "not configured"
				healthy = false
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+name, err)
				}
				checks[name] = "unavailable"
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": map[bool]string{true: "ready", false: "degraded"}[healthy],
			"checks": checks,
		})
	}
}
