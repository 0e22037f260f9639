package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mcastellanos/fotoescolar-backend/api/responses"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ShareRateLimit throttles gallery validation per token and per client IP.
// The per-token counter slows password guessing against one share; the IP
// counter slows sweeps across many tokens.
func ShareRateLimit(cfg config.ShareRateLimitConfig, store fixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.Window <= 0 || (cfg.TokenLimit <= 0 && cfg.IPLimit <= 0) {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cfg.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					allowed, count, err := store.FixedWindowAllow(ctx, "share:ip:"+ip, int64(cfg.IPLimit), cfg.Window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						denyShareRequest(ctx, logg, w, "ip", count, cfg.IPLimit)
						return
					}
				}
			}

			if cfg.TokenLimit > 0 {
				if token := chi.URLParam(r, "token"); token != "" {
					allowed, count, err := store.FixedWindowAllow(ctx, "share:token:"+token, int64(cfg.TokenLimit), cfg.Window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						denyShareRequest(ctx, logg, w, "token", count, cfg.TokenLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denyShareRequest(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, scope string, count int64, limit int) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":    scope,
			"attempts": count,
			"limit":    limit,
		})
		logg.Warn(logCtx, fmt.Sprintf("share access blocked by %s rate limit", scope))
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, slow down"))
}
