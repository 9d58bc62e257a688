package controllers

import (
	"context"
	"net/http"

	"github.com/isokofarm/isoko-backend/api/responses"
	"github.com/isokofarm/isoko-backend/pkg/config"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
)

const envHeader = "X-Isoko-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every hard dependency before reporting ready. A nil
// pinger is treated as not wired for this process and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").
						WithDetails(map[string]any{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// Readiness builds the dependency map for HealthReady, skipping nil entries.
func Readiness() map[string]pinger {
	return map[string]pinger{}
}

// WithDependency registers a named dependency pinger.
func WithDependency(deps map[string]pinger, name string, dep pinger) map[string]pinger {
	if deps == nil {
		deps = map[string]pinger{}
	}
	deps[name] = dep
	return deps
}
