package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anvayaclinic/clinicstock-backend/api/responses"
	"github.com/anvayaclinic/clinicstock-backend/pkg/config"
	"github.com/anvayaclinic/clinicstock-backend/pkg/db"
	pkgerrors "github.com/anvayaclinic/clinicstock-backend/pkg/errors"
	"github.com/anvayaclinic/clinicstock-backend/pkg/logger"
	"github.com/anvayaclinic/clinicstock-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-ClinicStock-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API can reach its backing services.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClinicStock-Env", cfg.App.Env)

		checks := []struct {
			name   string
			pinger interface {
				Ping(context.Context) error
			}
		}{
			{"database", dbP},
			{"redis", redisP},
		}

		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s unavailable", check.name)))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
