package handler

import (
	"net/http"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/scheduler"
	"github.com/ecominsights/retail-analytics-api/pkg/apiErrors"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
)

type retrainStatusResponse struct {
	Running         bool       `json:"running"`
	LastStartedAt   *time.Time `json:"last_started_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// TriggerRetrain starts a model retrain outside the cron schedule. At most
// one retrain runs at a time; a second request gets a conflict.
func TriggerRetrain(service *scheduler.RetrainService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())
		logger.Info("jobs: manual retrain requested")

		if err := service.TriggerNow(r.Context()); err != nil {
			if err == scheduler.ErrRetrainAlreadyRunning {
				apiErrors.WriteError(w, apiErrors.ErrJobAlreadyRunning, "a retrain job is already running", nil)
				return
			}

			logger.WithError(err).Error("jobs: failed to trigger retrain")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "failed to trigger retrain", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "retrain started"}); err != nil {
			logger.WithError(err).Error("jobs: failed to encode response")
		}
	})
}

// GetRetrainStatus reports whether a retrain is in flight and when the last
// run started and finished.
func GetRetrainStatus(service *scheduler.RetrainService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		running, startedAt, completedAt := service.Status()

		response := retrainStatusResponse{Running: running}
		if !startedAt.IsZero() {
			response.LastStartedAt = &startedAt
		}
		if !completedAt.IsZero() {
			response.LastCompletedAt = &completedAt
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.WithError(err).Error("jobs: failed to encode status response")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
