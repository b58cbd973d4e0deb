package handler

import (
	"net/http"
	"strconv"

	"github.com/ecominsights/retail-analytics-api/internal/usecases/forecasting"
	"github.com/ecominsights/retail-analytics-api/pkg/apiErrors"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetForecast answers GET /v1/forecast?horizon=N. Out-of-range horizons are
// clamped to the configured window; non-numeric values are rejected.
func GetForecast(service forecasting.Forecaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		horizon := 0
		if raw := r.URL.Query().Get("horizon"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				logger.WithFields(log.Fields{
					"horizon": raw,
					"error":   err.Error(),
				}).Warn("forecast: invalid horizon parameter")

				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "horizon must be an integer", nil)
				return
			}
			horizon = parsed
		}

		result, err := service.Forecast(r.Context(), horizon)
		if err != nil {
			if err == forecasting.ErrModelUnavailable {
				logger.Warn("forecast: no model artifact available")
				apiErrors.WriteError(w, apiErrors.ErrModelUnavailable, "no trained model is available, run the train stage first", nil)
				return
			}

			logger.WithError(err).Error("forecast: failed to generate projection")
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "failed to generate forecast", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.WithError(err).Error("forecast: failed to encode response")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
