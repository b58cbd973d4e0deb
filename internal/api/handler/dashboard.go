package handler

import (
	"net/http"
	"strings"

	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/dashboarding"
	"github.com/ecominsights/retail-analytics-api/pkg/apiErrors"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/ecominsights/retail-analytics-api/pkg/utils"
)

// GetDashboardSummary answers GET /v1/dashboard/summary with the KPI and
// chart payload for the requested filters. countries is comma separated and
// empty means all; start_date and end_date are inclusive YYYY-MM-DD bounds.
func GetDashboardSummary(service dashboarding.Dashboarder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		startDate, err := utils.ParseDate(r.URL.Query().Get("start_date"))
		if err != nil {
			logger.WithFields(log.Fields{
				"start_date": r.URL.Query().Get("start_date"),
				"error":      err.Error(),
			}).Warn("dashboard: invalid start_date parameter")

			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "start_date must be YYYY-MM-DD", nil)
			return
		}

		endDate, err := utils.ParseDate(r.URL.Query().Get("end_date"))
		if err != nil {
			logger.WithFields(log.Fields{
				"end_date": r.URL.Query().Get("end_date"),
				"error":    err.Error(),
			}).Warn("dashboard: invalid end_date parameter")

			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "end_date must be YYYY-MM-DD", nil)
			return
		}

		if startDate != nil && endDate != nil && endDate.Before(*startDate) {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "end_date must not precede start_date", nil)
			return
		}

		filters := &domain.DashboardFilters{
			Countries: parseCountries(r.URL.Query().Get("countries")),
			StartDate: startDate,
			EndDate:   endDate,
		}

		summary, err := service.Summary(r.Context(), filters)
		if err != nil {
			logger.WithError(err).Error("dashboard: failed to compute summary")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "failed to query sales data", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			logger.WithError(err).Error("dashboard: failed to encode summary response")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// GetDashboardCountries answers GET /v1/dashboard/countries with the sorted
// country list for the filter control.
func GetDashboardCountries(service dashboarding.Dashboarder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		countries, err := service.Countries(r.Context())
		if err != nil {
			logger.WithError(err).Error("dashboard: failed to list countries")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "failed to query sales data", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(countries); err != nil {
			logger.WithError(err).Error("dashboard: failed to encode countries response")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func parseCountries(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	countries := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			countries = append(countries, trimmed)
		}
	}
	return countries
}
