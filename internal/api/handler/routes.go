package handler

import (
	"net/http"

	"github.com/ecominsights/retail-analytics-api/internal/api/handler/router"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/scheduler"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/dashboarding"
	"github.com/ecominsights/retail-analytics-api/internal/usecases/forecasting"
	"github.com/ecominsights/retail-analytics-api/pkg/middleware"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Forecasts(service forecasting.Forecaster) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/forecast",
			Method:  http.MethodGet,
			Handler: GetForecast(service),
		},
	}
}

func Dashboard(service dashboarding.Dashboarder) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/dashboard/summary",
			Method:  http.MethodGet,
			Handler: GetDashboardSummary(service),
		},
		{
			Path:    "/v1/dashboard/countries",
			Method:  http.MethodGet,
			Handler: GetDashboardCountries(service),
		},
	}
}

func Jobs(retrainService *scheduler.RetrainService, cfg *config.Config) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/jobs/retrain",
			Method:      http.MethodPost,
			Handler:     TriggerRetrain(retrainService),
			Middlewares: []func(http.Handler) http.Handler{middleware.OperatorToken(cfg.Auth.Secret)},
		},
		{
			Path:        "/v1/jobs/retrain/status",
			Method:      http.MethodGet,
			Handler:     GetRetrainStatus(retrainService),
			Middlewares: []func(http.Handler) http.Handler{middleware.OperatorToken(cfg.Auth.Secret)},
		},
	}
}

func Pages(forecastService forecasting.Forecaster, dashboardService dashboarding.Dashboarder, cfg *config.Config) []router.Route {
	return []router.Route{
		{
			Path:    "/",
			Method:  http.MethodGet,
			Handler: DashboardPage(forecastService, dashboardService, cfg),
		},
	}
}
