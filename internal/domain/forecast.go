package domain

import "time"

// ForecastPoint is a single projected day of revenue.
type ForecastPoint struct {
	Date             time.Time `json:"date"`
	PredictedRevenue float64   `json:"predicted_revenue"`
}

// ForecastResult is the answer to a forecast request: the projection plus the
// trailing window of history used for the chart overlay.
type ForecastResult struct {
	Horizon      int                 `json:"horizon"`
	LastObserved time.Time           `json:"last_observed"`
	TrainedAt    time.Time           `json:"trained_at"`
	InSampleMAPE float64             `json:"in_sample_mape"`
	Points       []ForecastPoint     `json:"points"`
	History      []DailyRevenuePoint `json:"history"`
	GeneratedAt  time.Time           `json:"generated_at"`
}
