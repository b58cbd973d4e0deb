package domain

import "time"

// ModelArtifact is the serialized output of the training stage. It bundles
// the fitted model state and the series it was trained on, which is all the
// serve stage needs to forecast forward from the last observed date.
//
// There is no schema versioning: a stale artifact persists until the train
// job is run again.
type ModelArtifact struct {
	Order         [3]int             `json:"order"`
	SeasonalOrder [3]int             `json:"seasonal_order"`
	Period        int                `json:"period"`
	Coefficients  []float64          `json:"coefficients"`
	Series        DailyRevenueSeries `json:"series"`
	InSampleMAPE  float64            `json:"in_sample_mape"`
	AIC           float64            `json:"aic"`
	TrainedAt     time.Time          `json:"trained_at"`
}
