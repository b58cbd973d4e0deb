package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/artifact"
	"github.com/ecominsights/retail-analytics-api/infrastructure/repository"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/internal/forecast"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/pkg/errors"
)

// Fixed SARIMA orders for daily revenue with weekly seasonality:
// (1,1,1)(1,1,0)[7]. Standard starting points, never searched.
const (
	orderP = 1
	orderD = 1
	orderQ = 1

	seasonalP = 1
	seasonalD = 1
	seasonalQ = 0

	seasonalPeriod = 7
)

// Service trains the revenue forecasting model from the cleaned warehouse
// table and persists the fitted artifact.
type Service struct {
	cfg   *config.Config
	repo  repository.TransactionRepository
	store *artifact.Store
}

func NewService(cfg *config.Config, repo repository.TransactionRepository, store *artifact.Store) *Service {
	return &Service{cfg: cfg, repo: repo, store: store}
}

// BuildDailySeries fetches the revenue observations, drops timestamps
// outside the plausible window and resamples to a gap-free daily series with
// zero-filled days.
func (s *Service) BuildDailySeries(ctx context.Context) (domain.DailyRevenueSeries, error) {
	observations, err := s.repo.GetRevenueObservations(ctx)
	if err != nil {
		return domain.DailyRevenueSeries{}, errors.Wrap(err, "failed to fetch revenue observations")
	}

	minDate, err := time.Parse(time.DateOnly, s.cfg.Train.MinDate)
	if err != nil {
		return domain.DailyRevenueSeries{}, errors.Wrap(err, "invalid TRAIN_MIN_DATE")
	}
	maxDate, err := time.Parse(time.DateOnly, s.cfg.Train.MaxDate)
	if err != nil {
		return domain.DailyRevenueSeries{}, errors.Wrap(err, "invalid TRAIN_MAX_DATE")
	}

	kept := filterPlausibleDates(observations, minDate, maxDate)

	log.L.WithFields(log.Fields{
		"fetched": len(observations),
		"kept":    len(kept),
	}).Info("train: filtered out-of-range timestamps")

	series, err := Resample(kept)
	if err != nil {
		return domain.DailyRevenueSeries{}, err
	}

	return series, nil
}

// Run trains the model and persists the artifact. Every failure past the
// credential check is fatal to the stage.
func (s *Service) Run(ctx context.Context) (*domain.ModelArtifact, error) {
	series, err := s.BuildDailySeries(ctx)
	if err != nil {
		return nil, err
	}

	log.L.WithFields(log.Fields{
		"days":  series.Len(),
		"start": series.Start.Format(time.DateOnly),
		"end":   series.End().Format(time.DateOnly),
	}).Info("train: fitting SARIMA model on daily revenue")

	model := forecast.New(orderP, orderD, orderQ, seasonalP, seasonalD, seasonalQ, seasonalPeriod)
	model.MaxIterations = s.cfg.Train.MaxIterations

	if err := model.Fit(series.Values); err != nil {
		return nil, errors.Wrap(err, "model fit failed")
	}

	log.L.Info("train: fit summary\n", model.Summary())

	// In-sample MAPE against the training data itself. This is an optimistic
	// fit metric, not a generalization estimate.
	mape := MeanAbsolutePercentageError(series.Values, model.FittedValues())

	log.L.WithFields(log.Fields{
		"in_sample_mape": fmt.Sprintf("%.4f", mape),
		"accuracy_pct":   fmt.Sprintf("%.2f", 100*(1-mape)),
	}).Info("train: in-sample fit metric")

	result := &domain.ModelArtifact{
		Order:         [3]int{orderP, orderD, orderQ},
		SeasonalOrder: [3]int{seasonalP, seasonalD, seasonalQ},
		Period:        seasonalPeriod,
		Coefficients:  model.Coefficients,
		Series:        series,
		InSampleMAPE:  mape,
		AIC:           model.AIC,
		TrainedAt:     time.Now().UTC(),
	}

	if err := s.store.Save(result); err != nil {
		return nil, errors.Wrap(err, "failed to persist model artifact")
	}

	log.L.WithField("path", s.store.Path()).Info("train: model artifact saved")

	return result, nil
}

func filterPlausibleDates(observations []domain.RevenueObservation, minDate, maxDate time.Time) []domain.RevenueObservation {
	kept := make([]domain.RevenueObservation, 0, len(observations))
	for _, o := range observations {
		if o.Timestamp.After(minDate) && o.Timestamp.Before(maxDate) {
			kept = append(kept, o)
		}
	}
	return kept
}

// Resample sums revenue per calendar day and fills every day between the
// first and last observation, gaps carrying an explicit zero. The model
// assumes a regular daily frequency.
func Resample(observations []domain.RevenueObservation) (domain.DailyRevenueSeries, error) {
	if len(observations) == 0 {
		return domain.DailyRevenueSeries{}, fmt.Errorf("no observations to resample")
	}

	perDay := make(map[time.Time]float64)
	var first, last time.Time
	for i, o := range observations {
		day := truncateToDay(o.Timestamp)
		perDay[day] += o.TotalPrice
		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}

	days := int(last.Sub(first).Hours()/24) + 1
	values := make([]float64, days)
	for i := 0; i < days; i++ {
		values[i] = perDay[first.AddDate(0, 0, i)]
	}

	return domain.DailyRevenueSeries{Start: first, Values: values}, nil
}

// MeanAbsolutePercentageError compares actuals with predictions, skipping
// zero-revenue days where the percentage is undefined.
func MeanAbsolutePercentageError(actual, predicted []float64) float64 {
	var sum float64
	var n int
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
