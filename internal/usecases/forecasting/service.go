package forecasting

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/artifact"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/internal/forecast"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/pkg/errors"
)

// ErrModelUnavailable is returned when the artifact is missing or unreadable;
// the forecast view degrades with a warning instead of failing the process.
var ErrModelUnavailable = errors.New("forecast model artifact is not available")

// Forecaster produces revenue forecasts from the persisted model artifact.
type Forecaster interface {
	Forecast(ctx context.Context, horizon int) (*domain.ForecastResult, error)
	Available() bool
	ClampHorizon(horizon int) int
	Invalidate()
}

// Service loads the artifact lazily and keeps the restored model for the
// process lifetime; every interaction reuses the same model, mirroring a
// load-once resource cache.
type Service struct {
	cfg   *config.Config
	store *artifact.Store

	mu      sync.Mutex
	loaded  bool
	model   *forecast.Model
	current *domain.ModelArtifact
	loadErr error
}

func NewService(cfg *config.Config, store *artifact.Store) *Service {
	return &Service{cfg: cfg, store: store}
}

func (s *Service) load() (*forecast.Model, *domain.ModelArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.model, s.current, s.loadErr
	}
	s.loaded = true

	a, err := s.store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			log.L.WithField("path", s.store.Path()).Warn("forecast: model artifact not found, run the train stage first")
		} else {
			log.L.WithError(err).Error("forecast: failed to load model artifact")
		}
		s.loadErr = ErrModelUnavailable
		return nil, nil, s.loadErr
	}

	model, err := forecast.Restore(
		a.Order[0], a.Order[1], a.Order[2],
		a.SeasonalOrder[0], a.SeasonalOrder[1], a.SeasonalOrder[2],
		a.Period,
		a.Coefficients,
		a.Series.Values,
	)
	if err != nil {
		log.L.WithError(err).Error("forecast: failed to restore model from artifact")
		s.loadErr = ErrModelUnavailable
		return nil, nil, s.loadErr
	}

	log.L.WithFields(log.Fields{
		"trained_at":     a.TrainedAt,
		"days":           a.Series.Len(),
		"in_sample_mape": a.InSampleMAPE,
	}).Info("forecast: model artifact loaded")

	s.model = model
	s.current = a
	return s.model, s.current, nil
}

// Available reports whether the model can serve forecasts.
func (s *Service) Available() bool {
	_, _, err := s.load()
	return err == nil
}

// Invalidate drops the cached model so the next request reloads the artifact
// from disk. Called after a retrain produces a fresh file.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.model = nil
	s.current = nil
	s.loadErr = nil
}

// ClampHorizon bounds the requested horizon to the configured window. The UI
// slider cannot produce out-of-range values; API callers get clamped instead
// of rejected.
func (s *Service) ClampHorizon(horizon int) int {
	if horizon == 0 {
		return s.cfg.Dashboard.DefaultHorizon
	}
	if horizon < s.cfg.Dashboard.MinHorizon {
		return s.cfg.Dashboard.MinHorizon
	}
	if horizon > s.cfg.Dashboard.MaxHorizon {
		return s.cfg.Dashboard.MaxHorizon
	}
	return horizon
}

// Forecast projects daily revenue for the clamped horizon past the last
// training date, bundling the trailing history window for the chart overlay.
func (s *Service) Forecast(ctx context.Context, horizon int) (*domain.ForecastResult, error) {
	model, a, err := s.load()
	if err != nil {
		return nil, err
	}

	horizon = s.ClampHorizon(horizon)

	values, err := model.Predict(horizon)
	if err != nil {
		return nil, errors.Wrap(err, "forecast failed")
	}

	lastObserved := a.Series.End()
	points := make([]domain.ForecastPoint, 0, horizon)
	for i, v := range values {
		points = append(points, domain.ForecastPoint{
			Date:             lastObserved.AddDate(0, 0, i+1),
			PredictedRevenue: v,
		})
	}

	log.ForContext(ctx).WithFields(log.Fields{
		"horizon":       horizon,
		"last_observed": lastObserved.Format(time.DateOnly),
	}).Info("forecast: generated projection")

	return &domain.ForecastResult{
		Horizon:      horizon,
		LastObserved: lastObserved,
		TrainedAt:    a.TrainedAt,
		InSampleMAPE: a.InSampleMAPE,
		Points:       points,
		History:      a.Series.Tail(s.cfg.Dashboard.HistoryOverlayDays),
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
