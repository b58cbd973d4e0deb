package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrRetrainAlreadyRunning is returned when a retrain is requested while a
// previous run has not finished yet.
var ErrRetrainAlreadyRunning = errors.New("a retrain job is already running")

// Trainer rebuilds the forecast model from the warehouse.
type Trainer interface {
	Run(ctx context.Context) (*domain.ModelArtifact, error)
}

// ModelReloader is notified after a retrain so the serving layer picks up the
// fresh artifact.
type ModelReloader interface {
	Invalidate()
}

// RetrainConfig holds the scheduling knobs for the periodic retrain job.
type RetrainConfig struct {
	CronSchedule string
	Enabled      bool
}

// RetrainService schedules and executes model retraining. Overlapping runs
// are skipped; the previous artifact keeps serving until a run succeeds.
type RetrainService struct {
	scheduler *gocron.Scheduler
	config    RetrainConfig
	trainer   Trainer
	reloader  ModelReloader

	runMutex           sync.Mutex
	running            bool
	lastRunStartedAt   time.Time
	lastRunCompletedAt time.Time
}

func NewRetrainService(trainer Trainer, reloader ModelReloader, appConfig *config.Config) *RetrainService {
	retrainConfig := RetrainConfig{
		CronSchedule: appConfig.Retrain.CronSchedule,
		Enabled:      appConfig.Retrain.Enabled,
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": retrainConfig.CronSchedule,
		"enabled":       retrainConfig.Enabled,
	}).Info("Retrain scheduler configuration loaded")

	return &RetrainService{
		scheduler: gocron.NewScheduler(time.UTC),
		config:    retrainConfig,
		trainer:   trainer,
		reloader:  reloader,
	}
}

// Start registers the cron job and runs the scheduler until the context is
// cancelled. When retraining is disabled the model stays as trained by the
// last manual run.
func (s *RetrainService) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Info("Periodic retraining disabled by configuration")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Starting retrain scheduler")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.runRetrain(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retrain job: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Stopping retrain scheduler")
		s.scheduler.Stop()
	}()

	return nil
}

// TriggerNow runs a retrain outside the schedule, for the operator endpoint.
// Returns ErrRetrainAlreadyRunning when a run is in flight. The job outlives
// the caller's request, so it runs on a context detached from cancellation.
func (s *RetrainService) TriggerNow(ctx context.Context) error {
	s.runMutex.Lock()
	if s.running {
		s.runMutex.Unlock()
		return ErrRetrainAlreadyRunning
	}
	s.runMutex.Unlock()

	go s.runRetrain(context.WithoutCancel(ctx))
	return nil
}

// Status reports whether a run is in flight and the last run timestamps.
func (s *RetrainService) Status() (running bool, startedAt, completedAt time.Time) {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	return s.running, s.lastRunStartedAt, s.lastRunCompletedAt
}

func (s *RetrainService) runRetrain(ctx context.Context) {
	s.runMutex.Lock()
	if s.running {
		s.runMutex.Unlock()
		logrus.Info("Retrain already in progress, skipping")
		return
	}
	s.running = true
	s.lastRunStartedAt = time.Now()
	s.runMutex.Unlock()

	defer func() {
		s.runMutex.Lock()
		s.running = false
		s.lastRunCompletedAt = time.Now()
		s.runMutex.Unlock()
	}()

	logrus.Info("Starting model retrain")
	startTime := time.Now()

	a, err := s.trainer.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Model retrain failed, previous artifact remains in use")
		return
	}

	if s.reloader != nil {
		s.reloader.Invalidate()
	}

	logrus.WithFields(logrus.Fields{
		"duration":       time.Since(startTime).String(),
		"in_sample_mape": a.InSampleMAPE,
		"trained_days":   a.Series.Len(),
	}).Info("Model retrain completed")
}
