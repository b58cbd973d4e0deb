package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/internal/scheduler"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingTrainer struct {
	block   chan struct{}
	started chan struct{}
}

func (b *blockingTrainer) Run(ctx context.Context) (*domain.ModelArtifact, error) {
	close(b.started)
	<-b.block
	return &domain.ModelArtifact{}, nil
}

func newRetrainService(trainer scheduler.Trainer) *scheduler.RetrainService {
	cfg := &config.Config{}
	cfg.Retrain.CronSchedule = "0 3 * * *"
	return scheduler.NewRetrainService(trainer, nil, cfg)
}

type instantTrainer struct{}

func (instantTrainer) Run(ctx context.Context) (*domain.ModelArtifact, error) {
	return &domain.ModelArtifact{}, nil
}

type contextCapturingTrainer struct {
	ctx      context.Context
	captured chan struct{}
	release  chan struct{}
}

func (c *contextCapturingTrainer) Run(ctx context.Context) (*domain.ModelArtifact, error) {
	c.ctx = ctx
	close(c.captured)
	<-c.release
	return &domain.ModelArtifact{}, ctx.Err()
}

func TestTriggerRetrainAccepted(t *testing.T) {
	log.SetupTestLogger()
	service := newRetrainService(instantTrainer{})

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/retrain", nil)
	rec := httptest.NewRecorder()
	TriggerRetrain(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "retrain started")
}

func TestTriggerRetrainOutlivesRequestContext(t *testing.T) {
	log.SetupTestLogger()
	trainer := &contextCapturingTrainer{
		captured: make(chan struct{}),
		release:  make(chan struct{}),
	}
	service := newRetrainService(trainer)

	// A real server cancels the request context as soon as the handler
	// returns; the background job must not inherit that cancellation.
	srv := httptest.NewServer(TriggerRetrain(service))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/jobs/retrain", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	<-trainer.captured
	assert.NoError(t, trainer.ctx.Err(), "retrain must keep running after the 202 response")

	close(trainer.release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		running, _, completedAt := service.Status()
		if !running && !completedAt.IsZero() {
			break
		}
		require.True(t, time.Now().Before(deadline), "retrain did not finish in time")
		time.Sleep(5 * time.Millisecond)
	}
	assert.NoError(t, trainer.ctx.Err())
}

func TestTriggerRetrainConflictWhileRunning(t *testing.T) {
	log.SetupTestLogger()
	trainer := &blockingTrainer{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	service := newRetrainService(trainer)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/retrain", nil)
	rec := httptest.NewRecorder()
	TriggerRetrain(service).ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	<-trainer.started

	rec = httptest.NewRecorder()
	TriggerRetrain(service).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/retrain", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "SRV_004")

	close(trainer.block)
}

func TestGetRetrainStatus(t *testing.T) {
	log.SetupTestLogger()
	service := newRetrainService(instantTrainer{})

	rec := httptest.NewRecorder()
	GetRetrainStatus(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/retrain/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status retrainStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
	assert.Nil(t, status.LastStartedAt)

	require.NoError(t, service.TriggerNow(context.Background()))
	deadline := time.Now().Add(2 * time.Second)
	for {
		running, startedAt, _ := service.Status()
		if !running && !startedAt.IsZero() {
			break
		}
		require.True(t, time.Now().Before(deadline), "retrain did not finish in time")
		time.Sleep(5 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	GetRetrainStatus(service).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/retrain/status", nil))

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.NotNil(t, status.LastStartedAt)
	assert.NotNil(t, status.LastCompletedAt)
}
