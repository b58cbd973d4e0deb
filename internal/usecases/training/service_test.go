package training

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/artifact"
	"github.com/ecominsights/retail-analytics-api/infrastructure/repository/mocks"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func TestResampleFillsGapsWithZero(t *testing.T) {
	observations := []domain.RevenueObservation{
		{Timestamp: time.Date(2011, 3, 1, 10, 30, 0, 0, time.UTC), TotalPrice: 100},
		{Timestamp: time.Date(2011, 3, 1, 16, 0, 0, 0, time.UTC), TotalPrice: 50},
		{Timestamp: time.Date(2011, 3, 3, 9, 0, 0, 0, time.UTC), TotalPrice: 75},
	}

	series, err := Resample(observations)
	require.NoError(t, err)

	// Day 2 has no transactions but must exist, with value zero.
	assert.Equal(t, day(2011, 3, 1), series.Start)
	require.Equal(t, 3, series.Len())
	assert.InDelta(t, 150, series.Values[0], 1e-9)
	assert.InDelta(t, 0, series.Values[1], 1e-9)
	assert.InDelta(t, 75, series.Values[2], 1e-9)
}

func TestResampleCoversEveryCalendarDay(t *testing.T) {
	observations := []domain.RevenueObservation{
		{Timestamp: day(2011, 1, 1), TotalPrice: 10},
		{Timestamp: day(2011, 2, 15), TotalPrice: 20},
	}

	series, err := Resample(observations)
	require.NoError(t, err)

	assert.Equal(t, 46, series.Len())
	assert.Equal(t, day(2011, 2, 15), series.End())

	var zeros int
	for _, v := range series.Values {
		if v == 0 {
			zeros++
		}
	}
	assert.Equal(t, 44, zeros)
}

func TestResampleEmptyInput(t *testing.T) {
	_, err := Resample(nil)
	assert.Error(t, err)
}

func TestFilterPlausibleDatesIsExclusive(t *testing.T) {
	minDate := day(2009, 1, 1)
	maxDate := day(2013, 1, 1)

	observations := []domain.RevenueObservation{
		{Timestamp: day(1970, 1, 1), TotalPrice: 1},
		{Timestamp: day(2009, 1, 1), TotalPrice: 2},
		{Timestamp: day(2010, 6, 15), TotalPrice: 3},
		{Timestamp: day(2013, 1, 1), TotalPrice: 4},
		{Timestamp: day(2099, 1, 1), TotalPrice: 5},
	}

	kept := filterPlausibleDates(observations, minDate, maxDate)
	require.Len(t, kept, 1)
	assert.InDelta(t, 3, kept[0].TotalPrice, 1e-9)
}

func TestMeanAbsolutePercentageError(t *testing.T) {
	actual := []float64{100, 200, 0, 50}
	predicted := []float64{110, 180, 5, 50}

	// Zero-revenue days are skipped: (0.1 + 0.1 + 0) / 3.
	mape := MeanAbsolutePercentageError(actual, predicted)
	assert.InDelta(t, 0.2/3, mape, 1e-9)
}

func trainingConfig(modelPath string) *config.Config {
	return &config.Config{
		Train: config.Train{
			CleanedTable:  "sales_cleaned",
			ModelPath:     modelPath,
			MinDate:       "2009-01-01",
			MaxDate:       "2013-01-01",
			MaxIterations: 25,
		},
	}
}

func syntheticObservations(days int) []domain.RevenueObservation {
	rng := rand.New(rand.NewSource(7))
	weekly := []float64{900, 700, 750, 800, 850, 1200, 400}

	observations := make([]domain.RevenueObservation, 0, days)
	start := day(2011, 1, 3)
	for i := 0; i < days; i++ {
		observations = append(observations, domain.RevenueObservation{
			Timestamp:  start.AddDate(0, 0, i).Add(13 * time.Hour),
			TotalPrice: weekly[i%7] + rng.NormFloat64()*30,
		})
	}
	return observations
}

func TestRunTrainsAndPersistsArtifact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().
		GetRevenueObservations(gomock.Any()).
		Return(syntheticObservations(240), nil)

	modelPath := filepath.Join(t.TempDir(), "sarima_model.json")
	store := artifact.NewStore(modelPath)

	service := NewService(trainingConfig(modelPath), repo, store)

	result, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [3]int{1, 1, 1}, result.Order)
	assert.Equal(t, [3]int{1, 1, 0}, result.SeasonalOrder)
	assert.Equal(t, 7, result.Period)
	assert.NotEmpty(t, result.Coefficients)
	assert.Equal(t, 240, result.Series.Len())
	// A strongly seasonal synthetic series should fit well in-sample.
	assert.Less(t, result.InSampleMAPE, 0.25)

	// The artifact must be readable back from disk.
	_, err = os.Stat(modelPath)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, result.Period, loaded.Period)
	assert.InDelta(t, result.InSampleMAPE, loaded.InSampleMAPE, 1e-12)
	assert.Equal(t, result.Series.Len(), loaded.Series.Len())
}

func TestRunFailsWhenWarehouseUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().
		GetRevenueObservations(gomock.Any()).
		Return(nil, assert.AnError)

	store := artifact.NewStore(filepath.Join(t.TempDir(), "sarima_model.json"))
	service := NewService(trainingConfig(store.Path()), repo, store)

	_, err := service.Run(context.Background())
	assert.Error(t, err)
}
