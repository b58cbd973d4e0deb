package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboarder struct {
	summary    *domain.DashboardSummary
	countries  []string
	err        error
	gotFilters *domain.DashboardFilters
}

func (s *stubDashboarder) Summary(ctx context.Context, filters *domain.DashboardFilters) (*domain.DashboardSummary, error) {
	s.gotFilters = filters
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func (s *stubDashboarder) Countries(ctx context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.countries, nil
}

func summaryFixture() *domain.DashboardSummary {
	return &domain.DashboardSummary{
		TotalRevenue:    9747747.93,
		TotalOrders:     18532,
		UniqueCustomers: 4372,
		RevenueByCountry: []domain.CountryRevenue{
			{Country: "United Kingdom", Revenue: 8187806.36},
			{Country: "Netherlands", Revenue: 284661.54},
		},
		WeeklyRevenue: []domain.WeeklyRevenue{
			{WeekStart: time.Date(2011, time.November, 28, 0, 0, 0, 0, time.UTC), Revenue: 321000.12},
		},
		TopProducts: []domain.ProductRevenue{
			{Description: "REGENCY CAKESTAND 3 TIER", Revenue: 164762.19},
		},
	}
}

func TestGetDashboardSummaryParsesFilters(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{summary: summaryFixture()}

	req := httptest.NewRequest(http.MethodGet,
		"/v1/dashboard/summary?countries=France,Germany&start_date=2011-01-01&end_date=2011-06-30", nil)
	rec := httptest.NewRecorder()
	GetDashboardSummary(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, service.gotFilters)
	assert.Equal(t, []string{"France", "Germany"}, service.gotFilters.Countries)
	require.NotNil(t, service.gotFilters.StartDate)
	require.NotNil(t, service.gotFilters.EndDate)
	assert.Equal(t, "2011-01-01", service.gotFilters.StartDate.Format(time.DateOnly))
	assert.Equal(t, "2011-06-30", service.gotFilters.EndDate.Format(time.DateOnly))

	var body domain.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 18532, body.TotalOrders)
	assert.Equal(t, 4372, body.UniqueCustomers)
}

func TestGetDashboardSummaryWithoutFilters(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{summary: summaryFixture()}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	GetDashboardSummary(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.gotFilters)
	assert.Empty(t, service.gotFilters.Countries)
	assert.Nil(t, service.gotFilters.StartDate)
	assert.Nil(t, service.gotFilters.EndDate)
}

func TestGetDashboardSummaryRejectsMalformedDate(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{summary: summaryFixture()}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/summary?start_date=01-01-2011", nil)
	rec := httptest.NewRecorder()
	GetDashboardSummary(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL_002")
	assert.Nil(t, service.gotFilters, "service must not be called")
}

func TestGetDashboardSummaryRejectsInvertedRange(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{summary: summaryFixture()}

	req := httptest.NewRequest(http.MethodGet,
		"/v1/dashboard/summary?start_date=2011-06-30&end_date=2011-01-01", nil)
	rec := httptest.NewRecorder()
	GetDashboardSummary(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL_001")
}

func TestGetDashboardSummaryReportsWarehouseFailure(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{err: assert.AnError}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	GetDashboardSummary(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SRV_002")
}

func TestGetDashboardCountries(t *testing.T) {
	log.SetupTestLogger()
	service := &stubDashboarder{countries: []string{"France", "Germany", "United Kingdom"}}

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/countries", nil)
	rec := httptest.NewRecorder()
	GetDashboardCountries(service).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var countries []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &countries))
	assert.Equal(t, []string{"France", "Germany", "United Kingdom"}, countries)
}

func TestParseCountries(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "France", []string{"France"}},
		{"multiple with spaces", "France, United Kingdom ,Germany", []string{"France", "United Kingdom", "Germany"}},
		{"trailing comma", "France,", []string{"France"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseCountries(tt.raw))
		})
	}
}
