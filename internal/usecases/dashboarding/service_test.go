package dashboarding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ecominsights/retail-analytics-api/infrastructure/repository/mocks"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/ecominsights/retail-analytics-api/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dashboard.CacheTTLSeconds = 600
	return cfg
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(invoice, country, description string, customer int, total float64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		InvoiceNo:        invoice,
		StockCode:        "SKU-" + invoice,
		Description:      description,
		Quantity:         1,
		UnitPrice:        total,
		InvoiceTimestamp: at,
		CustomerID:       customer,
		Country:          country,
		TotalPrice:       total,
	}
}

func sampleTransactions() []*domain.Transaction {
	return []*domain.Transaction{
		tx("536365", "United Kingdom", "WHITE HANGING HEART T-LIGHT HOLDER", 17850, 100, time.Date(2011, time.March, 7, 8, 26, 0, 0, time.UTC)),
		tx("536365", "United Kingdom", "WHITE METAL LANTERN", 17850, 50, time.Date(2011, time.March, 7, 8, 26, 0, 0, time.UTC)),
		tx("536366", "France", "WHITE HANGING HEART T-LIGHT HOLDER", 12583, 200, time.Date(2011, time.March, 9, 10, 0, 0, 0, time.UTC)),
		tx("536367", "Germany", "RED WOOLLY HOTTIE", 12472, 80, time.Date(2011, time.March, 14, 12, 30, 0, 0, time.UTC)),
		tx("536368", "France", "RED WOOLLY HOTTIE", 12583, 40, time.Date(2011, time.March, 20, 23, 59, 0, 0, time.UTC)),
	}
}

func newTestService(t *testing.T, transactions []*domain.Transaction, calls int) *Service {
	t.Helper()
	log.SetupTestLogger()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().GetCleanedTransactions(gomock.Any()).Return(transactions, nil).Times(calls)

	return NewService(testConfig(), repo)
}

func TestSummaryWithoutFilters(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	summary, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 470.0, summary.TotalRevenue)
	assert.Equal(t, 4, summary.TotalOrders, "same invoice counted once")
	assert.Equal(t, 3, summary.UniqueCustomers)
}

func TestSummaryRevenueByCountrySortedDescending(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	summary, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, summary.RevenueByCountry, 3)
	assert.Equal(t, domain.CountryRevenue{Country: "France", Revenue: 240}, summary.RevenueByCountry[0])
	assert.Equal(t, domain.CountryRevenue{Country: "United Kingdom", Revenue: 150}, summary.RevenueByCountry[1])
	assert.Equal(t, domain.CountryRevenue{Country: "Germany", Revenue: 80}, summary.RevenueByCountry[2])
}

func TestSummaryWeeklyBucketsStartOnMonday(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	summary, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, summary.WeeklyRevenue, 2)
	assert.Equal(t, day(2011, time.March, 7), summary.WeeklyRevenue[0].WeekStart)
	assert.Equal(t, 350.0, summary.WeeklyRevenue[0].Revenue)
	assert.Equal(t, day(2011, time.March, 14), summary.WeeklyRevenue[1].WeekStart)
	assert.Equal(t, 120.0, summary.WeeklyRevenue[1].Revenue)

	for _, w := range summary.WeeklyRevenue {
		assert.Equal(t, time.Monday, w.WeekStart.Weekday())
	}
}

func TestSummaryCountryFilter(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	summary, err := svc.Summary(context.Background(), &domain.DashboardFilters{
		Countries: []string{"France"},
	})
	require.NoError(t, err)

	assert.Equal(t, 240.0, summary.TotalRevenue)
	assert.Equal(t, 2, summary.TotalOrders)
	assert.Equal(t, 1, summary.UniqueCustomers)
	require.Len(t, summary.RevenueByCountry, 1)
	assert.Equal(t, "France", summary.RevenueByCountry[0].Country)
}

func TestSummaryDateRangeEndpointsAreInclusive(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	start := day(2011, time.March, 9)
	end := day(2011, time.March, 20)
	summary, err := svc.Summary(context.Background(), &domain.DashboardFilters{
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)

	// March 9, 14 and the 23:59 transaction on March 20 are all in range.
	assert.Equal(t, 320.0, summary.TotalRevenue)
	assert.Equal(t, 3, summary.TotalOrders)
}

func TestSummaryTopProductsLimitedToTen(t *testing.T) {
	transactions := make([]*domain.Transaction, 0, 15)
	for i := 0; i < 15; i++ {
		transactions = append(transactions, tx(
			fmt.Sprintf("54%04d", i),
			"United Kingdom",
			fmt.Sprintf("PRODUCT %02d", i),
			17850,
			float64(100+i),
			time.Date(2011, time.June, 1, 10, 0, 0, 0, time.UTC),
		))
	}
	svc := newTestService(t, transactions, 1)

	summary, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, summary.TopProducts, 10)
	assert.Equal(t, "PRODUCT 14", summary.TopProducts[0].Description)
	assert.Equal(t, 114.0, summary.TopProducts[0].Revenue)
	for i := 1; i < len(summary.TopProducts); i++ {
		assert.GreaterOrEqual(t, summary.TopProducts[i-1].Revenue, summary.TopProducts[i].Revenue)
	}
}

func TestSummaryCachesPerFilterSelection(t *testing.T) {
	// Two distinct filter selections, each queried twice: the warehouse is
	// hit exactly once per selection.
	svc := newTestService(t, sampleTransactions(), 2)

	ctx := context.Background()
	_, err := svc.Summary(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Summary(ctx, nil)
	require.NoError(t, err)

	filters := &domain.DashboardFilters{Countries: []string{"France"}}
	_, err = svc.Summary(ctx, filters)
	require.NoError(t, err)
	_, err = svc.Summary(ctx, filters)
	require.NoError(t, err)
}

func TestFlushDropsCachedResults(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 2)

	ctx := context.Background()
	_, err := svc.Summary(ctx, nil)
	require.NoError(t, err)

	svc.Flush()

	_, err = svc.Summary(ctx, nil)
	require.NoError(t, err)
}

func TestCountriesSortedAndCached(t *testing.T) {
	svc := newTestService(t, sampleTransactions(), 1)

	ctx := context.Background()
	countries, err := svc.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "Germany", "United Kingdom"}, countries)

	again, err := svc.Countries(ctx)
	require.NoError(t, err)
	assert.Equal(t, countries, again)
}

func TestSummaryPropagatesWarehouseFailure(t *testing.T) {
	log.SetupTestLogger()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().GetCleanedTransactions(gomock.Any()).Return(nil, assert.AnError)

	svc := NewService(testConfig(), repo)

	_, err := svc.Summary(context.Background(), nil)
	assert.ErrorContains(t, err, "failed to load transactions")
}
