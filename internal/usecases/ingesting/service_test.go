package ingesting

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecominsights/retail-analytics-api/infrastructure/repository/mocks"
	"github.com/ecominsights/retail-analytics-api/internal/config"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const sampleCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850.0,United Kingdom
536366,71053,WHITE METAL LANTERN,6,2010-12-01 08:28:00,3.39,,United Kingdom
536367,84406B,CREAM CUPID HEARTS,8,2010-12-01 08:34:00,2.75,13047.0,France
`

func testConfig(filePath string) *config.Config {
	return &config.Config{
		Ingest: config.Ingest{
			FilePath: filePath,
			RawTable: "raw_retail_sales",
		},
	}
}

func TestRunLoadsCleanedRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().
		ReplaceAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, transactions []*domain.Transaction) error {
			// The row without a customer id never reaches the warehouse.
			require.Len(t, transactions, 2)
			assert.Equal(t, 17850, transactions[0].CustomerID)
			assert.Equal(t, 13047, transactions[1].CustomerID)
			return nil
		})

	service := NewService(testConfig(path), repo)
	assert.NoError(t, service.Run(context.Background()))
}

func TestRunMissingFileIsGraceful(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockTransactionRepository(ctrl)
	// No ReplaceAll expectation: nothing may be loaded.

	service := NewService(testConfig(filepath.Join(t.TempDir(), "nope.csv")), repo)
	assert.NoError(t, service.Run(context.Background()))
}

func TestRunAbortsOnLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	repo := mocks.NewMockTransactionRepository(ctrl)
	repo.EXPECT().
		ReplaceAll(gomock.Any(), gomock.Any()).
		Return(assert.AnError)

	service := NewService(testConfig(path), repo)
	assert.Error(t, service.Run(context.Background()))
}
