package ingesting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Source column names after normalization. InvoiceNo and StockCode stay text
// even when every value looks numeric.
const (
	colInvoiceNo   = "INVOICENO"
	colStockCode   = "STOCKCODE"
	colDescription = "DESCRIPTION"
	colQuantity    = "QUANTITY"
	colInvoiceDate = "INVOICEDATE"
	colUnitPrice   = "UNITPRICE"
	colCustomerID  = "CUSTOMERID"
	colCountry     = "COUNTRY"
)

var requiredColumns = []string{
	colInvoiceNo, colStockCode, colDescription, colQuantity,
	colInvoiceDate, colUnitPrice, colCustomerID, colCountry,
}

// Timestamp layouts seen in retail spreadsheet exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/06 15:04",
	"01/02/2006 15:04",
	"02-01-2006 15:04",
}

// NormalizeColumnName upper-cases a header and replaces spaces with
// underscores for warehouse compatibility. Applying it twice is a no-op.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), " ", "_")
}

// ExtractFile reads the spreadsheet at path into header + data rows. The
// format is picked by extension: .xlsx through excelize, anything else as
// CSV.
func ExtractFile(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return extractXLSX(path)
	}
	return extractCSV(path)
}

func extractXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheets[0])
	}

	return rows, nil
}

func extractCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}

	return rows, nil
}

// CleanStats records what happened to the extracted rows.
type CleanStats struct {
	Extracted              int
	DroppedMissingCustomer int
	Remaining              int
}

// Clean maps raw spreadsheet rows onto transactions: normalizes headers,
// discards rows without a customer id, coerces the identifier and customer
// columns and derives the total price. A coercion failure on a present value
// is an error, not a drop.
func Clean(rows [][]string) ([]*domain.Transaction, *CleanStats, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no header row")
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, nil, err
	}

	stats := &CleanStats{Extracted: len(rows) - 1}
	transactions := make([]*domain.Transaction, 0, len(rows)-1)

	for i, row := range rows[1:] {
		t, dropped, err := parseRow(row, index)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "row %d", i+2)
		}
		if dropped {
			stats.DroppedMissingCustomer++
			continue
		}
		transactions = append(transactions, t)
	}

	stats.Remaining = len(transactions)
	return transactions, stats, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[NormalizeColumnName(name)] = i
	}

	for _, required := range requiredColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %s", required)
		}
	}

	return index, nil
}

func parseRow(row []string, index map[string]int) (*domain.Transaction, bool, error) {
	customerRaw := field(row, index[colCustomerID])
	if customerRaw == "" {
		// Customer-level analytics needs a customer key; rows without one are
		// discarded.
		return nil, true, nil
	}

	// The spreadsheet encodes customer ids as floats ("17850.0").
	customerFloat, err := strconv.ParseFloat(customerRaw, 64)
	if err != nil {
		return nil, false, fmt.Errorf("cannot cast customer id %q to integer: %w", customerRaw, err)
	}

	quantity, err := strconv.Atoi(field(row, index[colQuantity]))
	if err != nil {
		return nil, false, fmt.Errorf("cannot parse quantity %q: %w", field(row, index[colQuantity]), err)
	}

	unitPrice, err := strconv.ParseFloat(field(row, index[colUnitPrice]), 64)
	if err != nil {
		return nil, false, fmt.Errorf("cannot parse unit price %q: %w", field(row, index[colUnitPrice]), err)
	}

	timestamp, err := parseTimestamp(field(row, index[colInvoiceDate]))
	if err != nil {
		return nil, false, err
	}

	return &domain.Transaction{
		InvoiceNo:        field(row, index[colInvoiceNo]),
		StockCode:        field(row, index[colStockCode]),
		Description:      field(row, index[colDescription]),
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		InvoiceTimestamp: timestamp,
		CustomerID:       int(customerFloat),
		Country:          field(row, index[colCountry]),
		TotalPrice:       float64(quantity) * unitPrice,
	}, false, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse invoice timestamp %q", value)
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
