package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/ecominsights/retail-analytics-api/infrastructure/database/postgres"
	"github.com/ecominsights/retail-analytics-api/internal/domain"
	"github.com/lib/pq"
)

// TransactionRepository is the warehouse access used by the three stages:
// ingest overwrites the raw table, train and the dashboard read the cleaned
// table (whose construction is external to this service).
type TransactionRepository interface {
	ReplaceAll(ctx context.Context, transactions []*domain.Transaction) error
	GetCleanedTransactions(ctx context.Context) ([]*domain.Transaction, error)
	GetRevenueObservations(ctx context.Context) ([]domain.RevenueObservation, error)
}

type transactionRepository struct {
	conn         *postgres.Connection
	rawTable     string
	cleanedTable string
}

func NewTransactionRepository(conn *postgres.Connection, rawTable, cleanedTable string) TransactionRepository {
	return &transactionRepository{
		conn:         conn,
		rawTable:     rawTable,
		cleanedTable: cleanedTable,
	}
}

// ReplaceAll overwrites the raw table with the given rows in a single
// transaction: either the whole load lands or none of it does.
func (r *transactionRepository) ReplaceAll(ctx context.Context, transactions []*domain.Transaction) error {
	return r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", pq.QuoteIdentifier(r.rawTable))); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", r.rawTable, err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(r.rawTable,
			"invoiceno", "stockcode", "description", "quantity",
			"unitprice", "invoice_timestamp", "customerid", "country", "total_price",
		))
		if err != nil {
			return fmt.Errorf("failed to prepare bulk copy: %w", err)
		}
		defer stmt.Close()

		for _, t := range transactions {
			if _, err := stmt.ExecContext(ctx,
				t.InvoiceNo,
				t.StockCode,
				t.Description,
				t.Quantity,
				t.UnitPrice,
				t.InvoiceTimestamp,
				t.CustomerID,
				t.Country,
				t.TotalPrice,
			); err != nil {
				return fmt.Errorf("failed to buffer row for copy: %w", err)
			}
		}

		// Flush the copy buffer.
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to flush bulk copy: %w", err)
		}

		return nil
	})
}

// GetCleanedTransactions materializes the whole cleaned table. Dashboard
// filtering happens in memory over this result, mirroring how the views
// consume it.
func (r *transactionRepository) GetCleanedTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query, args, err := squirrel.
		Select("invoiceno", "stockcode", "description", "quantity",
			"unitprice", "invoice_timestamp", "customerid", "country", "total_price").
		From(r.cleanedTable).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cleaned transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		t := &domain.Transaction{}
		if err := rows.Scan(
			&t.InvoiceNo,
			&t.StockCode,
			&t.Description,
			&t.Quantity,
			&t.UnitPrice,
			&t.InvoiceTimestamp,
			&t.CustomerID,
			&t.Country,
			&t.TotalPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return transactions, nil
}

// GetRevenueObservations fetches the (timestamp, total price) pairs the
// training stage resamples into a daily series.
func (r *transactionRepository) GetRevenueObservations(ctx context.Context) ([]domain.RevenueObservation, error) {
	query, args, err := squirrel.
		Select("invoice_timestamp", "total_price").
		From(r.cleanedTable).
		OrderBy("invoice_timestamp ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue observations: %w", err)
	}
	defer rows.Close()

	observations := make([]domain.RevenueObservation, 0)
	for rows.Next() {
		var o domain.RevenueObservation
		if err := rows.Scan(&o.Timestamp, &o.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan revenue observation: %w", err)
		}
		observations = append(observations, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return observations, nil
}
