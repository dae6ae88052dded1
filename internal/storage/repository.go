package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/spimexfeed/internal/domain/models"
)

// Repository defines the contract for persisting and querying trade records.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Persist(ctx context.Context, records []models.TradeRecord) (int, error)
	LatestDate(ctx context.Context) (*time.Time, error)
	LatestDates(ctx context.Context, limit int) ([]time.Time, error)
	TradingResults(ctx context.Context, f ResultsFilter) ([]models.TradeRecord, error)
	Dynamics(ctx context.Context, f DynamicsFilter) ([]models.TradeRecord, error)
}

// ResultsFilter narrows the "latest results" query. Zero-valued fields are
// ignored; without a date the query returns the most recent records first.
type ResultsFilter struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Date            *time.Time
	Limit           int
}

// DynamicsFilter narrows the date-range "dynamics" query. StartDate and
// EndDate are required; the rest are optional.
type DynamicsFilter struct {
	StartDate       time.Time
	EndDate         time.Time
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Limit           int // 0 = no limit
}

type repository struct {
	db *sql.DB
}

// NewRepository wraps an open Postgres handle.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const recordColumns = `id, exchange_product_id, exchange_product_name, oil_id,
	delivery_basis_id, delivery_basis_name, delivery_type_id,
	volume, total, count, date, created_at, updated_at`

// EnsureSchema creates the results table and its natural-key index if absent.
func (r *repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS spimex_trading_results (
			id                    BIGSERIAL PRIMARY KEY,
			exchange_product_id   TEXT        NOT NULL,
			exchange_product_name TEXT        NOT NULL,
			oil_id                TEXT        NOT NULL,
			delivery_basis_id     TEXT        NOT NULL,
			delivery_basis_name   TEXT        NOT NULL,
			delivery_type_id      TEXT        NOT NULL,
			volume                NUMERIC     NOT NULL DEFAULT 0,
			total                 NUMERIC     NOT NULL DEFAULT 0,
			count                 INTEGER     NOT NULL,
			date                  DATE        NOT NULL,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Backstop for the read-then-insert dedup in Persist: concurrent
	// ingestion of the same file cannot slip a duplicate past the check.
	_, err = r.db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS spimex_trading_results_natural_key
		ON spimex_trading_results (exchange_product_id, date)`)
	if err != nil {
		return fmt.Errorf("create natural key index: %w", err)
	}
	return nil
}

// Persist stores the records that are not yet present, checking each natural
// key before inserting. All checks and inserts for one file run inside a
// single transaction committed at the end; a failure rolls back the whole
// batch. Records already present are left untouched. Returns the number of
// rows actually inserted.
func (r *repository) Persist(ctx context.Context, records []models.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, rec := range records {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM spimex_trading_results
				WHERE exchange_product_id = $1 AND date = $2
			)`, rec.ExchangeProductID, rec.Date).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("check %s/%s: %w", rec.ExchangeProductID, rec.Date.Format("2006-01-02"), err)
		}
		if exists {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO spimex_trading_results (
				exchange_product_id, exchange_product_name, oil_id,
				delivery_basis_id, delivery_basis_name, delivery_type_id,
				volume, total, count, date
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.ExchangeProductID,
			rec.ExchangeProductName,
			rec.OilID,
			rec.DeliveryBasisID,
			rec.DeliveryBasisName,
			rec.DeliveryTypeID,
			rec.Volume,
			rec.Total,
			rec.Count,
			rec.Date,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s/%s: %w", rec.ExchangeProductID, rec.Date.Format("2006-01-02"), err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// LatestDate returns the most recent trading date, or nil when the store is
// empty.
func (r *repository) LatestDate(ctx context.Context) (*time.Time, error) {
	var d sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM spimex_trading_results`).Scan(&d)
	if err != nil {
		return nil, err
	}
	if !d.Valid {
		return nil, nil
	}
	return &d.Time, nil
}

// LatestDates returns up to limit distinct trading dates, newest first.
func (r *repository) LatestDates(ctx context.Context, limit int) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM spimex_trading_results
		ORDER BY date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// TradingResults returns the most recent records matching the filter,
// ordered by date descending and truncated to the limit.
func (r *repository) TradingResults(ctx context.Context, f ResultsFilter) ([]models.TradeRecord, error) {
	conditions := []string{"TRUE"}
	var args []interface{}

	next := func() int { return len(args) + 1 }
	if f.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", next()))
		args = append(args, *f.Date)
	}
	conditions, args = appendProductFilters(conditions, args, f.OilID, f.DeliveryTypeID, f.DeliveryBasisID)

	query := fmt.Sprintf(`
		SELECT %s FROM spimex_trading_results
		WHERE %s
		ORDER BY date DESC
		LIMIT $%d`, recordColumns, strings.Join(conditions, " AND "), next())
	args = append(args, f.Limit)

	return r.queryRecords(ctx, query, args...)
}

// Dynamics returns all records within [StartDate, EndDate] matching the
// filter, ordered by date ascending.
func (r *repository) Dynamics(ctx context.Context, f DynamicsFilter) ([]models.TradeRecord, error) {
	conditions := []string{"date BETWEEN $1 AND $2"}
	args := []interface{}{f.StartDate, f.EndDate}

	conditions, args = appendProductFilters(conditions, args, f.OilID, f.DeliveryTypeID, f.DeliveryBasisID)

	query := fmt.Sprintf(`
		SELECT %s FROM spimex_trading_results
		WHERE %s
		ORDER BY date ASC`, recordColumns, strings.Join(conditions, " AND "))

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, f.Limit)
	}

	return r.queryRecords(ctx, query, args...)
}

// appendProductFilters adds the optional conjunctive product filters with
// positional placeholders continuing after the existing args.
func appendProductFilters(conditions []string, args []interface{}, oilID, typeID, basisID string) ([]string, []interface{}) {
	if oilID != "" {
		conditions = append(conditions, fmt.Sprintf("oil_id = $%d", len(args)+1))
		args = append(args, oilID)
	}
	if typeID != "" {
		conditions = append(conditions, fmt.Sprintf("delivery_type_id = $%d", len(args)+1))
		args = append(args, typeID)
	}
	if basisID != "" {
		conditions = append(conditions, fmt.Sprintf("delivery_basis_id = $%d", len(args)+1))
		args = append(args, basisID)
	}
	return conditions, args
}

func (r *repository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]models.TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TradeRecord
	for rows.Next() {
		var rec models.TradeRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ExchangeProductID,
			&rec.ExchangeProductName,
			&rec.OilID,
			&rec.DeliveryBasisID,
			&rec.DeliveryBasisName,
			&rec.DeliveryTypeID,
			&rec.Volume,
			&rec.Total,
			&rec.Count,
			&rec.Date,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
