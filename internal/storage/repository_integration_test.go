//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avolkov/spimexfeed/internal/domain/models"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "spimex",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=spimex sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/spimex?sslmode=disable", host, port.Port())
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func record(code string, date time.Time, count int) models.TradeRecord {
	parts := models.DeriveProductParts(code)
	return models.TradeRecord{
		ExchangeProductID:   code,
		ExchangeProductName: "product " + code,
		OilID:               parts.OilID,
		DeliveryBasisID:     parts.DeliveryBasisID,
		DeliveryBasisName:   "basis",
		DeliveryTypeID:      parts.DeliveryTypeID,
		Volume:              decimal.RequireFromString("100"),
		Total:               decimal.RequireFromString("5500000"),
		Count:               count,
		Date:                date,
	}
}

func TestRepository_Integration(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()

	db := openDB(t, dsn)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	repo := NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	d1 := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)
	batch := []models.TradeRecord{
		record("A1000BAS1", d1, 7),
		record("A100ANS01", d1, 3),
		record("A1000BAS1", d2, 2),
	}

	n, err := repo.Persist(ctx, batch)
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if n != 3 {
		t.Fatalf("first persist: want 3 inserted got %d", n)
	}

	// Idempotent re-ingestion: same batch adds nothing.
	n, err = repo.Persist(ctx, batch)
	if err != nil {
		t.Fatalf("re-persist: %v", err)
	}
	if n != 0 {
		t.Fatalf("re-ingestion: want 0 inserted got %d", n)
	}

	latest, err := repo.LatestDate(ctx)
	if err != nil {
		t.Fatalf("latest date: %v", err)
	}
	if latest == nil || !latest.Equal(d2) {
		t.Fatalf("latest date: want %v got %v", d2, latest)
	}

	dates, err := repo.LatestDates(ctx, 10)
	if err != nil {
		t.Fatalf("latest dates: %v", err)
	}
	if len(dates) != 2 || !dates[0].Equal(d2) || !dates[1].Equal(d1) {
		t.Fatalf("latest dates: %v", dates)
	}

	recs, err := repo.TradingResults(ctx, ResultsFilter{OilID: "A100", DeliveryTypeID: "1", Limit: 100})
	if err != nil {
		t.Fatalf("trading results: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("trading results: want 3 got %d", len(recs))
	}
	if !recs[0].Date.Equal(d2) {
		t.Fatalf("trading results must order newest first, got %v", recs[0].Date)
	}

	dyn, err := repo.Dynamics(ctx, DynamicsFilter{StartDate: d1, EndDate: d2})
	if err != nil {
		t.Fatalf("dynamics: %v", err)
	}
	if len(dyn) != 3 {
		t.Fatalf("dynamics: want 3 got %d", len(dyn))
	}
	if !dyn[0].Date.Equal(d1) {
		t.Fatalf("dynamics must order oldest first, got %v", dyn[0].Date)
	}
}
