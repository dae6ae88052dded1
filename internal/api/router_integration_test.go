//go:build integration
// +build integration

package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avolkov/spimexfeed/config"
	"github.com/avolkov/spimexfeed/internal/app"
	"github.com/avolkov/spimexfeed/internal/domain/dto"
)

func startPG(t *testing.T) (dsn string, host string, port nat.Port, terminate func()) {
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
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=spimex sslmode=disable", h, p.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", h, mp.Port(), "spimex")
	terminate = func() { _ = c.Terminate(context.Background()) }
	return dsn, h, mp, terminate
}

func seedForE2E(t *testing.T, db *sql.DB, d time.Time) {
	t.Helper()
	// two products on the same trading day
	for _, row := range []struct {
		code, name, oil, basisID, basisName, typeID string
		volume, total                               float64
		count                                       int
	}{
		{"A100ANK060F", "Бензин АИ-100 (ст. Аллагуват)", "A100", "ANK", "ст. Аллагуват", "F", 120, 7361400, 3},
		{"A592ACH005A", "Бензин АИ-92-К5 (ст. Ачинск)", "A592", "ACH", "ст. Ачинск", "A", 60, 3450000, 2},
	} {
		_, err := db.Exec(`INSERT INTO spimex_trading_results
			(exchange_product_id, exchange_product_name, oil_id, delivery_basis_id, delivery_basis_name, delivery_type_id, volume, total, count, date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			row.code, row.name, row.oil, row.basisID, row.basisName, row.typeID, row.volume, row.total, row.count, d)
		if err != nil {
			t.Fatalf("seed %s: %v", row.code, err)
		}
	}
}

func TestAPI_E2E_ResultsAndLastDates(t *testing.T) {
	dsn, host, port, term := startPG(t)
	defer term()

	// Point application config to containerized DB. Redis is left at an
	// unreachable default, so the service runs with caching disabled.
	config.AppConfig.Postgres.Host = host
	p, _ := nat.ParsePort(port.Port())
	config.AppConfig.Postgres.Port = int(p)
	config.AppConfig.Postgres.User = "postgres"
	config.AppConfig.Postgres.Password = "postgres"
	config.AppConfig.Postgres.DBName = "spimex"
	config.AppConfig.Postgres.SSLMode = "disable"
	config.AppConfig.Redis.Addr = "127.0.0.1:1"
	config.AppConfig.Ingest.BoundaryHour = 14
	config.AppConfig.Ingest.BoundaryMinute = 11

	router, cleanup, err := app.InitializeApp()
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	defer cleanup()

	// Schema exists now; seed directly
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	day := time.Now().UTC().AddDate(0, 0, -2)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	seedForE2E(t, db, day)

	// results filtered by oil_id
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results?oil_id=A100", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("results status: %d body=%s", w.Code, w.Body.String())
	}
	var results []dto.TradingResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(results) != 1 || results[0].ExchangeProductID != "A100ANK060F" || results[0].Count != 3 {
		t.Fatalf("unexpected results: %+v", results)
	}

	// last_dates returns the seeded day
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/v1/last_dates?limit=5", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("last_dates status: %d", w2.Code)
	}
	var dates []string
	if err := json.Unmarshal(w2.Body.Bytes(), &dates); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(dates) != 1 || dates[0] != day.Format("2006-01-02") {
		t.Fatalf("unexpected dates: %v", dates)
	}

	// last_results returns all rows of the newest day
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/api/v1/last_results", nil))
	if w3.Code != http.StatusOK {
		t.Fatalf("last_results status: %d", w3.Code)
	}
	var last []dto.TradingResultResponse
	if err := json.Unmarshal(w3.Body.Bytes(), &last); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("expected 2 records, got %d", len(last))
	}
}
