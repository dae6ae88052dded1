// Package service implements the cache-fronted query layer: every read goes
// through the daily invalidation gate, then the Redis cache, then the store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/spimexfeed/internal/cache"
	"github.com/avolkov/spimexfeed/internal/domain/dto"
	"github.com/avolkov/spimexfeed/internal/logger"
	"github.com/avolkov/spimexfeed/internal/storage"
)

// ErrNoTradingData is returned when a query needs the latest trading date
// but the store holds no records at all.
var ErrNoTradingData = errors.New("no trading data")

// lastResultsLimit bounds the single-day "latest results" query.
const lastResultsLimit = 10000

// ResultsQuery filters the "latest results" read. All fields are optional.
type ResultsQuery struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Date            *time.Time
	Limit           int
}

// DynamicsQuery filters the date-range read. The range is required.
type DynamicsQuery struct {
	StartDate       time.Time
	EndDate         time.Time
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Limit           int
}

// TradingService exposes the four read operations consumed by the API layer.
type TradingService interface {
	LastDates(ctx context.Context, limit int) ([]string, error)
	Results(ctx context.Context, q ResultsQuery) ([]dto.TradingResultResponse, error)
	Dynamics(ctx context.Context, q DynamicsQuery) ([]dto.TradingResultResponse, error)
	LastResults(ctx context.Context) ([]dto.TradingResultResponse, error)
}

type tradingService struct {
	repo    storage.Repository
	backend cache.Backend
	gate    *cache.Gate
	now     func() time.Time
}

// NewTradingService wires the store, the cache backend, and the gate.
func NewTradingService(repo storage.Repository, backend cache.Backend, gate *cache.Gate) TradingService {
	return &tradingService{repo: repo, backend: backend, gate: gate, now: time.Now}
}

// LastDates returns up to limit distinct trading dates, newest first, as
// ISO-8601 strings.
func (s *tradingService) LastDates(ctx context.Context, limit int) ([]string, error) {
	key := fmt.Sprintf("last_dates:%d", limit)
	var cached []string
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	dates, err := s.repo.LatestDates(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := dto.FormatDates(dates)
	s.toCache(ctx, key, out)
	return out, nil
}

// Results returns the most recent trade records matching the query, newest
// first, truncated to the limit.
func (s *tradingService) Results(ctx context.Context, q ResultsQuery) ([]dto.TradingResultResponse, error) {
	key := strings.Join([]string{
		"results",
		orNone(q.OilID),
		orNone(q.DeliveryTypeID),
		orNone(q.DeliveryBasisID),
		dateOrNone(q.Date),
		strconv.Itoa(q.Limit),
	}, ":")

	var cached []dto.TradingResultResponse
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	records, err := s.repo.TradingResults(ctx, storage.ResultsFilter{
		OilID:           q.OilID,
		DeliveryTypeID:  q.DeliveryTypeID,
		DeliveryBasisID: q.DeliveryBasisID,
		Date:            q.Date,
		Limit:           q.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := dto.FromRecords(records)
	s.toCache(ctx, key, out)
	return out, nil
}

// Dynamics returns all records within the query's date range, oldest first.
func (s *tradingService) Dynamics(ctx context.Context, q DynamicsQuery) ([]dto.TradingResultResponse, error) {
	key := strings.Join([]string{
		"dynamics",
		q.StartDate.Format("2006-01-02"),
		q.EndDate.Format("2006-01-02"),
		orNone(q.OilID),
		orNone(q.DeliveryTypeID),
		orNone(q.DeliveryBasisID),
		strconv.Itoa(q.Limit),
	}, ":")

	var cached []dto.TradingResultResponse
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	records, err := s.repo.Dynamics(ctx, storage.DynamicsFilter{
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		OilID:           q.OilID,
		DeliveryTypeID:  q.DeliveryTypeID,
		DeliveryBasisID: q.DeliveryBasisID,
		Limit:           q.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := dto.FromRecords(records)
	s.toCache(ctx, key, out)
	return out, nil
}

// LastResults returns every record of the most recent trading date. It
// returns ErrNoTradingData when the store is empty.
func (s *tradingService) LastResults(ctx context.Context) ([]dto.TradingResultResponse, error) {
	const key = "last_results"
	var cached []dto.TradingResultResponse
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	latest, err := s.repo.LatestDate(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoTradingData
	}

	records, err := s.repo.TradingResults(ctx, storage.ResultsFilter{
		Date:  latest,
		Limit: lastResultsLimit,
	})
	if err != nil {
		return nil, err
	}
	out := dto.FromRecords(records)
	s.toCache(ctx, key, out)
	return out, nil
}

// fromCache runs the invalidation gate, then attempts a cache read. Stale
// entries past the daily boundary can never be served: the gate runs before
// every lookup.
func (s *tradingService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	now := s.now()
	s.gate.MaybeInvalidate(ctx, now)

	raw, ok := s.backend.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		lg := logger.With("service")
		lg.Warn().Str("key", key).Err(err).Msg("bad cache entry dropped")
		return false
	}
	return true
}

// toCache stores a query result with a TTL that expires at the next daily
// boundary.
func (s *tradingService) toCache(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		lg := logger.With("service")
		lg.Warn().Str("key", key).Err(err).Msg("cache marshal failed")
		return
	}
	s.backend.Set(ctx, key, raw, s.gate.TTL(s.now()))
}

// orNone renders an optional string parameter into its cache-key token.
func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func dateOrNone(d *time.Time) string {
	if d == nil {
		return "none"
	}
	return d.Format("2006-01-02")
}
