package ingestion

import (
	"context"
	"path/filepath"
	"time"

	"github.com/avolkov/spimexfeed/internal/fetch"
	"github.com/avolkov/spimexfeed/internal/logger"
	"github.com/avolkov/spimexfeed/internal/storage"
)

// readTable is an indirection over the xls reader; tests override it to feed
// tables without real workbook files.
var readTable = ReadTable

// ProcessRange ingests the daily reports for every date in [from, to]:
// fetches them concurrently under the fetcher's admission cap, then extracts
// and persists each fetched artifact sequentially.
//
// Per-file failures (unreadable workbook, extraction panic-level errors,
// store errors) are logged and skipped; the run continues with the next
// artifact. Only context cancellation aborts the run.
func ProcessRange(ctx context.Context, repo storage.Repository, fetcher *fetch.Fetcher, baseURL, dir string, from, to time.Time) error {
	log := logger.With("ingestion")

	urls := fetch.ReportURLs(baseURL, from, to)
	log.Info().Int("days", len(urls)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("ingestion start")

	artifacts := fetcher.FetchAll(ctx, urls)
	log.Info().Int("fetched", len(artifacts)).Int("requested", len(urls)).Msg("fetch stage done")

	for _, name := range artifacts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		processArtifact(ctx, repo, filepath.Join(dir, name), name)
	}

	log.Info().Msg("ingestion done")
	return nil
}

// processArtifact extracts and persists one fetched report. All failures are
// logged here and never propagate: one bad file must not sink the run.
func processArtifact(ctx context.Context, repo storage.Repository, path, name string) {
	log := logger.With("ingestion")
	start := time.Now()

	tradeDate, err := TradeDateFromArtifact(name)
	if err != nil {
		log.Error().Str("artifact", name).Err(err).Msg("cannot derive trade date")
		return
	}

	table, err := readTable(path)
	if err != nil {
		log.Error().Str("artifact", name).Err(err).Msg("cannot read workbook")
		return
	}

	records, rowErrs := Extract(table, tradeDate)
	for _, re := range rowErrs {
		log.Warn().Str("artifact", name).Int("row", re.Row).Err(re.Err).Msg("row skipped")
	}
	if len(records) == 0 {
		log.Warn().Str("artifact", name).Msg("no records extracted")
		return
	}

	inserted, err := repo.Persist(ctx, records)
	if err != nil {
		log.Error().Str("artifact", name).Err(err).Msg("persist failed")
		return
	}

	log.Info().Str("artifact", name).
		Int("extracted", len(records)).
		Int("inserted", inserted).
		Dur("elapsed", time.Since(start)).
		Msg("artifact done")
}
