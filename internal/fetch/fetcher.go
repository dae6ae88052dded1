package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avolkov/spimexfeed/internal/logger"
)

const (
	// reportTimeSuffix is the fixed report-generation time embedded in every
	// published report name (oil_xls_YYYYMMDD162000.xls).
	reportTimeSuffix = "162000"

	copyBufSize = 32 * 1024
)

// Result is the outcome of fetching a single report URL.
//
// Exactly one of the three outcomes holds:
//   - success: Artifact is the local filename, Status is 200;
//   - HTTP failure: Status carries the non-200 code;
//   - transport/IO failure: Err is set. A partially written file may exist on
//     disk but must be treated as absent.
type Result struct {
	URL      string
	Artifact string
	Status   int
	Err      error
}

// OK reports whether the fetch produced a usable artifact.
func (r Result) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Fetcher downloads report spreadsheets under a global concurrency cap.
//
// The cap is shared across all Fetch calls issued through one Fetcher: excess
// calls block for a slot and proceed in admission order once one frees up.
// Successful artifact names accumulate in an internal append-only list whose
// order depends on completion order and carries no meaning.
type Fetcher struct {
	client *http.Client
	dir    string
	sem    chan struct{}

	mu        sync.Mutex
	artifacts []string
}

// New creates a Fetcher writing artifacts into dir with at most concurrency
// in-flight downloads. The directory is created if it does not exist yet.
// A nil client falls back to a default with a transport timeout;
// concurrency < 1 falls back to 5.
func New(client *http.Client, dir string, concurrency int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if concurrency < 1 {
		concurrency = 5
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lg := logger.With("fetcher")
			lg.Warn().Str("dir", dir).Err(err).Msg("cannot create artifact dir")
		}
	}
	return &Fetcher{
		client: client,
		dir:    dir,
		sem:    make(chan struct{}, concurrency),
	}
}

// Fetch downloads one report URL to a local artifact, blocking for an
// admission slot first.
//
// On HTTP 200 the body is streamed to the artifact file in fixed-size chunks.
// On a non-200 status no file is created. On a transport or IO error the
// artifact is not registered and any partial file is left behind as garbage.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL}

	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		res.Err = ctx.Err()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		return res
	}

	resp, err := f.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("request: %w", err)
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	res.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return res
	}

	name, err := ArtifactName(rawURL)
	if err != nil {
		res.Err = err
		return res
	}

	out, err := os.Create(filepath.Join(f.dir, name))
	if err != nil {
		res.Err = fmt.Errorf("create artifact: %w", err)
		return res
	}

	if _, err := io.CopyBuffer(out, resp.Body, make([]byte, copyBufSize)); err != nil {
		_ = out.Close()
		res.Err = fmt.Errorf("write artifact: %w", err)
		return res
	}
	if err := out.Close(); err != nil {
		res.Err = fmt.Errorf("close artifact: %w", err)
		return res
	}

	res.Artifact = name

	f.mu.Lock()
	f.artifacts = append(f.artifacts, name)
	f.mu.Unlock()

	return res
}

// FetchAll downloads all URLs concurrently under the admission cap and
// returns the artifact names of the successful fetches.
//
// A failed URL is logged and skipped; it never aborts the remaining fetches.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []string {
	log := logger.With("fetcher")

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range urls {
		rawURL := u
		g.Go(func() error {
			res := f.Fetch(gctx, rawURL)
			switch {
			case res.OK():
				log.Info().Str("artifact", res.Artifact).Msg("report fetched")
			case res.Err != nil:
				log.Warn().Str("url", rawURL).Err(res.Err).Msg("fetch failed")
			default:
				log.Warn().Str("url", rawURL).Int("status", res.Status).Msg("report unavailable")
			}
			return nil
		})
	}
	// Workers never return errors; Wait is for completion only.
	_ = g.Wait()

	return f.Artifacts()
}

// Artifacts returns a copy of the successfully fetched artifact names so far.
func (f *Fetcher) Artifacts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.artifacts...)
}

// ArtifactName derives the local artifact name from a report URL: the last
// path segment, used verbatim.
func ArtifactName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in url %q", rawURL)
	}
	return name, nil
}

// ReportURL builds the published URL of the daily report for a trading date,
// e.g. {base}/oil_xls_20250722162000.xls.
func ReportURL(baseURL string, date time.Time) string {
	return fmt.Sprintf("%s/oil_xls_%s%s.xls", baseURL, date.Format("20060102"), reportTimeSuffix)
}

// ReportURLs builds one report URL per day in [from, to], inclusive.
func ReportURLs(baseURL string, from, to time.Time) []string {
	var urls []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		urls = append(urls, ReportURL(baseURL, d))
	}
	return urls
}
