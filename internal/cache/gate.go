package cache

import (
	"context"
	"sync"
	"time"

	"github.com/avolkov/spimexfeed/internal/logger"
)

// markerKey holds the calendar date (YYYY-MM-DD) of the last daily flush.
// It lives in the same Redis database as the entries it guards but without
// a TTL, so it survives the flush TTLs and is rewritten right after each
// flush.
const markerKey = "last_invalidation_date"

const markerLayout = "2006-01-02"

// Gate guards the once-per-day cache flush at a fixed wall-clock boundary
// and derives the TTL for freshly written entries so none survives past the
// next boundary crossing.
type Gate struct {
	backend Backend
	hour    int
	minute  int

	// mu serializes the check-flush-mark sequence so concurrent request
	// handlers cannot trigger more than one physical flush per day.
	mu sync.Mutex
}

// NewGate builds a gate for a daily boundary at hour:minute local time.
func NewGate(backend Backend, hour, minute int) *Gate {
	return &Gate{backend: backend, hour: hour, minute: minute}
}

// boundaryFor returns the boundary instant on now's calendar day.
func (g *Gate) boundaryFor(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), g.hour, g.minute, 0, 0, now.Location())
}

// SecondsUntilBoundary returns the whole seconds remaining until the next
// boundary crossing: today's boundary when now precedes it, tomorrow's
// otherwise.
func (g *Gate) SecondsUntilBoundary(now time.Time) int {
	boundary := g.boundaryFor(now)
	if !now.Before(boundary) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return int(boundary.Sub(now).Seconds())
}

// TTL is SecondsUntilBoundary as a duration, for cache writes.
func (g *Gate) TTL(now time.Time) time.Duration {
	return time.Duration(g.SecondsUntilBoundary(now)) * time.Second
}

// MaybeInvalidate flushes the cache once per calendar day after the boundary
// has passed. It compares the persisted marker with now's date and flushes
// only when they differ, then advances the marker. Repeated calls on the
// same day are no-ops, and everything degrades to a no-op when the backend
// is unavailable.
func (g *Gate) MaybeInvalidate(ctx context.Context, now time.Time) {
	if g.backend == nil || !g.backend.Enabled() {
		return
	}
	if now.Before(g.boundaryFor(now)) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	today := now.Format(markerLayout)
	if marker, ok := g.backend.Get(ctx, markerKey); ok && string(marker) == today {
		return
	}

	if !g.backend.Flush(ctx) {
		return
	}
	// No TTL: the marker must outlive the entries it guards.
	g.backend.Set(ctx, markerKey, []byte(today), 0)
	lg := logger.With("cache")
	lg.Info().Str("date", today).Msg("daily cache invalidation")
}
