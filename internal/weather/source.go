package weather

import (
	"context"
	"time"

	"github.com/i474232898/morning-briefing/internal/cache"
)

// Fetcher is the upstream a Source pulls fresh snapshots from.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Source serves weather through the last-good cache: fresh values
// within the TTL, a stale snapshot when the upstream is rate limited
// or briefly down.
type Source struct {
	fetcher Fetcher
	cache   *cache.Cache[Snapshot]
}

// NewSource wraps fetcher with a cache whose entries stay fresh for ttl.
func NewSource(fetcher Fetcher, ttl time.Duration) *Source {
	return &Source{
		fetcher: fetcher,
		cache:   cache.New[Snapshot](ttl),
	}
}

// Fetch returns the cached snapshot while fresh, refetching otherwise.
func (s *Source) Fetch(ctx context.Context) (Snapshot, error) {
	return s.cache.Get(ctx, s.fetcher.Fetch)
}
