package usage

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const bytesPerGigabyte = int64(1) << 30

// limitCacheSize bounds the parsed-limit cache; a catalog carries far fewer
// distinct limit strings than this.
const limitCacheSize = 256

type cachedLimit struct {
	limit Limit
	ok    bool
}

// Meter applies plan limits to tracked usage.
type Meter struct {
	store  Store
	limits *lru.Cache[string, cachedLimit]
}

// NewMeter wraps a Store with limit parsing and normalization.
func NewMeter(store Store) *Meter {
	// lru.New only fails for non-positive sizes
	limits, _ := lru.New[string, cachedLimit](limitCacheSize)
	return &Meter{store: store, limits: limits}
}

// Track records consumption of a resource. The resource name is
// canonicalized before the add and the new total is returned. Negative
// deltas pass through unclamped; freeing storage is tracked the same way as
// consuming it.
func (m *Meter) Track(ctx context.Context, userID, resource string, amount int64) (int64, error) {
	total, err := m.store.Add(ctx, userID, CanonicalResource(resource), amount)
	if err != nil {
		return 0, fmt.Errorf("failed to track %s usage: %w", resource, err)
	}
	return total, nil
}

// Usage returns a snapshot of every counter for a user. UpdatedAt marks when
// the snapshot was taken.
func (m *Meter) Usage(ctx context.Context, userID string) (*Record, error) {
	counters, err := m.store.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage for user %s: %w", userID, err)
	}
	return &Record{
		UserID:    userID,
		Counters:  counters,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// WithinLimit reports whether a user may consume requestedDelta more of a
// resource under the given limit string. The delta is expressed in the
// limit's own unit. Absent or unparsable limits mean unlimited, and landing
// exactly on the limit is allowed.
func (m *Meter) WithinLimit(ctx context.Context, userID, resource string, requestedDelta int64, limitString string) (bool, error) {
	limit, ok := m.parseLimit(limitString)
	if !ok {
		return true, nil
	}
	counters, err := m.store.Snapshot(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load usage for user %s: %w", userID, err)
	}
	projected := NormalizedValue(counters, resource, limit) + float64(requestedDelta)
	return projected <= float64(limit.Amount), nil
}

// NormalizedValue converts a raw counter into the unit of the limit. Storage
// counters hold bytes and are divided down to gigabytes; every other unit
// reads the counter as-is.
func NormalizedValue(counters map[string]int64, resource string, limit Limit) float64 {
	raw := counters[CanonicalResource(resource)]
	if limit.Unit == UnitGigabytes {
		return float64(raw) / float64(bytesPerGigabyte)
	}
	return float64(raw)
}

func (m *Meter) parseLimit(s string) (Limit, bool) {
	if cached, ok := m.limits.Get(s); ok {
		return cached.limit, cached.ok
	}
	limit, ok := ParseLimit(s)
	m.limits.Add(s, cachedLimit{limit: limit, ok: ok})
	return limit, ok
}
