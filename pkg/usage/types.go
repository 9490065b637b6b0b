package usage

import (
	"context"
	"strings"
	"time"
)

// Record reports a user's cumulative resource consumption.
type Record struct {
	UserID    string           `json:"user_id"`
	Counters  map[string]int64 `json:"counters"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CanonicalResource normalizes a feature or resource name to the counter key
// shared by every store ("Team Members" becomes "team_members").
func CanonicalResource(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Store persists cumulative usage counters. Add must be atomic so concurrent
// tracking never loses increments.
type Store interface {
	// Add increments a counter by delta and returns the new total.
	Add(ctx context.Context, userID, resource string, delta int64) (int64, error)
	// Snapshot returns every counter for a user. A user with no recorded
	// usage yields an empty map, not an error.
	Snapshot(ctx context.Context, userID string) (map[string]int64, error)
}
