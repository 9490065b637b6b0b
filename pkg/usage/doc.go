// Package usage meters per-user consumption of plan resources.
//
// # Overview
//
// Counters are cumulative and keyed by canonical resource name (projects,
// storage, team_members, api_requests). Storage is tracked in raw bytes and
// normalized to gigabytes when compared against a storage limit. Three Store
// implementations cover the deployment spectrum: MemoryStore for tests and
// single-node setups, SQLiteStore for single-node setups that must survive
// restarts, and RedisStore for multi-replica deployments that need shared
// counters.
//
// Meter sits on top of a Store and answers the question the rest of the
// system actually asks: may this user consume N more of resource R under
// limit L. Limit strings come straight from the plan catalog and take three
// forms ("10", "10GB", "1000 requests/day"); anything else means unlimited.
//
// # Usage Example
//
//	store := usage.NewMemoryStore()
//	meter := usage.NewMeter(store)
//
//	if _, err := meter.Track(ctx, userID, "storage", 512<<20); err != nil {
//		return err
//	}
//
//	ok, err := meter.WithinLimit(ctx, userID, "storage", 1, "10GB")
//	if err != nil {
//		return err
//	}
//	if !ok {
//		return errdefs.Forbidden("storage limit reached")
//	}
package usage
