// Package cache provides an optional Redis-backed response cache for harvest
// queries.
//
// Paginated harvests frequently re-issue identical queries (restarts,
// overlapping partitions, repeated first pages); the cache short-circuits
// those calls and uses ETag / Last-Modified validators for conditional
// requests when an entry has gone stale. Keys are derived from the normalized
// query URL so that parameter order does not fragment the cache.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	entry, err := manager.Get(ctx, cache.KeyForURL(url))
//	switch {
//	case err == cache.ErrCacheMiss:
//		// fetch and manager.Set(...)
//	case err != nil:
//		// degraded: fetch without caching
//	default:
//		// use entry.Body
//	}
//
// The cache stores page envelopes, never pagination progress: restarting a
// harvest always re-walks its partitions.
package cache
