// Package cache keeps the last response of every notifications page in Redis
// so that polls can be sent as conditional requests.
//
// GitHub answers an unchanged page with 304 Not Modified, which does not
// count against the primary rate limit. The cached body and headers, including
// the Link header that carries the pagination cursor, are then replayed to the
// caller. Only raw pages are stored; counts are always recomputed from the
// (possibly replayed) pages on every poll.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.NewKey(req.URL, token)
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - plain request
//	}
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Keys
//
// Notifications are per user, so keys include a SHA-256 fingerprint of the
// credential. The credential itself is never stored. When GitHub rejects a
// credential, Manager.Invalidate drops every page cached under its fingerprint.
//
// # Metrics
//
//   - ghnotify_cache_hits_total - Cache hits
//   - ghnotify_cache_misses_total - Cache misses
//   - ghnotify_cache_size_bytes - Bytes written to the cache
//   - ghnotify_304_responses_total - Conditional request successes
//   - ghnotify_cache_errors_total{operation} - Cache operation errors
package cache
