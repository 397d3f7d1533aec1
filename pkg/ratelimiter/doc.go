// Package ratelimiter throttles producers with a token bucket.
//
// A Bucket answers Allow for a key, typically a hash of the producer token.
// State lives in a Store: MemoryStore for a single API process, RedisStore
// when several API processes share one spool.
//
//	store := ratelimiter.NewMemoryStore()
//	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimiter.Middleware(bucket, keyFunc))
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every response, and Retry-After with status 429 when
// the bucket is empty.
package ratelimiter
