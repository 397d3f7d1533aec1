// Package redis connects to a Redis server with go-redis.
//
// The client backs lock.Redis, which lets workers on different hosts share
// one spool through a network filesystem without relying on flock, and
// Healthcheck adds the server to a worker's preflight checks.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	locks := lock.Redis(client)
//	checker.Add("redis", redis.Healthcheck(client))
//
// Config is populated from REDIS_* environment variables via caarlos0/env.
// Errors wrap the go-redis cause with errors.Join.
package redis
