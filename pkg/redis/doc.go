// Package redis connects the go-redis client that backs the tenant
// resolution cache.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Close()
//
// [Healthcheck] plugs the client into the health endpoint alongside the
// database probe.
package redis
