// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts and the health endpoint the deployment probes hit.
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests within the shutdown timeout. Listen failures are
// wrapped with [ErrStart], shutdown failures with [ErrShutdown].
//
// # Usage
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	r := chi.NewRouter()
//	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
//	    pg.Healthcheck(pool), redis.Healthcheck(client)))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
package httpserver
