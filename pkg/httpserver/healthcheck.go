package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/gallerykit/pkg/logger"
)

// HealthCheckHandler serves both liveness and readiness probes. With no
// dependency probes it answers 200 "ALIVE". With probes (database, cache) it
// runs each one: all passing answers 200 "READY", any failure answers 500
// "NOT_READY" and logs which dependency broke.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, probes ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(probes) == 0 {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ALIVE"))
			return
		}

		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
