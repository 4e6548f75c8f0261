// Package logger builds the application's slog.Logger: functional options
// for format, level and environment presets, attribute helpers with fixed
// keys, and context extractors that stamp request-scoped values onto every
// record.
//
// New wraps the chosen text or JSON handler in a decorator that runs the
// registered ContextExtractor callbacks before each record is handled. The
// tenant middleware relies on this to get tenant_id onto every log line
// emitted inside a request without threading the ID through call sites.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Environment, "gallerykit"),
//	    logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "webhook applied",
//	    logger.EventType(event.ProviderEvent),
//	    logger.Duration(time.Since(start)),
//	)
//
// Attribute helpers like [Error] and [TenantID] return an empty Attr for nil
// input, so callers can log them unconditionally.
package logger
