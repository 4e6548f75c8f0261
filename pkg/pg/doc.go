// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose schema migrations, a health probe, and error helpers
// that let store code classify driver errors without touching pgconn.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    panic(err)
//	}
//
// Store implementations use [IsNotFoundError], [IsDuplicateKeyError] and
// [IsForeignKeyViolationError] to translate driver errors into their own
// sentinels; nothing outside this package imports pgconn for error codes.
package pg
