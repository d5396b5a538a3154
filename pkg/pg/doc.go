// Package pg bootstraps the PostgreSQL layer used by the permission store:
// a pgx/v5 connection pool with startup retries, goose schema migrations for
// the permission, role and association tables, a health check closure, and
// error classification helpers (duplicate key, foreign key, not found).
//
// Typical wiring:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	st := store.NewPostgres(pool)
//
// All knobs come from environment variables; see the Config field tags for
// names and defaults. The migrations directory ships at the repository root
// under migrations/.
package pg
