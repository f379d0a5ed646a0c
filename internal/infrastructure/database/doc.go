// Package database provides SQLite connectivity for the Chimera registry.
//
// It opens the database with WAL mode and a busy timeout, limits the pool to
// a single connection (SQLite has one writer), and applies the schema
// migrations embedded by the migrations package.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. Each is applied in its own transaction and recorded in
// the schema_migrations table.
package database
