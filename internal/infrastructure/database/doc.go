// Package database opens the SQLite database behind the sqlite settings
// backend and applies its schema migrations.
//
// Connections use WAL mode and a busy timeout, and the pool is pinned to a
// single connection to match SQLite's single writer. File permissions are
// tightened to 0600.
//
// Migrations are YYYYMMDD_HHMMSS_description.up.sql files (with an optional
// .down.sql partner) read from any fs.FS, normally the embedded
// migrations.FS:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
//	    return err
//	}
package database
