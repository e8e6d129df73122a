// Package database opens and migrates the engine's SQLite store.
//
// The store holds per-target EQ presets and is deliberately small: one
// file, WAL mode for concurrent reads, a single-connection pool to fit
// SQLite's single-writer model, and schema migrations embedded in the
// binary.
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
// Migrations are additive: new columns are nullable or carry defaults,
// columns are never dropped or renamed, and every version ships both
// an .up.sql and a .down.sql. The database file itself is chmod 0600
// and all queries go through parameterised statements.
package database
