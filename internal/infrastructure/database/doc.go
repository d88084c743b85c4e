// Package database provides SQLite connectivity for HomeBot Core.
//
// This package manages:
//   - Connections with foreign keys enforced and optional WAL mode
//   - Versioned schema migrations read from an fs.FS (see package migrations)
//   - Health checks and lifecycle management
//
// All repositories take the *sql.DB embedded in DB and use parameterised statements.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
