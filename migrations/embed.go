// Package migrations embeds the SQL schema migrations into the binary.
//
// The files follow database.Migration naming: YYYYMMDD_HHMMSS_name.up.sql,
// with a matching .down.sql for rollback.
package migrations

import "embed"

// FS is the embedded migration set, passed to (*database.DB).Migrate.
//
//go:embed *.sql
var FS embed.FS
