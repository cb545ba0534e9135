// Package migrations embeds the SQLite schema for the sqlite settings
// backend so the binary carries its own migrations.
package migrations

import "embed"

// Dir is the directory within FS holding the migration files.
const Dir = "."

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
