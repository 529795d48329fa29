package migrations

import "embed"

// Migrations contains the embedded SQLite schema migrations.
//
//go:embed *.sql
var Migrations embed.FS
