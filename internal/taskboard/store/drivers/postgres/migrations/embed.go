package migrations

import "embed"

// Migrations contains the embedded Postgres schema migrations.
//
//go:embed *.sql
var Migrations embed.FS
