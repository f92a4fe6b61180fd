// Package migrations holds the Postgres schema migrations applied by golang-migrate.
package migrations

import "embed"

// FS contains every *.sql migration file.
//
//go:embed *.sql
var FS embed.FS
