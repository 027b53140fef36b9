// Package migrations embeds the SQL schema files applied at boot.
package migrations

import "embed"

// FS holds the migration files, ordered by their zero-padded filename prefix.
//
//go:embed *.sql
var FS embed.FS
