// Package migration embeds the database schema migrations.
package migration

import "embed"

// FS holds the *.sql migrations in golang-migrate file naming.
//
//go:embed *.sql
var FS embed.FS
