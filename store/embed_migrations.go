package store

import "embed"

// MigrationFS embeds the SQL migrations applied by [Migrate].
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
