// Package migrations embeds the schema applied by database.Migrate at boot (DB_AUTO_MIGRATE) and in tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
