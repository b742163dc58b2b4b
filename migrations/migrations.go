// Package migrations embeds the versioned PostgreSQL schema applied by the
// migrate command and the integration tests.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files
//
//go:embed *.sql
var FS embed.FS
