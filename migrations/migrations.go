// Package migrations embeds the SQL schema migrations for each supported database.
package migrations

import "embed"

// FS holds the postgres/ and sqlite/ migration directories
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
