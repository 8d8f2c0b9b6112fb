// Package migrations embeds the goose schema migrations for the sqlite
// entry store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
