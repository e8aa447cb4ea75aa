// Package migrations embeds the goose SQL migrations of the orphan ledger.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
