// Package migrations holds the catalog schema as embedded goose migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
