// Package migrations embeds the goose SQL migrations for the visitor log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
