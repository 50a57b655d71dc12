// Package migrations embeds the goose SQL migrations so services can
// self-migrate at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
