// Package migrations embeds the SQL schema so cmd/migrate works without a
// checkout of the repository.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
