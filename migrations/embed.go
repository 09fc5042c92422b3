// Package migrations embeds the versioned SQL schema of the connector.
package migrations

import "embed"

// FS holds the golang-migrate files (<version>_<name>.up.sql / .down.sql)
//
//go:embed *.sql
var FS embed.FS
