// Package migrations embeds the SQL schema files applied by "portal-server migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
