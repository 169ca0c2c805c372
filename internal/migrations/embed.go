// Package migrations embeds the versioned golang-migrate scripts for the job repository tables.
package migrations

import "embed"

// FS holds <dialect>/NNNNNN_name.{up,down}.sql.
//
//go:embed sqlserver/*.sql postgres/*.sql sqlite/*.sql mysql/*.sql
var FS embed.FS
