// Package schema embeds the table scripts for the quote store, one directory per dialect.
package schema

import "embed"

// Scripts holds <dialect>/*.sql, applied in lexical order by the schema tasklet.
//
//go:embed sqlserver/*.sql postgres/*.sql sqlite/*.sql mysql/*.sql
var Scripts embed.FS
