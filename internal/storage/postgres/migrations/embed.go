package migrations

import "embed"

// FS holds the SQL migrations, one sub-directory per database driver
//
//go:embed postgres/*.sql
var FS embed.FS
