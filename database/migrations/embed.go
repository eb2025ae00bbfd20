// Package migrations embeds the versioned schema files for every supported dialect.
package migrations

import "embed"

// FS holds <dialect>/<version>_<name>.up.sql files.
//
//go:embed oracle/*.sql postgres/*.sql
var FS embed.FS
