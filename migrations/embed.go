// Package migrations carries the versioned PostgreSQL schema so binaries and
// integration tests can apply it without a checkout on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
