// Package dbmigrations exposes embedded SQL migrations for pigeonwatch binaries.
package dbmigrations

import "embed"

// Files contains the embedded SQL migrations bundled into pigeonwatch binaries.
//
//go:embed *.sql
var Files embed.FS
