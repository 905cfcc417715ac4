// Package db embeds the versioned SQL migrations applied at startup.
package db

import "embed"

// Migrations holds the golang-migrate up/down files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
