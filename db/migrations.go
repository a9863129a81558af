// Package db holds the SQL schema applied at startup.
package db

import "embed"

// Migrations contains the ordered schema files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
