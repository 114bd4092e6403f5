// Package apidb holds all the migrations for the API database
package apidb

import "github.com/uptrace/bun/migrate"

// Migrations is the collection the numbered files in this package register
// against via init().
var Migrations = migrate.NewMigrations()
