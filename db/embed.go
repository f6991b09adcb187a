// Package db embeds the database schema.
package db

import _ "embed"

// Schema creates the forms, entries and order_snapshots tables. It is safe to
// run more than once.
//
//go:embed migrations/001_schema.sql
var Schema string
