// Package db embeds the schema of the Postgres device backend.
package db

import _ "embed"

// Schema contains the DDL statements for the device storage and order
// archive tables.
//
//go:embed migrations/001_schema.sql
var Schema string
