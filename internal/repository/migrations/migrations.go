// Package migrations содержит встроенные SQL-миграции схемы БД.
package migrations

import "embed"

// Migrations — файловая система с goose-миграциями (*.sql).
//
//go:embed *.sql
var Migrations embed.FS
