// package migrations registers the sql migrations embedded in the
// package directory for the composer metrics database
// https://bun.uptrace.dev/guide/migrations.html#sql-based-migrations
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var SQLMigrations embed.FS

var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(SQLMigrations); err != nil {
		panic(err)
	}
}
