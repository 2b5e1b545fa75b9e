package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// goose keeps its dialect and base FS in package globals.
var mu sync.Mutex

// Run applies all pending session migrations for dialect ("sqlite" or
// "postgres") on db.
func Run(db *sql.DB, dialect string) error {
	var gooseDialect, dir string
	switch dialect {
	case "sqlite":
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	case "postgres":
		gooseDialect, dir = "postgres", "migrations/postgres"
	default:
		return fmt.Errorf("unsupported migration dialect: %s", dialect)
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
