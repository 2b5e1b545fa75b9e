package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"doc2txt/internal/migrate"
)

// SQLStore keeps values in the session_values table of a SQLite file or a
// Postgres database.
type SQLStore struct {
	db      *sql.DB
	dialect string
	ttl     time.Duration
	now     func() time.Time
}

// OpenSQL opens dialect ("sqlite" or "postgres") at dsn and migrates the
// schema. For sqlite dsn is a file path. Entries older than ttl read as
// absent; a zero ttl keeps them forever.
func OpenSQL(ctx context.Context, dialect, dsn string, ttl time.Duration) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s session store requires a dsn", dialect)
	}

	var driver string
	switch dialect {
	case "sqlite":
		driver = "sqlite"
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create session directory: %w", err)
			}
		}
	case "postgres":
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}

	if dialect == "sqlite" {
		// One writer at a time; WAL lets the CLI and the UI share the file.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("set pragma: %w", err)
			}
		}
	}

	if err := migrate.Run(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect, ttl: ttl, now: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT entry_value, updated_at FROM session_values WHERE entry_key = ?`),
		key,
	).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session value: %w", err)
	}
	if s.ttl > 0 && s.now().Sub(time.UnixMilli(updatedAt)) > s.ttl {
		return nil, nil
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO session_values (entry_key, entry_value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`),
		key, string(value), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
