package sqlite

import (
	"context"
	"database/sql"
	"strings"
)

// DB exposes the internal *sql.DB for raw assertions in sqlite_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExec makes the nth statement (1-based) containing substr fail with err.
func (s *Store) FailExec(substr string, nth int, err error) {
	seen := 0
	s.hooks.exec = func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
		if strings.Contains(query, substr) {
			seen++
			if seen == nth {
				return nil, err
			}
		}
		return db.ExecContext(ctx, query, args...)
	}
}

// FailCommit makes every commit fail with err without committing.
func (s *Store) FailCommit(err error) {
	s.hooks.commit = func(*sql.Tx) error { return err }
}
