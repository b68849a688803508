// Package sqlite implements the persistent individual store on SQLite.
//
// Column names for the sex, parent, spouse and date roles come from the
// schema descriptor, so an existing table with remapped columns can be
// reused. Edge columns carry foreign keys to individuals(id) without an ON
// DELETE action: the delete path nullifies dependents explicitly, and the
// constraint turns any dependent it missed into a failed deletion.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/lineage/internal/config"
	"github.com/HendryAvila/lineage/internal/genealogy"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds the storage location.
type Config struct {
	DataDir  string
	FileName string
}

// DefaultConfig returns the default configuration: ~/.lineage/lineage.db.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".lineage"),
		FileName: "lineage.db",
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed individual store.
type Store struct {
	db     *sql.DB
	cfg    Config
	schema config.Schema
	cols   columns
	hooks  storeHooks
	log    *zap.Logger

	// staleSpouse names a spouse column left on disk by an earlier run with
	// the feature enabled. It is invisible to reads but its foreign key still
	// binds, so deletions clear it.
	staleSpouse string

	// writeMu serializes transactions so concurrent mutations of the same
	// records commit one after the other instead of failing with SQLITE_BUSY.
	writeMu sync.Mutex
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type dbtx interface {
	execer
	queryer
}

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	query   func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
		query: func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
			return db.QueryContext(ctx, query, args...)
		},
		beginTx: func(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
			return db.BeginTx(ctx, nil)
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) queryHook(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, db, query, args...)
	}
	return db.QueryContext(ctx, query, args...)
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (creating if needed) the database under cfg.DataDir, applies
// the pragmas, and migrates the individuals table to the descriptor's
// column layout. A nil logger is replaced by a no-op logger.
func New(cfg Config, schema config.Schema, log *zap.Logger) (*Store, error) {
	schema = schema.Normalized()
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.FileName == "" {
		cfg.FileName = "lineage.db"
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	// foreign_keys and busy_timeout are per connection, so they also go in
	// the DSN for every connection the pool opens later.
	dbPath := filepath.Join(cfg.DataDir, cfg.FileName)
	db, err := openDB("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		schema: schema,
		cols:   resolveColumns(schema),
		hooks:  defaultStoreHooks(),
		log:    log,
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}

	log.Debug("individual store ready", zap.String("path", dbPath))
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Columns ─────────────────────────────────────────────────────────────────

type columns struct {
	sex, father, mother, spouse, birth, death string
}

func resolveColumns(schema config.Schema) columns {
	c := columns{
		sex:    schema.Columns.Sex,
		father: schema.Columns.Father,
		mother: schema.Columns.Mother,
		birth:  schema.Columns.BirthDate,
		death:  schema.Columns.DeathDate,
	}
	if schema.CurrentSpouse {
		c.spouse = schema.Columns.CurrentSpouse
	}
	return c
}

// forRole returns the column backing an edge role. The descriptor has
// already restricted names to plain identifiers, so quoting is enough.
func (s *Store) forRole(role genealogy.Role) (string, error) {
	switch role {
	case genealogy.RoleFather:
		return quote(s.cols.father), nil
	case genealogy.RoleMother:
		return quote(s.cols.mother), nil
	case genealogy.RoleSpouse:
		if s.cols.spouse == "" {
			return "", genealogy.ErrSpouseDisabled
		}
		return quote(s.cols.spouse), nil
	}
	return "", fmt.Errorf("invalid role %q", role)
}

func (s *Store) selectList() string {
	spouse := "''"
	if s.cols.spouse != "" {
		spouse = "COALESCE(" + quote(s.cols.spouse) + ", '')"
	}
	return strings.Join([]string{
		"id",
		"name",
		"COALESCE(" + quote(s.cols.sex) + ", '')",
		"COALESCE(" + quote(s.cols.father) + ", '')",
		"COALESCE(" + quote(s.cols.mother) + ", '')",
		spouse,
		"COALESCE(" + quote(s.cols.birth) + ", '')",
		"COALESCE(" + quote(s.cols.death) + ", '')",
	}, ", ")
}

func quote(ident string) string {
	return `"` + ident + `"`
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.execHook(ctx, s.db, `
		CREATE TABLE IF NOT EXISTS individuals (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`); err != nil {
		return err
	}

	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	// Role columns are added one by one so an existing table picks up a
	// remapped column or a newly enabled spouse feature without data loss.
	wanted := []struct {
		name string
		ref  bool
	}{
		{s.cols.sex, false},
		{s.cols.father, true},
		{s.cols.mother, true},
		{s.cols.spouse, true},
		{s.cols.birth, false},
		{s.cols.death, false},
	}
	for _, w := range wanted {
		if w.name == "" || existing[strings.ToLower(w.name)] {
			continue
		}
		ddl := fmt.Sprintf(`ALTER TABLE individuals ADD COLUMN %s TEXT`, quote(w.name))
		if w.ref {
			ddl += ` REFERENCES individuals(id)`
		}
		if _, err := s.execHook(ctx, s.db, ddl); err != nil {
			return fmt.Errorf("add column %s: %w", w.name, err)
		}
		s.log.Debug("added column", zap.String("column", w.name))
	}

	if name := s.schema.Columns.CurrentSpouse; s.cols.spouse == "" && existing[strings.ToLower(name)] {
		s.staleSpouse = name
		s.log.Debug("spouse feature disabled over existing column", zap.String("column", name))
	}

	for _, col := range []string{s.cols.father, s.cols.mother, s.cols.spouse} {
		if col == "" {
			continue
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON individuals(%s)`,
			quote("idx_individuals_"+strings.ToLower(col)), quote(col))
		if _, err := s.execHook(ctx, s.db, idx); err != nil {
			return fmt.Errorf("index %s: %w", col, err)
		}
	}
	return nil
}

func (s *Store) tableColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.queryHook(ctx, s.db, `SELECT name FROM pragma_table_info('individuals')`)
	if err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// ─── Records ─────────────────────────────────────────────────────────────────

// Create inserts a new individual without edges and returns it with its
// identifier assigned. Edges are set afterwards through the mutator.
func (s *Store) Create(ctx context.Context, ind genealogy.Individual) (genealogy.Individual, error) {
	if ind.FatherID != "" || ind.MotherID != "" || ind.CurrentSpouseID != "" {
		return genealogy.Individual{}, fmt.Errorf("sqlite: create %q: edges must be set through the mutator", ind.Name)
	}
	if ind.ID == "" {
		ind.ID = uuid.NewString()
	}
	if err := genealogy.ValidateRecord(s.schema, ind); err != nil {
		return genealogy.Individual{}, err
	}

	query := fmt.Sprintf(`INSERT INTO individuals (id, name, %s, %s, %s) VALUES (?, ?, ?, ?, ?)`,
		quote(s.cols.sex), quote(s.cols.birth), quote(s.cols.death))
	_, err := s.execHook(ctx, s.db, query,
		ind.ID, ind.Name, nullableString(ind.Sex), nullableString(ind.BirthDate), nullableString(ind.DeathDate),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return genealogy.Individual{}, fmt.Errorf("sqlite: individual %s already exists", ind.ID)
		}
		return genealogy.Individual{}, fmt.Errorf("sqlite: creating individual: %w", err)
	}
	return ind, nil
}

// Get returns the individual with the given id.
func (s *Store) Get(ctx context.Context, id string) (genealogy.Individual, error) {
	return s.get(ctx, s.db, id)
}

// FindWhere returns the individuals whose role slot equals value, ordered by
// id. With the spouse feature disabled a spouse lookup matches nothing.
func (s *Store) FindWhere(ctx context.Context, role genealogy.Role, value string) ([]genealogy.Individual, error) {
	return s.findWhere(ctx, s.db, role, value)
}

// List returns every individual ordered by id.
func (s *Store) List(ctx context.Context) ([]genealogy.Individual, error) {
	return s.queryIndividuals(ctx, s.db, `SELECT `+s.selectList()+` FROM individuals ORDER BY id`)
}

// Delete removes id after nullifying every edge that points at it. Both
// steps share one transaction; if propagation fails nothing is removed.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.RunInTx(ctx, func(w genealogy.Writer) error {
		if err := genealogy.NullifyDependents(ctx, w, id); err != nil {
			return err
		}
		return w.Remove(ctx, id)
	})
	if err != nil {
		s.log.Warn("delete aborted", zap.String("id", id), zap.Error(err))
		return err
	}
	s.log.Info("individual deleted", zap.String("id", id))
	return nil
}

// RunInTx runs fn inside a database transaction. Transactions are
// serialized; a failing fn or commit rolls everything back.
func (s *Store) RunInTx(ctx context.Context, fn func(w genealogy.Writer) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&txWriter{s: s, tx: tx}); err != nil {
		return err
	}
	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// ─── Transaction writer ──────────────────────────────────────────────────────

type txWriter struct {
	s  *Store
	tx *sql.Tx
}

func (w *txWriter) Get(ctx context.Context, id string) (genealogy.Individual, error) {
	return w.s.get(ctx, w.tx, id)
}

func (w *txWriter) FindWhere(ctx context.Context, role genealogy.Role, value string) ([]genealogy.Individual, error) {
	return w.s.findWhere(ctx, w.tx, role, value)
}

func (w *txWriter) Update(ctx context.Context, id string, role genealogy.Role, value string) error {
	col, err := w.s.forRole(role)
	if err != nil {
		return err
	}
	if value != "" && value == id {
		return &genealogy.RejectedError{Subject: id, Role: role, Candidate: value, Reason: genealogy.ErrSelfReference}
	}

	res, err := w.s.execHook(ctx, w.tx,
		fmt.Sprintf(`UPDATE individuals SET %s = ?, updated_at = datetime('now') WHERE id = ?`, col),
		nullableString(value), id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%s reference %s: %w", role, value, genealogy.ErrNotFound)
		}
		return fmt.Errorf("sqlite: updating %s of %s: %w", role, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("individual %s: %w", id, genealogy.ErrNotFound)
	}
	return nil
}

func (w *txWriter) Remove(ctx context.Context, id string) error {
	if col := w.s.staleSpouse; col != "" {
		_, err := w.s.execHook(ctx, w.tx,
			fmt.Sprintf(`UPDATE individuals SET %s = NULL WHERE %s = ?`, quote(col), quote(col)), id)
		if err != nil {
			return fmt.Errorf("%w: clearing stale %s of %s: %w", genealogy.ErrPropagation, col, id, err)
		}
	}
	res, err := w.s.execHook(ctx, w.tx, `DELETE FROM individuals WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s still referenced: %w", genealogy.ErrPropagation, id, err)
		}
		return fmt.Errorf("sqlite: deleting individual: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("individual %s: %w", id, genealogy.ErrNotFound)
	}
	return nil
}

// ─── Shared queries ──────────────────────────────────────────────────────────

func (s *Store) get(ctx context.Context, db dbtx, id string) (genealogy.Individual, error) {
	inds, err := s.queryIndividuals(ctx, db, `SELECT `+s.selectList()+` FROM individuals WHERE id = ?`, id)
	if err != nil {
		return genealogy.Individual{}, err
	}
	if len(inds) == 0 {
		return genealogy.Individual{}, fmt.Errorf("individual %s: %w", id, genealogy.ErrNotFound)
	}
	return inds[0], nil
}

func (s *Store) findWhere(ctx context.Context, db dbtx, role genealogy.Role, value string) ([]genealogy.Individual, error) {
	col, err := s.forRole(role)
	if errors.Is(err, genealogy.ErrSpouseDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return s.queryIndividuals(ctx, db,
		`SELECT `+s.selectList()+` FROM individuals WHERE `+col+` = ? ORDER BY id`, value)
}

func (s *Store) queryIndividuals(ctx context.Context, db queryer, query string, args ...any) ([]genealogy.Individual, error) {
	rows, err := s.queryHook(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying individuals: %w", err)
	}
	defer rows.Close()

	var out []genealogy.Individual
	for rows.Next() {
		var ind genealogy.Individual
		if err := rows.Scan(&ind.ID, &ind.Name, &ind.Sex, &ind.FatherID, &ind.MotherID,
			&ind.CurrentSpouseID, &ind.BirthDate, &ind.DeathDate); err != nil {
			return nil, fmt.Errorf("sqlite: scanning individual: %w", err)
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
