// Package memstore is an in-memory individual store. Writes made inside
// RunInTx are staged and published under the write lock only when the body
// succeeds, so readers never see half of a transaction.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HendryAvila/lineage/internal/config"
	"github.com/HendryAvila/lineage/internal/genealogy"
)

// Store keeps individuals in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	schema  config.Schema
	records map[string]genealogy.Individual
	log     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an empty store for the given descriptor.
func New(schema config.Schema, opts ...Option) (*Store, error) {
	schema = schema.Normalized()
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		schema:  schema,
		records: make(map[string]genealogy.Individual),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close is a no-op; it lets the store stand in wherever a closable store is
// expected.
func (s *Store) Close() error { return nil }

// Create inserts a new individual without edges and returns it with its
// identifier assigned. Edges are set afterwards through the mutator.
func (s *Store) Create(ctx context.Context, ind genealogy.Individual) (genealogy.Individual, error) {
	if ind.FatherID != "" || ind.MotherID != "" || ind.CurrentSpouseID != "" {
		return genealogy.Individual{}, fmt.Errorf("memstore: create %q: edges must be set through the mutator", ind.Name)
	}
	if ind.ID == "" {
		ind.ID = uuid.NewString()
	}
	if err := genealogy.ValidateRecord(s.schema, ind); err != nil {
		return genealogy.Individual{}, err
	}
	if err := ctx.Err(); err != nil {
		return genealogy.Individual{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[ind.ID]; exists {
		return genealogy.Individual{}, fmt.Errorf("memstore: individual %s already exists", ind.ID)
	}
	s.records[ind.ID] = ind
	return ind, nil
}

// Get returns the individual with the given id.
func (s *Store) Get(_ context.Context, id string) (genealogy.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ind, ok := s.records[id]; ok {
		return ind, nil
	}
	return genealogy.Individual{}, fmt.Errorf("individual %s: %w", id, genealogy.ErrNotFound)
}

// FindWhere returns the individuals whose role slot equals value, ordered by
// id.
func (s *Store) FindWhere(_ context.Context, role genealogy.Role, value string) ([]genealogy.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findWhere(s.schema, s.records, nil, nil, role, value), nil
}

// List returns every individual ordered by id.
func (s *Store) List(_ context.Context) ([]genealogy.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]genealogy.Individual, 0, len(s.records))
	for _, ind := range s.records {
		out = append(out, ind)
	}
	sortByID(out)
	return out, nil
}

// Delete removes id after nullifying every edge that points at it, all in
// one transaction.
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

// RunInTx runs fn against a staged view while holding the write lock.
func (s *Store) RunInTx(ctx context.Context, fn func(w genealogy.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore: transaction aborted: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{
		schema:  s.schema,
		base:    s.records,
		staged:  make(map[string]genealogy.Individual),
		removed: make(map[string]bool),
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore: transaction aborted: %w", err)
	}

	for id := range t.removed {
		delete(s.records, id)
	}
	for id, ind := range t.staged {
		s.records[id] = ind
	}
	return nil
}

// ─── Transaction view ───────────────────────────────────────────────────────

type tx struct {
	schema  config.Schema
	base    map[string]genealogy.Individual
	staged  map[string]genealogy.Individual
	removed map[string]bool
}

func (t *tx) Get(_ context.Context, id string) (genealogy.Individual, error) {
	if ind, ok := t.lookup(id); ok {
		return ind, nil
	}
	return genealogy.Individual{}, fmt.Errorf("individual %s: %w", id, genealogy.ErrNotFound)
}

func (t *tx) FindWhere(_ context.Context, role genealogy.Role, value string) ([]genealogy.Individual, error) {
	return findWhere(t.schema, t.base, t.staged, t.removed, role, value), nil
}

func (t *tx) Update(ctx context.Context, id string, role genealogy.Role, value string) error {
	if role == genealogy.RoleSpouse && !t.schema.CurrentSpouse {
		return genealogy.ErrSpouseDisabled
	}
	ind, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	if value != "" {
		if value == id {
			return &genealogy.RejectedError{Subject: id, Role: role, Candidate: value, Reason: genealogy.ErrSelfReference}
		}
		if _, ok := t.lookup(value); !ok {
			return fmt.Errorf("%s reference %s: %w", role, value, genealogy.ErrNotFound)
		}
	}
	t.staged[id] = ind.WithRef(role, value)
	return nil
}

func (t *tx) Remove(ctx context.Context, id string) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}
	delete(t.staged, id)
	t.removed[id] = true
	return nil
}

func (t *tx) lookup(id string) (genealogy.Individual, bool) {
	if t.removed[id] {
		return genealogy.Individual{}, false
	}
	if ind, ok := t.staged[id]; ok {
		return ind, true
	}
	ind, ok := t.base[id]
	return ind, ok
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// findWhere scans base overlaid with staged, skipping removed ids.
func findWhere(schema config.Schema, base, staged map[string]genealogy.Individual, removed map[string]bool,
	role genealogy.Role, value string) []genealogy.Individual {
	if value == "" || (role == genealogy.RoleSpouse && !schema.CurrentSpouse) {
		return nil
	}
	var out []genealogy.Individual
	for id, ind := range base {
		if removed[id] {
			continue
		}
		if s, ok := staged[id]; ok {
			ind = s
		}
		if ind.Ref(role) == value {
			out = append(out, ind)
		}
	}
	for id, ind := range staged {
		if _, inBase := base[id]; inBase {
			continue
		}
		if ind.Ref(role) == value {
			out = append(out, ind)
		}
	}
	sortByID(out)
	return out
}

func sortByID(inds []genealogy.Individual) {
	sort.Slice(inds, func(i, j int) bool { return inds[i].ID < inds[j].ID })
}
