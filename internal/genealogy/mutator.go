package genealogy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HendryAvila/lineage/internal/config"
)

// Recorder receives one call per mutation outcome. internal/metrics
// implements it with Prometheus counters.
type Recorder interface {
	ObserveMutation(op, code string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, string) {}

// Option configures a Mutator.
type Option func(*Mutator)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *zap.Logger) Option {
	return func(m *Mutator) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRecorder sets the outcome recorder. A nil recorder is ignored.
func WithRecorder(r Recorder) Option {
	return func(m *Mutator) {
		if r != nil {
			m.rec = r
		}
	}
}

// Mutator is the only writer of father, mother and spouse edges. Every
// operation checks first and writes second inside one Store transaction, so
// a rejected or failed operation leaves the graph unchanged.
type Mutator struct {
	store   Store
	schema  config.Schema
	checker *Checker
	log     *zap.Logger
	rec     Recorder
}

// NewMutator validates the descriptor and builds a Mutator over store.
func NewMutator(store Store, schema config.Schema, opts ...Option) (*Mutator, error) {
	schema = schema.Normalized()
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	m := &Mutator{
		store:   store,
		schema:  schema,
		checker: NewChecker(schema),
		log:     zap.NewNop(),
		rec:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Checker returns the eligibility checker the mutator consults.
func (m *Mutator) Checker() *Checker { return m.checker }

// ─── Parent edges ───────────────────────────────────────────────────────────

// SetFather makes candidateID the father of subjectID.
func (m *Mutator) SetFather(ctx context.Context, subjectID, candidateID string) error {
	return m.setParent(ctx, "set_father", RoleFather, subjectID, candidateID)
}

// SetMother makes candidateID the mother of subjectID.
func (m *Mutator) SetMother(ctx context.Context, subjectID, candidateID string) error {
	return m.setParent(ctx, "set_mother", RoleMother, subjectID, candidateID)
}

// ClearFather removes the father edge of subjectID.
func (m *Mutator) ClearFather(ctx context.Context, subjectID string) error {
	return m.clearParents(ctx, "clear_father", subjectID, RoleFather)
}

// ClearMother removes the mother edge of subjectID.
func (m *Mutator) ClearMother(ctx context.Context, subjectID string) error {
	return m.clearParents(ctx, "clear_mother", subjectID, RoleMother)
}

// ClearParents removes both parent edges of subjectID in one transaction.
func (m *Mutator) ClearParents(ctx context.Context, subjectID string) error {
	return m.clearParents(ctx, "clear_parents", subjectID, RoleFather, RoleMother)
}

func (m *Mutator) setParent(ctx context.Context, op string, role Role, subjectID, candidateID string) error {
	err := m.store.RunInTx(ctx, func(w Writer) error {
		subject, err := w.Get(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subjectID, err)
		}
		if candidateID != "" && subject.Ref(role) == candidateID {
			return nil
		}
		if err := m.checker.CanAssign(ctx, w, subjectID, role, candidateID); err != nil {
			return err
		}
		return w.Update(ctx, subjectID, role, candidateID)
	})
	return m.finish(op, subjectID, candidateID, err)
}

func (m *Mutator) clearParents(ctx context.Context, op, subjectID string, roles ...Role) error {
	err := m.store.RunInTx(ctx, func(w Writer) error {
		subject, err := w.Get(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("subject %s: %w", subjectID, err)
		}
		for _, role := range roles {
			if subject.Ref(role) == "" {
				continue
			}
			if err := w.Update(ctx, subjectID, role, ""); err != nil {
				return err
			}
		}
		return nil
	})
	return m.finish(op, subjectID, "", err)
}

// ─── Spouse edge ────────────────────────────────────────────────────────────

// SetSpouse pairs a and b. Both sides are written in one transaction, and
// any previous partner of either side loses its spouse edge in the same
// transaction.
func (m *Mutator) SetSpouse(ctx context.Context, a, b string) error {
	if a != "" && a == b {
		return m.finish("set_spouse", a, b, reject(a, RoleSpouse, b, ErrSelfReference))
	}
	if !m.schema.CurrentSpouse {
		return m.finish("set_spouse", a, b, ErrSpouseDisabled)
	}
	err := m.store.RunInTx(ctx, func(w Writer) error {
		sa, err := w.Get(ctx, a)
		if err != nil {
			return fmt.Errorf("subject %s: %w", a, err)
		}
		if b != "" && sa.CurrentSpouseID == b {
			sb, err := w.Get(ctx, b)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", b, err)
			}
			if sb.CurrentSpouseID == a {
				return nil
			}
		}

		if err := m.checker.CanAssign(ctx, w, a, RoleSpouse, b); err != nil {
			return err
		}
		sb, err := w.Get(ctx, b)
		if err != nil {
			return fmt.Errorf("candidate %s: %w", b, err)
		}

		if prev := sa.CurrentSpouseID; prev != "" && prev != b {
			if err := unpair(ctx, w, prev, a); err != nil {
				return err
			}
		}
		if prev := sb.CurrentSpouseID; prev != "" && prev != a {
			if err := unpair(ctx, w, prev, b); err != nil {
				return err
			}
		}
		if err := w.Update(ctx, a, RoleSpouse, b); err != nil {
			return err
		}
		return w.Update(ctx, b, RoleSpouse, a)
	})
	return m.finish("set_spouse", a, b, err)
}

// ClearSpouse removes a's spouse edge and the reciprocal edge on the former
// spouse.
func (m *Mutator) ClearSpouse(ctx context.Context, a string) error {
	if !m.schema.CurrentSpouse {
		return m.finish("clear_spouse", a, "", ErrSpouseDisabled)
	}
	err := m.store.RunInTx(ctx, func(w Writer) error {
		sa, err := w.Get(ctx, a)
		if err != nil {
			return fmt.Errorf("subject %s: %w", a, err)
		}
		if sa.CurrentSpouseID == "" {
			return nil
		}
		if err := unpair(ctx, w, sa.CurrentSpouseID, a); err != nil {
			return err
		}
		return w.Update(ctx, a, RoleSpouse, "")
	})
	return m.finish("clear_spouse", a, "", err)
}

// unpair clears id's spouse edge if it still points at partner.
func unpair(ctx context.Context, w Writer, id, partner string) error {
	ind, err := w.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("former spouse %s: %w", id, err)
	}
	if ind.CurrentSpouseID != partner {
		return nil
	}
	return w.Update(ctx, id, RoleSpouse, "")
}

// finish logs and records the outcome, then returns err unchanged.
func (m *Mutator) finish(op, subject, candidate string, err error) error {
	code := Code(err)
	m.rec.ObserveMutation(op, code)

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("subject", subject),
	}
	if candidate != "" {
		fields = append(fields, zap.String("candidate", candidate))
	}
	switch {
	case err == nil:
		m.log.Debug("mutation applied", fields...)
	case code == CodeInternal:
		m.log.Error("mutation failed", append(fields, zap.Error(err))...)
	default:
		m.log.Info("mutation rejected", append(fields, zap.String("code", code), zap.Error(err))...)
	}
	return err
}
