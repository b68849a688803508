package genealogy

import (
	"context"
	"errors"
	"fmt"
)

// NullifyDependents clears every edge that points at id: the father and
// mother edges of its children and the spouse edge of its partner. It runs
// inside the store's delete transaction, before the record is removed. An
// unknown id yields ErrNotFound; every later error is wrapped in
// ErrPropagation and must abort the deletion.
//
// Dependents are updated, never deleted.
func NullifyDependents(ctx context.Context, w Writer, id string) error {
	x, err := w.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrPropagation, id, err)
	}

	for _, role := range []Role{RoleFather, RoleMother} {
		kids, err := w.FindWhere(ctx, role, id)
		if err != nil {
			return fmt.Errorf("%w: find children by %s: %w", ErrPropagation, role, err)
		}
		for _, k := range kids {
			if err := w.Update(ctx, k.ID, role, ""); err != nil {
				return fmt.Errorf("%w: clear %s of %s: %w", ErrPropagation, role, k.ID, err)
			}
		}
	}

	partners, err := w.FindWhere(ctx, RoleSpouse, id)
	if err != nil {
		return fmt.Errorf("%w: find spouse: %w", ErrPropagation, err)
	}
	ids := make([]string, 0, len(partners)+1)
	for _, p := range partners {
		ids = append(ids, p.ID)
	}
	if x.CurrentSpouseID != "" {
		ids = append(ids, x.CurrentSpouseID)
	}
	for _, pid := range dedupeIDs(ids) {
		s, err := w.Get(ctx, pid)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: load spouse %s: %w", ErrPropagation, pid, err)
		}
		if s.CurrentSpouseID != id {
			continue
		}
		if err := w.Update(ctx, pid, RoleSpouse, ""); err != nil {
			return fmt.Errorf("%w: clear spouse of %s: %w", ErrPropagation, pid, err)
		}
	}
	return nil
}
