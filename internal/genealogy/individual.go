// Package genealogy implements the relationship graph engine: the individual
// and edge model, the eligibility checker, the relationship mutator, the
// deletion propagator, and the kinship query engine.
//
// The engine never owns persistence. It reads and writes through the Reader,
// Writer and Store contracts below, which internal/store/sqlite and
// internal/store/memstore implement.
package genealogy

import (
	"context"
	"fmt"

	"github.com/HendryAvila/lineage/internal/config"
)

// --- Role enum ---

// Role names an edge slot on an Individual.
type Role string

const (
	RoleFather Role = "father"
	RoleMother Role = "mother"
	RoleSpouse Role = "spouse"
)

// validRoles is the set of allowed roles.
var validRoles = map[Role]bool{
	RoleFather: true,
	RoleMother: true,
	RoleSpouse: true,
}

// ParseRole returns an error if the role is not recognized.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", fmt.Errorf("invalid role %q: must be one of: father, mother, spouse", s)
	}
	return r, nil
}

// IsParent reports whether r is father or mother.
func (r Role) IsParent() bool {
	return r == RoleFather || r == RoleMother
}

// --- Individual ---

// Individual is a record participating in the genealogy graph. Empty
// reference fields mean "no edge".
type Individual struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Sex             string `json:"sex"`
	FatherID        string `json:"father_id,omitempty"`
	MotherID        string `json:"mother_id,omitempty"`
	CurrentSpouseID string `json:"current_spouse_id,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	DeathDate       string `json:"death_date,omitempty"`
}

// Ref returns the identifier held in the given role slot.
func (i Individual) Ref(role Role) string {
	switch role {
	case RoleFather:
		return i.FatherID
	case RoleMother:
		return i.MotherID
	case RoleSpouse:
		return i.CurrentSpouseID
	}
	return ""
}

// WithRef returns a copy of i with the role slot set to value.
func (i Individual) WithRef(role Role, value string) Individual {
	switch role {
	case RoleFather:
		i.FatherID = value
	case RoleMother:
		i.MotherID = value
	case RoleSpouse:
		i.CurrentSpouseID = value
	}
	return i
}

// ValidateRecord checks the record-level rules a store enforces at write time:
// the sex token must belong to the vocabulary, must be present in strict
// mode, and no reference may point back at the record itself.
func ValidateRecord(schema config.Schema, ind Individual) error {
	if ind.Sex == "" {
		if schema.PerformValidation {
			return fmt.Errorf("%w: sex is required", ErrInvalidSex)
		}
	} else if !schema.ValidSex(ind.Sex) {
		return fmt.Errorf("%w: %q is not one of %v", ErrInvalidSex, ind.Sex, schema.SexValues)
	}
	if !schema.CurrentSpouse && ind.CurrentSpouseID != "" {
		return ErrSpouseDisabled
	}
	if ind.ID != "" {
		for _, role := range []Role{RoleFather, RoleMother, RoleSpouse} {
			if ind.Ref(role) == ind.ID {
				return &RejectedError{Subject: ind.ID, Role: role, Candidate: ind.ID, Reason: ErrSelfReference}
			}
		}
	}
	return nil
}

// --- Store contracts ---

// Reader is the read side of the individual store.
type Reader interface {
	// Get returns ErrNotFound (possibly wrapped) for an unknown id.
	Get(ctx context.Context, id string) (Individual, error)
	// FindWhere returns every individual whose role slot equals value,
	// in a stable order.
	FindWhere(ctx context.Context, role Role, value string) ([]Individual, error)
}

// Writer is the view handed to a transaction body.
type Writer interface {
	Reader
	// Update sets one role slot; an empty value clears it.
	Update(ctx context.Context, id string, role Role, value string) error
	// Remove deletes the record without touching dependents.
	Remove(ctx context.Context, id string) error
}

// Store is a Reader that can run a group of writes atomically. Readers must
// never observe a partially applied fn; an error from fn discards all of
// its writes.
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(w Writer) error) error
}
