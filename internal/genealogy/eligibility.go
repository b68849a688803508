package genealogy

import (
	"context"
	"fmt"

	"github.com/HendryAvila/lineage/internal/config"
)

// Checker decides whether a proposed edge keeps every graph invariant. It is
// side-effect free and reads only through the Reader it is given, so the
// mutator can run it inside the same transaction as the write.
type Checker struct {
	schema config.Schema
}

// NewChecker creates a Checker for the given descriptor.
func NewChecker(schema config.Schema) *Checker {
	return &Checker{schema: schema.Normalized()}
}

// CanAssign returns nil when candidate may fill role on subject, a
// *RejectedError naming the violated rule, or a lookup error (ErrNotFound
// for an unknown identifier).
//
// Self-reference and cycle checks always run. The sex-role check only runs
// with PerformValidation. The spouse check always rejects lineal relatives
// and widens per the configured KinshipPolicy.
func (c *Checker) CanAssign(ctx context.Context, r Reader, subjectID string, role Role, candidateID string) error {
	if !validRoles[role] {
		return fmt.Errorf("invalid role %q", role)
	}
	if candidateID == "" {
		return fmt.Errorf("%s candidate for %s: %w", role, subjectID, ErrNotFound)
	}
	if candidateID == subjectID {
		return reject(subjectID, role, candidateID, ErrSelfReference)
	}
	if role == RoleSpouse && !c.schema.CurrentSpouse {
		return ErrSpouseDisabled
	}

	if _, err := r.Get(ctx, subjectID); err != nil {
		return fmt.Errorf("subject %s: %w", subjectID, err)
	}
	candidate, err := r.Get(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("candidate %s: %w", candidateID, err)
	}

	if c.schema.PerformValidation {
		if want := c.expectedSex(role); want != "" && candidate.Sex != want {
			return reject(subjectID, role, candidateID, ErrSexMismatch)
		}
	}

	g := NewGraph(r)
	if role.IsParent() {
		// subject must not already be an ancestor of the proposed parent.
		cyclic, err := g.IsAncestorOf(ctx, subjectID, candidateID)
		if err != nil {
			return err
		}
		if cyclic {
			return reject(subjectID, role, candidateID, ErrCycle)
		}
		return nil
	}

	related, err := c.forbiddenSpouse(ctx, g, subjectID, candidateID)
	if err != nil {
		return err
	}
	if related {
		return reject(subjectID, role, candidateID, ErrIncest)
	}
	return nil
}

func (c *Checker) expectedSex(role Role) string {
	switch role {
	case RoleFather:
		return c.schema.Male()
	case RoleMother:
		return c.schema.Female()
	}
	return ""
}

// forbiddenSpouse applies the lineal rule and then the collateral rules the
// policy enables.
func (c *Checker) forbiddenSpouse(ctx context.Context, g *Graph, a, b string) (bool, error) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		ok, err := g.IsAncestorOf(ctx, pair[0], pair[1])
		if err != nil || ok {
			return ok, err
		}
	}

	policy := c.schema.SpousePolicy
	if policy.Reaches(config.PolicySiblings) {
		sibs, err := g.Siblings(ctx, a)
		if err != nil {
			return false, err
		}
		if Contains(sibs, b) {
			return true, nil
		}
	}
	if policy.Reaches(config.PolicyCousins) {
		cousins, err := g.FirstCousins(ctx, a)
		if err != nil {
			return false, err
		}
		if Contains(cousins, b) {
			return true, nil
		}
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			elders, err := g.UnclesAndAunts(ctx, pair[0])
			if err != nil {
				return false, err
			}
			if Contains(elders, pair[1]) {
				return true, nil
			}
		}
	}
	return false, nil
}
