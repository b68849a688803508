// Package config holds the schema descriptor that maps genealogy roles onto
// storage columns and carries the feature flags the engine is built with.
//
// The descriptor is an explicit value passed to every component at
// construction; nothing in this repository reads it from package state.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidConfiguration is returned by Validate for a malformed descriptor.
// It is fatal to initialization.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// --- Kinship policy enum ---

// KinshipPolicy decides how far the spouse eligibility check reaches beyond
// the direct ancestor/descendant line, which is always forbidden.
type KinshipPolicy string

const (
	// PolicyLineal forbids only ancestors and descendants.
	PolicyLineal KinshipPolicy = "lineal"
	// PolicySiblings also forbids full and half siblings.
	PolicySiblings KinshipPolicy = "siblings"
	// PolicyCousins also forbids first cousins, uncles/aunts and nephews/nieces.
	PolicyCousins KinshipPolicy = "cousins"
)

// validPolicies is the set of allowed kinship policies.
var validPolicies = map[KinshipPolicy]bool{
	PolicyLineal:   true,
	PolicySiblings: true,
	PolicyCousins:  true,
}

// Reaches reports whether p forbids at least as much as other.
func (p KinshipPolicy) Reaches(other KinshipPolicy) bool {
	rank := map[KinshipPolicy]int{PolicyLineal: 0, PolicySiblings: 1, PolicyCousins: 2}
	return rank[p] >= rank[other]
}

// --- Descriptor ---

// Columns maps logical roles onto storage column names.
type Columns struct {
	Sex           string `json:"sex" env:"SEX" envDefault:"sex"`
	Father        string `json:"father_id" env:"FATHER" envDefault:"father_id"`
	Mother        string `json:"mother_id" env:"MOTHER" envDefault:"mother_id"`
	CurrentSpouse string `json:"current_spouse_id" env:"CURRENT_SPOUSE" envDefault:"current_spouse_id"`
	BirthDate     string `json:"birth_date" env:"BIRTH_DATE" envDefault:"birth_date"`
	DeathDate     string `json:"death_date" env:"DEATH_DATE" envDefault:"death_date"`
}

// Schema is the descriptor consumed by the engine and the stores.
type Schema struct {
	Columns Columns `json:"columns"`

	// SexValues holds exactly two tokens: the male value first, the female
	// value second.
	SexValues []string `json:"sex_values"`

	// CurrentSpouse enables the current-spouse edge.
	CurrentSpouse bool `json:"current_spouse"`

	// PerformValidation enables the sex-role and presence checks. Cycle and
	// self-reference checks are structural and run regardless.
	PerformValidation bool `json:"perform_validation"`

	SpousePolicy KinshipPolicy `json:"spouse_policy"`
}

// DefaultColumns returns the default column names.
func DefaultColumns() Columns {
	return Columns{
		Sex:           "sex",
		Father:        "father_id",
		Mother:        "mother_id",
		CurrentSpouse: "current_spouse_id",
		BirthDate:     "birth_date",
		DeathDate:     "death_date",
	}
}

// DefaultSchema returns the descriptor used when nothing is configured:
// M/F vocabulary, strict validation, current spouse disabled.
func DefaultSchema() Schema {
	return Schema{
		Columns:           DefaultColumns(),
		SexValues:         []string{"M", "F"},
		CurrentSpouse:     false,
		PerformValidation: true,
		SpousePolicy:      PolicyLineal,
	}
}

// Male returns the token assigned to the father role.
func (s Schema) Male() string {
	if len(s.SexValues) == 0 {
		return ""
	}
	return s.SexValues[0]
}

// Female returns the token assigned to the mother role.
func (s Schema) Female() string {
	if len(s.SexValues) < 2 {
		return ""
	}
	return s.SexValues[1]
}

// ValidSex reports whether v is one of the configured tokens.
func (s Schema) ValidSex(v string) bool {
	return v != "" && (v == s.Male() || v == s.Female())
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedColumns are owned by the stores and cannot be remapped onto.
var reservedColumns = map[string]bool{
	"id": true, "name": true, "created_at": true, "updated_at": true,
}

// Validate checks the descriptor once at setup. Every failure wraps
// ErrInvalidConfiguration.
func (s Schema) Validate() error {
	if len(s.SexValues) != 2 {
		return fmt.Errorf("%w: sex_values must hold exactly 2 tokens [male, female], got %d",
			ErrInvalidConfiguration, len(s.SexValues))
	}
	male, female := strings.TrimSpace(s.SexValues[0]), strings.TrimSpace(s.SexValues[1])
	if male == "" || female == "" {
		return fmt.Errorf("%w: sex_values must not be blank", ErrInvalidConfiguration)
	}
	if male == female {
		return fmt.Errorf("%w: sex_values must be distinct, got %q twice", ErrInvalidConfiguration, male)
	}

	if s.SpousePolicy == "" {
		s.SpousePolicy = PolicyLineal
	}
	if !validPolicies[s.SpousePolicy] {
		return fmt.Errorf("%w: invalid spouse policy %q: must be one of: lineal, siblings, cousins",
			ErrInvalidConfiguration, s.SpousePolicy)
	}

	named := []struct {
		role, column string
	}{
		{"sex", s.Columns.Sex},
		{"father", s.Columns.Father},
		{"mother", s.Columns.Mother},
		{"birth_date", s.Columns.BirthDate},
		{"death_date", s.Columns.DeathDate},
	}
	if s.CurrentSpouse {
		named = append(named, struct{ role, column string }{"current_spouse", s.Columns.CurrentSpouse})
	}

	seen := make(map[string]string, len(named))
	for _, n := range named {
		if !identifierRe.MatchString(n.column) {
			return fmt.Errorf("%w: column for %s is not a valid identifier: %q",
				ErrInvalidConfiguration, n.role, n.column)
		}
		col := strings.ToLower(n.column)
		if reservedColumns[col] {
			return fmt.Errorf("%w: column for %s uses reserved name %q",
				ErrInvalidConfiguration, n.role, n.column)
		}
		if prev, ok := seen[col]; ok {
			return fmt.Errorf("%w: %s and %s both map to column %q",
				ErrInvalidConfiguration, prev, n.role, n.column)
		}
		seen[col] = n.role
	}
	return nil
}

// Normalized returns a copy with trimmed sex tokens and the default policy
// filled in.
func (s Schema) Normalized() Schema {
	out := s
	out.SexValues = make([]string, len(s.SexValues))
	for i, v := range s.SexValues {
		out.SexValues[i] = strings.TrimSpace(v)
	}
	if out.SpousePolicy == "" {
		out.SpousePolicy = PolicyLineal
	}
	return out
}
