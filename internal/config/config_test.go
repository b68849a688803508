package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestDefaultSchema_Valid(t *testing.T) {
	if err := DefaultSchema().Validate(); err != nil {
		t.Fatalf("DefaultSchema().Validate() = %v, want nil", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
		want   string
	}{
		{"one sex token", func(s *Schema) { s.SexValues = []string{"M"} }, "exactly 2 tokens"},
		{"three sex tokens", func(s *Schema) { s.SexValues = []string{"M", "F", "X"} }, "exactly 2 tokens"},
		{"blank token", func(s *Schema) { s.SexValues = []string{"M", " "} }, "must not be blank"},
		{"duplicate tokens", func(s *Schema) { s.SexValues = []string{"F", "F"} }, "must be distinct"},
		{"bad policy", func(s *Schema) { s.SpousePolicy = "tribal" }, "invalid spouse policy"},
		{"bad column", func(s *Schema) { s.Columns.Father = "father id" }, "not a valid identifier"},
		{"reserved column", func(s *Schema) { s.Columns.Mother = "ID" }, "reserved name"},
		{"shared column", func(s *Schema) { s.Columns.Mother = "father_id" }, "both map to column"},
		{"spouse collides", func(s *Schema) {
			s.CurrentSpouse = true
			s.Columns.CurrentSpouse = "sex"
		}, "both map to column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSchema()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("error %v does not wrap ErrInvalidConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_SpouseColumnIgnoredWhenDisabled(t *testing.T) {
	s := DefaultSchema()
	s.CurrentSpouse = false
	s.Columns.CurrentSpouse = "not valid!"
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil while spouse feature is off", err)
	}
}

func TestSchema_SexTokens(t *testing.T) {
	s := DefaultSchema()
	s.SexValues = []string{"male", "female"}

	if s.Male() != "male" {
		t.Errorf("Male() = %q, want male", s.Male())
	}
	if s.Female() != "female" {
		t.Errorf("Female() = %q, want female", s.Female())
	}
	if !s.ValidSex("female") {
		t.Error("ValidSex(female) = false, want true")
	}
	if s.ValidSex("F") {
		t.Error("ValidSex(F) = true, want false")
	}
	if s.ValidSex("") {
		t.Error("ValidSex(\"\") = true, want false")
	}
}

func TestKinshipPolicy_Reaches(t *testing.T) {
	if !PolicyCousins.Reaches(PolicySiblings) {
		t.Error("cousins should reach siblings")
	}
	if PolicyLineal.Reaches(PolicySiblings) {
		t.Error("lineal should not reach siblings")
	}
	if !PolicySiblings.Reaches(PolicySiblings) {
		t.Error("a policy should reach itself")
	}
}

// --- FromEnv ---

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if !strings.HasSuffix(e.DataDir, ".lineage") {
		t.Errorf("DataDir = %s, want suffix .lineage", e.DataDir)
	}
	if e.Store != StoreSQLite {
		t.Errorf("Store = %s, want sqlite", e.Store)
	}
	if e.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", e.MetricsAddr)
	}

	s := e.Schema()
	if err := s.Validate(); err != nil {
		t.Fatalf("default env schema invalid: %v", err)
	}
	if s.Male() != "M" || s.Female() != "F" {
		t.Errorf("SexValues = %v, want [M F]", s.SexValues)
	}
	if !s.CurrentSpouse {
		t.Error("CurrentSpouse should default to true")
	}
	if !s.PerformValidation {
		t.Error("PerformValidation should default to true")
	}
	if s.SpousePolicy != PolicyLineal {
		t.Errorf("SpousePolicy = %s, want lineal", s.SpousePolicy)
	}
	if s.Columns != DefaultColumns() {
		t.Errorf("Columns = %+v, want defaults", s.Columns)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("LINEAGE_DATA_DIR", dir)
	t.Setenv("LINEAGE_SEX_VALUES", "m, f")
	t.Setenv("LINEAGE_CURRENT_SPOUSE", "false")
	t.Setenv("LINEAGE_PERFORM_VALIDATION", "false")
	t.Setenv("LINEAGE_SPOUSE_POLICY", "cousins")
	t.Setenv("LINEAGE_COLUMN_FATHER", "dad")
	t.Setenv("LINEAGE_COLUMN_SEX", "gender")

	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error: %v", err)
	}
	if e.DataDir != dir {
		t.Errorf("DataDir = %s, want %s", e.DataDir, dir)
	}

	s := e.Schema()
	if s.Male() != "m" || s.Female() != "f" {
		t.Errorf("SexValues = %q, want trimmed [m f]", s.SexValues)
	}
	if s.CurrentSpouse || s.PerformValidation {
		t.Error("boolean overrides not applied")
	}
	if s.SpousePolicy != PolicyCousins {
		t.Errorf("SpousePolicy = %s, want cousins", s.SpousePolicy)
	}
	if s.Columns.Father != "dad" || s.Columns.Sex != "gender" {
		t.Errorf("Columns = %+v, want father=dad sex=gender", s.Columns)
	}
	if s.Columns.Mother != "mother_id" {
		t.Errorf("Columns.Mother = %s, want default mother_id", s.Columns.Mother)
	}
}

func TestFromEnv_UnknownStore(t *testing.T) {
	t.Setenv("LINEAGE_STORE", "postgres")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}
