package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Env is the process configuration read from LINEAGE_* variables.
type Env struct {
	DataDir           string        `env:"LINEAGE_DATA_DIR"`
	Store             StoreKind     `env:"LINEAGE_STORE" envDefault:"sqlite"`
	SexValues         []string      `env:"LINEAGE_SEX_VALUES" envDefault:"M,F" envSeparator:","`
	CurrentSpouse     bool          `env:"LINEAGE_CURRENT_SPOUSE" envDefault:"true"`
	PerformValidation bool          `env:"LINEAGE_PERFORM_VALIDATION" envDefault:"true"`
	SpousePolicy      KinshipPolicy `env:"LINEAGE_SPOUSE_POLICY" envDefault:"lineal"`
	Columns           Columns       `envPrefix:"LINEAGE_COLUMN_"`
	Debug             bool          `env:"LINEAGE_DEBUG"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `env:"LINEAGE_METRICS_ADDR"`
}

// StoreKind selects the individual store backend.
type StoreKind string

const (
	StoreSQLite StoreKind = "sqlite"
	StoreMemory StoreKind = "memory"
)

// FromEnv parses the environment and fills in the data directory default
// (~/.lineage). The returned Env is not validated; call Schema().Validate().
func FromEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	switch e.Store {
	case StoreSQLite, StoreMemory:
	default:
		return Env{}, fmt.Errorf("%w: unknown store %q (want sqlite or memory)", ErrInvalidConfiguration, e.Store)
	}
	if e.DataDir == "" {
		home, _ := os.UserHomeDir()
		e.DataDir = filepath.Join(home, ".lineage")
	}
	return e, nil
}

// Schema extracts the descriptor part of the environment.
func (e Env) Schema() Schema {
	return Schema{
		Columns:           e.Columns,
		SexValues:         e.SexValues,
		CurrentSpouse:     e.CurrentSpouse,
		PerformValidation: e.PerformValidation,
		SpousePolicy:      e.SpousePolicy,
	}.Normalized()
}
