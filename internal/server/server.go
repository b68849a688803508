// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete store, the engine
// and the metrics, and injects them into the tools and resources. No
// relationship logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HendryAvila/lineage/internal/config"
	"github.com/HendryAvila/lineage/internal/genealogy"
	"github.com/HendryAvila/lineage/internal/kintools"
	"github.com/HendryAvila/lineage/internal/metrics"
	"github.com/HendryAvila/lineage/internal/prompts"
	"github.com/HendryAvila/lineage/internal/resources"
	"github.com/HendryAvila/lineage/internal/store/memstore"
	"github.com/HendryAvila/lineage/internal/store/sqlite"
)

// Version is set at build time via ldflags.
var Version = "dev"

// individualStore is what the composition root needs from a backend.
type individualStore interface {
	kintools.Directory
	genealogy.Store
	Close() error
}

// NewLogger builds the production zap logger. It writes JSON to stderr so
// stdout stays reserved for the MCP stdio transport.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered. Mutation counters are registered on reg.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg config.Env, log *zap.Logger, reg prometheus.Registerer) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	schema := cfg.Schema()
	if err := schema.Validate(); err != nil {
		return nil, noop, err
	}

	// --- Create shared dependencies ---

	store, err := openStore(cfg, schema, log)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("store close", zap.Error(err))
		}
	}

	mut, err := genealogy.NewMutator(store, schema,
		genealogy.WithLogger(log.Named("mutator")),
		genealogy.WithRecorder(metrics.New(reg)),
	)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating mutator: %w", err)
	}
	graph := genealogy.NewGraph(store)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"lineage",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(schema)),
	)

	// --- Register tools ---

	registerPersonTools(s, store)
	registerRelationTools(s, store, mut)

	kinQuery := kintools.NewKinQueryTool(graph)
	s.AddTool(kinQuery.Definition(), kinQuery.Handle)

	kinCompare := kintools.NewKinCompareTool(graph)
	s.AddTool(kinCompare.Definition(), kinCompare.Handle)

	// --- Register prompts ---

	recordPrompt := prompts.NewRecordPrompt(schema)
	s.AddPrompt(recordPrompt.Definition(), recordPrompt.Handle)

	kinshipPrompt := prompts.NewKinshipPrompt()
	s.AddPrompt(kinshipPrompt.Definition(), kinshipPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(schema, store)
	s.AddResource(resourceHandler.SchemaResource(), resourceHandler.HandleSchema)
	s.AddResourceTemplate(resourceHandler.PersonTemplate(), resourceHandler.HandlePerson)

	log.Info("lineage server ready",
		zap.String("version", Version),
		zap.String("store", string(cfg.Store)),
		zap.Bool("current_spouse", schema.CurrentSpouse),
		zap.String("spouse_policy", string(schema.SpousePolicy)),
	)
	return s, cleanup, nil
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

func openStore(cfg config.Env, schema config.Schema, log *zap.Logger) (individualStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		st, err := memstore.New(schema, memstore.WithLogger(log.Named("memstore")))
		if err != nil {
			return nil, fmt.Errorf("creating memory store: %w", err)
		}
		log.Warn("using the in-memory store; nothing is persisted")
		return st, nil
	case config.StoreSQLite, "":
		st, err := sqlite.New(sqlite.Config{DataDir: cfg.DataDir}, schema, log.Named("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfiguration, cfg.Store)
}

func registerPersonTools(s *server.MCPServer, dir kintools.Directory) {
	add := kintools.NewPersonAddTool(dir)
	s.AddTool(add.Definition(), add.Handle)

	get := kintools.NewPersonGetTool(dir)
	s.AddTool(get.Definition(), get.Handle)

	list := kintools.NewPersonListTool(dir)
	s.AddTool(list.Definition(), list.Handle)

	remove := kintools.NewPersonRemoveTool(dir)
	s.AddTool(remove.Definition(), remove.Handle)
}

func registerRelationTools(s *server.MCPServer, r genealogy.Reader, mut *genealogy.Mutator) {
	set := kintools.NewRelationSetTool(mut)
	s.AddTool(set.Definition(), set.Handle)

	clearTool := kintools.NewRelationClearTool(mut)
	s.AddTool(clearTool.Definition(), clearTool.Handle)

	check := kintools.NewRelationCheckTool(r, mut.Checker())
	s.AddTool(check.Definition(), check.Handle)
}

// serverInstructions tells the host how to use the tools.
func serverInstructions(schema config.Schema) string {
	spouse := "disabled: relation_set with role=spouse is rejected with spouse_disabled"
	if schema.CurrentSpouse {
		spouse = fmt.Sprintf("enabled, spouse policy %q", schema.SpousePolicy)
	}
	return fmt.Sprintf(`You have access to lineage, a family-tree relationship graph.

## Model
Every person has at most one father, one mother and (when enabled) one current
spouse. Sex tokens are %q (male, may be a father) and %q (female, may be a
mother). Current spouse: %s.

## Workflow
1. person_add for each individual (keep the returned id).
2. relation_set to link father, mother or spouse. Use relation_check first when
   unsure; it explains a rejection without writing anything.
3. kin_query and kin_compare to explore the tree.
4. person_remove deletes one person; children and the spouse only lose their
   edge to that person.

## Rejection codes
self_reference_rejected, sex_mismatch_rejected, cycle_rejected,
incest_rejected, not_found, spouse_disabled, invalid_sex,
propagation_failure. A rejected call changes nothing.

The active descriptor is available as the lineage://schema resource, and each
person as lineage://person/{id}.`, schema.Male(), schema.Female(), spouse)
}
