// lineage: family-tree relationship graph MCP server
//
// Exposes a genealogy graph (parents, current spouse, kinship queries) to
// any MCP host over stdio. Configuration comes from LINEAGE_* environment
// variables.
//
// Usage:
//
//	lineage serve     # Start MCP server (stdio transport)
//	lineage version   # Print the version
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/lineage/internal/config"
	lineageserver "github.com/HendryAvila/lineage/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("lineage v%s\n", lineageserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	log, err := lineageserver.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	s, cleanup, err := lineageserver.New(cfg, log, reg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// stdin closing ends the session; stop the metrics listener too.
		defer stop()
		err := server.NewStdioServer(s).Listen(gctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `lineage v%s: family-tree relationship graph MCP server

Usage:
  lineage serve     Start the MCP server (stdio transport)
  lineage version   Print the version

Environment:
  LINEAGE_DATA_DIR            Database directory (default: ~/.lineage)
  LINEAGE_STORE               sqlite (default) or memory
  LINEAGE_SEX_VALUES          Male and female tokens (default: M,F)
  LINEAGE_CURRENT_SPOUSE      Enable the current-spouse edge (default: true)
  LINEAGE_PERFORM_VALIDATION  Enforce sex-role checks (default: true)
  LINEAGE_SPOUSE_POLICY       lineal (default), siblings or cousins
  LINEAGE_COLUMN_<ROLE>       Column name for SEX, FATHER, MOTHER,
                              CURRENT_SPOUSE, BIRTH_DATE, DEATH_DATE
  LINEAGE_METRICS_ADDR        Serve Prometheus metrics on this address
  LINEAGE_DEBUG               Debug logging

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "lineage": {
        "command": "lineage",
        "args": ["serve"]
      }
    }
  }
`, lineageserver.Version)
}
