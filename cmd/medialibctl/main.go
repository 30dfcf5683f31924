// medialibctl is a thin operations CLI over the catalog database:
// initialize or migrate a database file, run the integrity checks, and
// print entity counts. Day-to-day catalog use goes through the library
// API; this exists for deployment and recovery work.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/catalogizer/medialibrary"
	"github.com/catalogizer/medialibrary/config"
	"github.com/catalogizer/medialibrary/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "medialibctl",
		Short: "Operations tooling for the media catalog database",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (JSON)")

	root.AddCommand(initCmd(), migrateCmd(), integrityCmd(), statsCmd(), serveMetricsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openLibrary() (*medialibrary.Library, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	lib, result, err := medialibrary.Open(cfg, medialibrary.SetupConfig{})
	if err != nil {
		return nil, fmt.Errorf("open library (%s): %w", result, err)
	}
	return lib, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or open the database, running any pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			settings, err := lib.Settings().Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("database ready at model version %d\n", settings.DBModelVersion)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database to the current model version",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open runs the migration chain as part of initialization.
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			fmt.Println("migration chain complete")
			return nil
		},
	}
}

func integrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity-check",
		Short: "Verify schema registry conformance and run PRAGMA integrity checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := lib.Conn().IntegrityCheck(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entity counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			return printStats(cmd.Context(), lib)
		},
	}
}

func printStats(ctx context.Context, lib *medialibrary.Library) error {
	tables := []string{"media", "file", "folder", "device", "album", "artist", "genre",
		"show", "show_episode", "movie", "playlist", "media_group", "label", "subscription"}
	for _, t := range tables {
		var n int64
		if err := lib.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return err
		}
		fmt.Printf("%-24s %d\n", t, n)
	}
	return nil
}

func serveMetricsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve /healthz, /readyz, and /metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			logger, _ := zap.NewProduction()
			reg := metrics.NewRegistry(lib.Conn())
			fmt.Printf("serving metrics on %s\n", addr)
			return http.ListenAndServe(addr, metrics.Router(lib.Conn(), reg, logger))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9464", "listen address")
	return cmd
}
