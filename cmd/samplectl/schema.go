package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/measurestats/internal/logging"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the sample and summary tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	// Applied explicitly below, regardless of DB_ENSURE_SCHEMA.
	cfg.Database.EnsureSchema = false
	backend, err := openStore(ctx)
	if err != nil {
		log.Error("database connection failed", "driver", cfg.Database.Driver, "error", err)
		return withExitCode(exitDBConnError, nil)
	}
	defer backend.Close()

	if err := backend.EnsureSchema(ctx); err != nil {
		log.Error("schema creation failed", "error", err)
		return withExitCode(exitImportError, nil)
	}

	log.Info("schema ready", "driver", cfg.Database.Driver)
	return nil
}
