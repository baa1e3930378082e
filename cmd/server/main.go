package main

import (
	"log"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "ficehub",
		Short: "Ficehub publishing backend",
		Long: `Ficehub serves posts, comments and votes and keeps every author's
rating equal to the mean score of their content.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed defaults",
		RunE:  runMigrate,
	}

	recomputeCmd = &cobra.Command{
		Use:   "recompute",
		Short: "Recompute every user's rating from the stored scores",
		RunE:  runRecompute,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the TOML config file (default config.toml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, recomputeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
