package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/envfile"
	"github.com/Calljmp/calljmp-cli/internal/logging"
)

var (
	jsonOutput bool
	noColor    bool
	verbose    bool

	rootCtx = context.Background()
)

var rootCmd = &cobra.Command{
	Use:   "calljmp",
	Short: "Develop, migrate, and deploy calljmp mobile backends",
	Long: `calljmp is the developer CLI for the calljmp mobile backend service.

It drives a local development sandbox backed by a SQLite database and a
wazero-hosted worker runtime, computes and applies declarative SQLite schema
migrations, and talks to the calljmp control plane for project management,
deployment, secrets, and vault operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		_ = envfile.Load(".env")

		if cmd.Flags().Changed("json") {
			config.Set("json", jsonOutput)
		}
		if cmd.Flags().Changed("no-color") {
			config.Set("no-color", noColor)
		}
		jsonOutput = config.GetBool("json")
		noColor = config.GetBool("no-color")

		if verbose {
			if err := logging.Initialize(logging.Options{Path: ".calljmp/calljmp.log"}); err != nil {
				return fmt.Errorf("initializing logging: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write diagnostic logs to .calljmp/calljmp.log")

	rootCmd.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup commands:"},
		&cobra.Group{ID: "schema", Title: "Schema & migration commands:"},
		&cobra.Group{ID: "dev", Title: "Local development commands:"},
		&cobra.Group{ID: "deploy", Title: "Control-plane commands:"},
	)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(bindingsCmd)
}
