package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/envfile"
	"github.com/Calljmp/calljmp-cli/internal/transport"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login [token]",
	GroupID: "setup",
	Short:   "Store a control-plane API token for this project",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		token := ""
		if len(args) == 1 {
			token = args[0]
		} else {
			token = ui.Prompt("API token", "")
		}
		if token == "" {
			return fmt.Errorf("no token provided")
		}
		if err := envfile.Write(".env", map[string]string{"CALLJMP_TOKEN": token}); err != nil {
			return fmt.Errorf("writing .env: %w", err)
		}
		if err := os.Setenv("CALLJMP_TOKEN", token); err != nil {
			return err
		}
		ui.LogPass("stored API token in .env")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "setup",
	Short:   "Remove the stored control-plane API token",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := envfile.Write(".env", map[string]string{"CALLJMP_TOKEN": ""}); err != nil {
			return fmt.Errorf("writing .env: %w", err)
		}
		if err := os.Unsetenv("CALLJMP_TOKEN"); err != nil {
			return err
		}
		ui.LogPass("removed stored API token")
		return nil
	},
}

// transportClient builds a control-plane client from the configured API
// URL and the token loaded by envfile.Load in the root command's
// PersistentPreRunE.
func transportClient() *transport.Client {
	return transport.New(config.GetString("api-url"), os.Getenv("CALLJMP_TOKEN"), Version)
}
