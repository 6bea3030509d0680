package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var secretsCmd = &cobra.Command{
	Use:     "secrets",
	GroupID: "deploy",
	Short:   "Manage project secrets on the control plane",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a project secret",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		if err := client.SecretsSet(ctx, config.GetString("project"), args[0], args[1]); err != nil {
			return err
		}
		ui.LogPass(fmt.Sprintf("set secret %s", args[0]))
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project secret keys (values are never returned)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		secrets, err := client.SecretsList(ctx, config.GetString("project"))
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(secrets)
		}
		for _, s := range secrets {
			fmt.Println(s.Key)
		}
		return nil
	},
}

var secretsRemoveForce bool

var secretsRemoveCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Remove a project secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !secretsRemoveForce && !ui.PromptYesNo(fmt.Sprintf("remove secret %q?", args[0]), false) {
			ui.LogWarn("aborted")
			return nil
		}
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		if err := client.SecretsRemove(ctx, config.GetString("project"), args[0]); err != nil {
			return err
		}
		ui.LogPass(fmt.Sprintf("removed secret %s", args[0]))
		return nil
	},
}

func init() {
	secretsRemoveCmd.Flags().BoolVarP(&secretsRemoveForce, "force", "f", false, "skip the confirmation prompt")
	secretsCmd.AddCommand(secretsSetCmd, secretsListCmd, secretsRemoveCmd)
}
