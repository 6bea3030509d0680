package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var vaultCmd = &cobra.Command{
	Use:     "vault",
	GroupID: "deploy",
	Short:   "Manage the project's secret vault",
}

var vaultUnsealForce bool

var vaultUnsealCmd = &cobra.Command{
	Use:   "unseal <share> [share...]",
	Short: "Submit unseal shares to the control plane",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !vaultUnsealForce && !ui.PromptYesNo(fmt.Sprintf("submit %d unseal share(s)?", len(args)), false) {
			ui.LogWarn("aborted")
			return nil
		}
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		if err := client.VaultUnseal(ctx, config.GetString("project"), args); err != nil {
			return err
		}
		ui.LogPass(fmt.Sprintf("submitted %d unseal share(s)", len(args)))
		return nil
	},
}

func init() {
	vaultUnsealCmd.Flags().BoolVarP(&vaultUnsealForce, "force", "f", false, "skip the confirmation prompt")
	vaultCmd.AddCommand(vaultUnsealCmd)
}
