package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
)

var bindingsCmd = &cobra.Command{
	Use:     "bindings",
	GroupID: "deploy",
	Short:   "Inspect iOS/Android bindings registered for the project",
}

var bindingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bindings registered for the project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		bindings, err := client.BindingsList(ctx, config.GetString("project"))
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(bindings)
		}
		for _, b := range bindings {
			fmt.Printf("%s\t%s\n", b.Name, b.Platform)
		}
		return nil
	},
}

func init() {
	bindingsCmd.AddCommand(bindingsListCmd)
}
