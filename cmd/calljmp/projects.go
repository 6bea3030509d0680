package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	GroupID: "deploy",
	Short:   "Manage calljmp control-plane projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects accessible with the stored API token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		projects, err := client.ProjectsList(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(projects)
		}
		for _, p := range projects {
			fmt.Printf("%s\t%s\n", p.ID, p.Name)
		}
		return nil
	},
}

var projectsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the project id subsequent commands operate on",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := config.SetPersistent("project", args[0]); err != nil {
			return err
		}
		ui.LogPass(fmt.Sprintf("using project %s", args[0]))
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsUseCmd)
}
