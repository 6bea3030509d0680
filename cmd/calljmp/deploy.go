package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/schedule"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var deployAtFlag string

var deployCmd = &cobra.Command{
	Use:     "deploy",
	GroupID: "deploy",
	Short:   "Deploy the current project to the calljmp control plane",
	RunE: func(cmd *cobra.Command, _ []string) error {
		projectID := config.GetString("project")
		if projectID == "" {
			return fmt.Errorf("no project configured; set CALLJMP_PROJECT or run `calljmp projects use <id>`")
		}

		var at *time.Time
		if deployAtFlag != "" {
			t, err := schedule.At(deployAtFlag, time.Now())
			if err != nil {
				return err
			}
			at = &t
		}

		client := transportClient()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = rootCtx
		}
		if err := client.Deploy(ctx, projectID, at, uuid.NewString()); err != nil {
			return err
		}
		if at != nil {
			ui.LogPass(fmt.Sprintf("scheduled deploy for %s", at.Format(time.RFC3339)))
		} else {
			ui.LogPass("deploy requested")
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployAtFlag, "at", "", `schedule the deploy for a later time, e.g. "tomorrow at 9am"`)
}
