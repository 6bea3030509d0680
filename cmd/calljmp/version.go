package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/transport"
)

var (
	// Version is the current version of calljmp (overridden by ldflags at
	// release build time).
	Version = "dev"
	// Commit is the git revision the binary was built from (ldflag, optional).
	Commit = ""
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "setup",
	Short:   "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		checkServer, _ := cmd.Flags().GetBool("server")
		if checkServer {
			return showServerVersion(cmd)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]string{"version": Version, "commit": Commit})
		}
		if Commit != "" {
			fmt.Printf("calljmp version %s (%s)\n", Version, Commit)
		} else {
			fmt.Printf("calljmp version %s\n", Version)
		}
		return nil
	},
}

// showServerVersion queries the control plane's reported version directly,
// bypassing the compatibility gate normally applied in transport.Client.do
// so a mismatch prints as a readable message instead of failing the command.
func showServerVersion(cmd *cobra.Command) error {
	client := transportClient()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = rootCtx
	}
	serverVersion, err := client.ServerVersion(ctx)
	if err != nil {
		return err
	}
	compatErr := transport.CheckVersionCompatibility(serverVersion, Version)
	compatible := compatErr == nil

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"cli_version":    Version,
			"server_version": serverVersion,
			"compatible":     compatible,
		})
	}
	fmt.Printf("CLI version:    %s\n", Version)
	fmt.Printf("Server version: %s\n", serverVersion)
	if compatible {
		fmt.Println("Compatibility:  compatible")
	} else {
		fmt.Printf("Compatibility:  incompatible (%v)\n", compatErr)
	}
	return nil
}

func init() {
	versionCmd.Flags().Bool("server", false, "also check the control plane's reported version")
	rootCmd.AddCommand(versionCmd)
}
