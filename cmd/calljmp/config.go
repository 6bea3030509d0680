package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Inspect and override CLI configuration",
	Long: `Configuration is resolved from, in increasing precedence:

  1. built-in defaults
  2. ~/.config/calljmp/config.yaml
  3. <project>/.calljmp/config.yaml
  4. CALLJMP_* environment variables
  5. command-line flags

"calljmp config list" shows the effective value of every known key.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a configuration key",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		key := args[0]
		value := config.AllSettings()[key]
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{key: value})
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Override a configuration key for the current process",
	Long: `Sets a configuration key in memory for the current invocation only.
To persist a value, edit .calljmp/config.yaml directly.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		config.Set(args[0], args[1])
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every effective configuration value",
	RunE: func(_ *cobra.Command, _ []string) error {
		all := config.AllSettings()
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(all)
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %v\n", k, all[k])
		}
		if path := config.ConfigFileUsed(); path != "" {
			fmt.Printf("\n(config file: %s)\n", path)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
}
