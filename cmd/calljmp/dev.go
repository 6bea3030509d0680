package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/config"
	"github.com/Calljmp/calljmp-cli/internal/sandbox"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var workerPathFlag string

var devCmd = &cobra.Command{
	Use:     "dev",
	GroupID: "dev",
	Short:   "Run the local development sandbox",
	Long: `Starts a single-instance sandbox: a SQLite database kept in sync
with the project's schema directory, and a wazero-hosted worker runtime
that's reloaded whenever the worker module or schema directory changes.

Only one "calljmp dev" may run per project; a second invocation fails fast.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}

		workerPath := workerPathFlag
		if workerPath == "" {
			workerPath = filepath.Join(cwd, "worker", "worker.wasm")
		}

		sb, err := sandbox.New(sandbox.Options{
			ProjectDir: cwd,
			DBPath:     config.GetString("sandbox.db"),
			WorkerPath: workerPath,
			SchemaDir:  manifestOrDefaults(),
		})
		if err != nil {
			return err
		}
		defer sb.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		ui.LogPass(fmt.Sprintf("watching %s (Ctrl+C to stop)", manifestOrDefaults()))
		return sb.Run(ctx)
	},
}

func init() {
	devCmd.Flags().StringVar(&workerPathFlag, "worker", "", "compiled worker .wasm module to host (default: worker/worker.wasm)")
}
