package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Calljmp/calljmp-cli/internal/project"
	"github.com/Calljmp/calljmp-cli/internal/scaffold"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Scaffold a new calljmp project in the current directory",
	Long: `Writes calljmp.toml, a .env.example, an initial schema file, and a
worker entrypoint, then adds a calljmp-managed block to .gitignore.

Runs an interactive form to fill in the project name, default environment,
and schema directory when stdout is a terminal; otherwise falls back to
detected or default values.`,
	RunE: runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	defaults := ui.ProjectInit{
		Name:        filepath.Base(cwd),
		Environment: "dev",
		SchemaDir:   "schema",
	}
	if name := project.DetectBindingName(cwd); name != "" {
		defaults.Name = name
	}

	answers, err := ui.AskProjectInit(defaults)
	if err != nil {
		return err
	}

	data := scaffold.ProjectData{
		Name:        answers.Name,
		Environment: answers.Environment,
		SchemaDir:   answers.SchemaDir,
	}

	manifest, err := scaffold.Manifest(data)
	if err != nil {
		return fmt.Errorf("rendering calljmp.toml: %w", err)
	}
	if err := writeIfAbsent(filepath.Join(cwd, "calljmp.toml"), manifest); err != nil {
		return err
	}

	envExample, err := scaffold.EnvExample(data)
	if err != nil {
		return fmt.Errorf("rendering .env.example: %w", err)
	}
	if err := writeIfAbsent(filepath.Join(cwd, ".env.example"), envExample); err != nil {
		return err
	}

	schemaDir := filepath.Join(cwd, answers.SchemaDir)
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		return fmt.Errorf("creating schema directory: %w", err)
	}
	initialSchema, err := scaffold.InitialSchema(data)
	if err != nil {
		return fmt.Errorf("rendering initial schema: %w", err)
	}
	if err := writeIfAbsent(filepath.Join(schemaDir, "0001-init.sql"), initialSchema); err != nil {
		return err
	}

	workerEntrypoint, err := scaffold.WorkerEntrypoint()
	if err != nil {
		return fmt.Errorf("rendering worker entrypoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(cwd, "worker"), 0o755); err != nil {
		return fmt.Errorf("creating worker directory: %w", err)
	}
	if err := writeIfAbsent(filepath.Join(cwd, "worker", "main.go"), workerEntrypoint); err != nil {
		return err
	}

	if err := project.EnsureGitignore(cwd); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}

	ui.LogPass(fmt.Sprintf("initialized calljmp project %q in %s", answers.Name, cwd))
	return nil
}

func writeIfAbsent(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		ui.LogMuted(fmt.Sprintf("skipping %s (already exists)", path))
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
