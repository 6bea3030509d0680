package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// ProjectInit collects the answers needed to scaffold a new project.
// In non-interactive mode it returns the supplied defaults unchanged.
type ProjectInit struct {
	Name        string
	Environment string
	SchemaDir   string
}

// AskProjectInit runs an interactive huh form to fill in ProjectInit,
// falling back to the defaults when stdout isn't a TTY (CI, scripts).
func AskProjectInit(defaults ProjectInit) (ProjectInit, error) {
	answers := defaults
	if !IsTerminal() {
		return answers, nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&answers.Name).
				Placeholder(defaults.Name),
			huh.NewSelect[string]().
				Title("Default environment").
				Options(
					huh.NewOption("dev", "dev"),
					huh.NewOption("staging", "staging"),
					huh.NewOption("production", "production"),
				).
				Value(&answers.Environment),
			huh.NewInput().
				Title("Schema directory").
				Value(&answers.SchemaDir).
				Placeholder(defaults.SchemaDir),
		),
	)

	if err := form.Run(); err != nil {
		return defaults, fmt.Errorf("running init form: %w", err)
	}
	if answers.Name == "" {
		answers.Name = defaults.Name
	}
	if answers.SchemaDir == "" {
		answers.SchemaDir = defaults.SchemaDir
	}
	return answers, nil
}

// ConfirmDestructive asks for explicit confirmation before a migration plan
// is written and applied, whatever kind of steps it holds. Plans that can't
// preserve existing rows are rejected before a user ever sees this prompt.
// When stdout is not a terminal it returns false without prompting.
func ConfirmDestructive(summary string) bool {
	if !IsTerminal() {
		return false
	}
	confirmed := false
	err := huh.NewConfirm().
		Title("Apply migration plan?").
		Description(summary).
		Affirmative("Apply").
		Negative("Cancel").
		Value(&confirmed).
		Run()
	if err != nil {
		return false
	}
	return confirmed
}
