// Package ui provides terminal styling, prompts, and table rendering for the
// calljmp CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette, shared by prompts, tables, and the migration plan renderer.
var (
	ColorAccent = lipgloss.Color("39")  // blue — headers, interactive prompts
	ColorPass   = lipgloss.Color("42")  // green — applied/success
	ColorWarn   = lipgloss.Color("214") // orange — tamper warnings, skips
	ColorFail   = lipgloss.Color("196") // red — errors
	ColorMuted  = lipgloss.Color("240") // gray — already-applied, hints
)

var (
	StyleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StylePass   = lipgloss.NewStyle().Foreground(ColorPass)
	StyleWarn   = lipgloss.NewStyle().Foreground(ColorWarn)
	StyleFail   = lipgloss.NewStyle().Bold(true).Foreground(ColorFail)
	StyleMuted  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// LogPass, LogWarn, LogFail, and LogMuted write a single line to stderr,
// styled in color only when ShouldUseColor reports the output stream wants
// it (a TTY, or CLICOLOR_FORCE). Piped/CI output gets the plain message, no
// ANSI escapes. Used by the migration runner to report per-file outcomes:
// applied in green, already-applied in gray, tampered in orange, failed in
// red.
func LogPass(msg string)  { logStyled(StylePass, msg) }
func LogWarn(msg string)  { logStyled(StyleWarn, msg) }
func LogFail(msg string)  { logStyled(StyleFail, msg) }
func LogMuted(msg string) { logStyled(StyleMuted, msg) }

func logStyled(style lipgloss.Style, msg string) {
	if ShouldUseColor() {
		msg = style.Render(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}

// Check and Cross are the glyphs LogPass/LogFail callers prefix per-item
// outcomes with (e.g. the migration runner's one-line-per-file report).
// They fall back to plain ASCII when ShouldUseEmoji says the output stream
// doesn't want decorative glyphs.
func Check() string {
	if ShouldUseEmoji() {
		return "✓"
	}
	return "[ok]"
}

func Cross() string {
	if ShouldUseEmoji() {
		return "✗"
	}
	return "[x]"
}
