// Package project inspects and scaffolds the calljmp-specific parts of a
// project directory: the manifest, the .gitignore block, and best-effort
// iOS/Android probing used to suggest a binding name during `calljmp init`.
package project

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the parsed form of calljmp.toml.
type Manifest struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	SchemaDir   string `toml:"schema_dir"`
}

// LoadManifest reads and parses calljmp.toml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	var m Manifest
	path := filepath.Join(dir, "calljmp.toml")
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if m.SchemaDir == "" {
		m.SchemaDir = "schema"
	}
	if m.Environment == "" {
		m.Environment = "dev"
	}
	return &m, nil
}

const gitignoreBeginMarker = "# calljmp: begin"
const gitignoreEndMarker = "# calljmp: end"

var gitignoreEntries = []string{".calljmp/", ".env"}

// EnsureGitignore inserts (or refreshes) an idempotent, marker-delimited
// block of calljmp-managed ignore patterns into dir/.gitignore. Safe to
// call repeatedly: a second call is a no-op on a file that already has an
// up-to-date block.
func EnsureGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")

	existing, err := readLines(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	block := append([]string{gitignoreBeginMarker}, gitignoreEntries...)
	block = append(block, gitignoreEndMarker)

	start, end := findBlock(existing)
	var out []string
	switch {
	case start < 0:
		out = existing
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, block...)
	default:
		out = append(append([]string{}, existing[:start]...), block...)
		out = append(out, existing[end+1:]...)
	}

	return os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o644)
}

func findBlock(lines []string) (start, end int) {
	start, end = -1, -1
	for i, l := range lines {
		if strings.TrimSpace(l) == gitignoreBeginMarker {
			start = i
		}
		if strings.TrimSpace(l) == gitignoreEndMarker && start >= 0 {
			end = i
			break
		}
	}
	if start >= 0 && end < 0 {
		// Unterminated block from a partial write; treat as absent so we
		// append a fresh one rather than corrupt the file.
		return -1, -1
	}
	return start, end
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// DetectBindingName makes a best-effort guess at a binding name by probing
// for an iOS Info.plist or Android build.gradle under dir. Returns "" if
// neither is found; callers fall back to prompting the user.
func DetectBindingName(dir string) string {
	if name := probePlist(dir); name != "" {
		return name
	}
	return probeGradle(dir)
}

func probePlist(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*", "Info.plist"))
	if len(matches) == 0 {
		return ""
	}
	return filepath.Base(filepath.Dir(matches[0]))
}

func probeGradle(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*", "build.gradle"))
	if len(matches) == 0 {
		matches, _ = filepath.Glob(filepath.Join(dir, "*", "build.gradle.kts"))
	}
	if len(matches) == 0 {
		return ""
	}
	return filepath.Base(filepath.Dir(matches[0]))
}
