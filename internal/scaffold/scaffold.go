// Package scaffold renders the starter files `calljmp init` writes into a
// new project, using stdlib text/template — no example repo in the pack
// reaches for a non-stdlib template engine for plain-text generation (see
// DESIGN.md), so this is the one ambient concern left on the standard
// library by design rather than by omission.
package scaffold

import (
	"bytes"
	"text/template"
)

var manifestTemplate = template.Must(template.New("calljmp.toml").Parse(`name = "{{.Name}}"
environment = "{{.Environment}}"
schema_dir = "{{.SchemaDir}}"
`))

var envExampleTemplate = template.Must(template.New(".env.example").Parse(`CALLJMP_API_URL=https://api.calljmp.com
CALLJMP_PROJECT=
`))

var schemaTemplate = template.Must(template.New("0001-init.sql").Parse(`CREATE TABLE {{.TableName}} (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`))

var workerTemplate = template.Must(template.New("worker").Parse(`package main

func main() {}
`))

// ProjectData parameterizes the manifest and schema templates.
type ProjectData struct {
	Name        string
	Environment string
	SchemaDir   string
	TableName   string
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func Manifest(d ProjectData) (string, error)   { return render(manifestTemplate, d) }
func EnvExample(d ProjectData) (string, error) { return render(envExampleTemplate, d) }
func InitialSchema(d ProjectData) (string, error) {
	if d.TableName == "" {
		d.TableName = "items"
	}
	return render(schemaTemplate, d)
}
func WorkerEntrypoint() (string, error) { return render(workerTemplate, nil) }
