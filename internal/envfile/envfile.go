// Package envfile loads .env files for local development, the way the CLI
// expects a project's secrets and sandbox overrides to be supplied.
package envfile

import (
	"os"

	"github.com/joho/godotenv"
)

// Load reads path (if it exists) and sets any variable not already present
// in the process environment. A missing file is not an error — most
// projects don't have one until `calljmp login` writes it.
func Load(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for k, v := range vars {
		if _, present := os.LookupEnv(k); present {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Write serializes kv to path in .env format. The parent directory is not
// created; it must already exist. Existing keys not present in kv are
// preserved by merging with whatever Load would have read back from path
// first.
func Write(path string, kv map[string]string) error {
	existing, _ := godotenv.Read(path)
	merged := make(map[string]string, len(existing)+len(kv))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range kv {
		merged[k] = v
	}
	return godotenv.Write(merged, path)
}
