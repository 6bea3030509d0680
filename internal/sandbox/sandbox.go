// Package sandbox drives the local development sandbox: a single-instance
// guard, a debounced schema-file watcher, and a wazero-hosted worker
// runtime that's reloaded whenever the watched worker module changes.
package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Calljmp/calljmp-cli/internal/schema"
	"github.com/Calljmp/calljmp-cli/internal/ui"
)

// Sandbox owns a single worker runtime and its backing SQLite file. Only
// one Sandbox may run per project directory; New fails if another process
// already holds the lock.
type Sandbox struct {
	dbPath     string
	workerPath string
	schemaDir  string
	lock       *flock.Flock

	mu      sync.Mutex
	db      *sql.DB
	runtime wazero.Runtime
	module  wazero.CompiledModule
}

// Options configures a Sandbox.
type Options struct {
	ProjectDir string // root of the project; holds .calljmp/
	DBPath     string // sandbox SQLite file, typically .calljmp/sandbox.db
	WorkerPath string // compiled worker .wasm module to host
	SchemaDir  string // directory of target schema .sql files
}

// New acquires the sandbox lock and opens the SQLite file. The caller must
// call Close when done.
func New(opts Options) (*Sandbox, error) {
	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating sandbox directory: %w", err)
	}

	lockPath := filepath.Join(opts.ProjectDir, ".calljmp", "sandbox.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring sandbox lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another `calljmp dev` is already running against this project")
	}

	db, err := sql.Open("sqlite3", opts.DBPath)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening sandbox database: %w", err)
	}

	return &Sandbox{
		dbPath:     opts.DBPath,
		workerPath: opts.WorkerPath,
		schemaDir:  opts.SchemaDir,
		lock:       lock,
		db:         db,
	}, nil
}

// Close releases the wazero runtime, the database handle, and the
// single-instance lock, in that order.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime != nil {
		_ = s.runtime.Close(context.Background())
	}
	_ = s.db.Close()
	return s.lock.Unlock()
}

// SyncSchema reads every .sql file in the sandbox's schema directory,
// concatenated in filename order, plans against the live sandbox database,
// and applies the result. Called once at startup and again on every
// schema-directory change.
func (s *Sandbox) SyncSchema() error {
	entries, err := os.ReadDir(s.schemaDir)
	if err != nil {
		return fmt.Errorf("reading schema directory: %w", err)
	}
	var target []byte
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.schemaDir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		target = append(target, b...)
		target = append(target, '\n')
	}

	p, err := schema.PlanFromDB(s.db, string(target))
	if err != nil {
		return fmt.Errorf("planning sandbox schema sync: %w", err)
	}
	if len(p.Steps) == 0 {
		ui.LogMuted("sandbox schema up to date")
		return nil
	}
	if err := schema.Apply(s.db, p); err != nil {
		return fmt.Errorf("applying sandbox schema sync: %w", err)
	}
	ui.LogPass(fmt.Sprintf("sandbox schema synced (%d statement groups)", len(p.Steps)))
	return nil
}

// loadWorker compiles the worker .wasm module, replacing any previously
// loaded one.
func (s *Sandbox) loadWorker(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := os.ReadFile(s.workerPath)
	if err != nil {
		return fmt.Errorf("reading worker module: %w", err)
	}

	if s.runtime != nil {
		_ = s.runtime.Close(ctx)
	}
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("instantiating WASI: %w", err)
	}
	mod, err := rt.CompileModule(ctx, code)
	if err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("compiling worker module: %w", err)
	}

	s.runtime = rt
	s.module = mod
	return nil
}

// Run starts the watch loop: it loads the worker once, then blocks,
// reloading the worker and re-syncing the schema whenever fsnotify reports
// a change under the project's schema directory or worker module, debounced
// by 300ms to absorb editor save bursts. Run returns when ctx is canceled.
func (s *Sandbox) Run(ctx context.Context) error {
	if err := s.SyncSchema(); err != nil {
		return err
	}
	if err := s.loadWorker(ctx); err != nil {
		return err
	}
	ui.LogPass("sandbox ready")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.schemaDir); err != nil {
		return fmt.Errorf("watching schema directory: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.workerPath)); err != nil {
		return fmt.Errorf("watching worker directory: %w", err)
	}

	var timer *time.Timer
	reload := func() {
		if err := s.SyncSchema(); err != nil {
			ui.LogFail(err.Error())
		}
		if err := s.loadWorker(ctx); err != nil {
			ui.LogFail(err.Error())
		} else {
			ui.LogPass("worker reloaded")
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(300*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ui.LogFail(fmt.Sprintf("watcher error: %v", err))
		}
	}
}
