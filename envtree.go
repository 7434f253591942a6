package envtree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/presbrey/envtree/envfiles"
	"github.com/presbrey/envtree/workspace"
)

// ErrUnavailable is returned when no workspace root exists above the start
// directory, so there is nothing to load. It wraps workspace.ErrNotFound.
var ErrUnavailable = errors.New("no workspace root found, nothing to load")

// DefaultEnvironment is used when no environment variable names one
const DefaultEnvironment = "development"

// EnvironmentVars are consulted in order for the default environment name
var EnvironmentVars = []string{"ENVTREE_ENV", "APP_ENV", "NODE_ENV"}

// Options controls a Loader. Zero-valued fields take their defaults, so
// &Options{Dir: dir} loads from dir and exports into the process environment.
type Options struct {
	// Dir is the start directory (default: the working directory)
	Dir string

	// NoSetEnv leaves Store untouched. By default loaded variables are
	// exported into Store without overwriting variables it already holds.
	NoSetEnv bool

	// Environment selects .env.<name> files (default: see EnvironmentVars,
	// then DefaultEnvironment)
	Environment string

	// Prefix keeps only keys starting with it (default: keep all)
	Prefix string

	// Verbose logs each stage of the load
	Verbose bool

	// Silent suppresses warnings about unreadable files
	Silent bool

	// Logger receives trace lines and warnings (default: slog.Default())
	Logger *slog.Logger

	// Store is the ambient environment (default: OSEnv)
	Store Store

	// Locator finds the workspace root (default: workspace.DefaultLocator())
	Locator *workspace.Locator

	// Stdin, Stdout and Stderr are handed to commands started by Exec
	// (default: the process's own)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns Options with sensible defaults
func DefaultOptions() *Options {
	return &Options{
		Store: OSEnv{},
	}
}

// Result is the outcome of a load
type Result struct {
	Vars          map[string]string
	FilesLoaded   []string
	WorkspaceRoot string
	Method        workspace.Method
	Environment   string

	// Skipped lists exported keys the store already held
	Skipped []string
}

// Loader loads layered .env files for a workspace
type Loader struct {
	opts Options
}

// New creates a Loader. A nil opts uses DefaultOptions.
func New(opts *Options) *Loader {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Store == nil {
		o.Store = OSEnv{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Locator == nil {
		o.Locator = workspace.DefaultLocator()
		if o.Verbose {
			o.Locator.Logger = o.Logger
		}
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return &Loader{opts: o}
}

// Environment returns the environment name the loader will use
func (l *Loader) Environment() string {
	if l.opts.Environment != "" {
		return l.opts.Environment
	}
	for _, key := range EnvironmentVars {
		if v, ok := l.opts.Store.Lookup(key); ok && v != "" {
			return v
		}
	}
	return DefaultEnvironment
}

// Load locates the workspace and merges its .env files, reading them
// concurrently.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	return l.load(ctx, readConcurrent)
}

// LoadSync is Load with blocking, one-at-a-time reads
func (l *Loader) LoadSync() (*Result, error) {
	return l.load(context.Background(), readSequential)
}

// MustLoad loads environment files and panics on error
func (l *Loader) MustLoad() *Result {
	res, err := l.LoadSync()
	if err != nil {
		panic(err)
	}
	return res
}

func (l *Loader) load(ctx context.Context, read reader) (*Result, error) {
	dir := l.opts.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}
	env := l.Environment()

	det, err := l.opts.Locator.Locate(dir)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			l.trace("no workspace root", "start", dir)
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	l.trace("workspace root", "root", det.Root, "method", det.Method)

	candidates, err := envfiles.Candidates(det.Root, dir, env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve env files: %w", err)
	}
	paths := envfiles.Paths(envfiles.MergeOrder(candidates))
	l.trace("env files resolved", "environment", env, "files", paths)

	parsed, err := read(ctx, paths)
	if err != nil {
		return nil, err
	}

	maps := make([]map[string]string, len(parsed))
	for i, p := range parsed {
		if p.err != nil {
			l.warn("skipping env file", "file", paths[i], "error", p.err)
			continue
		}
		l.trace("env file parsed", "file", paths[i], "keys", len(p.vars))
		maps[i] = p.vars
	}

	vars := filterPrefix(merge(maps), l.opts.Prefix)
	res := &Result{
		Vars:          vars,
		FilesLoaded:   paths,
		WorkspaceRoot: det.Root,
		Method:        det.Method,
		Environment:   env,
	}

	if !l.opts.NoSetEnv {
		skipped, err := export(l.opts.Store, vars)
		if err != nil {
			return nil, err
		}
		res.Skipped = skipped
		l.trace("variables exported", "set", len(vars)-len(skipped), "kept", len(skipped))
	}

	l.trace("load complete", "files", len(paths), "vars", len(vars))
	return res, nil
}

func (l *Loader) trace(msg string, args ...any) {
	if l.opts.Verbose {
		l.opts.Logger.Info(msg, args...)
	}
}

func (l *Loader) warn(msg string, args ...any) {
	if !l.opts.Silent {
		l.opts.Logger.Warn(msg, args...)
	}
}

// Load runs a Loader built from opts
func Load(ctx context.Context, opts *Options) (*Result, error) {
	return New(opts).Load(ctx)
}

// LoadDefault loads environment files using default options
func LoadDefault() (*Result, error) {
	return New(nil).LoadSync()
}

// MustLoadDefault loads environment files using default options and panics on error
func MustLoadDefault() *Result {
	return New(nil).MustLoad()
}

// AutoLoad is a convenience function for use in init() functions.
// It loads with default options and logs instead of failing.
func AutoLoad() {
	if _, err := LoadDefault(); err != nil {
		slog.Warn("failed to auto-load environment files", "error", err)
	}
}
