package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/presbrey/envtree"
	"github.com/presbrey/envtree/config"
	"github.com/presbrey/envtree/workspace"
)

// Version is the envtree release
const Version = "0.3.0"

// app holds the process boundaries so tests can swap them out
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	store  envtree.Store

	// locator is nil in production; tests bound the ascent with it
	locator *workspace.Locator
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		store:  envtree.OSEnv{},
	}
}

func (a *app) usage(fs *pflag.FlagSet) {
	fmt.Fprintf(a.stderr, "Usage: envtree [options] [dir] [-- command [args...]]\n")
	fmt.Fprintf(a.stderr, "       envtree info [dir]\n\n")
	fmt.Fprintf(a.stderr, "envtree finds the workspace root above dir and merges the .env files\n")
	fmt.Fprintf(a.stderr, "between the root and dir.\n\n")
	fmt.Fprintf(a.stderr, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(a.stderr, "\nExamples:\n")
	fmt.Fprintf(a.stderr, "  eval \"$(envtree)\"            # export merged variables into your shell\n")
	fmt.Fprintf(a.stderr, "  envtree -r apps/web          # show which files and keys would load\n")
	fmt.Fprintf(a.stderr, "  envtree -e test -- go test   # run a command with the test environment\n")
	fmt.Fprintf(a.stderr, "  envtree info                 # compare lock file and indicator detection\n")
}

// run executes the command line and returns the process exit code
func (a *app) run(args []string) int {
	if len(args) > 0 && args[0] == "info" {
		return a.runInfo(args[1:])
	}

	fs := pflag.NewFlagSet("envtree", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	envName := fs.StringP("env", "e", "", "environment name (default: $ENVTREE_ENV, $APP_ENV, $NODE_ENV or development)")
	prefix := fs.StringP("prefix", "p", "", "only keep variables starting with this prefix")
	verbose := fs.BoolP("verbose", "v", false, "log each loading stage to stderr")
	quiet := fs.BoolP("quiet", "q", false, "suppress warnings")
	report := fs.BoolP("report", "r", false, "print a report instead of export statements")
	asJSON := fs.Bool("json", false, "print merged variables as JSON")
	configPath := fs.StringP("config", "c", "", "settings file (default: .envtree.{yaml,yml,toml,json} in dir or workspace root)")
	versionFlag := fs.BoolP("version", "V", false, "print version information")
	fs.Usage = func() { a.usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(a.stderr, "envtree: %v\n", err)
		return 1
	}
	if *versionFlag {
		fmt.Fprintf(a.stdout, "envtree version %s\n", Version)
		return 0
	}

	positional, command := splitAtDash(fs)
	if len(positional) > 1 {
		fmt.Fprintf(a.stderr, "envtree: expected at most one directory, got %d\n", len(positional))
		return 1
	}
	if fs.ArgsLenAtDash() >= 0 && len(command) == 0 {
		fmt.Fprintln(a.stderr, "envtree: missing command after --")
		return 1
	}
	dir := "."
	if len(positional) == 1 {
		dir = positional[0]
	}

	cfg, err := a.settings(dir, *configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "envtree: %v\n", err)
		return 1
	}
	if fs.Changed("env") {
		cfg.Environment = *envName
	}
	if fs.Changed("prefix") {
		cfg.Prefix = *prefix
	}
	if fs.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if fs.Changed("quiet") {
		cfg.Quiet = *quiet
	}
	if *report {
		cfg.Format = config.FormatReport
	}
	if *asJSON {
		cfg.Format = config.FormatJSON
	}

	opts := a.options(dir, cfg)
	ctx := context.Background()

	if len(command) > 0 {
		code, err := envtree.New(opts).Exec(ctx, command[0], command[1:]...)
		if err != nil {
			fmt.Fprintf(a.stderr, "envtree: %v\n", err)
		}
		return code
	}

	opts.NoSetEnv = true
	res, err := envtree.New(opts).Load(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "envtree: %v\n", err)
		return 1
	}

	switch cfg.Format {
	case config.FormatJSON:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Vars); err != nil {
			fmt.Fprintf(a.stderr, "envtree: %v\n", err)
			return 1
		}
	case config.FormatReport:
		fmt.Fprint(a.stdout, renderReport(a.stdout, res, a.store))
	default:
		writeExports(a.stdout, res.Vars)
	}
	return 0
}

func (a *app) runInfo(args []string) int {
	fs := pflag.NewFlagSet("envtree info", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	verbose := fs.BoolP("verbose", "v", false, "log each ascent step to stderr")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: envtree info [options] [dir]\n\n")
		fmt.Fprintf(a.stderr, "Runs lock file and indicator detection side by side.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(a.stderr, "envtree: %v\n", err)
		return 1
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(a.stderr, "envtree info: expected at most one directory, got %d\n", fs.NArg())
		return 1
	}
	dir := "."
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}

	loc := a.newLocator()
	if *verbose {
		loc.Logger = newLogger(a.stderr, true, false)
	}
	cmp, err := loc.Compare(dir)
	if err != nil {
		fmt.Fprintf(a.stderr, "envtree info: %v\n", err)
		return 1
	}
	fmt.Fprint(a.stdout, renderComparison(a.stdout, cmp))
	if cmp.Lockfile == nil && cmp.Indicator == nil {
		return 1
	}
	return 0
}

// settings loads the settings file named on the command line, or the first
// one found in dir or the workspace root.
func (a *app) settings(dir, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path, a.store.Lookup)
	}
	found, err := config.Find(dir)
	if errors.Is(err, config.ErrNotFound) {
		if det, lerr := a.newLocator().Locate(dir); lerr == nil {
			found, err = config.Find(det.Root)
		}
	}
	if errors.Is(err, config.ErrNotFound) {
		return config.FromEnv(a.store.Lookup)
	}
	if err != nil {
		return nil, err
	}
	return config.Load(found, a.store.Lookup)
}

func (a *app) options(dir string, cfg *config.Config) *envtree.Options {
	logger := newLogger(a.stderr, cfg.Verbose, cfg.Quiet)
	loc := a.newLocator()
	if cfg.Verbose {
		loc.Logger = logger
	}

	opts := envtree.DefaultOptions()
	opts.Dir = dir
	opts.Environment = cfg.Environment
	opts.Prefix = cfg.Prefix
	opts.Verbose = cfg.Verbose
	opts.Silent = cfg.Quiet
	opts.Logger = logger
	opts.Store = a.store
	opts.Locator = loc
	opts.Stdin = a.stdin
	opts.Stdout = a.stdout
	opts.Stderr = a.stderr
	return opts
}

func (a *app) newLocator() *workspace.Locator {
	loc := workspace.DefaultLocator()
	if a.locator != nil {
		copied := *a.locator
		loc = &copied
	}
	return loc
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// splitAtDash separates the positional arguments from the command after --
func splitAtDash(fs *pflag.FlagSet) (positional, command []string) {
	args := fs.Args()
	at := fs.ArgsLenAtDash()
	if at < 0 {
		return args, nil
	}
	return args[:at], args[at:]
}

// writeExports prints one shell export statement per variable, sorted by key
func writeExports(w io.Writer, vars map[string]string) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "export %s=%s\n", k, shellQuote(vars[k]))
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
