package envtree

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrSpawn is returned when a command could not be started
var ErrSpawn = errors.New("failed to start command")

// Exec loads the workspace environment and runs name with it, returning the
// command's exit code. A command that runs and exits non-zero is not an error.
func (l *Loader) Exec(ctx context.Context, name string, args ...string) (int, error) {
	res, err := l.Load(ctx)
	if err != nil {
		return 1, err
	}
	return l.Run(ctx, res, name, args...)
}

// Run starts name with the store's environment overlaid by res.Vars
func (l *Loader) Run(ctx context.Context, res *Result, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = Environ(l.opts.Store.Environ(), res.Vars)
	cmd.Stdin = l.opts.Stdin
	cmd.Stdout = l.opts.Stdout
	cmd.Stderr = l.opts.Stderr

	l.trace("starting command", "command", name, "args", args)
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// killed by a signal
			code = 1
		}
		return code, nil
	}
	if err != nil {
		return 1, fmt.Errorf("%w %q: %w", ErrSpawn, name, err)
	}
	return 0, nil
}

// Environ overlays vars onto a KEY=value list. Keys already in base are
// replaced in place and new keys are appended in sorted order.
func Environ(base []string, vars map[string]string) []string {
	out := make([]string, 0, len(base)+len(vars))
	seen := make(map[string]bool, len(vars))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if v, ok := vars[k]; ok {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k+"="+v)
			continue
		}
		out = append(out, kv)
	}
	for _, k := range sortedKeys(vars) {
		if !seen[k] {
			out = append(out, k+"="+vars[k])
		}
	}
	return out
}
