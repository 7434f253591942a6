package envtree

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// parsed is the outcome of reading one env file
type parsed struct {
	vars map[string]string
	err  error
}

// reader reads and parses paths, returning one result per path in the same
// order. Per-file failures are reported in the result, not as an error.
type reader func(ctx context.Context, paths []string) ([]parsed, error)

func readSequential(_ context.Context, paths []string) ([]parsed, error) {
	out := make([]parsed, len(paths))
	for i, path := range paths {
		out[i].vars, out[i].err = parseFile(path)
	}
	return out, nil
}

func readConcurrent(ctx context.Context, paths []string) ([]parsed, error) {
	out := make([]parsed, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i].vars, out[i].err = parseFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return vars, nil
}

// merge folds maps left to right; later maps win
func merge(maps []map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func filterPrefix(vars map[string]string, prefix string) map[string]string {
	if prefix == "" {
		return vars
	}
	for k := range vars {
		if !strings.HasPrefix(k, prefix) {
			delete(vars, k)
		}
	}
	return vars
}

// export sets every key the store does not already hold and returns the keys
// that were left alone, sorted.
func export(store Store, vars map[string]string) ([]string, error) {
	var skipped []string
	for _, k := range sortedKeys(vars) {
		if _, ok := store.Lookup(k); ok {
			skipped = append(skipped, k)
			continue
		}
		if err := store.Set(k, vars[k]); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return skipped, nil
}

func sortedKeys(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
