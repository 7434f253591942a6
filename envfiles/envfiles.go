// Package envfiles lists the .env files that apply to a directory inside a
// workspace, ordered by load priority.
//
// Each directory from the workspace root down to the start directory may hold
// up to four files. Within a directory the priority, highest first, is:
//
//	.env.<name>.local
//	.env.local
//	.env.<name>
//	.env
//
// The local files are skipped when the environment name is "test". Between
// directories, the one closer to the start directory wins.
package envfiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when the start directory is not inside the root
var ErrOutsideRoot = errors.New("start directory is outside the workspace root")

// TestEnvironment is the environment name that disables local override files
const TestEnvironment = "test"

// Kind classifies a candidate file within its directory
type Kind int

// Kinds in ascending priority
const (
	KindBase Kind = iota
	KindEnvScoped
	KindLocal
	KindEnvScopedLocal
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindEnvScoped:
		return "env"
	case KindLocal:
		return "local"
	case KindEnvScopedLocal:
		return "env-local"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Candidate is an existing .env file and where it sits in the chain
type Candidate struct {
	Path string

	// Depth is the index of the file's directory in the chain, root = 0
	Depth int

	Kind Kind
}

// Chain returns the directories from root down to start, both inclusive
func Chain(root, start string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	start, err = filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	rel, err := filepath.Rel(root, start)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s is not under %s", ErrOutsideRoot, start, root)
	}

	chain := []string{root}
	if rel == "." {
		return chain, nil
	}
	dir := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		chain = append(chain, dir)
	}
	return chain, nil
}

// Names returns the candidate filenames for one directory, highest priority
// first, paired with their kinds.
func Names(envName string) ([]string, []Kind) {
	var names []string
	var kinds []Kind
	add := func(name string, kind Kind) {
		names = append(names, name)
		kinds = append(kinds, kind)
	}

	local := envName != TestEnvironment
	if envName != "" && local {
		add(".env."+envName+".local", KindEnvScopedLocal)
	}
	if local {
		add(".env.local", KindLocal)
	}
	if envName != "" {
		add(".env."+envName, KindEnvScoped)
	}
	add(".env", KindBase)
	return names, kinds
}

// Candidates returns the existing .env files for start, highest priority first
func Candidates(root, start, envName string) ([]Candidate, error) {
	chain, err := Chain(root, start)
	if err != nil {
		return nil, err
	}

	names, kinds := Names(envName)
	var out []Candidate
	for depth := len(chain) - 1; depth >= 0; depth-- {
		for i, name := range names {
			path := filepath.Join(chain[depth], name)
			if !isFile(path) {
				continue
			}
			out = append(out, Candidate{Path: path, Depth: depth, Kind: kinds[i]})
		}
	}
	return out, nil
}

// Resolve returns the paths of the existing .env files, highest priority first
func Resolve(root, start, envName string) ([]string, error) {
	candidates, err := Candidates(root, start, envName)
	if err != nil {
		return nil, err
	}
	return Paths(candidates), nil
}

// MergeOrder reverses a highest-first list so that the base file comes first
// and every later file overrides the ones before it.
func MergeOrder(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		out[len(candidates)-1-i] = c
	}
	return out
}

// Paths extracts the file paths from candidates
func Paths(candidates []Candidate) []string {
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return paths
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
