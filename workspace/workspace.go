// Package workspace finds the root of a project or monorepo by walking up the
// directory tree from a starting point.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when no ancestor of the start directory qualifies as
// a workspace root.
var ErrNotFound = errors.New("workspace root not found")

// DefaultMaxDepth bounds how many directories an ascent will visit
const DefaultMaxDepth = 256

// Method names the strategy that located a workspace root
type Method string

const (
	MethodLockfile  Method = "lockfile"
	MethodIndicator Method = "indicator"
)

// Detection is the outcome of a successful ascent
type Detection struct {
	Root   string
	Method Method

	// EnvFiles maps each visited directory to the .env* files seen in it
	EnvFiles map[string][]string
}

// Locator walks up from a start directory looking for a workspace root
type Locator struct {
	// Lockfiles are dependency lock filenames, checked in order
	Lockfiles []string

	// Indicators are workspace marker checks, evaluated in order
	Indicators []Indicator

	// MaxDepth limits the ascent (default: DefaultMaxDepth)
	MaxDepth int

	// Logger receives debug trace lines (default: discard)
	Logger *slog.Logger
}

// DefaultLocator returns a Locator with the built-in lock files and indicators
func DefaultLocator() *Locator {
	return &Locator{
		Lockfiles:  append([]string(nil), DefaultLockfiles...),
		Indicators: DefaultIndicators(),
		MaxDepth:   DefaultMaxDepth,
	}
}

func (l *Locator) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.Logger
}

func (l *Locator) maxDepth() int {
	if l.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return l.MaxDepth
}

// Locate tries the lock-file ascent first and falls back to the indicator
// ascent only when the first one finds nothing.
func (l *Locator) Locate(startDir string) (*Detection, error) {
	d, err := l.LocateLockfile(startDir)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return l.LocateIndicator(startDir)
}

// LocateLockfile returns the nearest ancestor containing a dependency lock file
func (l *Locator) LocateLockfile(startDir string) (*Detection, error) {
	return l.ascend(startDir, MethodLockfile, l.hasLockfile)
}

// LocateIndicator returns the nearest ancestor containing a valid workspace indicator
func (l *Locator) LocateIndicator(startDir string) (*Detection, error) {
	return l.ascend(startDir, MethodIndicator, l.hasIndicator)
}

func (l *Locator) ascend(startDir string, method Method, match func(dir string, names []string) (string, bool)) (*Detection, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	log := l.logger()
	seen := make(map[string][]string)

	for depth := 0; depth < l.maxDepth(); depth++ {
		names := l.listNames(dir)
		if envs := envFilesIn(dir, names); len(envs) > 0 {
			seen[dir] = envs
		}

		if hit, ok := match(dir, names); ok {
			log.Debug("workspace root found", "method", method, "root", dir, "marker", hit)
			return &Detection{Root: dir, Method: method, EnvFiles: seen}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	log.Debug("workspace ascent exhausted", "method", method, "start", startDir)
	return nil, ErrNotFound
}

func (l *Locator) hasLockfile(dir string, names []string) (string, bool) {
	present := nameSet(names)
	for _, name := range l.Lockfiles {
		if present[name] && isFile(filepath.Join(dir, name)) {
			return name, true
		}
	}
	return "", false
}

func (l *Locator) hasIndicator(dir string, names []string) (string, bool) {
	return matchIndicators(l.Indicators, dir, names, "")
}

// matchIndicators reports the first indicator that qualifies dir. The
// indicator named skip is not evaluated.
func matchIndicators(indicators []Indicator, dir string, names []string, skip string) (string, bool) {
	for _, ind := range indicators {
		if ind.Name == skip {
			continue
		}
		for _, name := range names {
			if !ind.matchesName(name) {
				continue
			}
			if ind.Check == nil || ind.Check(Probe{Dir: dir, Name: name, Names: names, Indicators: indicators}) {
				return name, true
			}
		}
	}
	return "", false
}

// listNames returns the sorted entry names of dir. When dir cannot be listed
// but can be traversed, the fixed lock file and indicator names are probed
// one by one instead; glob indicators and .env files are then not seen.
func (l *Locator) listNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return l.probeNames(dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func (l *Locator) probeNames(dir string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			names = append(names, name)
		}
	}
	for _, name := range l.Lockfiles {
		add(name)
	}
	for _, ind := range l.Indicators {
		if !ind.isPattern() {
			add(ind.Name)
		}
	}
	sort.Strings(names)
	return names
}

func envFilesIn(dir string, names []string) []string {
	var out []string
	for _, name := range names {
		if name != ".env" && !strings.HasPrefix(name, ".env.") {
			continue
		}
		path := filepath.Join(dir, name)
		if isFile(path) {
			out = append(out, path)
		}
	}
	return out
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Locate finds the workspace root for startDir with the default Locator
func Locate(startDir string) (*Detection, error) {
	return DefaultLocator().Locate(startDir)
}

// LocateLockfile runs only the lock-file ascent with the default Locator
func LocateLockfile(startDir string) (*Detection, error) {
	return DefaultLocator().LocateLockfile(startDir)
}

// LocateIndicator runs only the indicator ascent with the default Locator
func LocateIndicator(startDir string) (*Detection, error) {
	return DefaultLocator().LocateIndicator(startDir)
}
