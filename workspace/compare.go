package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Comparison holds the outcome of both ascents for the same start directory
type Comparison struct {
	Start          string
	Lockfile       *Detection
	Indicator      *Detection
	Recommendation string
}

// Compare runs both ascents independently and explains how they relate. An
// ascent that finds nothing leaves its Detection nil; any other failure is
// returned.
func (l *Locator) Compare(startDir string) (*Comparison, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	c := &Comparison{Start: start}
	if c.Lockfile, err = l.LocateLockfile(start); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if c.Indicator, err = l.LocateIndicator(start); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	c.Recommendation = recommend(c.Lockfile, c.Indicator)
	return c, nil
}

// Compare runs both ascents with the default Locator
func Compare(startDir string) (*Comparison, error) {
	return DefaultLocator().Compare(startDir)
}

func recommend(lock, ind *Detection) string {
	switch {
	case lock == nil && ind == nil:
		return "No workspace root found. Add a lock file or a workspace indicator (such as .git) to the project root."
	case ind == nil:
		return fmt.Sprintf("Using lock file root %s. No workspace indicator was found.", lock.Root)
	case lock == nil:
		return fmt.Sprintf("No lock file found; falling back to indicator root %s.", ind.Root)
	case lock.Root == ind.Root:
		return fmt.Sprintf("Both methods agree on %s.", lock.Root)
	case within(lock.Root, ind.Root):
		return fmt.Sprintf("Lock file root %s is nested inside indicator root %s. "+
			"It looks like a standalone project inside a larger repository; .env files above %s are not loaded.",
			lock.Root, ind.Root, lock.Root)
	case within(ind.Root, lock.Root):
		return fmt.Sprintf("Indicator root %s is nested inside lock file root %s. "+
			"The lock file root is used, so .env files between them are loaded too.",
			ind.Root, lock.Root)
	default:
		return fmt.Sprintf("Lock file root %s and indicator root %s are unrelated; the lock file root is used.",
			lock.Root, ind.Root)
	}
}

// within reports whether child is a strict descendant of parent
func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
