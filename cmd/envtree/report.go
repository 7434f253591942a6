package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/presbrey/envtree"
	"github.com/presbrey/envtree/workspace"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	path  lipgloss.Style
	dim   lipgloss.Style
	warn  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label: r.NewStyle().Bold(true),
		path:  r.NewStyle().Foreground(lipgloss.Color("10")),
		dim:   r.NewStyle().Faint(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// renderReport describes a load without printing any values
func renderReport(w io.Writer, res *envtree.Result, store envtree.Store) string {
	s := newStyles(w)
	var b strings.Builder

	fmt.Fprintln(&b, s.title.Render("envtree report"))
	fmt.Fprintf(&b, "%s %s %s\n", s.label.Render("Workspace:  "), s.path.Render(res.WorkspaceRoot), s.dim.Render("("+string(res.Method)+")"))
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Environment:"), res.Environment)

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Files"), s.dim.Render("(lowest to highest priority)"))
	if len(res.FilesLoaded) == 0 {
		fmt.Fprintf(&b, "  %s\n", s.dim.Render("none"))
	}
	for i, f := range res.FilesLoaded {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, s.path.Render(f))
	}

	keys := make([]string, 0, len(res.Vars))
	for k := range res.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Variables"), s.dim.Render(fmt.Sprintf("(%d)", len(keys))))
	for _, k := range keys {
		if _, ok := store.Lookup(k); ok {
			fmt.Fprintf(&b, "  %s %s\n", k, s.warn.Render("(already set, environment wins)"))
			continue
		}
		fmt.Fprintf(&b, "  %s\n", k)
	}
	return b.String()
}

// renderComparison prints both detection methods and the recommendation
func renderComparison(w io.Writer, c *workspace.Comparison) string {
	s := newStyles(w)
	var b strings.Builder

	fmt.Fprintln(&b, s.title.Render("envtree info"))
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Start:    "), c.Start)
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Lock file:"), detectionLine(s, c.Lockfile))
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Indicator:"), detectionLine(s, c.Indicator))

	seen := mergeEnvFiles(c.Lockfile, c.Indicator)
	if len(seen) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, s.label.Render(".env files seen"))
		dirs := make([]string, 0, len(seen))
		for d := range seen {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		for _, d := range dirs {
			fmt.Fprintf(&b, "  %s\n", s.path.Render(d))
			for _, f := range seen[d] {
				fmt.Fprintf(&b, "    %s\n", filepath.Base(f))
			}
		}
	}

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Recommendation:"), c.Recommendation)
	return b.String()
}

func detectionLine(s styles, d *workspace.Detection) string {
	if d == nil {
		return s.dim.Render("not found")
	}
	return s.path.Render(d.Root)
}

// mergeEnvFiles combines the side collections of both ascents
func mergeEnvFiles(ds ...*workspace.Detection) map[string][]string {
	out := make(map[string][]string)
	for _, d := range ds {
		if d == nil {
			continue
		}
		for dir, files := range d.EnvFiles {
			if _, ok := out[dir]; !ok {
				out[dir] = files
			}
		}
	}
	return out
}
