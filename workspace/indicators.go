package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultLockfiles are the dependency lock files that mark a project root
var DefaultLockfiles = []string{
	"package-lock.json",
	"npm-shrinkwrap.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lockb",
	"bun.lock",
	"deno.lock",
	"Cargo.lock",
	"go.work.sum",
	"poetry.lock",
	"uv.lock",
	"Gemfile.lock",
	"composer.lock",
}

// Probe is the input to an indicator content check
type Probe struct {
	Dir   string
	Name  string
	Names []string

	// Indicators is the full set in use, so a check can consult its siblings
	Indicators []Indicator
}

// Path returns the absolute path of the probed file
func (p Probe) Path() string {
	return filepath.Join(p.Dir, p.Name)
}

// Indicator marks a workspace root when a matching file exists and, if Check
// is set, its content passes the check.
type Indicator struct {
	// Name is an exact filename or a filepath.Match pattern
	Name string

	Check func(Probe) bool
}

func (ind Indicator) isPattern() bool {
	return strings.ContainsAny(ind.Name, "*?[")
}

func (ind Indicator) matchesName(name string) bool {
	if ind.isPattern() {
		ok, err := filepath.Match(ind.Name, name)
		return err == nil && ok
	}
	return ind.Name == name
}

// DefaultIndicators returns the built-in workspace indicators
func DefaultIndicators() []Indicator {
	return []Indicator{
		{Name: ".git"},
		{Name: ".hg"},
		{Name: ".svn"},
		{Name: "lerna.json"},
		{Name: "nx.json"},
		{Name: "turbo.json"},
		{Name: "rush.json"},
		{Name: "go.work"},
		{Name: "pnpm-workspace.yaml", Check: checkPnpmWorkspace},
		{Name: "deno.json", Check: checkDenoWorkspace},
		{Name: "Cargo.toml", Check: checkCargoWorkspace},
		{Name: "*.code-workspace", Check: checkCodeWorkspace},
		{Name: "package.json", Check: checkPackageJSON},
	}
}

func readProbe(p Probe) ([]byte, bool) {
	data, err := os.ReadFile(p.Path())
	if err != nil {
		return nil, false
	}
	return data, true
}

// checkPnpmWorkspace accepts any well-formed, non-empty YAML mapping
func checkPnpmWorkspace(p Probe) bool {
	data, ok := readProbe(p)
	if !ok {
		return false
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	// empty, comment-only and null documents leave doc nil
	return doc != nil
}

func checkDenoWorkspace(p Probe) bool {
	data, ok := readProbe(p)
	if !ok {
		return false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	return present(doc["workspace"]) || present(doc["workspaces"])
}

func checkCargoWorkspace(p Probe) bool {
	data, ok := readProbe(p)
	if !ok {
		return false
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok = doc["workspace"].(map[string]any)
	return ok
}

func checkCodeWorkspace(p Probe) bool {
	data, ok := readProbe(p)
	if !ok {
		return false
	}
	var doc struct {
		Folders []json.RawMessage `json:"folders"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	return len(doc.Folders) > 0
}

// checkPackageJSON accepts a manifest declaring workspaces, or any package.json
// whose directory already qualifies through another indicator.
func checkPackageJSON(p Probe) bool {
	if data, ok := readProbe(p); ok {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err == nil && present(doc["workspaces"]) {
			return true
		}
	}
	_, ok := matchIndicators(p.Indicators, p.Dir, p.Names, p.Name)
	return ok
}

func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
