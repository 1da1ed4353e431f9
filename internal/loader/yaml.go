// Package loader reads node type catalogs from YAML and builds the registry.
//
// The built-in catalog is embedded in the binary. An operator catalog file can
// add types or override built-in entries by name; it is read once at startup.
package loader

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"archsketch/internal/registry"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// CatalogYAML represents the catalog file structure
type CatalogYAML struct {
	Version int            `yaml:"version"`
	Types   []NodeTypeYAML `yaml:"types"`
}

// NodeTypeYAML represents one node type in YAML format
type NodeTypeYAML struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Provider    string   `yaml:"provider"`
	Category    string   `yaml:"category"`
	Shape       string   `yaml:"shape,omitempty"`
	Color       string   `yaml:"color,omitempty"`
	Icon        string   `yaml:"icon,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
}

// DefaultCatalog returns the embedded catalog entries
func DefaultCatalog() ([]registry.Entry, error) {
	return ParseCatalog(defaultCatalog, "")
}

// LoadCatalog loads catalog entries from a YAML file. Relative icon paths are
// resolved against the file's directory.
func LoadCatalog(path string) ([]registry.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return ParseCatalog(data, filepath.Dir(path))
}

// ParseCatalog parses catalog entries from YAML bytes
func ParseCatalog(data []byte, baseDir string) ([]registry.Entry, error) {
	var c CatalogYAML
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	entries := make([]registry.Entry, 0, len(c.Types))
	for i, t := range c.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog type #%d has no name", i+1)
		}
		icon := t.Icon
		if icon != "" && baseDir != "" && !filepath.IsAbs(icon) {
			icon = filepath.Join(baseDir, icon)
		}
		entries = append(entries, registry.Entry{
			Name:        t.Name,
			Description: t.Description,
			Aliases:     t.Aliases,
			Icon: registry.IconDescriptor{
				Provider: orDefault(t.Provider, "generic"),
				Category: orDefault(t.Category, "general"),
				Shape:    orDefault(t.Shape, "box"),
				Color:    orDefault(t.Color, "#FFFFFF"),
				Icon:     icon,
			},
		})
	}

	return entries, nil
}

// Merge overlays overrides onto base by canonical name, keeping base order and
// appending new types at the end.
func Merge(base, overrides []registry.Entry) []registry.Entry {
	index := make(map[string]int, len(base))
	out := make([]registry.Entry, len(base))
	copy(out, base)
	for i, e := range out {
		index[registry.Canonical(e.Name)] = i
	}

	for _, o := range overrides {
		if i, ok := index[registry.Canonical(o.Name)]; ok {
			out[i] = o
			continue
		}
		index[registry.Canonical(o.Name)] = len(out)
		out = append(out, o)
	}
	return out
}

// BuildRegistry builds the registry from the embedded catalog plus an optional
// override file. An empty path means built-ins only.
func BuildRegistry(overridePath string) (*registry.Registry, error) {
	entries, err := DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}

	if overridePath != "" {
		extra, err := LoadCatalog(overridePath)
		if err != nil {
			return nil, err
		}
		entries = Merge(entries, extra)
	}

	return registry.New(entries)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
