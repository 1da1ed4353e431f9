// Package registry holds the read-only mapping from canonical node type names
// to the icon descriptors used to render them.
//
// A Registry is built once at process start and never mutated afterwards, so it
// is safe to share between concurrent requests without locking.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"archsketch/internal/domain"
)

// IconDescriptor describes how a node type is drawn
type IconDescriptor struct {
	Provider string `json:"provider" yaml:"provider"` // aws, gcp, azure, onprem, generic
	Category string `json:"category" yaml:"category"` // compute, database, network, ...
	Shape    string `json:"shape" yaml:"shape"`       // Graphviz node shape
	Color    string `json:"color" yaml:"color"`       // Fill colour
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Entry is one supported node type
type Entry struct {
	Name        string
	Description string
	Aliases     []string
	Icon        IconDescriptor
}

// Registry maps canonical type names to entries
type Registry struct {
	entries map[string]Entry
	aliases map[string]string
	names   []string
}

// New builds a registry from entries. Names and aliases are canonicalised and
// must not collide.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		aliases: make(map[string]string),
	}

	for _, e := range entries {
		name := Canonical(e.Name)
		if name == "" {
			return nil, fmt.Errorf("registry entry with empty name")
		}
		if _, exists := r.entries[name]; exists {
			return nil, fmt.Errorf("duplicate node type %q", name)
		}
		e.Name = name
		r.entries[name] = e
		r.names = append(r.names, name)
	}

	for _, e := range r.entries {
		for _, alias := range e.Aliases {
			a := Canonical(alias)
			if a == "" || a == e.Name {
				continue
			}
			if _, clash := r.entries[a]; clash {
				return nil, fmt.Errorf("alias %q of %q shadows a node type", a, e.Name)
			}
			if prev, dup := r.aliases[a]; dup && prev != e.Name {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", a, prev, e.Name)
			}
			r.aliases[a] = e.Name
		}
	}

	sort.Strings(r.names)
	return r, nil
}

// Canonical lower-cases and trims a type name and folds '-' and ' ' to '_'
func Canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// Has reports whether name is a canonical supported type
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Resolve maps a free-form type name or alias to its canonical name
func (r *Registry) Resolve(name string) (string, bool) {
	c := Canonical(name)
	if _, ok := r.entries[c]; ok {
		return c, true
	}
	if target, ok := r.aliases[c]; ok {
		return target, true
	}
	return name, false
}

// SupportedTypes returns a copy of the name -> icon mapping
func (r *Registry) SupportedTypes() map[string]IconDescriptor {
	out := make(map[string]IconDescriptor, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.Icon
	}
	return out
}

// Names returns the sorted canonical type names
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Describe returns the human-readable description of a type
func (r *Registry) Describe(name string) (string, error) {
	e, ok := r.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownType, name)
	}
	return e.Description, nil
}

// Descriptions returns name -> description for every type
func (r *Registry) Descriptions() map[string]string {
	out := make(map[string]string, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.Description
	}
	return out
}

// Icon returns the icon descriptor for a canonical type
func (r *Registry) Icon(name string) (IconDescriptor, bool) {
	e, ok := r.entries[name]
	return e.Icon, ok
}

// Len returns the number of supported types
func (r *Registry) Len() int {
	return len(r.entries)
}
