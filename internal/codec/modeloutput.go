package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"archsketch/internal/domain"
)

// DefaultSpecificationName is used when model output omits a name
const DefaultSpecificationName = "Cloud Architecture"

// TypeResolver canonicalises node type names; see registry.Registry.Resolve
type TypeResolver interface {
	Resolve(name string) (string, bool)
}

// ModelOutput decodes language-model text into a candidate specification.
// It only checks structure; semantic checks belong to domain.Validate.
type ModelOutput struct {
	types TypeResolver
}

// NewModelOutput creates a model output decoder. types may be nil, in which
// case node types are only trimmed and lower-cased.
func NewModelOutput(types TypeResolver) *ModelOutput {
	return &ModelOutput{types: types}
}

// Format returns the codec format identifier
func (m *ModelOutput) Format() string {
	return "model"
}

// wire types accept both the documented shape and the legacy
// {source,target} / {name,nodes} shape some prompts produce
type wireSpec struct {
	Name        string           `json:"name"`
	Nodes       []wireNode       `json:"nodes"`
	Connections []wireConnection `json:"connections"`
	Clusters    []wireCluster    `json:"clusters"`
}

type wireNode struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	ClusterID string `json:"cluster_id"`
	Cluster   string `json:"cluster"`
}

type wireConnection struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

type wireCluster struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Parent   string   `json:"parent"`
	Nodes    []string `json:"nodes"`
}

// Parse reads all of r and decodes it with Decode
func (m *ModelOutput) Parse(r io.Reader) (*domain.Specification, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}
	return m.Decode(string(data))
}

// Decode extracts the JSON object from text and converts it to a
// specification. Errors are *domain.ParseError.
func (m *ModelOutput) Decode(text string) (*domain.Specification, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, &domain.ParseError{Attempts: 1, Msg: err.Error(), Err: err}
	}

	var w wireSpec
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := decoder.Decode(&w); err != nil {
		return nil, &domain.ParseError{Attempts: 1, Msg: fmt.Sprintf("invalid JSON: %v", err), Err: err}
	}

	if err := checkStructure(&w); err != nil {
		return nil, &domain.ParseError{Attempts: 1, Msg: err.Error(), Err: err}
	}

	return m.convert(&w), nil
}

// ExtractJSON returns the substring from the first '{' to the last '}',
// after dropping Markdown code fences
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", errors.New("no JSON object found in model output")
	}
	return text[start : end+1], nil
}

func checkStructure(w *wireSpec) error {
	if len(w.Nodes) == 0 {
		return errors.New(`"nodes" must be a non-empty array`)
	}
	for i, n := range w.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("nodes[%d]: missing \"id\"", i)
		}
		if strings.TrimSpace(n.Type) == "" {
			return fmt.Errorf("nodes[%d] (%s): missing \"type\"", i, n.ID)
		}
	}
	for i, c := range w.Connections {
		if firstNonEmpty(c.From, c.Source) == "" || firstNonEmpty(c.To, c.Target) == "" {
			return fmt.Errorf("connections[%d]: missing \"from\" or \"to\"", i)
		}
	}
	for i, c := range w.Clusters {
		if strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("clusters[%d]: missing \"id\" and \"name\"", i)
		}
	}
	return nil
}

func (m *ModelOutput) convert(w *wireSpec) *domain.Specification {
	spec := domain.NewSpecification(strings.TrimSpace(w.Name))
	if spec.Name == "" {
		spec.Name = DefaultSpecificationName
	}

	// Cluster names may be used in place of ids by node and parent references
	nameToID := make(map[string]string, len(w.Clusters))
	ids := make(map[string]bool, len(w.Clusters))
	membership := make(map[string]string)
	for i, c := range w.Clusters {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = Slug(c.Name)
		}
		if id == "" {
			// Names made only of punctuation slug to nothing
			id = fmt.Sprintf("cluster_%d", i)
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = id
		}
		ids[id] = true
		if _, seen := nameToID[name]; !seen {
			nameToID[name] = id
		}
		for _, member := range c.Nodes {
			member = strings.TrimSpace(member)
			if _, assigned := membership[member]; !assigned {
				membership[member] = id
			}
		}
		spec.AddCluster(domain.Cluster{
			ID:       id,
			Name:     name,
			ParentID: strings.TrimSpace(firstNonEmpty(c.ParentID, c.Parent)),
		})
	}

	resolveCluster := func(ref string) string {
		if ref == "" || ids[ref] {
			return ref
		}
		if id, ok := nameToID[ref]; ok {
			return id
		}
		return ref
	}

	for i := range spec.Clusters {
		spec.Clusters[i].ParentID = resolveCluster(spec.Clusters[i].ParentID)
	}

	for _, n := range w.Nodes {
		id := strings.TrimSpace(n.ID)
		clusterID := strings.TrimSpace(firstNonEmpty(n.ClusterID, n.Cluster))
		if clusterID == "" {
			clusterID = membership[id]
		}
		spec.AddNode(domain.Node{
			ID:        id,
			Type:      m.resolveType(n.Type),
			Label:     strings.TrimSpace(n.Label),
			ClusterID: resolveCluster(clusterID),
		})
	}

	for _, c := range w.Connections {
		spec.AddConnection(domain.Connection{
			From:  strings.TrimSpace(firstNonEmpty(c.From, c.Source)),
			To:    strings.TrimSpace(firstNonEmpty(c.To, c.Target)),
			Label: strings.TrimSpace(c.Label),
		})
	}

	return spec
}

func (m *ModelOutput) resolveType(t string) string {
	if m.types == nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	if canonical, ok := m.types.Resolve(t); ok {
		return canonical
	}
	// Keep the original so the validator can report it verbatim
	return strings.TrimSpace(t)
}

// Slug converts a display name into an identifier: lower-case letters,
// digits and underscores
func Slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
