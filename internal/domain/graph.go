package domain

// Specification is the graph description of one diagram
type Specification struct {
	Name        string       `json:"name" yaml:"name"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
	Clusters    []Cluster    `json:"clusters" yaml:"clusters"`
}

// NewSpecification creates an empty specification with initialized collections
func NewSpecification(name string) *Specification {
	return &Specification{
		Name:        name,
		Nodes:       make([]Node, 0),
		Connections: make([]Connection, 0),
		Clusters:    make([]Cluster, 0),
	}
}

// AddNode appends a node to the specification
func (s *Specification) AddNode(node Node) {
	s.Nodes = append(s.Nodes, node)
}

// AddConnection appends a connection to the specification
func (s *Specification) AddConnection(conn Connection) {
	s.Connections = append(s.Connections, conn)
}

// AddCluster appends a cluster to the specification
func (s *Specification) AddCluster(cluster Cluster) {
	s.Clusters = append(s.Clusters, cluster)
}

// Node returns the first node with the given ID
func (s *Specification) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesOfType returns all nodes whose type equals nodeType
func (s *Specification) NodesOfType(nodeType string) []Node {
	var out []Node
	for _, n := range s.Nodes {
		if n.Type == nodeType {
			out = append(out, n)
		}
	}
	return out
}

// HasConnection reports whether a connection from -> to exists
func (s *Specification) HasConnection(from, to string) bool {
	for _, c := range s.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Collections are never nil in the copy.
func (s *Specification) Clone() *Specification {
	if s == nil {
		return nil
	}
	out := &Specification{
		Name:        s.Name,
		Nodes:       make([]Node, len(s.Nodes)),
		Connections: make([]Connection, len(s.Connections)),
		Clusters:    make([]Cluster, len(s.Clusters)),
	}
	copy(out.Nodes, s.Nodes)
	copy(out.Connections, s.Connections)
	copy(out.Clusters, s.Clusters)
	return out
}
