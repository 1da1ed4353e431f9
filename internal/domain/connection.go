package domain

// Connection represents a directed edge between two nodes
type Connection struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewConnection creates an unlabeled connection
func NewConnection(from, to string) Connection {
	return Connection{From: from, To: to}
}

// Involves checks if this connection touches the given node ID
func (c Connection) Involves(nodeID string) bool {
	return c.From == nodeID || c.To == nodeID
}

// Cluster groups nodes, optionally nested inside a parent cluster
type Cluster struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

// NewCluster creates a top-level cluster
func NewCluster(id, name string) Cluster {
	return Cluster{ID: id, Name: name}
}

// IsRoot reports whether the cluster has no parent
func (c Cluster) IsRoot() bool {
	return c.ParentID == ""
}
