package domain

// Node represents one architecture component in a diagram
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Type  string `json:"type" yaml:"type"`
	Label string `json:"label" yaml:"label"`

	// ClusterID is empty when the node is not grouped
	ClusterID string `json:"cluster_id,omitempty" yaml:"cluster_id,omitempty"`
}

// NewNode creates a new ungrouped node
func NewNode(id, nodeType, label string) Node {
	return Node{
		ID:    id,
		Type:  nodeType,
		Label: label,
	}
}

// InCluster returns a copy of the node assigned to clusterID
func (n Node) InCluster(clusterID string) Node {
	n.ClusterID = clusterID
	return n
}

// DisplayLabel returns the label, falling back to the ID
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
