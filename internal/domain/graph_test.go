package domain

import (
	"testing"
)

func TestNewSpecification(t *testing.T) {
	t.Run("creates empty specification with initialized collections", func(t *testing.T) {
		spec := NewSpecification("Test")

		if spec.Name != "Test" {
			t.Errorf("expected name 'Test', got %s", spec.Name)
		}
		if spec.Nodes == nil {
			t.Error("expected Nodes to be initialized")
		}
		if spec.Connections == nil {
			t.Error("expected Connections to be initialized")
		}
		if spec.Clusters == nil {
			t.Error("expected Clusters to be initialized")
		}
	})
}

func TestSpecificationAccessors(t *testing.T) {
	spec := NewSpecification("Web")
	spec.AddNode(NewNode("lb", "alb", "Load Balancer"))
	spec.AddNode(NewNode("web1", "ec2", "Web 1"))
	spec.AddNode(NewNode("web2", "ec2", "Web 2"))
	spec.AddConnection(NewConnection("lb", "web1"))

	t.Run("finds node by id", func(t *testing.T) {
		n, ok := spec.Node("web2")
		if !ok {
			t.Fatal("expected node web2 to be found")
		}
		if n.Label != "Web 2" {
			t.Errorf("expected label 'Web 2', got %s", n.Label)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		if _, ok := spec.Node("nope"); ok {
			t.Error("expected missing node")
		}
	})

	t.Run("filters nodes by type", func(t *testing.T) {
		if got := len(spec.NodesOfType("ec2")); got != 2 {
			t.Errorf("expected 2 ec2 nodes, got %d", got)
		}
	})

	t.Run("connection lookup is directional", func(t *testing.T) {
		if !spec.HasConnection("lb", "web1") {
			t.Error("expected lb -> web1")
		}
		if spec.HasConnection("web1", "lb") {
			t.Error("did not expect web1 -> lb")
		}
	})
}

func TestSpecificationClone(t *testing.T) {
	t.Run("clone is independent of original", func(t *testing.T) {
		spec := NewSpecification("Orig")
		spec.AddNode(NewNode("a", "ec2", "A"))
		spec.AddCluster(NewCluster("tier", "Tier"))

		clone := spec.Clone()
		clone.Nodes[0].Label = "Modified"
		clone.Clusters[0].Name = "Modified"

		if spec.Nodes[0].Label == "Modified" {
			t.Error("expected original node to be unchanged")
		}
		if spec.Clusters[0].Name == "Modified" {
			t.Error("expected original cluster to be unchanged")
		}
	})

	t.Run("nil clone", func(t *testing.T) {
		var spec *Specification
		if spec.Clone() != nil {
			t.Error("expected nil clone of nil specification")
		}
	})

	t.Run("nil collections become empty", func(t *testing.T) {
		clone := (&Specification{Name: "x"}).Clone()
		if clone.Nodes == nil || clone.Connections == nil || clone.Clusters == nil {
			t.Error("expected clone collections to be non-nil")
		}
	})
}
