package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type typeSet map[string]bool

func (s typeSet) Has(t string) bool { return s[t] }

var testTypes = typeSet{"alb": true, "ec2": true, "rds": true, "s3": true}

func validSpec() *Specification {
	spec := NewSpecification("Web Application")
	spec.AddCluster(NewCluster("vpc", "VPC"))
	spec.AddCluster(Cluster{ID: "web_tier", Name: "Web Tier", ParentID: "vpc"})
	spec.AddNode(NewNode("lb", "alb", "Load Balancer").InCluster("vpc"))
	spec.AddNode(NewNode("web1", "ec2", "Web 1").InCluster("web_tier"))
	spec.AddNode(NewNode("web2", "ec2", "Web 2").InCluster("web_tier"))
	spec.AddNode(NewNode("db", "rds", "Database"))
	spec.AddConnection(NewConnection("lb", "web1"))
	spec.AddConnection(NewConnection("lb", "web2"))
	spec.AddConnection(Connection{From: "web1", To: "db", Label: "sql"})
	spec.AddConnection(Connection{From: "web2", To: "db", Label: "sql"})
	return spec
}

func violationsOf(t *testing.T, err error) []Violation {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected errors.Is(err, ErrValidation)")
	}
	return ve.Violations
}

func TestValidateAcceptsValidSpecification(t *testing.T) {
	spec := validSpec()

	got, err := Validate(spec, testTypes)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if diff := cmp.Diff(spec, got); diff != "" {
		t.Errorf("validated specification differs (-input +output):\n%s", diff)
	}
	if &got.Nodes[0] == &spec.Nodes[0] {
		t.Error("expected validated specification to be a detached copy")
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	first, err := Validate(validSpec(), testTypes)
	if err != nil {
		t.Fatalf("first validation: %v", err)
	}
	second, err := Validate(first, testTypes)
	if err != nil {
		t.Fatalf("second validation: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("validating twice changed the specification:\n%s", diff)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	spec := validSpec()
	spec.Nodes[0].Type = "nope"
	before := spec.Clone()

	_, _ = Validate(spec, testTypes)

	if diff := cmp.Diff(before, spec); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

func TestValidateDanglingConnectionEndpoint(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want int
	}{
		{"missing source", NewConnection("ghost", "db"), 1},
		{"missing target", NewConnection("web1", "ghost"), 1},
		{"both missing", NewConnection("ghost1", "ghost2"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.AddConnection(tt.conn)

			_, err := Validate(spec, testTypes)
			vs := violationsOf(t, err)
			if len(vs) != tt.want {
				t.Fatalf("expected %d violations, got %d: %v", tt.want, len(vs), vs)
			}
			for _, v := range vs {
				if v.Kind != ViolationDanglingConnectionEndpoint {
					t.Errorf("expected %s, got %s", ViolationDanglingConnectionEndpoint, v.Kind)
				}
			}
		})
	}
}

func TestValidateUnknownNodeType(t *testing.T) {
	for _, badType := range []string{"mainframe", "", "EC2"} {
		t.Run(fmt.Sprintf("type %q", badType), func(t *testing.T) {
			spec := validSpec()
			spec.AddNode(NewNode("x", badType, "X"))

			_, err := Validate(spec, testTypes)
			vs := violationsOf(t, err)
			if len(vs) != 1 || vs[0].Kind != ViolationUnknownNodeType {
				t.Fatalf("expected single UnknownNodeType, got %v", vs)
			}
			if vs[0].Subject != "x" {
				t.Errorf("expected subject 'x', got %s", vs[0].Subject)
			}
		})
	}
}

func TestValidateDuplicateNodeID(t *testing.T) {
	spec := validSpec()
	spec.AddNode(NewNode("web1", "ec2", "Another Web 1"))

	_, err := Validate(spec, testTypes)
	vs := violationsOf(t, err)
	if len(vs) != 1 || vs[0].Kind != ViolationDuplicateNodeID {
		t.Fatalf("expected single DuplicateNodeId, got %v", vs)
	}
}

func TestValidateUnknownClusterReference(t *testing.T) {
	t.Run("node references missing cluster", func(t *testing.T) {
		spec := validSpec()
		spec.Nodes[3].ClusterID = "data_tier"

		_, err := Validate(spec, testTypes)
		vs := violationsOf(t, err)
		if len(vs) != 1 || vs[0].Kind != ViolationUnknownClusterReference {
			t.Fatalf("expected single UnknownClusterReference, got %v", vs)
		}
	})

	t.Run("cluster references missing parent", func(t *testing.T) {
		spec := validSpec()
		spec.AddCluster(Cluster{ID: "orphan", Name: "Orphan", ParentID: "region"})

		_, err := Validate(spec, testTypes)
		vs := violationsOf(t, err)
		if len(vs) != 1 || vs[0].Kind != ViolationUnknownClusterReference {
			t.Fatalf("expected single UnknownClusterReference, got %v", vs)
		}
	})
}

func TestValidateMissingID(t *testing.T) {
	t.Run("cluster without id", func(t *testing.T) {
		spec := validSpec()
		spec.AddCluster(Cluster{ID: "", Name: "!!!"})

		_, err := Validate(spec, testTypes)
		vs := violationsOf(t, err)
		if len(vs) != 1 || vs[0].Kind != ViolationMissingID {
			t.Fatalf("expected single MissingId, got %v", vs)
		}
	})

	t.Run("node without id", func(t *testing.T) {
		spec := validSpec()
		spec.AddNode(NewNode("  ", "ec2", "Nameless"))

		_, err := Validate(spec, testTypes)
		vs := violationsOf(t, err)
		if len(vs) != 1 || vs[0].Kind != ViolationMissingID {
			t.Fatalf("expected single MissingId, got %v", vs)
		}
	})

	t.Run("connection to a blank node id dangles", func(t *testing.T) {
		spec := validSpec()
		spec.AddNode(NewNode("", "ec2", "Nameless"))
		spec.AddConnection(NewConnection("lb", ""))

		_, err := Validate(spec, testTypes)
		vs := violationsOf(t, err)
		kinds := make(map[ViolationKind]int)
		for _, v := range vs {
			kinds[v.Kind]++
		}
		if kinds[ViolationMissingID] != 1 || kinds[ViolationDanglingConnectionEndpoint] != 1 {
			t.Fatalf("expected MissingId and DanglingConnectionEndpoint, got %v", vs)
		}
	})
}

func TestValidateClusterCycle(t *testing.T) {
	tests := []struct {
		name     string
		clusters []Cluster
		cycles   int
		message  string
	}{
		{
			name:     "self parenting",
			clusters: []Cluster{{ID: "a", Name: "A", ParentID: "a"}},
			cycles:   1,
			message:  "cluster parent cycle: a -> a",
		},
		{
			name: "two cycle",
			clusters: []Cluster{
				{ID: "b", Name: "B", ParentID: "a"},
				{ID: "a", Name: "A", ParentID: "b"},
			},
			cycles:  1,
			message: "cluster parent cycle: a -> b -> a",
		},
		{
			name: "three cycle with tail",
			clusters: []Cluster{
				{ID: "tail", Name: "Tail", ParentID: "x"},
				{ID: "x", Name: "X", ParentID: "y"},
				{ID: "y", Name: "Y", ParentID: "z"},
				{ID: "z", Name: "Z", ParentID: "x"},
			},
			cycles:  1,
			message: "cluster parent cycle: x -> y -> z -> x",
		},
		{
			name: "two disjoint cycles",
			clusters: []Cluster{
				{ID: "a", Name: "A", ParentID: "b"},
				{ID: "b", Name: "B", ParentID: "a"},
				{ID: "c", Name: "C", ParentID: "c"},
			},
			cycles: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Clusters = append(spec.Clusters, tt.clusters...)

			_, err := Validate(spec, testTypes)
			vs := violationsOf(t, err)
			if len(vs) != tt.cycles {
				t.Fatalf("expected %d violations, got %v", tt.cycles, vs)
			}
			for _, v := range vs {
				if v.Kind != ViolationClusterCycle {
					t.Errorf("expected ClusterCycle, got %s", v.Kind)
				}
			}
			if tt.message != "" && vs[0].Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, vs[0].Message)
			}
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	spec := validSpec()
	spec.AddNode(NewNode("web1", "ec2", "dup"))
	spec.AddNode(NewNode("mf", "mainframe", "Mainframe").InCluster("nowhere"))
	spec.AddConnection(NewConnection("web1", "ghost"))
	spec.AddCluster(Cluster{ID: "loop", Name: "Loop", ParentID: "loop"})
	spec.AddCluster(NewCluster("vpc", "Duplicate VPC"))

	_, err := Validate(spec, testTypes)

	want := []ViolationKind{
		ViolationClusterCycle,
		ViolationDanglingConnectionEndpoint,
		ViolationDuplicateClusterID,
		ViolationDuplicateNodeID,
		ViolationUnknownClusterReference,
		ViolationUnknownNodeType,
	}
	if diff := cmp.Diff(want, SortedViolationKinds(err)); diff != "" {
		t.Errorf("violation kinds mismatch (-want +got):\n%s", diff)
	}

	var ve *ValidationError
	if errors.As(err, &ve) && !ve.Has(ViolationClusterCycle) {
		t.Error("expected Has(ClusterCycle)")
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	build := func() *Specification {
		spec := validSpec()
		spec.AddConnection(NewConnection("a", "b"))
		spec.AddNode(NewNode("q", "nope", "Q"))
		spec.AddCluster(Cluster{ID: "p", Name: "P", ParentID: "q"})
		spec.AddCluster(Cluster{ID: "q", Name: "Q", ParentID: "p"})
		return spec
	}

	_, err1 := Validate(build(), testTypes)
	_, err2 := Validate(build(), testTypes)
	if err1.Error() != err2.Error() {
		t.Errorf("expected identical errors, got\n%v\n%v", err1, err2)
	}
}

func TestValidateNilInputs(t *testing.T) {
	if _, err := Validate(nil, testTypes); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for nil specification, got %v", err)
	}
	if _, err := Validate(validSpec(), nil); err == nil {
		t.Error("expected error for nil type set")
	}
}
