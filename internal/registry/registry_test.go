package registry

import (
	"errors"
	"sort"
	"testing"

	"archsketch/internal/domain"
)

func testEntries() []Entry {
	return []Entry{
		{Name: "ec2", Description: "Compute", Aliases: []string{"aws_ec2", "Web Server"}, Icon: IconDescriptor{Provider: "aws", Shape: "box3d"}},
		{Name: "RDS", Description: "Database", Aliases: []string{"database"}, Icon: IconDescriptor{Provider: "aws", Shape: "cylinder"}},
		{Name: "alb", Description: "Load balancer"},
	}
}

func TestNew(t *testing.T) {
	t.Run("canonicalises names", func(t *testing.T) {
		r, err := New(testEntries())
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if !r.Has("rds") {
			t.Error("expected rds to be registered in canonical form")
		}
		if r.Has("RDS") {
			t.Error("Has must only accept canonical names")
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		entries := append(testEntries(), Entry{Name: "EC2"})
		if _, err := New(entries); err == nil {
			t.Error("expected duplicate error")
		}
	})

	t.Run("rejects alias shadowing a type", func(t *testing.T) {
		entries := append(testEntries(), Entry{Name: "s3", Aliases: []string{"alb"}})
		if _, err := New(entries); err == nil {
			t.Error("expected shadowing error")
		}
	})

	t.Run("rejects alias claimed twice", func(t *testing.T) {
		entries := append(testEntries(), Entry{Name: "aurora", Aliases: []string{"database"}})
		if _, err := New(entries); err == nil {
			t.Error("expected alias clash error")
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		if _, err := New([]Entry{{Name: "  "}}); err == nil {
			t.Error("expected empty name error")
		}
	})
}

func TestResolve(t *testing.T) {
	r, err := New(testEntries())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"ec2", "ec2", true},
		{" EC2 ", "ec2", true},
		{"aws_ec2", "ec2", true},
		{"aws-ec2", "ec2", true},
		{"web server", "ec2", true},
		{"Database", "rds", true},
		{"mainframe", "mainframe", false},
	}

	for _, tt := range tests {
		got, ok := r.Resolve(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDescribe(t *testing.T) {
	r, _ := New(testEntries())

	desc, err := r.Describe("alb")
	if err != nil {
		t.Fatalf("Describe(alb) error: %v", err)
	}
	if desc != "Load balancer" {
		t.Errorf("expected 'Load balancer', got %s", desc)
	}

	_, err = r.Describe("mainframe")
	if !errors.Is(err, domain.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestNamesAndSupportedTypes(t *testing.T) {
	r, _ := New(testEntries())

	names := r.Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("expected sorted names, got %v", names)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}

	// Callers cannot mutate the registry through returned collections
	names[0] = "tampered"
	types := r.SupportedTypes()
	delete(types, "ec2")
	if r.Names()[0] == "tampered" || !r.Has("ec2") {
		t.Error("registry was mutated through a returned collection")
	}

	if icon, ok := r.Icon("rds"); !ok || icon.Shape != "cylinder" {
		t.Errorf("Icon(rds) = %+v, %v", icon, ok)
	}
	if len(r.Descriptions()) != 3 {
		t.Error("expected 3 descriptions")
	}
}
