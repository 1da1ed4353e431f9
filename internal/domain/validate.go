package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ViolationKind names the invariant a Violation breaches
type ViolationKind string

const (
	ViolationDuplicateNodeID            ViolationKind = "DuplicateNodeId"
	ViolationUnknownNodeType            ViolationKind = "UnknownNodeType"
	ViolationDanglingConnectionEndpoint ViolationKind = "DanglingConnectionEndpoint"
	ViolationUnknownClusterReference    ViolationKind = "UnknownClusterReference"
	ViolationClusterCycle               ViolationKind = "ClusterCycle"
	ViolationDuplicateClusterID         ViolationKind = "DuplicateClusterId"
	ViolationMissingID                  ViolationKind = "MissingId"
)

// Violation is a single invariant breach
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Subject string        `json:"subject"` // The node, connection or cluster at fault
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// TypeSet answers whether a node type is supported
type TypeSet interface {
	Has(nodeType string) bool
}

// Validate checks the candidate against the specification invariants and
// returns a detached copy when every invariant holds. All violations are
// collected; the error is a *ValidationError listing them in input order.
func Validate(candidate *Specification, types TypeSet) (*Specification, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: nil specification", ErrValidation)
	}
	if types == nil {
		return nil, errors.New("validate: nil type set")
	}

	var violations []Violation

	// Clusters are indexed first so node references can be checked in one pass
	clusterIDs := make(map[string]bool, len(candidate.Clusters))
	for i, c := range candidate.Clusters {
		if strings.TrimSpace(c.ID) == "" {
			violations = append(violations, Violation{
				Kind:    ViolationMissingID,
				Subject: fmt.Sprintf("cluster[%d] %s", i, c.Name),
				Message: fmt.Sprintf("cluster %d (%q) has no ID", i, c.Name),
			})
			continue
		}
		if clusterIDs[c.ID] {
			violations = append(violations, Violation{
				Kind:    ViolationDuplicateClusterID,
				Subject: c.ID,
				Message: fmt.Sprintf("cluster ID %q is used more than once", c.ID),
			})
			continue
		}
		clusterIDs[c.ID] = true
	}

	nodeIDs := make(map[string]bool, len(candidate.Nodes))
	for i, n := range candidate.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			violations = append(violations, Violation{
				Kind:    ViolationMissingID,
				Subject: fmt.Sprintf("node[%d]", i),
				Message: fmt.Sprintf("node %d (%q) has no ID", i, n.Label),
			})
		} else {
			if nodeIDs[n.ID] {
				violations = append(violations, Violation{
					Kind:    ViolationDuplicateNodeID,
					Subject: n.ID,
					Message: fmt.Sprintf("node ID %q is used more than once", n.ID),
				})
			}
			nodeIDs[n.ID] = true
		}

		if !types.Has(n.Type) {
			violations = append(violations, Violation{
				Kind:    ViolationUnknownNodeType,
				Subject: n.ID,
				Message: fmt.Sprintf("node %q has unsupported type %q", n.ID, n.Type),
			})
		}

		if n.ClusterID != "" && !clusterIDs[n.ClusterID] {
			violations = append(violations, Violation{
				Kind:    ViolationUnknownClusterReference,
				Subject: n.ID,
				Message: fmt.Sprintf("node %q references unknown cluster %q", n.ID, n.ClusterID),
			})
		}
	}

	for i, c := range candidate.Connections {
		subject := fmt.Sprintf("connection[%d] %s->%s", i, c.From, c.To)
		if !nodeIDs[c.From] {
			violations = append(violations, Violation{
				Kind:    ViolationDanglingConnectionEndpoint,
				Subject: subject,
				Message: fmt.Sprintf("connection source %q is not a node", c.From),
			})
		}
		if !nodeIDs[c.To] {
			violations = append(violations, Violation{
				Kind:    ViolationDanglingConnectionEndpoint,
				Subject: subject,
				Message: fmt.Sprintf("connection target %q is not a node", c.To),
			})
		}
	}

	for _, c := range candidate.Clusters {
		if c.ParentID != "" && c.ParentID != c.ID && !clusterIDs[c.ParentID] {
			violations = append(violations, Violation{
				Kind:    ViolationUnknownClusterReference,
				Subject: c.ID,
				Message: fmt.Sprintf("cluster %q has unknown parent %q", c.ID, c.ParentID),
			})
		}
	}

	for _, cycle := range clusterCycles(candidate.Clusters) {
		violations = append(violations, Violation{
			Kind:    ViolationClusterCycle,
			Subject: cycle[0],
			Message: fmt.Sprintf("cluster parent cycle: %s", strings.Join(cycle, " -> ")),
		})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return candidate.Clone(), nil
}

// clusterCycles walks each cluster's parent chain and returns every distinct
// cycle once, closed with its first member repeated. Self-parenting is a cycle
// of length one.
func clusterCycles(clusters []Cluster) [][]string {
	parent := make(map[string]string, len(clusters))
	order := make([]string, 0, len(clusters))
	for _, c := range clusters {
		if _, seen := parent[c.ID]; seen {
			continue
		}
		parent[c.ID] = c.ParentID
		order = append(order, c.ID)
	}

	// 0 = unvisited, 1 = on current walk, 2 = done
	state := make(map[string]int, len(order))
	var cycles [][]string

	for _, start := range order {
		if state[start] != 0 {
			continue
		}
		var path []string
		cur := start
		for cur != "" && state[cur] == 0 {
			if _, known := parent[cur]; !known {
				break
			}
			state[cur] = 1
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur != "" && state[cur] == 1 {
			idx := 0
			for i, id := range path {
				if id == cur {
					idx = i
					break
				}
			}
			cycles = append(cycles, rotateCycle(path[idx:]))
		}
		for _, id := range path {
			state[id] = 2
		}
	}
	return cycles
}

// rotateCycle starts the cycle at its smallest member so reports are stable
// regardless of which cluster the walk entered through.
func rotateCycle(members []string) []string {
	min := 0
	for i := range members {
		if members[i] < members[min] {
			min = i
		}
	}
	out := make([]string, 0, len(members)+1)
	out = append(out, members[min:]...)
	out = append(out, members[:min]...)
	out = append(out, out[0])
	return out
}

// SortedViolationKinds returns the distinct kinds in err, sorted
func SortedViolationKinds(err error) []ViolationKind {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	seen := make(map[ViolationKind]bool)
	var kinds []ViolationKind
	for _, v := range ve.Violations {
		if !seen[v.Kind] {
			seen[v.Kind] = true
			kinds = append(kinds, v.Kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
