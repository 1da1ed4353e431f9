package render

import (
	"bytes"
	"fmt"
	"strings"

	"archsketch/internal/domain"
	"archsketch/internal/registry"
)

// IconLookup returns the icon descriptor for a canonical node type
type IconLookup interface {
	Icon(nodeType string) (registry.IconDescriptor, bool)
}

var fallbackIcon = registry.IconDescriptor{
	Provider: "generic",
	Shape:    "box",
	Color:    "#FFFFFF",
}

// DOT writes spec as a Graphviz digraph laid out left to right. Clusters nest
// as subgraphs following parent_id; output order follows input order.
func DOT(spec *domain.Specification, icons IconLookup) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "digraph %s {\n", quote(spec.Name))
	fmt.Fprintf(&b, "  graph [rankdir=LR, label=%s, labelloc=t, fontname=\"Helvetica\", fontsize=16, pad=0.4, nodesep=0.6, ranksep=0.9];\n", quote(spec.Name))
	b.WriteString("  node [fontname=\"Helvetica\", fontsize=11, style=\"filled\", penwidth=1.2];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10, color=\"#555555\"];\n")

	children := make(map[string][]domain.Cluster)
	var roots []domain.Cluster
	for _, c := range spec.Clusters {
		if c.IsRoot() {
			roots = append(roots, c)
		} else {
			children[c.ParentID] = append(children[c.ParentID], c)
		}
	}

	members := make(map[string][]domain.Node)
	for _, n := range spec.Nodes {
		members[n.ClusterID] = append(members[n.ClusterID], n)
	}

	for _, n := range members[""] {
		writeNode(&b, n, icons, "  ")
	}

	var writeCluster func(c domain.Cluster, indent string)
	writeCluster = func(c domain.Cluster, indent string) {
		fmt.Fprintf(&b, "%ssubgraph %s {\n", indent, quote("cluster_"+c.ID))
		fmt.Fprintf(&b, "%s  label=%s;\n", indent, quote(c.Name))
		fmt.Fprintf(&b, "%s  style=\"rounded,dashed\";\n", indent)
		fmt.Fprintf(&b, "%s  color=\"#7F7F7F\";\n", indent)
		for _, n := range members[c.ID] {
			writeNode(&b, n, icons, indent+"  ")
		}
		for _, child := range children[c.ID] {
			writeCluster(child, indent+"  ")
		}
		fmt.Fprintf(&b, "%s}\n", indent)
	}
	for _, c := range roots {
		writeCluster(c, "  ")
	}

	for _, c := range spec.Connections {
		if c.Label != "" {
			fmt.Fprintf(&b, "  %s -> %s [label=%s];\n", quote(c.From), quote(c.To), quote(c.Label))
		} else {
			fmt.Fprintf(&b, "  %s -> %s;\n", quote(c.From), quote(c.To))
		}
	}

	b.WriteString("}\n")
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n domain.Node, icons IconLookup, indent string) {
	icon := fallbackIcon
	if icons != nil {
		if found, ok := icons.Icon(n.Type); ok {
			icon = found
		}
	}

	attrs := []string{
		"label=" + quote(n.DisplayLabel()),
		"shape=" + quote(orDefault(icon.Shape, fallbackIcon.Shape)),
		"fillcolor=" + quote(orDefault(icon.Color, fallbackIcon.Color)),
		"tooltip=" + quote(n.Type),
	}
	if icon.Icon != "" {
		attrs = append(attrs, "image="+quote(icon.Icon), "imagescale=true", "labelloc=b")
	}
	fmt.Fprintf(b, "%s%s [%s];\n", indent, quote(n.ID), strings.Join(attrs, ", "))
}

// quote returns s as a DOT double-quoted string
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
	return `"` + r.Replace(s) + `"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
