package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/infer"
	model "github.com/aretw0/actgraph/pkg/graph"
)

// Overlay contains compilation results to visualize on the graph.
type Overlay struct {
	Procedures []codegen.Procedure
}

// GenerateMermaid produces a Mermaid flowchart for a graph.
// It applies semantic styling:
// - Sink (no outputs): ((Circle))
// - Kind with a kind-specific label: [Rectangle]
// - Named input: [/Parallelogram/]
// Edges are labelled "out → in". Ignored ports are listed in the node label.
// Nodes whose procedures drive loops are styled when an overlay is given.
func GenerateMermaid(g *model.Graph, tab infer.Table, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ignored := make(map[int][]string)
	for _, e := range tab.Ignored {
		if e.Node >= 0 && e.Node < g.Len() && e.Port >= 0 && e.Port < len(g.Inputs(e.Node)) {
			ignored[e.Node] = append(ignored[e.Node], g.Inputs(e.Node)[e.Port])
		}
	}

	for n := 0; n < g.Len(); n++ {
		safeID := nodeID(g, n)
		opener, closer := "[", "]"
		if len(g.Outputs(n)) == 0 {
			opener, closer = "((", "))"
		}
		label := g.Name(n)
		if k, ok := g.Node(n).(interface{ Kind() string }); ok && k.Kind() != g.Name(n) {
			label += " <br/> <i>" + k.Kind() + "</i>"
		}
		if ports := ignored[n]; len(ports) > 0 {
			label += " <br/> ignored: " + strings.Join(ports, ", ")
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label), closer)
	}

	for _, b := range tab.Bindings {
		safeID := "in_" + sanitizeMermaidID(b.Name)
		label := b.Name
		switch {
		case b.Trigger:
			label += ": trigger"
		case b.TypeName != "":
			label += ": " + b.TypeName
		}
		fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", safeID, escape(label))
		for _, d := range b.Dests {
			if d.Node < 0 || d.Node >= g.Len() {
				continue
			}
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", safeID, escape(portName(g.Inputs(d.Node), d.Port)), nodeID(g, d.Node))
		}
	}

	for _, e := range g.Edges() {
		arrow := fmt.Sprintf("-- \"%s → %s\" -->",
			escape(portName(g.Outputs(e.From.Node), e.From.Port)),
			escape(portName(g.Inputs(e.To.Node), e.To.Port)))
		fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(g, e.From.Node), arrow, nodeID(g, e.To.Node))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef loop fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		seen := make(map[int]bool)
		for _, p := range overlay.Procedures {
			if p.Loops == 0 || seen[p.End.Node] || p.End.Node >= g.Len() {
				continue
			}
			seen[p.End.Node] = true
			fmt.Fprintf(&sb, "    class %s loop;\n", nodeID(g, p.End.Node))
		}
	}

	return sb.String()
}

func nodeID(g *model.Graph, n int) string {
	return "n_" + sanitizeMermaidID(g.Name(n))
}

func portName(ports []string, i int) string {
	if i >= 0 && i < len(ports) {
		return ports[i]
	}
	return fmt.Sprintf("#%d", i)
}

// escape replaces double quotes, which end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
