// Package document describes graphs as text and resolves them against a node
// registry.
//
// A document lists named node instances, edges written as
// "producer.port -> consumer.port", typed inputs that feed entry ports and an
// optional ignore list. Documents are read from YAML, JSON or HCL files.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/infer"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/types"
)

// ErrDuplicateNode is returned when two nodes share a name.
var ErrDuplicateNode = errors.New("duplicate node name")

// Document is the format-agnostic description of a graph.
type Document struct {
	Name   string   `yaml:"name" json:"name"`
	Nodes  []Node   `yaml:"nodes" json:"nodes"`
	Edges  []string `yaml:"edges" json:"edges"`
	Inputs []Input  `yaml:"inputs" json:"inputs"`
	Ignore []string `yaml:"ignore" json:"ignore,omitempty"`
}

// Node declares one node instance.
type Node struct {
	Name string         `yaml:"name" json:"name"`
	Kind string         `yaml:"kind" json:"kind"`
	Args map[string]any `yaml:"args" json:"args,omitempty"`
}

// Input binds entry ports to a name, a type and optionally a literal value.
// Trigger inputs carry no value; their type defaults to "trigger".
type Input struct {
	Name    string   `yaml:"name" json:"name"`
	Type    string   `yaml:"type" json:"type,omitempty"`
	Value   any      `yaml:"value" json:"value,omitempty"`
	To      []string `yaml:"to" json:"to"`
	Trigger bool     `yaml:"trigger" json:"trigger,omitempty"`
}

// Program is a resolved document: the graph, its inference table and the typed
// literal values to write to entry ports before running.
type Program struct {
	Name   string
	Graph  *graph.Graph
	Table  infer.Table
	Values map[graph.End]types.Value
}

// Natives returns the literal values as plain Go values.
func (p *Program) Natives() map[graph.End]any {
	out := make(map[graph.End]any, len(p.Values))
	for e, v := range p.Values {
		out[e] = v.Native()
	}
	return out
}

// ParseEdge splits "a.x -> b.y" into its two port references.
func ParseEdge(s string) (from, to string, err error) {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return "", "", fmt.Errorf("edge %q: expected 'producer.port -> consumer.port'", s)
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return "", "", fmt.Errorf("edge %q: empty port reference", s)
	}
	return from, to, nil
}

// Resolve constructs the nodes of doc through reg and resolves every reference.
// Type names are looked up in treg. All reference errors are reported together.
func Resolve(doc *Document, reg *registry.Registry, treg *types.Registry) (*Program, error) {
	names := make([]string, len(doc.Nodes))
	nodes := make([]graph.Node, len(doc.Nodes))
	seen := make(map[string]bool, len(doc.Nodes))
	var errs []error
	for i, nd := range doc.Nodes {
		if seen[nd.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateNode, nd.Name))
			continue
		}
		seen[nd.Name] = true
		n, err := reg.New(nd.Kind, nd.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", nd.Name, err))
			continue
		}
		names[i], nodes[i] = nd.Name, n
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Port references are resolved against the bare node set first.
	bare, err := graph.New(nodes, nil, graph.WithNames(names...))
	if err != nil {
		return nil, err
	}

	edges := make([]graph.Edge, 0, len(doc.Edges))
	for i, raw := range doc.Edges {
		fromRef, toRef, err := ParseEdge(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		from, err := bare.ParsePortRef(fromRef, graph.Out)
		if err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s): %w", i, raw, err))
			continue
		}
		to, err := bare.ParsePortRef(toRef, graph.In)
		if err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s): %w", i, raw, err))
			continue
		}
		edges = append(edges, graph.Edge{From: from, To: to})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g, err := graph.New(nodes, edges, graph.WithNames(names...))
	if err != nil {
		return nil, err
	}

	prog := &Program{Name: doc.Name, Graph: g, Values: make(map[graph.End]types.Value)}
	ignored := make(map[graph.End]bool, len(doc.Ignore))
	for _, ref := range doc.Ignore {
		end, err := g.ParsePortRef(ref, graph.In)
		if err != nil {
			errs = append(errs, fmt.Errorf("ignore: %w", err))
			continue
		}
		ignored[end] = true
		prog.Table.Ignored = append(prog.Table.Ignored, end)
	}
	for _, in := range doc.Inputs {
		b := infer.Binding{Name: in.Name, TypeName: in.Type, Trigger: in.Trigger}
		if b.TypeName == "" && in.Trigger {
			b.Type = types.Trigger
		}
		for _, ref := range in.To {
			end, err := g.ParsePortRef(ref, graph.In)
			if err != nil {
				errs = append(errs, fmt.Errorf("input %q: %w", in.Name, err))
				continue
			}
			b.Dests = append(b.Dests, end)
		}
		if in.Value != nil && !in.Trigger {
			t := b.Type
			if t == nil {
				if t, err = treg.Lookup(in.Type); err != nil {
					errs = append(errs, fmt.Errorf("input %q: %w", in.Name, err))
					continue
				}
			}
			v, err := types.Decode(t, in.Value)
			if err != nil {
				errs = append(errs, fmt.Errorf("input %q: %w", in.Name, err))
				continue
			}
			// Only external entry ports take a value; ignored and connected ends
			// are bound for their type alone.
			for _, d := range b.Dests {
				if _, connected := g.EdgeInto(d); connected || ignored[d] {
					continue
				}
				prog.Values[d] = v
			}
		}
		prog.Table.Bindings = append(prog.Table.Bindings, b)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return prog, nil
}
