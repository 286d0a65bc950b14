package dsl

import (
	"fmt"

	"github.com/aretw0/actgraph/pkg/document"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/types"
)

// Builder manages the graph construction.
// Nodes keep the order in which they were first added; edges keep call order.
type Builder struct {
	doc   document.Document
	nodes map[string]*NodeBuilder
	order []*NodeBuilder
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		doc:   document.Document{Name: name},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    document.Node{Name: name},
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, nb)
	return nb
}

// Node adds a node of the given kind with construction arguments.
func (b *Builder) Node(name, kind string, args map[string]any) *NodeBuilder {
	nb := b.Add(name).Kind(kind)
	for k, v := range args {
		nb.Arg(k, v)
	}
	return nb
}

// Connect adds an edge from a producer port to a consumer port, both written as "node.port".
func (b *Builder) Connect(from, to string) *Builder {
	b.doc.Edges = append(b.doc.Edges, from+" -> "+to)
	return b
}

// Input binds entry ports to a typed value written before every run.
func (b *Builder) Input(name, typeName string, value any, to ...string) *Builder {
	b.doc.Inputs = append(b.doc.Inputs, document.Input{Name: name, Type: typeName, Value: value, To: to})
	return b
}

// Trigger binds entry ports that only receive a control signal.
func (b *Builder) Trigger(name string, to ...string) *Builder {
	b.doc.Inputs = append(b.doc.Inputs, document.Input{Name: name, Trigger: true, To: to})
	return b
}

// Ignore excludes an unconnected input port from compilation.
func (b *Builder) Ignore(ref string) *Builder {
	b.doc.Ignore = append(b.doc.Ignore, ref)
	return b
}

// Document returns the accumulated document.
func (b *Builder) Document() *document.Document {
	doc := b.doc
	doc.Nodes = make([]document.Node, len(b.order))
	for i, nb := range b.order {
		doc.Nodes[i] = nb.node
	}
	doc.Edges = append([]string(nil), b.doc.Edges...)
	doc.Inputs = append([]document.Input(nil), b.doc.Inputs...)
	doc.Ignore = append([]string(nil), b.doc.Ignore...)
	return &doc
}

// Build resolves the graph against the given registries.
func (b *Builder) Build(reg *registry.Registry, treg *types.Registry) (*document.Program, error) {
	prog, err := document.Resolve(b.Document(), reg, treg)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return prog, nil
}
