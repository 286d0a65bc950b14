package dsl

import "github.com/aretw0/actgraph/pkg/document"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    document.Node
	builder *Builder
}

// Kind sets the registered kind the node is constructed from.
func (n *NodeBuilder) Kind(kind string) *NodeBuilder {
	n.node.Kind = kind
	return n
}

// Arg sets one construction argument.
func (n *NodeBuilder) Arg(key string, value any) *NodeBuilder {
	if n.node.Args == nil {
		n.node.Args = make(map[string]any)
	}
	n.node.Args[key] = value
	return n
}

// Go connects an output port of this node to a consumer port written as "node.port".
func (n *NodeBuilder) Go(port, target string) *NodeBuilder {
	n.builder.Connect(n.node.Name+"."+port, target)
	return n
}

// Build returns the underlying document node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() document.Node {
	return n.node
}
