// Package graph holds the immutable node/port/edge description that the
// compiler and the interpreter consume.
//
// Nodes live in a dense arena and are addressed by their position; edges refer
// to ports with plain (node, port) index pairs. Once New returns, a Graph is
// never mutated and may be shared freely between goroutines.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Node is the minimal capability the graph needs from a node: its port names.
type Node interface {
	Inputs() []string
	Outputs() []string
}

// Direction distinguishes input ends from output ends.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// End addresses one port of one node.
type End struct {
	Node int
	Port int
}

func (e End) String() string {
	return strconv.Itoa(e.Node) + "." + strconv.Itoa(e.Port)
}

// Less orders ends by node index, then port index.
func (e End) Less(o End) bool {
	if e.Node != o.Node {
		return e.Node < o.Node
	}
	return e.Port < o.Port
}

// Edge connects an output end (From) to an input end (To).
type Edge struct {
	From End
	To   End
}

// Graph is a validated, immutable collection of nodes and edges.
type Graph struct {
	nodes  []Node
	names  []string
	edges  []Edge
	into   map[End]int
	fanout map[End][]int
}

// Option configures graph construction.
type Option func(*Graph)

// WithNames labels nodes for diagnostics, documents and diagrams.
// Missing or empty names default to "n<index>".
func WithNames(names ...string) Option {
	return func(g *Graph) {
		copy(g.names, names)
	}
}

// New validates edges against the nodes' declared ports and returns the graph.
func New(nodes []Node, edges []Edge, opts ...Option) (*Graph, error) {
	g := &Graph{
		nodes:  append([]Node(nil), nodes...),
		names:  make([]string, len(nodes)),
		edges:  append([]Edge(nil), edges...),
		into:   make(map[End]int, len(edges)),
		fanout: make(map[End][]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	for i := range g.names {
		if g.names[i] == "" {
			g.names[i] = "n" + strconv.Itoa(i)
		}
	}

	for i, e := range g.edges {
		if err := g.checkEnd(e.From, Out); err != nil {
			err.Edge = i
			return nil, err
		}
		if err := g.checkEnd(e.To, In); err != nil {
			err.Edge = i
			return nil, err
		}
		if prev, dup := g.into[e.To]; dup {
			return nil, &StructuralError{
				Edge:   i,
				End:    e.To,
				Dir:    In,
				Reason: fmt.Sprintf("already fed by edge %d (%s)", prev, g.describeEdge(prev)),
				Err:    ErrFanIn,
			}
		}
		g.into[e.To] = i
		g.fanout[e.From] = append(g.fanout[e.From], i)
	}
	return g, nil
}

func (g *Graph) checkEnd(end End, dir Direction) *StructuralError {
	if end.Node < 0 || end.Node >= len(g.nodes) {
		return &StructuralError{End: end, Dir: dir, Err: ErrNodeRange,
			Reason: fmt.Sprintf("graph has %d nodes", len(g.nodes))}
	}
	ports := g.nodes[end.Node].Inputs()
	if dir == Out {
		ports = g.nodes[end.Node].Outputs()
	}
	if end.Port < 0 || end.Port >= len(ports) {
		return &StructuralError{End: end, Dir: dir, Err: ErrPortRange,
			Reason: fmt.Sprintf("node %q has %d %s ports", g.names[end.Node], len(ports), dir)}
	}
	return nil
}

func (g *Graph) describeEdge(i int) string {
	e := g.edges[i]
	return g.PortName(e.From, Out) + " -> " + g.PortName(e.To, In)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at index i.
func (g *Graph) Node(i int) Node { return g.nodes[i] }

// Name returns the instance name of node i.
func (g *Graph) Name(i int) string { return g.names[i] }

// Inputs returns the input port names of node i.
func (g *Graph) Inputs(i int) []string { return g.nodes[i].Inputs() }

// Outputs returns the output port names of node i.
func (g *Graph) Outputs(i int) []string { return g.nodes[i].Outputs() }

// Edges returns the edges in declaration order. The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// Lookup finds a node index by instance name.
func (g *Graph) Lookup(name string) (int, bool) {
	for i, n := range g.names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// EdgeInto returns the unique edge feeding an input end, if any.
func (g *Graph) EdgeInto(end End) (Edge, bool) {
	i, ok := g.into[end]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// EdgesFrom returns the edges leaving an output end in declaration order.
func (g *Graph) EdgesFrom(end End) []Edge {
	idx := g.fanout[end]
	out := make([]Edge, len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

// EntryPorts returns every input end without an incoming edge, ordered by node then port.
func (g *Graph) EntryPorts() []End {
	var out []End
	for n := range g.nodes {
		for p := range g.nodes[n].Inputs() {
			end := End{Node: n, Port: p}
			if _, fed := g.into[end]; !fed {
				out = append(out, end)
			}
		}
	}
	return out
}

// HasInput reports whether end addresses a declared input port.
func (g *Graph) HasInput(end End) bool {
	return g.checkEnd(end, In) == nil
}

// PortName renders an end as "node.port" using instance and port names.
func (g *Graph) PortName(end End, dir Direction) string {
	if end.Node < 0 || end.Node >= len(g.nodes) {
		return end.String()
	}
	ports := g.nodes[end.Node].Inputs()
	if dir == Out {
		ports = g.nodes[end.Node].Outputs()
	}
	if end.Port < 0 || end.Port >= len(ports) {
		return g.names[end.Node] + "." + strconv.Itoa(end.Port)
	}
	return g.names[end.Node] + "." + ports[end.Port]
}

// ParsePortRef resolves "node.port" where either part may be a name or an index.
func (g *Graph) ParsePortRef(ref string, dir Direction) (End, error) {
	nodePart, portPart, ok := strings.Cut(ref, ".")
	if !ok {
		return End{}, fmt.Errorf("port reference %q: expected node.port", ref)
	}
	n, found := g.Lookup(nodePart)
	if !found {
		idx, err := strconv.Atoi(nodePart)
		if err != nil {
			return End{}, &StructuralError{Edge: -1, End: End{Node: -1, Port: -1}, Dir: dir,
				Reason: fmt.Sprintf("reference %q", ref), Err: ErrUnknownNode}
		}
		n = idx
	}
	if n < 0 || n >= len(g.nodes) {
		return End{}, &StructuralError{Edge: -1, End: End{Node: n, Port: -1}, Dir: dir,
			Reason: fmt.Sprintf("reference %q", ref), Err: ErrNodeRange}
	}
	ports := g.nodes[n].Inputs()
	if dir == Out {
		ports = g.nodes[n].Outputs()
	}
	for i, p := range ports {
		if p == portPart {
			return End{Node: n, Port: i}, nil
		}
	}
	idx, err := strconv.Atoi(portPart)
	if err != nil {
		return End{}, &StructuralError{Edge: -1, End: End{Node: n, Port: -1}, Dir: dir,
			Reason: fmt.Sprintf("reference %q", ref), Err: ErrUnknownPort}
	}
	end := End{Node: n, Port: idx}
	if serr := g.checkEnd(end, dir); serr != nil {
		serr.Edge = -1
		return End{}, serr
	}
	return end, nil
}

// SortEnds orders ends by node then port in place.
func SortEnds(ends []End) {
	sort.Slice(ends, func(i, j int) bool { return ends[i].Less(ends[j]) })
}
