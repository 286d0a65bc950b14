// Package infer resolves the concrete type carried by every input port of a graph.
//
// Connected ports take the type their producer declares for the feeding output
// port. Unconnected ports must be typed by a Binding or excluded with an ignore
// entry. Resolution is a fixpoint over edges in declaration order, so the result
// depends only on node, port and edge indices.
package infer

import (
	"errors"
	"fmt"

	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/types"
)

var (
	// ErrUntyped is returned for an unconnected, non-ignored port without a binding.
	ErrUntyped = errors.New("entry port has no type")
	// ErrUnresolved is returned when a producer never declares a type for an edge.
	ErrUnresolved = errors.New("edge type could not be inferred")
	// ErrConflict is returned when two sources disagree on a port's type.
	ErrConflict = errors.New("conflicting types")
	// ErrNotTyped is returned when a node kind cannot declare output types.
	ErrNotTyped = errors.New("node kind does not declare output types")
)

// TypeError names the port whose type could not be resolved.
type TypeError struct {
	Port graph.End
	Name string
	Err  error
	Info string
}

func (e *TypeError) Error() string {
	msg := fmt.Sprintf("type error at %s (%s): %v", e.Name, e.Port, e.Err)
	if e.Info != "" {
		msg += ": " + e.Info
	}
	return msg
}

func (e *TypeError) Unwrap() error { return e.Err }

// Binding groups destination input ends under one name and one type.
// Type takes precedence over TypeName. Trigger marks pure control destinations,
// which receive no externally written value.
type Binding struct {
	Name     string
	Type     *types.Type
	TypeName string
	Dests    []graph.End
	Trigger  bool
}

// Table carries the caller-supplied overrides.
type Table struct {
	Bindings []Binding
	Ignored  []graph.End
}

// Assignment is the result of inference.
type Assignment struct {
	inputs   [][]*types.Type
	outputs  [][]*types.Type
	ignored  map[graph.End]bool
	external map[graph.End]string
	entries  []graph.End
}

// Input returns the type of an input end, nil if ignored.
func (a *Assignment) Input(end graph.End) *types.Type { return a.inputs[end.Node][end.Port] }

// Inputs returns the types of all input ports of node n.
func (a *Assignment) Inputs(n int) []*types.Type { return a.inputs[n] }

// Output returns the type of an output end, nil when it has no consumer and
// could not be determined.
func (a *Assignment) Output(end graph.End) *types.Type { return a.outputs[end.Node][end.Port] }

// Ignored reports whether end was excluded by the table.
func (a *Assignment) Ignored(end graph.End) bool { return a.ignored[end] }

// Entries returns the non-ignored unconnected input ends ordered by node then port.
func (a *Assignment) Entries() []graph.End { return a.entries }

// External reports whether an entry end receives an externally written value and,
// if so, the name of its binding.
func (a *Assignment) External(end graph.End) (string, bool) {
	name, ok := a.external[end]
	return name, ok
}

// Infer resolves the types of g under tab. Textual type names are looked up in reg.
func Infer(g *graph.Graph, tab Table, reg *types.Registry) (*Assignment, error) {
	a := &Assignment{
		inputs:   make([][]*types.Type, g.Len()),
		outputs:  make([][]*types.Type, g.Len()),
		ignored:  make(map[graph.End]bool),
		external: make(map[graph.End]string),
	}
	typers := make([]node.Typer, g.Len())
	for n := 0; n < g.Len(); n++ {
		a.inputs[n] = make([]*types.Type, len(g.Inputs(n)))
		a.outputs[n] = make([]*types.Type, len(g.Outputs(n)))
		if t, ok := g.Node(n).(node.Typer); ok {
			typers[n] = t
		}
	}

	for _, end := range tab.Ignored {
		if !g.HasInput(end) {
			return nil, &graph.StructuralError{Edge: -1, End: end, Dir: graph.In,
				Reason: "ignored port does not exist", Err: graph.ErrPortRange}
		}
		if e, fed := g.EdgeInto(end); fed {
			return nil, &graph.StructuralError{Edge: -1, End: end, Dir: graph.In,
				Reason: "ignored port is connected to " + g.PortName(e.From, graph.Out)}
		}
		a.ignored[end] = true
	}

	// Seed explicit bindings.
	forced := make(map[graph.End]bool)
	for _, b := range tab.Bindings {
		t := b.Type
		if t == nil {
			if reg == nil {
				return nil, &TypeError{Name: b.Name, Err: types.ErrUnknownType, Info: b.TypeName}
			}
			var err error
			if t, err = reg.Lookup(b.TypeName); err != nil {
				return nil, &TypeError{Name: b.Name, Err: err}
			}
		}
		for _, d := range b.Dests {
			if !g.HasInput(d) {
				return nil, &graph.StructuralError{Edge: -1, End: d, Dir: graph.In,
					Reason: fmt.Sprintf("binding %q targets a missing port", b.Name), Err: graph.ErrPortRange}
			}
			if a.ignored[d] {
				continue
			}
			if prev := a.inputs[d.Node][d.Port]; prev != nil && !prev.Equal(t) {
				return nil, &TypeError{Port: d, Name: g.PortName(d, graph.In), Err: ErrConflict,
					Info: fmt.Sprintf("bound as %s and %s", prev, t)}
			}
			a.inputs[d.Node][d.Port] = t
			forced[d] = true
			if _, fed := g.EdgeInto(d); !fed && !b.Trigger {
				a.external[d] = b.Name
			}
		}
	}

	// Fixpoint over edges in declaration order.
	edges := g.Edges()
	for changed := true; changed; {
		changed = false
		for _, e := range edges {
			typer := typers[e.From.Node]
			if typer == nil {
				continue
			}
			t := typer.OutputType(e.From.Port, a.inputs[e.From.Node])
			if t == nil {
				continue
			}
			if prev := a.outputs[e.From.Node][e.From.Port]; prev == nil {
				a.outputs[e.From.Node][e.From.Port] = t
				changed = true
			}
			cur := a.inputs[e.To.Node][e.To.Port]
			switch {
			case cur == nil:
				a.inputs[e.To.Node][e.To.Port] = t
				changed = true
			case !cur.Equal(t):
				info := fmt.Sprintf("%s produces %s, port holds %s", g.PortName(e.From, graph.Out), t, cur)
				if forced[e.To] {
					info = fmt.Sprintf("%s produces %s, binding forces %s", g.PortName(e.From, graph.Out), t, cur)
				}
				return nil, &TypeError{Port: e.To, Name: g.PortName(e.To, graph.In), Err: ErrConflict, Info: info}
			}
		}
	}

	for _, e := range edges {
		if a.inputs[e.To.Node][e.To.Port] != nil && !forced[e.To] {
			continue
		}
		if typers[e.From.Node] == nil {
			return nil, &TypeError{Port: e.From, Name: g.PortName(e.From, graph.Out), Err: ErrNotTyped,
				Info: fmt.Sprintf("kind %s", kindOf(g.Node(e.From.Node)))}
		}
		if a.outputs[e.From.Node][e.From.Port] == nil {
			return nil, &TypeError{Port: e.To, Name: g.PortName(e.To, graph.In), Err: ErrUnresolved,
				Info: "fed by " + g.PortName(e.From, graph.Out)}
		}
	}

	for _, end := range g.EntryPorts() {
		if a.ignored[end] {
			continue
		}
		if a.inputs[end.Node][end.Port] == nil {
			return nil, &TypeError{Port: end, Name: g.PortName(end, graph.In), Err: ErrUntyped}
		}
		a.entries = append(a.entries, end)
	}

	// Output ports without consumers: best effort, nodes may still read OutType.
	for n := 0; n < g.Len(); n++ {
		if typers[n] == nil {
			continue
		}
		for p := range a.outputs[n] {
			if a.outputs[n][p] == nil {
				a.outputs[n][p] = typers[n].OutputType(p, a.inputs[n])
			}
		}
	}
	return a, nil
}

func kindOf(n graph.Node) string {
	if k, ok := n.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", n)
}
