package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/types"
)

// scope accumulates the body of one activation procedure.
type scope struct {
	gen    *generator
	end    graph.End
	kind   string
	lines  []string
	depth  int
	temps  int
	calls  []graph.End
	loops  int
	active bool
	err    error
}

func (s *scope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *scope) inputs() []string  { return s.gen.g.Inputs(s.end.Node) }
func (s *scope) outputs() []string { return s.gen.g.Outputs(s.end.Node) }

func (s *scope) In(port int) string {
	end := graph.End{Node: s.end.Node, Port: port}
	if port < 0 || port >= len(s.inputs()) {
		s.fail(&graph.StructuralError{Edge: -1, End: end, Dir: graph.In, Err: graph.ErrPortRange,
			Reason: fmt.Sprintf("read by %s behaviour of %s", s.kind, s.gen.g.PortName(s.end, graph.In))})
		return "ctx.invalid"
	}
	if s.gen.asg.Ignored(end) {
		s.fail(&graph.StructuralError{Edge: -1, End: end, Dir: graph.In, Err: ErrIgnoredRead,
			Reason: s.gen.g.PortName(end, graph.In)})
		return "ctx.invalid"
	}
	return "ctx." + FieldName(end)
}

func (s *scope) InType(port int) *types.Type {
	if port < 0 || port >= len(s.inputs()) {
		return nil
	}
	return s.gen.asg.Input(graph.End{Node: s.end.Node, Port: port})
}

func (s *scope) OutType(port int) *types.Type {
	if port < 0 || port >= len(s.outputs()) {
		return nil
	}
	return s.gen.asg.Output(graph.End{Node: s.end.Node, Port: port})
}

func (s *scope) State(name string, t *types.Type) string {
	if err := s.gen.addState(s.end.Node, name, t); err != nil {
		s.fail(err)
	}
	return "ctx." + stateName(s.end.Node, name)
}

func (s *scope) Out(port int, expr string) {
	from := graph.End{Node: s.end.Node, Port: port}
	if port < 0 || port >= len(s.outputs()) {
		s.fail(&graph.StructuralError{Edge: -1, End: from, Dir: graph.Out, Err: graph.ErrPortRange,
			Reason: fmt.Sprintf("activated by %s behaviour of %s (%d outputs)",
				s.kind, s.gen.g.PortName(s.end, graph.In), len(s.outputs()))})
		return
	}
	s.active = true
	edges := s.gen.g.EdgesFrom(from)
	switch len(edges) {
	case 0:
		s.Line("_ = %s", expr)
		return
	case 1:
		s.deliver(edges[0].To, expr)
		return
	}
	v := s.Temp("v")
	s.Line("%s := %s", v, expr)
	for _, e := range edges {
		s.deliver(e.To, v)
	}
}

func (s *scope) deliver(to graph.End, expr string) {
	s.Line("ctx.%s = %s", FieldName(to), expr)
	s.Line("%s(ctx)", ProcName(to))
	s.calls = append(s.calls, to)
}

func (s *scope) Line(format string, args ...any) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	s.lines = append(s.lines, strings.Repeat("\t", s.depth+1)+line)
}

func (s *scope) Temp(prefix string) string {
	s.temps++
	return prefix + strconv.Itoa(s.temps)
}

func (s *scope) If(cond string, then, els func()) {
	s.Line("if %s {", cond)
	s.depth++
	then()
	s.depth--
	if els != nil {
		s.Line("} else {")
		s.depth++
		els()
		s.depth--
	}
	s.Line("}")
}

func (s *scope) Iterate(c node.Cursor, body func()) {
	s.loops++
	s.Line("for %s := %s; %s; %s {", c.Var, c.Init, c.More, c.Advance)
	s.depth++
	body()
	s.depth--
	s.Line("}")
}

func (s *scope) Import(path string) { s.gen.imports[path] = true }

func (s *scope) Support(name, decl string) {
	if prev, ok := s.gen.support[name]; ok && prev != decl {
		s.fail(fmt.Errorf("%w: support declaration %q redefined by %s", ErrDeclConflict, name, s.kind))
		return
	}
	s.gen.support[name] = decl
}

func (s *scope) Declare(t *types.Type) {
	if err := s.gen.declare(t); err != nil {
		s.fail(err)
	}
}

func (s *scope) Output() string { return "ctx.out" }
