// Package codegen lowers a typed activation graph to a single Go source unit.
//
// Every non-ignored input port becomes one context field and one activation
// procedure. A node's behaviour for that port is produced by its Generator;
// activating an output port is lowered to field assignments followed by direct
// calls of the consumers' procedures, in edge declaration order. The entry
// procedure Run calls every entry port once. The output is a pure function of
// the graph, the assignment and the options.
package codegen

import (
	"errors"
	"fmt"
	"go/format"
	"sort"
	"strings"

	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/infer"
	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/types"
)

var (
	// ErrNotGenerable is returned for nodes without a code generation capability.
	ErrNotGenerable = errors.New("node kind cannot be compiled")
	// ErrIgnoredRead is returned when a behaviour reads a port listed as ignored.
	ErrIgnoredRead = errors.New("behaviour reads an ignored port")
	// ErrActivationCycle is returned when procedures would call themselves recursively.
	ErrActivationCycle = errors.New("activation cycle")
	// ErrDeclConflict is returned when two declarations claim the same name.
	ErrDeclConflict = errors.New("declaration conflict")
)

// Options configures the emitted unit.
type Options struct {
	// Package names the generated package. Defaults to "main".
	Package string
	// Module adds the exported host-facing symbols used by the toolchain loader.
	Module bool
}

// Input describes one externally written entry port.
type Input struct {
	End     graph.End
	Binding string
	Symbol  string
	Type    *types.Type
}

// Procedure describes one emitted activation procedure.
type Procedure struct {
	End   graph.End
	Name  string
	Calls []graph.End
	// Activates is false for procedures whose body activates no output port.
	Activates bool
	// Loops counts cursor loops emitted directly in the body.
	Loops int
}

// Unit is the generated source and its host-facing description.
type Unit struct {
	Source     []byte
	Package    string
	Module     bool
	Entries    []graph.End
	Inputs     []Input
	Procedures []Procedure
}

// ProcName returns the activation procedure name of an input end.
func ProcName(end graph.End) string { return fmt.Sprintf("act%d_%d", end.Node, end.Port) }

// FieldName returns the context field name of an input end.
func FieldName(end graph.End) string { return fmt.Sprintf("in%d_%d", end.Node, end.Port) }

// InputSymbol returns the exported accessor name of an external entry end.
func InputSymbol(end graph.End) string {
	return fmt.Sprintf("ContextInputVar_%d_%d", end.Node, end.Port)
}

func stateName(n int, name string) string { return fmt.Sprintf("st%d_%s", n, name) }

// Exported symbol names of module units.
const (
	SymContextCreate    = "ContextCreate"
	SymContextDelete    = "ContextDelete"
	SymEntry            = "Entry"
	SymContextSetOutput = "ContextSetOutput"
)

type stateField struct {
	node int
	name string
	typ  *types.Type
}

type generator struct {
	g       *graph.Graph
	asg     *infer.Assignment
	opts    Options
	imports map[string]bool
	support map[string]string
	named   map[string]*types.Type
	states  []stateField
	procs   []*scope
}

// Generate emits the unit for g under the resolved assignment.
// All structural problems are reported before any source is produced.
func Generate(g *graph.Graph, asg *infer.Assignment, opts Options) (*Unit, error) {
	if opts.Package == "" {
		opts.Package = "main"
	}
	gen := &generator{
		g:       g,
		asg:     asg,
		opts:    opts,
		imports: map[string]bool{"io": true, "os": true},
		support: make(map[string]string),
		named:   make(map[string]*types.Type),
	}

	for n := 0; n < g.Len(); n++ {
		for p := range g.Inputs(n) {
			end := graph.End{Node: n, Port: p}
			if asg.Ignored(end) {
				continue
			}
			if err := gen.declare(asg.Input(end)); err != nil {
				return nil, err
			}
		}
	}

	for n := 0; n < g.Len(); n++ {
		nd := g.Node(n)
		gn, ok := nd.(node.Generator)
		for p := range g.Inputs(n) {
			end := graph.End{Node: n, Port: p}
			if asg.Ignored(end) {
				continue
			}
			if !ok {
				return nil, &graph.StructuralError{Edge: -1, End: end, Dir: graph.In, Err: ErrNotGenerable,
					Reason: fmt.Sprintf("node %q of kind %T", g.Name(n), nd)}
			}
			s := &scope{gen: gen, end: end, kind: gn.Kind()}
			if err := gn.Generate(p, s); err != nil {
				return nil, fmt.Errorf("generate %s: %w", g.PortName(end, graph.In), err)
			}
			if s.err != nil {
				return nil, s.err
			}
			gen.procs = append(gen.procs, s)
		}
	}

	if err := gen.checkCycles(); err != nil {
		return nil, err
	}

	unit := &Unit{Package: opts.Package, Module: opts.Module}
	for _, s := range gen.procs {
		unit.Procedures = append(unit.Procedures, Procedure{
			End:       s.end,
			Name:      ProcName(s.end),
			Calls:     s.calls,
			Activates: s.active,
			Loops:     s.loops,
		})
	}
	unit.Entries = gen.entryOrder()
	for _, end := range asg.Entries() {
		if name, ok := asg.External(end); ok {
			unit.Inputs = append(unit.Inputs, Input{
				End:     end,
				Binding: name,
				Symbol:  InputSymbol(end),
				Type:    asg.Input(end),
			})
		}
	}

	src := gen.assemble(unit)
	formatted, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	unit.Source = formatted
	return unit, nil
}

func (gen *generator) declare(t *types.Type) error {
	if t == nil {
		return nil
	}
	for _, d := range types.Dependencies(t) {
		if prev, ok := gen.named[d.Name()]; ok {
			if !prev.Equal(d) {
				return fmt.Errorf("%w: type %s declared twice with different shapes", ErrDeclConflict, d.Name())
			}
			continue
		}
		gen.named[d.Name()] = d
		for _, imp := range d.Imports() {
			gen.imports[imp] = true
		}
	}
	return nil
}

func (gen *generator) addState(n int, name string, t *types.Type) error {
	for _, st := range gen.states {
		if st.node == n && st.name == name {
			if !st.typ.Equal(t) {
				return fmt.Errorf("%w: state %s of %q used as %s and %s", ErrDeclConflict, name, gen.g.Name(n), st.typ, t)
			}
			return nil
		}
	}
	if err := gen.declare(t); err != nil {
		return err
	}
	gen.states = append(gen.states, stateField{node: n, name: name, typ: t})
	return nil
}

// checkCycles rejects call graphs where a procedure can re-enter itself.
func (gen *generator) checkCycles() error {
	index := make(map[graph.End]*scope, len(gen.procs))
	for _, s := range gen.procs {
		index[s.end] = s
	}
	const (
		white = iota
		grey
		black
	)
	color := make(map[graph.End]int, len(gen.procs))
	var stack []graph.End

	var visit func(graph.End) error
	visit = func(e graph.End) error {
		color[e] = grey
		stack = append(stack, e)
		for _, c := range index[e].calls {
			switch color[c] {
			case grey:
				var path []string
				for i := len(stack) - 1; i >= 0; i-- {
					path = append([]string{gen.g.PortName(stack[i], graph.In)}, path...)
					if stack[i] == c {
						break
					}
				}
				path = append(path, gen.g.PortName(c, graph.In))
				return &graph.StructuralError{Edge: -1, End: c, Dir: graph.In, Err: ErrActivationCycle,
					Reason: strings.Join(path, " -> ")}
			case white:
				if err := visit(c); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[e] = black
		return nil
	}

	for _, s := range gen.procs {
		if color[s.end] == white {
			if err := visit(s.end); err != nil {
				return err
			}
		}
	}
	return nil
}

// entryOrder sorts entry procedures into tiers: value placeholders that activate
// nothing, then activating procedures, then procedures driving a cursor loop.
// Within a tier the order is node index, then port index.
func (gen *generator) entryOrder() []graph.End {
	tier := make(map[graph.End]int)
	for _, s := range gen.procs {
		switch {
		case s.loops > 0:
			tier[s.end] = 2
		case s.active:
			tier[s.end] = 1
		}
	}
	entries := append([]graph.End(nil), gen.asg.Entries()...)
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := tier[entries[i]], tier[entries[j]]
		if ti != tj {
			return ti < tj
		}
		return entries[i].Less(entries[j])
	})
	return entries
}

func comment(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func (gen *generator) assemble(unit *Unit) []byte {
	var b strings.Builder
	b.WriteString("// Code generated by actgraph. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", gen.opts.Package)

	imports := make([]string, 0, len(gen.imports))
	for imp := range gen.imports {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	b.WriteString("import (\n")
	for _, imp := range imports {
		fmt.Fprintf(&b, "\t%q\n", imp)
	}
	b.WriteString(")\n\n")

	names := make([]string, 0, len(gen.named))
	for n := range gen.named {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.WriteString(gen.named[n].Decl())
		b.WriteString("\n\n")
	}

	helpers := make([]string, 0, len(gen.support))
	for n := range gen.support {
		helpers = append(helpers, n)
	}
	sort.Strings(helpers)
	for _, n := range helpers {
		b.WriteString(gen.support[n])
		b.WriteString("\n\n")
	}

	b.WriteString("// Context holds one field per input port and the private state of stateful nodes.\n")
	b.WriteString("type Context struct {\n\tout io.Writer\n\n")
	for n := 0; n < gen.g.Len(); n++ {
		for p := range gen.g.Inputs(n) {
			end := graph.End{Node: n, Port: p}
			if gen.asg.Ignored(end) {
				continue
			}
			fmt.Fprintf(&b, "\t%s %s // %s\n", FieldName(end), gen.asg.Input(end).GoType(),
				comment(gen.g.PortName(end, graph.In)))
		}
	}
	states := append([]stateField(nil), gen.states...)
	sort.SliceStable(states, func(i, j int) bool { return states[i].node < states[j].node })
	if len(states) > 0 {
		b.WriteString("\n")
	}
	for _, st := range states {
		fmt.Fprintf(&b, "\t%s %s // %s state\n", stateName(st.node, st.name), st.typ.GoType(),
			comment(gen.g.Name(st.node)))
	}
	b.WriteString("}\n\n")

	b.WriteString("// NewContext returns a context printing to standard output.\n")
	b.WriteString("func NewContext() *Context {\n\treturn &Context{out: os.Stdout}\n}\n\n")

	for _, s := range gen.procs {
		fmt.Fprintf(&b, "// %s activates %s.\n", ProcName(s.end), comment(gen.g.PortName(s.end, graph.In)))
		fmt.Fprintf(&b, "func %s(ctx *Context) {\n", ProcName(s.end))
		for _, l := range s.lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}

	b.WriteString("// Run activates every entry port once.\n")
	b.WriteString("func Run(ctx *Context) {\n")
	for _, e := range unit.Entries {
		fmt.Fprintf(&b, "\t%s(ctx)\n", ProcName(e))
	}
	b.WriteString("}\n")

	if gen.opts.Module {
		gen.assembleModule(&b, unit)
	}
	return []byte(b.String())
}

func (gen *generator) assembleModule(b *strings.Builder, unit *Unit) {
	fmt.Fprintf(b, "\n// %s allocates a context for the host.\n", SymContextCreate)
	fmt.Fprintf(b, "func %s() any { return NewContext() }\n\n", SymContextCreate)
	fmt.Fprintf(b, "// %s releases a context.\n", SymContextDelete)
	fmt.Fprintf(b, "func %s(h any) { *h.(*Context) = Context{} }\n\n", SymContextDelete)
	fmt.Fprintf(b, "// %s runs the whole graph once.\n", SymEntry)
	fmt.Fprintf(b, "func %s(h any) { Run(h.(*Context)) }\n\n", SymEntry)
	fmt.Fprintf(b, "// %s redirects printed output.\n", SymContextSetOutput)
	fmt.Fprintf(b, "func %s(h any, w io.Writer) { h.(*Context).out = w }\n", SymContextSetOutput)
	for _, in := range unit.Inputs {
		fmt.Fprintf(b, "\n// %s exposes %s (input %q).\n", in.Symbol, comment(gen.g.PortName(in.End, graph.In)), in.Binding)
		fmt.Fprintf(b, "func %s(h any) *%s { return &h.(*Context).%s }\n", in.Symbol, in.Type.GoType(), FieldName(in.End))
	}
	if gen.opts.Package == "main" {
		b.WriteString("\nfunc main() {}\n")
	}
}
