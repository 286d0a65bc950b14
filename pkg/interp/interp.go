// Package interp evaluates a graph directly by propagating activations.
//
// It is the reference behaviour for compiled units: writing a value to an
// input port stores it and runs the owning node's behaviour for that port,
// which may in turn activate output ports. Fan-out consumers are activated in
// edge declaration order.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/node"
)

var (
	// ErrNotEvaluable is returned for nodes without an interpreter behaviour.
	ErrNotEvaluable = errors.New("node kind cannot be interpreted")
	// ErrReentrant is returned when an activation chain re-enters a running procedure.
	ErrReentrant = errors.New("recursive activation")
)

// ActivationError reports a failure inside one node behaviour.
type ActivationError struct {
	Port string
	Err  error
}

func (e *ActivationError) Error() string { return fmt.Sprintf("activate %s: %v", e.Port, e.Err) }

func (e *ActivationError) Unwrap() error { return e.Err }

// Interpreter runs a graph. It is not safe for concurrent use; Run may be
// called repeatedly and starts from fresh node state each time.
type Interpreter struct {
	g       *graph.Graph
	evals   []node.Evaluator
	ignored map[graph.End]bool
	values  map[graph.End]any
	order   []graph.End
	out     io.Writer
	logger  *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets the writer print-like nodes write to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithIgnored excludes entry ports from activation.
func WithIgnored(ends ...graph.End) Option {
	return func(in *Interpreter) {
		for _, e := range ends {
			in.ignored[e] = true
		}
	}
}

// WithOrder fixes the entry activation order, e.g. to mirror a compiled unit.
func WithOrder(ends []graph.End) Option {
	return func(in *Interpreter) { in.order = append([]graph.End(nil), ends...) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New checks that every node can be interpreted.
func New(g *graph.Graph, opts ...Option) (*Interpreter, error) {
	in := &Interpreter{
		g:       g,
		evals:   make([]node.Evaluator, g.Len()),
		ignored: make(map[graph.End]bool),
		values:  make(map[graph.End]any),
		out:     os.Stdout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	for i := 0; i < g.Len(); i++ {
		ev, ok := g.Node(i).(node.Evaluator)
		if !ok {
			return nil, &graph.StructuralError{Edge: -1, End: graph.End{Node: i, Port: -1}, Dir: graph.In,
				Err: ErrNotEvaluable, Reason: fmt.Sprintf("node %q", g.Name(i))}
		}
		in.evals[i] = ev
	}
	return in, nil
}

// Set stores the value written to an entry port before Run.
func (in *Interpreter) Set(end graph.End, v any) error {
	if !in.g.HasInput(end) {
		return &graph.StructuralError{Edge: -1, End: end, Dir: graph.In, Err: graph.ErrPortRange,
			Reason: "cannot set a missing port"}
	}
	if _, fed := in.g.EdgeInto(end); fed {
		return &graph.StructuralError{Edge: -1, End: end, Dir: graph.In,
			Reason: "port " + in.g.PortName(end, graph.In) + " is connected"}
	}
	in.values[end] = v
	return nil
}

// Entries returns the entry ports in activation order: unless WithOrder was
// given, ports holding a value come first, then pure triggers, each group by
// node then port.
func (in *Interpreter) Entries() []graph.End {
	if in.order != nil {
		return in.order
	}
	var valued, triggers []graph.End
	for _, e := range in.g.EntryPorts() {
		if in.ignored[e] {
			continue
		}
		if _, ok := in.values[e]; ok {
			valued = append(valued, e)
		} else {
			triggers = append(triggers, e)
		}
	}
	return append(valued, triggers...)
}

// Run activates every entry port once. Entry ports without a value receive an
// empty trigger.
func (in *Interpreter) Run(ctx context.Context) (err error) {
	r := &run{
		ctx:    ctx,
		in:     in,
		acts:   make([]node.Activator, in.g.Len()),
		values: make(map[graph.End]any, len(in.values)),
		active: make(map[graph.End]bool),
	}
	for i, ev := range in.evals {
		r.acts[i] = ev.Instantiate()
	}
	for e, v := range in.values {
		r.values[e] = v
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("interpreter panic: %v", p)
		}
	}()

	entries := in.Entries()
	in.logger.Debug("interpreting graph", "nodes", in.g.Len(), "entries", len(entries))
	for _, e := range entries {
		if _, ok := r.values[e]; !ok {
			r.values[e] = struct{}{}
		}
		if err := r.activate(e); err != nil {
			return err
		}
	}
	return nil
}

type run struct {
	ctx    context.Context
	in     *Interpreter
	acts   []node.Activator
	values map[graph.End]any
	active map[graph.End]bool
	steps  int
}

// tick counts one step and polls the context every 1024 steps.
func (r *run) tick() error {
	if r.steps++; r.steps%1024 == 0 {
		return r.ctx.Err()
	}
	return nil
}

func (r *run) activate(end graph.End) error {
	if err := r.tick(); err != nil {
		return err
	}
	name := r.in.g.PortName(end, graph.In)
	if r.active[end] {
		return &ActivationError{Port: name, Err: ErrReentrant}
	}
	r.active[end] = true
	defer delete(r.active, end)

	if err := r.acts[end.Node].Activate(end.Port, &frame{run: r, node: end.Node}); err != nil {
		var aerr *ActivationError
		if errors.As(err, &aerr) {
			return err
		}
		return &ActivationError{Port: name, Err: err}
	}
	return nil
}

type frame struct {
	run  *run
	node int
}

func (f *frame) In(port int) any {
	return f.run.values[graph.End{Node: f.node, Port: port}]
}

func (f *frame) Out(port int, v any) error {
	// Loops whose outputs feed nothing never reach activate.
	if err := f.run.tick(); err != nil {
		return err
	}
	from := graph.End{Node: f.node, Port: port}
	if port < 0 || port >= len(f.run.in.g.Outputs(f.node)) {
		return &graph.StructuralError{Edge: -1, End: from, Dir: graph.Out, Err: graph.ErrPortRange,
			Reason: "activated by " + f.run.in.g.Name(f.node)}
	}
	for _, e := range f.run.in.g.EdgesFrom(from) {
		f.run.values[e.To] = v
		if err := f.run.activate(e.To); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) Output() io.Writer { return f.run.in.out }
