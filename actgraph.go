package actgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/document"
	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/infer"
	"github.com/aretw0/actgraph/pkg/interp"
	"github.com/aretw0/actgraph/pkg/nodes"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/toolchain"
	"github.com/aretw0/actgraph/pkg/types"
)

// Compiler is the high-level entry point of the library.
// It ties documents, inference, code generation, the toolchain and the
// interpreter together behind one configuration.
type Compiler struct {
	registry  *registry.Registry
	types     *types.Registry
	toolchain toolchain.Toolchain
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Compiler.
type Option func(*Compiler)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithRegistry replaces the node library and the named types it uses.
func WithRegistry(reg *registry.Registry, treg *types.Registry) Option {
	return func(c *Compiler) {
		c.registry = reg
		c.types = treg
	}
}

// WithToolchain injects the toolchain used by Build and Run.
func WithToolchain(tc toolchain.Toolchain) Option {
	return func(c *Compiler) {
		c.toolchain = tc
	}
}

// New creates a Compiler. By default it uses the builtin node library and a
// GoPlugin toolchain with the go command on PATH.
func New(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil || c.types == nil {
		c.registry, c.types = nodes.Default()
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.toolchain == nil {
		c.toolchain = toolchain.New(toolchain.WithLogger(c.logger))
	}
	return c
}

// Registry returns the node registry.
func (c *Compiler) Registry() *registry.Registry { return c.registry }

// Types returns the type registry.
func (c *Compiler) Types() *types.Registry { return c.types }

// Load reads and resolves a graph document.
func (c *Compiler) Load(path string) (*document.Program, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	prog, err := c.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Resolve resolves an already parsed document.
func (c *Compiler) Resolve(doc *document.Document) (*document.Program, error) {
	return document.Resolve(doc, c.registry, c.types)
}

// Check runs type inference and reports the first structural or type error.
func (c *Compiler) Check(prog *document.Program) (*infer.Assignment, error) {
	return infer.Infer(prog.Graph, prog.Table, c.types)
}

// Compile emits the source of prog.
func (c *Compiler) Compile(prog *document.Program, opts codegen.Options) (*codegen.Unit, error) {
	asg, err := c.Check(prog)
	if err != nil {
		return nil, err
	}
	unit, err := codegen.Generate(prog.Graph, asg, opts)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("compiled graph",
		"graph", prog.Name,
		"procedures", len(unit.Procedures),
		"inputs", len(unit.Inputs),
		"bytes", len(unit.Source),
	)
	return unit, nil
}

// Build compiles prog as a module and loads it through the toolchain.
func (c *Compiler) Build(ctx context.Context, prog *document.Program) (*toolchain.Module, error) {
	unit, err := c.Compile(prog, codegen.Options{Module: true})
	if err != nil {
		return nil, err
	}
	ctx = logging.WithLogger(ctx, c.logger.With("graph", prog.Name))
	return c.toolchain.Build(ctx, unit)
}

// Run builds prog and runs it once with the document's input values.
func (c *Compiler) Run(ctx context.Context, prog *document.Program, w io.Writer) error {
	m, err := c.Build(ctx, prog)
	if err != nil {
		return err
	}
	return m.Execute(prog.Natives(), w)
}

// Interpret runs prog without compiling it. When the graph can be compiled, entry
// ports are activated in the compiled order so both paths print the same text.
func (c *Compiler) Interpret(ctx context.Context, prog *document.Program, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	opts := []interp.Option{
		interp.WithOutput(w),
		interp.WithIgnored(prog.Table.Ignored...),
		interp.WithLogger(c.logger),
	}
	if order, err := c.entryOrder(prog); err == nil {
		opts = append(opts, interp.WithOrder(order))
	} else {
		c.logger.Debug("using interpreter entry order", "graph", prog.Name, "reason", err)
	}

	in, err := interp.New(prog.Graph, opts...)
	if err != nil {
		return err
	}
	for end, v := range prog.Natives() {
		if err := in.Set(end, v); err != nil {
			return err
		}
	}
	return in.Run(ctx)
}

func (c *Compiler) entryOrder(prog *document.Program) ([]graph.End, error) {
	unit, err := c.Compile(prog, codegen.Options{})
	if err != nil {
		return nil, err
	}
	if len(unit.Entries) == 0 {
		return nil, errors.New("no entry ports")
	}
	return unit.Entries, nil
}
