package toolchain

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/graph"
)

// symbols resolves exported names of a loaded module.
type symbols interface {
	Lookup(name string) (any, error)
}

// Module is a loaded unit. Modules are shared: building identical source twice
// returns modules backed by the same loaded code.
type Module struct {
	Path   string
	Digest string
	Unit   *codegen.Unit

	create    func() any
	destroy   func(any)
	entry     func(any)
	setOutput func(any, io.Writer)
	inputs    map[graph.End]input
}

type input struct {
	binding  string
	accessor reflect.Value
}

func lookup[T any](syms symbols, path, name string) (T, error) {
	var zero T
	sym, err := syms.Lookup(name)
	if err != nil {
		return zero, &LoadError{Path: path, Symbol: name, Err: err}
	}
	fn, ok := sym.(T)
	if !ok {
		return zero, &LoadError{Path: path, Symbol: name, Err: fmt.Errorf("unexpected type %T", sym)}
	}
	return fn, nil
}

func newModule(syms symbols, path, digest string, unit *codegen.Unit) (*Module, error) {
	m := &Module{Path: path, Digest: digest, Unit: unit, inputs: make(map[graph.End]input, len(unit.Inputs))}
	var err error
	if m.create, err = lookup[func() any](syms, path, codegen.SymContextCreate); err != nil {
		return nil, err
	}
	if m.destroy, err = lookup[func(any)](syms, path, codegen.SymContextDelete); err != nil {
		return nil, err
	}
	if m.entry, err = lookup[func(any)](syms, path, codegen.SymEntry); err != nil {
		return nil, err
	}
	if m.setOutput, err = lookup[func(any, io.Writer)](syms, path, codegen.SymContextSetOutput); err != nil {
		return nil, err
	}
	for _, in := range unit.Inputs {
		sym, err := syms.Lookup(in.Symbol)
		if err != nil {
			return nil, &LoadError{Path: path, Symbol: in.Symbol, Err: err}
		}
		fn := reflect.ValueOf(sym)
		t := fn.Type()
		if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 1 || t.Out(0).Kind() != reflect.Pointer {
			return nil, &LoadError{Path: path, Symbol: in.Symbol, Err: fmt.Errorf("unexpected type %s", t)}
		}
		m.inputs[in.End] = input{binding: in.Binding, accessor: fn}
	}
	return m, nil
}

// Inputs returns the external entry ports in (node, port) order.
func (m *Module) Inputs() []graph.End {
	ends := make([]graph.End, 0, len(m.inputs))
	for e := range m.inputs {
		ends = append(ends, e)
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].Less(ends[j]) })
	return ends
}

// NewContext allocates a context printing to standard output.
func (m *Module) NewContext() *Context {
	return &Context{m: m, h: m.create()}
}

// Execute runs the module once on a fresh context with the given entry values.
func (m *Module) Execute(values map[graph.End]any, w io.Writer) error {
	c := m.NewContext()
	defer c.Close()
	if w != nil {
		c.SetOutput(w)
	}
	for end, v := range values {
		if err := c.Set(end, v); err != nil {
			return err
		}
	}
	return c.Run()
}

// Context is one instance of a module's state. It is not safe for concurrent use.
type Context struct {
	m  *Module
	h  any
	mu sync.Mutex
}

func (c *Context) handle() (any, error) {
	if c.h == nil {
		return nil, ErrClosed
	}
	return c.h, nil
}

// Set writes v to the entry port end. Values are converted to the generated
// type: numbers by kind, structs by field position, maps by field name and
// sequences element by element.
func (c *Context) Set(end graph.End, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, err := c.handle()
	if err != nil {
		return err
	}
	in, ok := c.m.inputs[end]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInput, end)
	}
	ptr := in.accessor.Call([]reflect.Value{reflect.ValueOf(&h).Elem()})[0]
	if err := assign(ptr.Elem(), v); err != nil {
		return fmt.Errorf("set %s (input %q): %w", end, in.binding, err)
	}
	return nil
}

// SetInput writes v to every port bound to the named input.
func (c *Context) SetInput(name string, v any) error {
	found := false
	for _, end := range c.m.Inputs() {
		if c.m.inputs[end].binding != name {
			continue
		}
		found = true
		if err := c.Set(end, v); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	return nil
}

// SetOutput redirects what print nodes write.
func (c *Context) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return
	}
	if w == nil {
		w = os.Stdout
	}
	c.m.setOutput(c.h, w)
}

// Run activates every entry port once. A panic inside generated code is
// returned as *RunError.
func (c *Context) Run() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, err := c.handle()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &RunError{Module: c.m.Path, Value: r, Stack: debug.Stack()}
		}
	}()
	c.m.entry(h)
	return nil
}

// Close releases the context. Further calls fail with ErrClosed.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return
	}
	c.m.destroy(c.h)
	c.h = nil
}
