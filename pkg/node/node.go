// Package node defines the capabilities a node kind may offer to the rest of
// the system.
//
// Every node exposes its ordered port names. On top of that a node may be
// typed (it can declare what it produces), generated (it can lower each input
// port's behaviour into Go source through a Scope) and evaluated (it can run
// each input port's behaviour directly through a Frame). The node library is
// open: any type satisfying these interfaces can be registered.
package node

import (
	"io"

	"github.com/aretw0/actgraph/pkg/types"
)

// Node is the capability every node kind has.
type Node interface {
	Kind() string
	Inputs() []string
	Outputs() []string
}

// Typer declares the type produced on each output port.
type Typer interface {
	Node
	// OutputType returns the type produced on output port given the types of the
	// node's input ports (nil entries are not yet known). It returns nil while the
	// answer depends on an unknown input.
	OutputType(port int, in []*types.Type) *types.Type
}

// Generator lowers the behaviour of each input port to Go statements.
type Generator interface {
	Typer
	Generate(port int, s Scope) error
}

// Cursor describes a bounded iteration: Var is initialised with Init, the body
// runs while More holds (checked before every element) and Advance moves on.
type Cursor struct {
	Var     string
	Init    string
	More    string
	Advance string
}

// Scope is handed to Generate and accumulates the activation procedure body.
type Scope interface {
	// In returns an expression reading the context field of input port.
	In(port int) string
	// InType returns the resolved type of input port.
	InType(port int) *types.Type
	// OutType returns the resolved type of output port, or nil when it has no consumer
	// and could not be inferred.
	OutType(port int) *types.Type
	// State returns an expression for a node-private context field.
	State(name string, t *types.Type) string
	// Out activates an output port with the value of expr.
	Out(port int, expr string)
	// Line emits one statement.
	Line(format string, args ...any)
	// Temp returns a fresh local identifier.
	Temp(prefix string) string
	// If emits a two-way conditional. els may be nil.
	If(cond string, then, els func())
	// Iterate emits a pre-tested loop over a cursor.
	Iterate(c Cursor, body func())
	// Import requests a package import in the generated unit.
	Import(path string)
	// Support adds a top-level declaration (helper function or type) shared by name.
	Support(name, decl string)
	// Declare makes a named type and its dependencies available to the unit.
	Declare(t *types.Type)
	// Output returns the expression of the unit's output writer.
	Output() string
}

// Evaluator runs the behaviour of a node directly.
type Evaluator interface {
	Node
	// Instantiate returns fresh per-run state for the node.
	Instantiate() Activator
}

// Activator handles the activation of one input port in the interpreter.
type Activator interface {
	Activate(port int, f Frame) error
}

// Frame is handed to Activate.
type Frame interface {
	In(port int) any
	Out(port int, v any) error
	Output() io.Writer
}
