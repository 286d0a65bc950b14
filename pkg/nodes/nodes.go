// Package nodes is the standard node library.
//
// Every kind is both an interpreter node and a code generator: Instantiate
// returns per-run state for direct evaluation, Generate lowers the same
// behaviour to Go statements. Sources (const, linspace, range, grid) start
// activation chains, arithmetic nodes transform values on their hot first
// port and store their second, state holders (latch, counter, canvas) keep
// values between activations and sinks (ascii, join, print) produce output.
package nodes

import (
	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/types"
)

const triggerLiteral = "struct{}{}"

type base struct {
	kind    string
	inputs  []string
	outputs []string
}

func (b base) Kind() string      { return b.kind }
func (b base) Inputs() []string  { return b.inputs }
func (b base) Outputs() []string { return b.outputs }

// activatorFunc adapts a function to node.Activator.
type activatorFunc func(port int, f node.Frame) error

func (fn activatorFunc) Activate(port int, f node.Frame) error { return fn(port, f) }

// valueOf asserts an input value, mapping a never-written port to the zero value.
func valueOf[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	x, ok := v.(T)
	if !ok {
		return zero, typeMismatch(zero, v)
	}
	return x, nil
}

// Register adds every library kind to reg and the library types to treg.
// Constructors that accept type names resolve them through treg.
func Register(reg *registry.Registry, treg *types.Registry) {
	RegisterTypes(treg)

	reg.Register("const", "Emits a literal `value` of the declared `type` each time it is triggered.",
		func(args map[string]any) (node.Node, error) { return newConst(args, treg) })
	reg.Register("linspace", "Emits `count` evenly spaced values from `first` to `last`, then `end`.", noArgs(newLinspace))
	reg.Register("range", "Emits the indices 0..count-1, then `end`.", noArgs(newRange))
	reg.Register("grid", "Samples a rectangle row by row at the given resolution.", noArgs(newGrid))

	reg.Register("add", "Emits a + b when a arrives; b is stored.", noArgs(func() node.Node { return newBinary("add", '+') }))
	reg.Register("sub", "Emits a - b when a arrives; b is stored.", noArgs(func() node.Node { return newBinary("sub", '-') }))
	reg.Register("mul", "Emits a * b when a arrives; b is stored.", noArgs(func() node.Node { return newBinary("mul", '*') }))
	reg.Register("div", "Emits a / b when a arrives; b is stored.", noArgs(func() node.Node { return newBinary("div", '/') }))
	reg.Register("square", "Emits in * in.", noArgs(newSquare))
	reg.Register("abs2", "Emits the squared magnitude of in as float64.", noArgs(newAbs2))
	reg.Register("to_complex", "Converts a Vec2 or real number to complex128.", noArgs(newToComplex))
	reg.Register("to_float", "Converts a real number to float64.", noArgs(newToFloat))
	reg.Register("less", "Forwards a on `lt` when a < b, otherwise on `ge`; b is stored.", noArgs(newLess))

	reg.Register("latch", "Holds the last value written to `init` or `set` and emits it on `get`.", noArgs(newLatch))
	reg.Register("counter", "Counts `inc` activations since the last `reset` and emits the count on `get`.", noArgs(newCounter))
	reg.Register("canvas", "Collects brightness values per grid cell and emits the image on `flush`.", noArgs(newCanvas))

	reg.Register("ascii", "Renders an image as text rows using a brightness `palette`.", newASCII)
	reg.Register("join", "Joins text rows with `sep`.", newJoin)
	reg.Register("print", "Writes its value and a newline to the output.", noArgs(newPrint))
	reg.Register("split", "Replicates its input on `count` outputs, in port order.", newSplit)
}

// Default returns registries preloaded with the library.
func Default() (*registry.Registry, *types.Registry) {
	reg, treg := registry.NewRegistry(), types.NewRegistry()
	Register(reg, treg)
	return reg, treg
}

// noArgs wraps a constructor for kinds that take no construction arguments.
func noArgs[N node.Node](ctor func() N) registry.Constructor {
	return func(args map[string]any) (node.Node, error) {
		var none struct{}
		if err := registry.DecodeArgs(args, &none); err != nil {
			return nil, err
		}
		return ctor(), nil
	}
}
