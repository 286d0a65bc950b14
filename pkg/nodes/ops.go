package nodes

import (
	"fmt"

	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/types"
)

// binary combines its hot first operand with the stored second one.
type binary struct {
	base
	op byte
}

func newBinary(kind string, op byte) *binary {
	return &binary{base: base{kind: kind, inputs: []string{"a", "b"}, outputs: []string{"out"}}, op: op}
}

func (*binary) OutputType(_ int, in []*types.Type) *types.Type { return in[0] }

func (b *binary) Generate(port int, s node.Scope) error {
	if port != 0 {
		return nil
	}
	t := s.InType(0)
	if !isReal(t) && !isComplex(t) {
		return fmt.Errorf("%w: %s of %s", ErrUnsupportedType, b.kind, t)
	}
	x, y := s.Temp("a"), s.Temp("b")
	s.Line("%s := %s", x, s.In(0))
	s.Line("%s := %s", y, coerce(s.In(1), s.InType(1), t))
	switch b.op {
	case '*':
		s.Out(0, product(x, y, t))
	default:
		s.Out(0, fmt.Sprintf("%s %c %s", x, b.op, y))
	}
	return nil
}

func (b *binary) Instantiate() node.Activator {
	return activatorFunc(func(port int, f node.Frame) error {
		if port != 0 {
			return nil
		}
		v, err := arith(b.op, f.In(0), f.In(1))
		if err != nil {
			return err
		}
		return f.Out(0, v)
	})
}

// unary applies a pure function to its only input.
type unary struct {
	base
	typeOf func(in *types.Type) *types.Type
	expr   func(x string, t *types.Type) (string, error)
	eval   func(v any) (any, error)
}

func (u *unary) OutputType(_ int, in []*types.Type) *types.Type {
	if in[0] == nil {
		return nil
	}
	return u.typeOf(in[0])
}

func (u *unary) Generate(_ int, s node.Scope) error {
	t := s.InType(0)
	x := s.Temp("x")
	e, err := u.expr(x, t)
	if err != nil {
		return err
	}
	s.Line("%s := %s", x, s.In(0))
	s.Out(0, e)
	return nil
}

func (u *unary) Instantiate() node.Activator {
	return activatorFunc(func(_ int, f node.Frame) error {
		v, err := u.eval(f.In(0))
		if err != nil {
			return err
		}
		return f.Out(0, v)
	})
}

func newUnary(kind string) base {
	return base{kind: kind, inputs: []string{"in"}, outputs: []string{"out"}}
}

func same(t *types.Type) *types.Type { return t }

func newSquare() *unary {
	return &unary{
		base:   newUnary("square"),
		typeOf: same,
		expr: func(x string, t *types.Type) (string, error) {
			if !isReal(t) && !isComplex(t) {
				return "", fmt.Errorf("%w: square of %s", ErrUnsupportedType, t)
			}
			return product(x, x, t), nil
		},
		eval: squareOf,
	}
}

func newAbs2() *unary {
	return &unary{
		base:   newUnary("abs2"),
		typeOf: func(*types.Type) *types.Type { return types.Float64 },
		expr:   magnitude,
		eval: func(v any) (any, error) {
			m, err := magnitudeOf(v)
			return m, err
		},
	}
}

func newToComplex() *unary {
	return &unary{
		base:   newUnary("to_complex"),
		typeOf: func(*types.Type) *types.Type { return types.Complex128 },
		expr: func(x string, t *types.Type) (string, error) {
			switch {
			case t.Equal(Vec2Type):
				return "complex(" + x + ".X, " + x + ".Y)", nil
			case isReal(t), isComplex(t):
				return coerce(x, t, types.Complex128), nil
			}
			return "", fmt.Errorf("%w: to_complex of %s", ErrUnsupportedType, t)
		},
		eval: func(v any) (any, error) {
			switch x := v.(type) {
			case Vec2:
				return complex(x.X, x.Y), nil
			case complex128:
				return x, nil
			}
			f, err := toFloatOrZero(v)
			return complex(f, 0), err
		},
	}
}

func newToFloat() *unary {
	return &unary{
		base:   newUnary("to_float"),
		typeOf: func(*types.Type) *types.Type { return types.Float64 },
		expr: func(x string, t *types.Type) (string, error) {
			if !isReal(t) {
				return "", fmt.Errorf("%w: to_float of %s", ErrUnsupportedType, t)
			}
			return coerce(x, t, types.Float64), nil
		},
		eval: func(v any) (any, error) { return toFloatOrZero(v) },
	}
}

// less routes its hot operand by comparison with the stored one.
type less struct{ base }

func newLess() *less {
	return &less{base{kind: "less", inputs: []string{"a", "b"}, outputs: []string{"lt", "ge"}}}
}

func (*less) OutputType(_ int, in []*types.Type) *types.Type { return in[0] }

func (*less) Generate(port int, s node.Scope) error {
	if port != 0 {
		return nil
	}
	t := s.InType(0)
	if !isReal(t) && !(t != nil && t.Kind() == types.KindString) {
		return fmt.Errorf("%w: less on %s", ErrUnsupportedType, t)
	}
	x, y := s.Temp("a"), s.Temp("b")
	s.Line("%s := %s", x, s.In(0))
	s.Line("%s := %s", y, coerce(s.In(1), s.InType(1), t))
	s.If(x+" < "+y, func() { s.Out(0, x) }, func() { s.Out(1, x) })
	return nil
}

func (*less) Instantiate() node.Activator {
	return activatorFunc(func(port int, f node.Frame) error {
		if port != 0 {
			return nil
		}
		a := f.In(0)
		lt, err := lessThan(a, f.In(1))
		if err != nil {
			return err
		}
		if lt {
			return f.Out(0, a)
		}
		return f.Out(1, a)
	})
}
