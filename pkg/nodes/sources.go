package nodes

import (
	"fmt"

	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/types"
)

// constant emits a fixed value.
type constant struct {
	base
	value types.Value
}

func newConst(args map[string]any, treg *types.Registry) (node.Node, error) {
	// The literal is decoded against the named type, not by mapstructure.
	rest := make(map[string]any, len(args))
	var raw any
	for k, v := range args {
		if k == "value" {
			raw = v
			continue
		}
		rest[k] = v
	}
	cfg := struct {
		Type string `mapstructure:"type"`
	}{Type: "float64"}
	if err := registry.DecodeArgs(rest, &cfg); err != nil {
		return nil, err
	}
	t, err := treg.Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	v, err := types.Decode(t, raw)
	if err != nil {
		return nil, fmt.Errorf("const value: %w", err)
	}
	return &constant{
		base:  base{kind: "const", inputs: []string{"trigger"}, outputs: []string{"value"}},
		value: v,
	}, nil
}

// Value returns the emitted value.
func (c *constant) Value() types.Value { return c.value }

func (c *constant) OutputType(int, []*types.Type) *types.Type { return c.value.Type() }

func (c *constant) Generate(_ int, s node.Scope) error {
	lit, err := c.value.GoLiteral()
	if err != nil {
		return err
	}
	s.Declare(c.value.Type())
	s.Out(0, lit)
	return nil
}

func (c *constant) Instantiate() node.Activator {
	v := c.value.Native()
	return activatorFunc(func(_ int, f node.Frame) error { return f.Out(0, v) })
}

// linspace emits count evenly spaced samples of [first, last].
type linspace struct{ base }

func newLinspace() *linspace {
	return &linspace{base{kind: "linspace", inputs: []string{"first", "last", "count", "run"}, outputs: []string{"value", "end"}}}
}

func (*linspace) OutputType(port int, _ []*types.Type) *types.Type {
	if port == 1 {
		return types.Trigger
	}
	return types.Float64
}

func (*linspace) Generate(port int, s node.Scope) error {
	if port != 3 {
		return nil
	}
	first, last := s.Temp("first"), s.Temp("last")
	s.Line("%s := %s", first, coerce(s.In(0), s.InType(0), types.Float64))
	s.Line("%s := %s", last, coerce(s.In(1), s.InType(1), types.Float64))
	n := s.Temp("n")
	s.Line("%s := int(%s)", n, s.In(2))
	i := s.Temp("i")
	s.Iterate(node.Cursor{Var: i, Init: "0", More: i + " < " + n, Advance: i + "++"}, func() {
		x := s.Temp("x")
		s.Line("%s := %s", x, first)
		s.If(n+" > 1", func() {
			s.Line("%[1]s = %[2]s + float64(float64(%[3]s-%[2]s)*float64(%[4]s))/float64(%[5]s-1)", x, first, last, i, n)
		}, nil)
		s.Out(0, x)
	})
	s.Out(1, triggerLiteral)
	return nil
}

func (*linspace) Instantiate() node.Activator {
	return activatorFunc(func(port int, f node.Frame) error {
		if port != 3 {
			return nil
		}
		first, err := toFloatOrZero(f.In(0))
		if err != nil {
			return err
		}
		last, err := toFloatOrZero(f.In(1))
		if err != nil {
			return err
		}
		n, err := toIntOrZero(f.In(2))
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			x := first
			if n > 1 {
				x = first + float64(float64(last-first)*float64(i))/float64(n-1)
			}
			if err := f.Out(0, x); err != nil {
				return err
			}
		}
		return f.Out(1, struct{}{})
	})
}

// counted emits the indices 0..count-1.
type counted struct{ base }

func newRange() *counted {
	return &counted{base{kind: "range", inputs: []string{"count", "run"}, outputs: []string{"index", "end"}}}
}

func (*counted) OutputType(port int, _ []*types.Type) *types.Type {
	if port == 1 {
		return types.Trigger
	}
	return types.Int
}

func (*counted) Generate(port int, s node.Scope) error {
	if port != 1 {
		return nil
	}
	n := s.Temp("n")
	s.Line("%s := int(%s)", n, s.In(0))
	i := s.Temp("i")
	s.Iterate(node.Cursor{Var: i, Init: "0", More: i + " < " + n, Advance: i + "++"}, func() {
		s.Out(0, i)
	})
	s.Out(1, triggerLiteral)
	return nil
}

func (*counted) Instantiate() node.Activator {
	return activatorFunc(func(port int, f node.Frame) error {
		if port != 1 {
			return nil
		}
		n, err := toIntOrZero(f.In(0))
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := f.Out(0, i); err != nil {
				return err
			}
		}
		return f.Out(1, struct{}{})
	})
}

// grid walks a rectangle in row-major order. The size is emitted before the
// first sample, each sample emits its cell and then its point, and end follows
// the last sample.
type grid struct{ base }

func newGrid() *grid {
	return &grid{base{kind: "grid", inputs: []string{"rect", "resolution", "run"},
		outputs: []string{"size", "cell", "point", "end"}}}
}

func (*grid) OutputType(port int, _ []*types.Type) *types.Type {
	switch port {
	case 0:
		return GridSizeType
	case 1:
		return CellType
	case 2:
		return Vec2Type
	}
	return types.Trigger
}

func (*grid) Generate(port int, s node.Scope) error {
	if port != 2 {
		return nil
	}
	if t := s.InType(0); t != nil && !t.Equal(RectType) {
		return fmt.Errorf("%w: grid.rect must be Rect, got %s", ErrUnsupportedType, t)
	}
	if t := s.InType(1); t != nil && !t.Equal(Vec2Type) {
		return fmt.Errorf("%w: grid.resolution must be Vec2, got %s", ErrUnsupportedType, t)
	}
	s.Import("math")
	s.Support("gridSpan", supportDecl("gridSpan"))
	for _, t := range []*types.Type{GridSizeType, CellType, Vec2Type} {
		s.Declare(t)
	}

	r, res := s.Temp("r"), s.Temp("res")
	s.Line("%s := %s", r, s.In(0))
	s.Line("%s := %s", res, s.In(1))
	cols, rows := s.Temp("cols"), s.Temp("rows")
	s.Line("%s := gridSpan(%s.Min.X, %s.Max.X, %s.X)", cols, r, r, res)
	s.Line("%s := gridSpan(%s.Min.Y, %s.Max.Y, %s.Y)", rows, r, r, res)
	s.Out(0, fmt.Sprintf("GridSize{Cols: %s, Rows: %s}", cols, rows))

	row := s.Temp("row")
	s.Iterate(node.Cursor{Var: row, Init: "0", More: row + " < " + rows, Advance: row + "++"}, func() {
		y := s.Temp("y")
		s.Line("%s := %s.Min.Y + float64(float64(%s)*%s.Y)", y, r, row, res)
		col := s.Temp("col")
		s.Iterate(node.Cursor{Var: col, Init: "0", More: col + " < " + cols, Advance: col + "++"}, func() {
			x := s.Temp("x")
			s.Line("%s := %s.Min.X + float64(float64(%s)*%s.X)", x, r, col, res)
			s.Out(1, fmt.Sprintf("Cell{Col: %s, Row: %s}", col, row))
			s.Out(2, fmt.Sprintf("Vec2{X: %s, Y: %s}", x, y))
		})
	})
	s.Out(3, triggerLiteral)
	return nil
}

func (*grid) Instantiate() node.Activator {
	return activatorFunc(func(port int, f node.Frame) error {
		if port != 2 {
			return nil
		}
		r, err := valueOf[Rect](f.In(0))
		if err != nil {
			return err
		}
		res, err := valueOf[Vec2](f.In(1))
		if err != nil {
			return err
		}
		cols := gridSpan(r.Min.X, r.Max.X, res.X)
		rows := gridSpan(r.Min.Y, r.Max.Y, res.Y)
		if err := f.Out(0, GridSize{Cols: cols, Rows: rows}); err != nil {
			return err
		}
		for row := 0; row < rows; row++ {
			y := r.Min.Y + float64(float64(row)*res.Y)
			for col := 0; col < cols; col++ {
				x := r.Min.X + float64(float64(col)*res.X)
				if err := f.Out(1, Cell{Col: col, Row: row}); err != nil {
					return err
				}
				if err := f.Out(2, Vec2{X: x, Y: y}); err != nil {
					return err
				}
			}
		}
		return f.Out(3, struct{}{})
	})
}

func toFloatOrZero(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	return toFloat(v)
}

func toIntOrZero(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	return toInt(v)
}
