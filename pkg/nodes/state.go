package nodes

import (
	"fmt"

	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/types"
)

// latch stores a value until it is read.
type latch struct{ base }

func newLatch() *latch {
	return &latch{base{kind: "latch", inputs: []string{"init", "set", "get"}, outputs: []string{"value"}}}
}

func (*latch) OutputType(_ int, in []*types.Type) *types.Type {
	if in[0] != nil {
		return in[0]
	}
	return in[1]
}

func (l *latch) Generate(port int, s node.Scope) error {
	t := s.OutType(0)
	if t == nil {
		t = l.OutputType(0, []*types.Type{s.InType(0), s.InType(1)})
	}
	if t == nil {
		return fmt.Errorf("%w: latch holds no typed value", ErrUnsupportedType)
	}
	st := s.State("value", t)
	switch port {
	case 0, 1:
		s.Line("%s = %s", st, coerce(s.In(port), s.InType(port), t))
	case 2:
		s.Out(0, st)
	}
	return nil
}

func (*latch) Instantiate() node.Activator {
	var held any
	return activatorFunc(func(port int, f node.Frame) error {
		switch port {
		case 0, 1:
			v := f.In(port)
			if held != nil {
				var err error
				if v, err = convertLike(v, held); err != nil {
					return err
				}
			}
			held = v
		case 2:
			return f.Out(0, held)
		}
		return nil
	})
}

// counter counts activations of inc.
type counter struct{ base }

func newCounter() *counter {
	return &counter{base{kind: "counter", inputs: []string{"reset", "inc", "get"}, outputs: []string{"value"}}}
}

func (*counter) OutputType(int, []*types.Type) *types.Type { return types.Int }

func (*counter) Generate(port int, s node.Scope) error {
	st := s.State("count", types.Int)
	switch port {
	case 0:
		s.Line("%s = 0", st)
	case 1:
		s.Line("%s++", st)
	case 2:
		s.Out(0, st)
	}
	return nil
}

func (*counter) Instantiate() node.Activator {
	var count int
	return activatorFunc(func(port int, f node.Frame) error {
		switch port {
		case 0:
			count = 0
		case 1:
			count++
		case 2:
			return f.Out(0, count)
		}
		return nil
	})
}

// canvas rasterises brightness values addressed by grid cells.
type canvas struct{ base }

func newCanvas() *canvas {
	return &canvas{base{kind: "canvas", inputs: []string{"size", "cell", "value", "flush"}, outputs: []string{"image"}}}
}

func (*canvas) OutputType(int, []*types.Type) *types.Type { return CanvasType }

func (*canvas) Generate(port int, s node.Scope) error {
	if err := expectType(s, port, 0, GridSizeType); err != nil {
		return err
	}
	if err := expectType(s, port, 1, CellType); err != nil {
		return err
	}
	img := s.State("image", CanvasType)
	cell := s.State("cell", CellType)
	switch port {
	case 0:
		sz := s.Temp("size")
		s.Line("%s := %s", sz, s.In(0))
		s.Line("%[1]s = Canvas{Cols: %[2]s.Cols, Rows: %[2]s.Rows, Pix: make([]float64, %[2]s.Cols*%[2]s.Rows)}", img, sz)
	case 1:
		s.Line("%s = %s", cell, s.In(1))
	case 2:
		v := coerce(s.In(2), s.InType(2), types.Float64)
		inside := fmt.Sprintf("%[1]s.Col >= 0 && %[1]s.Col < %[2]s.Cols && %[1]s.Row >= 0 && %[1]s.Row < %[2]s.Rows", cell, img)
		s.If(inside, func() {
			s.Line("%[1]s.Pix[%[2]s.Row*%[1]s.Cols+%[2]s.Col] = %[3]s", img, cell, v)
		}, nil)
	case 3:
		s.Out(0, img)
	}
	return nil
}

func (*canvas) Instantiate() node.Activator {
	var (
		img  Canvas
		cell Cell
	)
	return activatorFunc(func(port int, f node.Frame) error {
		switch port {
		case 0:
			sz, err := valueOf[GridSize](f.In(0))
			if err != nil {
				return err
			}
			img = Canvas{Cols: sz.Cols, Rows: sz.Rows, Pix: make([]float64, sz.Cols*sz.Rows)}
		case 1:
			c, err := valueOf[Cell](f.In(1))
			if err != nil {
				return err
			}
			cell = c
		case 2:
			v, err := toFloatOrZero(f.In(2))
			if err != nil {
				return err
			}
			if cell.Col >= 0 && cell.Col < img.Cols && cell.Row >= 0 && cell.Row < img.Rows {
				img.Pix[cell.Row*img.Cols+cell.Col] = v
			}
		case 3:
			return f.Out(0, img)
		}
		return nil
	})
}

// expectType rejects a wrongly typed input when port is the one being generated.
func expectType(s node.Scope, port, want int, t *types.Type) error {
	if port != want {
		return nil
	}
	if got := s.InType(port); got != nil && !got.Equal(t) {
		return fmt.Errorf("%w: input %d must be %s, got %s", ErrUnsupportedType, port, t, got)
	}
	return nil
}
