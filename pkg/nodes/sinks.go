package nodes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/actgraph/pkg/node"
	"github.com/aretw0/actgraph/pkg/registry"
	"github.com/aretw0/actgraph/pkg/types"
)

// DefaultPalette maps brightness 0 to a blank and 1 to '@'.
const DefaultPalette = " .:-=+*#%@"

// RenderASCII maps every pixel to the palette entry at brightness*(len-1),
// clamped to the palette.
func RenderASCII(img Canvas, palette string) []string {
	return asciiRender(img, palette)
}

type ascii struct {
	base
	palette string
}

func newASCII(args map[string]any) (node.Node, error) {
	cfg := struct {
		Palette string `mapstructure:"palette"`
	}{Palette: DefaultPalette}
	if err := registry.DecodeArgs(args, &cfg); err != nil {
		return nil, err
	}
	if cfg.Palette == "" {
		return nil, errors.New("palette must not be empty")
	}
	return &ascii{base: base{kind: "ascii", inputs: []string{"image"}, outputs: []string{"lines"}}, palette: cfg.Palette}, nil
}

func (*ascii) OutputType(int, []*types.Type) *types.Type { return Lines }

func (a *ascii) Generate(_ int, s node.Scope) error {
	if err := expectType(s, 0, 0, CanvasType); err != nil {
		return err
	}
	s.Declare(CanvasType)
	s.Support("asciiRender", supportDecl("asciiRender"))
	s.Out(0, fmt.Sprintf("asciiRender(%s, %s)", s.In(0), strconv.Quote(a.palette)))
	return nil
}

func (a *ascii) Instantiate() node.Activator {
	return activatorFunc(func(_ int, f node.Frame) error {
		img, err := valueOf[Canvas](f.In(0))
		if err != nil {
			return err
		}
		return f.Out(0, RenderASCII(img, a.palette))
	})
}

type join struct {
	base
	sep string
}

func newJoin(args map[string]any) (node.Node, error) {
	cfg := struct {
		Sep string `mapstructure:"sep"`
	}{Sep: "\n"}
	if err := registry.DecodeArgs(args, &cfg); err != nil {
		return nil, err
	}
	return &join{base: base{kind: "join", inputs: []string{"lines"}, outputs: []string{"text"}}, sep: cfg.Sep}, nil
}

func (*join) OutputType(int, []*types.Type) *types.Type { return types.String }

func (j *join) Generate(_ int, s node.Scope) error {
	if t := s.InType(0); t != nil && !t.Equal(Lines) {
		return fmt.Errorf("%w: join needs %s, got %s", ErrUnsupportedType, Lines, t)
	}
	s.Import("strings")
	s.Out(0, fmt.Sprintf("strings.Join(%s, %s)", s.In(0), strconv.Quote(j.sep)))
	return nil
}

func (j *join) Instantiate() node.Activator {
	return activatorFunc(func(_ int, f node.Frame) error {
		lines, err := valueOf[[]string](f.In(0))
		if err != nil {
			return err
		}
		return f.Out(0, strings.Join(lines, j.sep))
	})
}

type printer struct{ base }

func newPrint() *printer {
	return &printer{base{kind: "print", inputs: []string{"value"}}}
}

func (*printer) OutputType(int, []*types.Type) *types.Type { return nil }

func (*printer) Generate(_ int, s node.Scope) error {
	s.Import("fmt")
	s.Line("fmt.Fprintln(%s, %s)", s.Output(), s.In(0))
	return nil
}

func (*printer) Instantiate() node.Activator {
	return activatorFunc(func(_ int, f node.Frame) error {
		_, err := fmt.Fprintln(f.Output(), f.In(0))
		return err
	})
}

// split replicates its input on every output, in port order.
type split struct{ base }

func newSplit(args map[string]any) (node.Node, error) {
	cfg := struct {
		Count int `mapstructure:"count"`
	}{Count: 2}
	if err := registry.DecodeArgs(args, &cfg); err != nil {
		return nil, err
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", cfg.Count)
	}
	outs := make([]string, cfg.Count)
	for i := range outs {
		outs[i] = "out" + strconv.Itoa(i)
	}
	return &split{base{kind: "split", inputs: []string{"in"}, outputs: outs}}, nil
}

func (*split) OutputType(_ int, in []*types.Type) *types.Type { return in[0] }

func (sp *split) Generate(_ int, s node.Scope) error {
	v := s.Temp("v")
	s.Line("%s := %s", v, s.In(0))
	for p := range sp.outputs {
		s.Out(p, v)
	}
	return nil
}

func (sp *split) Instantiate() node.Activator {
	return activatorFunc(func(_ int, f node.Frame) error {
		v := f.In(0)
		for p := range sp.outputs {
			if err := f.Out(p, v); err != nil {
				return err
			}
		}
		return nil
	})
}
