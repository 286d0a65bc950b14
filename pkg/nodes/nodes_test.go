package nodes_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/document"
	"github.com/aretw0/actgraph/pkg/dsl"
	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/infer"
	"github.com/aretw0/actgraph/pkg/interp"
	"github.com/aretw0/actgraph/pkg/nodes"
	"github.com/aretw0/actgraph/pkg/types"
)

const mandelbrotText = "                             \n" +
	"                     @       \n" +
	"                   @@.       \n" +
	"               .@:@@@@@...   \n" +
	"              .@@@@@@@@@@    \n" +
	"         .@@@.@@@@@@@@@@@:   \n" +
	" :*%#%@@@@@@@@@@@@@@@@@@.    \n" +
	"         .@@@.@@@@@@@@@@@:   \n" +
	"              .@@@@@@@@@@    \n" +
	"               .@:@@@@@...   \n" +
	"                   @@.       \n" +
	"                     =       \n" +
	"                             \n"

func load(t *testing.T, path string) *document.Program {
	t.Helper()
	doc, err := document.Load(path)
	require.NoError(t, err)
	reg, treg := nodes.Default()
	prog, err := document.Resolve(doc, reg, treg)
	require.NoError(t, err)
	return prog
}

func interpret(t *testing.T, prog *document.Program, opts ...interp.Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]interp.Option{interp.WithOutput(&out), interp.WithIgnored(prog.Table.Ignored...)}, opts...)
	in, err := interp.New(prog.Graph, opts...)
	require.NoError(t, err)
	for end, v := range prog.Natives() {
		require.NoError(t, in.Set(end, v))
	}
	require.NoError(t, in.Run(context.Background()))
	return out.String()
}

func generate(t *testing.T, prog *document.Program) *codegen.Unit {
	t.Helper()
	_, treg := nodes.Default()
	asg, err := infer.Infer(prog.Graph, prog.Table, treg)
	require.NoError(t, err)
	unit, err := codegen.Generate(prog.Graph, asg, codegen.Options{Module: true})
	require.NoError(t, err)
	return unit
}

func TestScenario_Linspace(t *testing.T) {
	prog := load(t, "../../examples/linspace.yaml")

	var want strings.Builder
	for i := 0; i <= 20; i++ {
		fmt.Fprintln(&want, 10+float64(i)/2)
	}
	assert.Equal(t, want.String(), interpret(t, prog))

	unit := generate(t, prog)
	src := string(unit.Source)
	assert.Contains(t, src, "fmt.Fprintln(ctx.out,")
	assert.Contains(t, src, "func ContextInputVar_0_2(h any) *int")
	assert.Equal(t, []graph.End{{Node: 0, Port: 0}, {Node: 0, Port: 1}, {Node: 0, Port: 2}, {Node: 0, Port: 3}}, unit.Entries)
}

func TestScenario_Mandelbrot(t *testing.T) {
	prog := load(t, "../../examples/mandelbrot.yaml")
	assert.Equal(t, mandelbrotText, interpret(t, prog))

	unit := generate(t, prog)
	src := string(unit.Source)
	for _, want := range []string{
		"type Rect struct",
		"type Canvas struct",
		"func gridSpan(",
		"func asciiRender(",
		`"math"`,
		`"strings"`,
	} {
		assert.Contains(t, src, want)
	}

	grid, ok := prog.Graph.Lookup("grid")
	require.True(t, ok)
	run := graph.End{Node: grid, Port: 2}
	assert.Equal(t, run, unit.Entries[len(unit.Entries)-1], "the sampling loop runs after every value is stored")

	// The interpreter agrees when it follows the compiled entry order.
	assert.Equal(t, mandelbrotText, interpret(t, prog, interp.WithOrder(unit.Entries)))
}

func TestScenario_FormatsProduceTheSameText(t *testing.T) {
	assert.Equal(t, interpret(t, load(t, "../../examples/mandelbrot.yaml")),
		interpret(t, load(t, "../../examples/mandelbrot.hcl")))
}

func TestLess_RoutesExactlyOneOutput(t *testing.T) {
	for _, tc := range []struct {
		a    int
		want string
	}{
		{a: 3, want: "lt\n"},
		{a: 5, want: "ge\n"},
		{a: 8, want: "ge\n"},
	} {
		t.Run(fmt.Sprint(tc.a), func(t *testing.T) {
			b := dsl.New("less")
			b.Add("cmp").Kind("less").
				Go("lt", "low.trigger").
				Go("ge", "high.trigger")
			b.Add("low").Kind("const").Arg("type", "string").Arg("value", "lt").Go("value", "out.value")
			b.Add("high").Kind("const").Arg("type", "string").Arg("value", "ge").Go("value", "out2.value")
			b.Add("out").Kind("print")
			b.Add("out2").Kind("print")
			b.Input("a", "int", tc.a, "cmp.a").
				Input("b", "int", 5, "cmp.b")

			reg, treg := nodes.Default()
			prog, err := b.Build(reg, treg)
			require.NoError(t, err)

			unit := generate(t, prog)
			assert.Equal(t, []graph.End{{Node: 0, Port: 1}, {Node: 0, Port: 0}}, unit.Entries)
			assert.Contains(t, string(unit.Source), "} else {")
			assert.Equal(t, tc.want, interpret(t, prog, interp.WithOrder(unit.Entries)))
		})
	}
}

func TestRange_EmitsIndicesThenEnd(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			b := dsl.New("range")
			b.Add("r").Kind("range").
				Go("index", "idx.value").
				Go("end", "done.value")
			b.Add("idx").Kind("print")
			b.Add("done").Kind("print")
			b.Input("n", "int", n, "r.count").
				Trigger("run", "r.run")

			reg, treg := nodes.Default()
			prog, err := b.Build(reg, treg)
			require.NoError(t, err)

			var want strings.Builder
			for i := 0; i < n; i++ {
				fmt.Fprintln(&want, i)
			}
			want.WriteString("{}\n")
			assert.Equal(t, want.String(), interpret(t, prog))
		})
	}
}

func TestCounterAndLatch(t *testing.T) {
	b := dsl.New("state")
	b.Add("r").Kind("range").
		Go("index", "hits.inc").
		Go("index", "last.set").
		Go("end", "hits.get").
		Go("end", "last.get")
	b.Add("hits").Kind("counter").Go("value", "p1.value")
	b.Add("last").Kind("latch").Go("value", "p2.value")
	b.Add("p1").Kind("print")
	b.Add("p2").Kind("print")
	b.Input("n", "int", 3, "r.count").
		Trigger("run", "r.run").
		Ignore("hits.reset").
		Ignore("last.init")

	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n", interpret(t, prog))

	src := string(generate(t, prog).Source)
	assert.Contains(t, src, "st1_count int // hits state")
	assert.Contains(t, src, "st2_value int // last state")
}

func TestSplit_ReplicatesInput(t *testing.T) {
	b := dsl.New("split")
	b.Add("s").Kind("split").Arg("count", 3).
		Go("out2", "c.value").
		Go("out0", "a.value").
		Go("out1", "b.value")
	b.Add("a").Kind("print")
	b.Add("b").Kind("print")
	b.Add("c").Kind("print")
	b.Input("v", "string", "x", "s.in")

	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	require.NoError(t, err)
	assert.Equal(t, "x\nx\nx\n", interpret(t, prog))
}

func TestNodeArguments(t *testing.T) {
	reg, _ := nodes.Default()

	t.Run("unknown argument", func(t *testing.T) {
		_, err := reg.New("print", map[string]any{"colour": "red"})
		assert.Error(t, err)
	})
	t.Run("empty palette", func(t *testing.T) {
		_, err := reg.New("ascii", map[string]any{"palette": ""})
		assert.Error(t, err)
	})
	t.Run("const bad literal", func(t *testing.T) {
		_, err := reg.New("const", map[string]any{"type": "Vec2", "value": "wide"})
		assert.Error(t, err)
		_, err = reg.New("const", map[string]any{"type": "nope", "value": 1})
		assert.Error(t, err)
	})
	t.Run("split count", func(t *testing.T) {
		_, err := reg.New("split", map[string]any{"count": 0})
		assert.Error(t, err)
	})
}

func TestConstLiterals(t *testing.T) {
	reg, _ := nodes.Default()

	tests := []struct {
		name string
		args map[string]any
		want any
		lit  string
	}{
		{"default", nil, 0.0, "float64(0)"},
		{"float", map[string]any{"type": "float64", "value": 0.5}, 0.5, "float64(0.5)"},
		{"int", map[string]any{"type": "int", "value": 7}, 7, "int(7)"},
		{"string", map[string]any{"type": "string", "value": "hello"}, "hello", `"hello"`},
		{"empty string", map[string]any{"type": "string"}, "", `""`},
		{"complex", map[string]any{"type": "complex128", "value": []any{1, 2}}, complex(1, 2), "complex128(complex(1, 2))"},
		{"struct", map[string]any{"type": "Vec2", "value": map[string]any{"x": 0.25, "y": -3}},
			nodes.Vec2{X: 0.25, Y: -3}, "Vec2{X: 0.25, Y: -3}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := reg.New("const", tt.args)
			require.NoError(t, err)
			v := n.(interface{ Value() types.Value }).Value()
			assert.Equal(t, tt.want, v.Native())
			lit, err := v.GoLiteral()
			require.NoError(t, err)
			assert.Equal(t, tt.lit, lit)
		})
	}
}

func TestDescribe(t *testing.T) {
	reg, _ := nodes.Default()
	d, err := reg.Describe("grid")
	require.NoError(t, err)
	assert.Equal(t, []string{"rect", "resolution", "run"}, d.Inputs)
	assert.Equal(t, []string{"size", "cell", "point", "end"}, d.Outputs)
	assert.NotEmpty(t, d.Doc)

	for _, kind := range reg.Names() {
		_, err := reg.Describe(kind)
		assert.NoError(t, err, kind)
	}
}

func TestLibraryTypes(t *testing.T) {
	tests := []struct {
		name string
		t    *types.Type
		raw  any
		want any
		lit  string
	}{
		{"vec2 list", nodes.Vec2Type, []any{0.5, 2}, nodes.Vec2{X: 0.5, Y: 2}, "Vec2{X: 0.5, Y: 2}"},
		{"vec2 map", nodes.Vec2Type, map[string]any{"x": 1, "y": -1}, nodes.Vec2{X: 1, Y: -1}, "Vec2{X: 1, Y: -1}"},
		{"rect corners", nodes.RectType, []any{0, 0, 1, 2}, nodes.Rect{Max: nodes.Vec2{X: 1, Y: 2}},
			"Rect{Min: Vec2{X: 0, Y: 0}, Max: Vec2{X: 1, Y: 2}}"},
		{"rect map", nodes.RectType, map[string]any{"Min": []any{-1, -1}, "Max": []any{1, 1}},
			nodes.Rect{Min: nodes.Vec2{X: -1, Y: -1}, Max: nodes.Vec2{X: 1, Y: 1}},
			"Rect{Min: Vec2{X: -1, Y: -1}, Max: Vec2{X: 1, Y: 1}}"},
		{"grid size", nodes.GridSizeType, map[string]any{"cols": 3, "rows": 2}, nodes.GridSize{Cols: 3, Rows: 2},
			"GridSize{Cols: 3, Rows: 2}"},
		{"cell", nodes.CellType, []any{4, 5}, nodes.Cell{Col: 4, Row: 5}, "Cell{Col: 4, Row: 5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := types.Decode(tt.t, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Native())
			lit, err := v.GoLiteral()
			require.NoError(t, err)
			assert.Equal(t, tt.lit, lit)
		})
	}

	_, err := types.Decode(nodes.RectType, []any{1, 2, 3})
	assert.Error(t, err)
	_, err = types.Decode(nodes.CanvasType, nil)
	assert.Error(t, err)
}

func TestRenderASCII(t *testing.T) {
	img := nodes.Canvas{Cols: 3, Rows: 2, Pix: []float64{0, 0.5, 1, -1, 2, 0.99}}
	assert.Equal(t, []string{" =@", " @%"}, nodes.RenderASCII(img, nodes.DefaultPalette))
}
