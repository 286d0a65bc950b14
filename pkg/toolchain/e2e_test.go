package toolchain_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/document"
	"github.com/aretw0/actgraph/pkg/dsl"
	"github.com/aretw0/actgraph/pkg/infer"
	"github.com/aretw0/actgraph/pkg/interp"
	"github.com/aretw0/actgraph/pkg/nodes"
	"github.com/aretw0/actgraph/pkg/toolchain"
)

// buildExample compiles and loads an example graph with the real go command.
func buildExample(t *testing.T, path string) (*document.Program, *toolchain.Module) {
	t.Helper()
	requirePlugins(t)
	doc, err := document.Load(path)
	require.NoError(t, err)
	reg, treg := nodes.Default()
	prog, err := document.Resolve(doc, reg, treg)
	require.NoError(t, err)
	return prog, buildProgram(t, prog)
}

func requirePlugins(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("builds a plugin with the go command")
	}
	if !toolchain.Supported {
		t.Skip("plugins are not supported on this platform")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not found")
	}
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

func buildProgram(t *testing.T, prog *document.Program) *toolchain.Module {
	t.Helper()
	requirePlugins(t)
	m, err := toolchain.New().Build(context.Background(), generate(t, prog))
	var le *toolchain.LoadError
	if errors.As(err, &le) && le.Symbol == "" {
		// Typically a runtime mismatch between the test binary and the plugin.
		t.Skipf("plugin could not be opened: %v", err)
	}
	require.NoError(t, err)
	return m
}

// interpret runs prog in the interpreter, activating entries in the compiled order.
func interpret(t *testing.T, prog *document.Program) string {
	t.Helper()
	var out bytes.Buffer
	in, err := interp.New(prog.Graph,
		interp.WithOutput(&out),
		interp.WithIgnored(prog.Table.Ignored...),
		interp.WithOrder(generate(t, prog).Entries),
	)
	require.NoError(t, err)
	for end, v := range prog.Natives() {
		require.NoError(t, in.Set(end, v))
	}
	require.NoError(t, in.Run(context.Background()))
	return out.String()
}

// execute runs m once in a fresh context with the given named inputs.
func execute(t *testing.T, m *toolchain.Module, inputs map[string]any) string {
	t.Helper()
	c := m.NewContext()
	defer c.Close()
	var out bytes.Buffer
	c.SetOutput(&out)
	for name, v := range inputs {
		require.NoError(t, c.SetInput(name, v))
	}
	require.NoError(t, c.Run())
	return out.String()
}

func TestEndToEnd_Linspace(t *testing.T) {
	prog, m := buildExample(t, "../../examples/linspace.yaml")

	var want strings.Builder
	for i := 0; i <= 20; i++ {
		fmt.Fprintln(&want, 10+float64(i)/2)
	}
	var out bytes.Buffer
	require.NoError(t, m.Execute(prog.Natives(), &out))
	assert.Equal(t, want.String(), out.String())

	// Contexts are independent and reusable.
	c := m.NewContext()
	defer c.Close()
	var again bytes.Buffer
	c.SetOutput(&again)
	require.NoError(t, c.SetInput("first", 0))
	require.NoError(t, c.SetInput("last", 1))
	require.NoError(t, c.SetInput("count", 3))
	require.NoError(t, c.Run())
	assert.Equal(t, "0\n0.5\n1\n", again.String())
}

func TestEndToEnd_Mandelbrot(t *testing.T) {
	prog, m := buildExample(t, "../../examples/mandelbrot.yaml")

	var out bytes.Buffer
	require.NoError(t, m.Execute(prog.Natives(), &out))
	assert.Equal(t, interpret(t, prog), out.String())
	assert.Equal(t, 13, strings.Count(out.String(), "\n"))
}

func lessGraph(t *testing.T, v, threshold float64) *document.Program {
	t.Helper()
	b := dsl.New("less")
	b.Add("cmp").Kind("less").
		Go("lt", "low.trigger").
		Go("ge", "high.trigger")
	b.Add("low").Kind("const").Arg("type", "string").Arg("value", "lt").Go("value", "out.value")
	b.Add("high").Kind("const").Arg("type", "string").Arg("value", "ge").Go("value", "out2.value")
	b.Add("out").Kind("print")
	b.Add("out2").Kind("print")
	b.Input("v", "float64", v, "cmp.a").
		Input("t", "float64", threshold, "cmp.b")
	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	require.NoError(t, err)
	return prog
}

func TestEndToEnd_LessTakesExactlyOneBranch(t *testing.T) {
	m := buildProgram(t, lessGraph(t, 0, 0))

	for _, v := range []float64{-1.5, 0, 0.5, 2} {
		for _, threshold := range []float64{-1, 0, 0.5, 3} {
			t.Run(fmt.Sprintf("%v<%v", v, threshold), func(t *testing.T) {
				want := "ge\n"
				if v < threshold {
					want = "lt\n"
				}
				assert.Equal(t, want, execute(t, m, map[string]any{"v": v, "t": threshold}))
				assert.Equal(t, want, interpret(t, lessGraph(t, v, threshold)))
			})
		}
	}
}

func rangeGraph(t *testing.T, n int) *document.Program {
	t.Helper()
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
	return prog
}

func TestEndToEnd_RangeIterationCount(t *testing.T) {
	m := buildProgram(t, rangeGraph(t, 0))

	for _, n := range []int{0, 1, 7} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			got := execute(t, m, map[string]any{"n": n})
			assert.Equal(t, interpret(t, rangeGraph(t, n)), got)
			assert.Equal(t, n+1, strings.Count(got, "\n"))
		})
	}
}

func TestEndToEnd_IgnoredPortWithValue(t *testing.T) {
	b := dsl.New("ignored")
	b.Add("r").Kind("range").
		Go("index", "l.set").
		Go("end", "l.get")
	b.Add("l").Kind("latch").Go("value", "out.value")
	b.Add("out").Kind("print")
	b.Input("n", "int", 3, "r.count").
		Input("x", "int", 9, "l.init").
		Trigger("run", "r.run").
		Ignore("l.init")
	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	require.NoError(t, err)

	m := buildProgram(t, prog)
	var out bytes.Buffer
	require.NoError(t, m.Execute(prog.Natives(), &out))
	assert.Equal(t, "2\n", out.String())
	assert.Equal(t, interpret(t, prog), out.String())
}

// renderGraph shades every grid point with |p|^2 - offset and renders it as text.
func renderGraph(t *testing.T, resolution map[string]any, offset float64) *document.Program {
	t.Helper()
	b := dsl.New("render")
	b.Add("grid").Kind("grid").
		Go("size", "canvas.size").
		Go("cell", "canvas.cell").
		Go("point", "c.in").
		Go("end", "canvas.flush")
	b.Add("c").Kind("to_complex").Go("out", "mag.in")
	b.Add("mag").Kind("abs2").Go("out", "shift.a")
	b.Add("shift").Kind("sub").Go("out", "canvas.value")
	b.Add("canvas").Kind("canvas").Go("image", "ascii.image")
	b.Add("ascii").Kind("ascii").Go("lines", "text.lines")
	b.Add("text").Kind("join").Go("text", "out.value")
	b.Add("out").Kind("print")
	b.Input("rect", "Rect", map[string]any{"min": []any{-1.5, -1.0}, "max": []any{1.5, 1.0}}, "grid.rect").
		Input("resolution", "Vec2", resolution, "grid.resolution").
		Input("offset", "float64", offset, "shift.b").
		Trigger("run", "grid.run")
	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	require.NoError(t, err)
	return prog
}

func TestEndToEnd_RenderEdges(t *testing.T) {
	m := buildProgram(t, renderGraph(t, map[string]any{"x": 0.5, "y": 0.5}, 0))

	tests := []struct {
		name       string
		resolution map[string]any
		offset     float64
	}{
		{"in range", map[string]any{"x": 0.5, "y": 0.5}, 0},
		{"negative brightness", map[string]any{"x": 0.5, "y": 0.5}, 2},
		{"brightness above one", map[string]any{"x": 0.25, "y": 0.5}, -3},
		{"zero step", map[string]any{"x": 0.0, "y": 0.5}, 0},
		{"negative step", map[string]any{"x": 0.5, "y": -0.5}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prog := renderGraph(t, tc.resolution, tc.offset)
			var out bytes.Buffer
			require.NoError(t, m.Execute(prog.Natives(), &out))
			assert.Equal(t, interpret(t, prog), out.String())
		})
	}
}
