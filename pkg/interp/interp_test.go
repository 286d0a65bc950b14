package interp_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/interp"
	"github.com/aretw0/actgraph/pkg/node"
)

type activateFunc func(port int, f node.Frame) error

func (fn activateFunc) Activate(port int, f node.Frame) error { return fn(port, f) }

// stub is an evaluator built from a per-run activation function.
type stub struct {
	ins, outs []string
	fresh     func() activateFunc
}

func (s stub) Kind() string                  { return "stub" }
func (s stub) Inputs() []string              { return s.ins }
func (s stub) Outputs() []string             { return s.outs }
func (s stub) Instantiate() node.Activator { return s.fresh() }

func forward() stub {
	return stub{ins: []string{"in"}, outs: []string{"out"}, fresh: func() activateFunc {
		return func(_ int, f node.Frame) error { return f.Out(0, f.In(0)) }
	}}
}

func printer(tag string) stub {
	return stub{ins: []string{"value"}, fresh: func() activateFunc {
		return func(_ int, f node.Frame) error {
			_, err := fmt.Fprintf(f.Output(), "%s:%v\n", tag, f.In(0))
			return err
		}
	}}
}

func edge(fn, fp, tn, tp int) graph.Edge {
	return graph.Edge{From: graph.End{Node: fn, Port: fp}, To: graph.End{Node: tn, Port: tp}}
}

func TestInterpreter_FanOutOrder(t *testing.T) {
	g, err := graph.New([]graph.Node{forward(), printer("a"), printer("b"), printer("c")},
		[]graph.Edge{edge(0, 0, 3, 0), edge(0, 0, 1, 0), edge(0, 0, 2, 0)})
	require.NoError(t, err)

	var out bytes.Buffer
	in, err := interp.New(g, interp.WithOutput(&out))
	require.NoError(t, err)
	require.NoError(t, in.Set(graph.End{Node: 0, Port: 0}, 7))
	require.NoError(t, in.Run(context.Background()))

	assert.Equal(t, "c:7\na:7\nb:7\n", out.String())
}

func TestInterpreter_ValuesBeforeTriggers(t *testing.T) {
	g, err := graph.New([]graph.Node{printer("first"), printer("second")}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	in, err := interp.New(g, interp.WithOutput(&out))
	require.NoError(t, err)
	require.NoError(t, in.Set(graph.End{Node: 1, Port: 0}, "v"))

	assert.Equal(t, []graph.End{{Node: 1, Port: 0}, {Node: 0, Port: 0}}, in.Entries())
	require.NoError(t, in.Run(context.Background()))
	assert.Equal(t, "second:v\nfirst:{}\n", out.String())
}

func TestInterpreter_IgnoredEntriesAreSkipped(t *testing.T) {
	g, err := graph.New([]graph.Node{printer("x")}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	in, err := interp.New(g, interp.WithOutput(&out), interp.WithIgnored(graph.End{Node: 0, Port: 0}))
	require.NoError(t, err)
	require.NoError(t, in.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestInterpreter_CancelStopsUnconnectedLoops(t *testing.T) {
	emitted := 0
	spin := stub{ins: []string{"run"}, outs: []string{"out"}, fresh: func() activateFunc {
		return func(_ int, f node.Frame) error {
			for {
				emitted++
				if err := f.Out(0, emitted); err != nil {
					return err
				}
			}
		}
	}}
	g, err := graph.New([]graph.Node{spin}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in, err := interp.New(g)
	require.NoError(t, err)
	err = in.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, emitted, 1024)
}

func TestInterpreter_Errors(t *testing.T) {
	t.Run("recursive activation", func(t *testing.T) {
		loop := stub{ins: []string{"a", "b"}, outs: []string{"out"}, fresh: func() activateFunc {
			return func(_ int, f node.Frame) error { return f.Out(0, 1) }
		}}
		g, err := graph.New([]graph.Node{loop, forward()}, []graph.Edge{edge(0, 0, 1, 0), edge(1, 0, 0, 1)})
		require.NoError(t, err)
		in, err := interp.New(g)
		require.NoError(t, err)
		err = in.Run(context.Background())
		assert.ErrorIs(t, err, interp.ErrReentrant)
	})

	t.Run("output out of range", func(t *testing.T) {
		bad := stub{ins: []string{"in"}, fresh: func() activateFunc {
			return func(_ int, f node.Frame) error { return f.Out(2, nil) }
		}}
		g, err := graph.New([]graph.Node{bad}, nil)
		require.NoError(t, err)
		in, err := interp.New(g)
		require.NoError(t, err)
		assert.ErrorIs(t, in.Run(context.Background()), graph.ErrPortRange)
	})

	t.Run("setting a connected port", func(t *testing.T) {
		g, err := graph.New([]graph.Node{forward(), forward()}, []graph.Edge{edge(0, 0, 1, 0)})
		require.NoError(t, err)
		in, err := interp.New(g)
		require.NoError(t, err)
		assert.Error(t, in.Set(graph.End{Node: 1, Port: 0}, 1))
	})

	t.Run("node without evaluator", func(t *testing.T) {
		g, err := graph.New([]graph.Node{opaque{}}, nil)
		require.NoError(t, err)
		_, err = interp.New(g)
		assert.ErrorIs(t, err, interp.ErrNotEvaluable)
	})
}

type opaque struct{}

func (opaque) Inputs() []string  { return []string{"in"} }
func (opaque) Outputs() []string { return nil }
