package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/actgraph/internal/presentation/graph"
	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/dsl"
	model "github.com/aretw0/actgraph/pkg/graph"
	"github.com/aretw0/actgraph/pkg/nodes"
)

func TestGenerateMermaid(t *testing.T) {
	b := dsl.New("demo")
	b.Add("samples").Kind("range").
		Go("index", "out.value")
	b.Add("hits").Kind("counter")
	b.Add("out").Kind("print")
	b.Add("my-node/v2").Kind("print")
	b.Input("n", "int", 3, "samples.count").
		Trigger("run", "samples.run", "hits.get").
		Ignore("hits.reset").
		Ignore("hits.inc").
		Ignore("my-node/v2.value")

	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	overlay := &graph.Overlay{Procedures: []codegen.Procedure{
		{End: model.End{Node: 0, Port: 1}, Loops: 1},
		{End: model.End{Node: 1, Port: 2}},
	}}
	got := graph.GenerateMermaid(prog.Graph, prog.Table, overlay)

	tests := []struct {
		name     string
		contains []string
		excludes []string
	}{
		{
			name:     "Node Labels",
			contains: []string{`n_samples["samples <br/> <i>range</i>"]`},
		},
		{
			name:     "Sink Shape",
			contains: []string{`n_out(("out <br/> <i>print</i>"))`},
		},
		{
			name:     "ID Sanitization",
			contains: []string{`n_my_node_v2((`},
		},
		{
			name:     "Ignored Ports",
			contains: []string{"ignored: reset, inc"},
		},
		{
			name: "Inputs",
			contains: []string{
				`in_n[/"n: int"/]`,
				`in_run[/"run: trigger"/]`,
				`in_run -. "run" .-> n_samples`,
				`in_run -. "get" .-> n_hits`,
			},
		},
		{
			name:     "Edge Labels",
			contains: []string{`n_samples -- "index → value" --> n_out`},
		},
		{
			name:     "Overlay",
			contains: []string{"class n_samples loop;"},
			excludes: []string{"class n_hits loop;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
		})
	}
}

func TestGenerateMermaid_Deterministic(t *testing.T) {
	b := dsl.New("pair")
	b.Add("a").Kind("split").Arg("count", 2).
		Go("out1", "c.value").
		Go("out0", "b.value")
	b.Add("b").Kind("print")
	b.Add("c").Kind("print")
	b.Input("v", "string", "x", "a.in")

	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	first := graph.GenerateMermaid(prog.Graph, prog.Table, nil)
	if second := graph.GenerateMermaid(prog.Graph, prog.Table, nil); first != second {
		t.Errorf("GenerateMermaid() is not deterministic:\n%v\n---\n%v", first, second)
	}
	i1 := strings.Index(first, `"out1 → value"`)
	i0 := strings.Index(first, `"out0 → value"`)
	if i1 < 0 || i0 < 0 || i1 > i0 {
		t.Errorf("edges are not in declaration order:\n%v", first)
	}
	if strings.Contains(first, "Overlay") {
		t.Errorf("unexpected overlay section without overlay:\n%v", first)
	}
}
