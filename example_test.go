package actgraph_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/actgraph"
	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/dsl"
	"github.com/aretw0/actgraph/pkg/graph"
)

func ramp() *dsl.Builder {
	b := dsl.New("ramp")
	b.Add("samples").
		Kind("linspace").
		Go("value", "out.value")
	b.Add("out").
		Kind("print")
	b.Input("first", "float64", 0, "samples.first").
		Input("last", "float64", 1, "samples.last").
		Input("count", "int", 5, "samples.count").
		Trigger("run", "samples.run")
	return b
}

// ExampleCompiler_Interpret runs a graph built with the DSL in-process.
func ExampleCompiler_Interpret() {
	c := actgraph.New()
	prog, err := c.Resolve(ramp().Document())
	if err != nil {
		log.Fatal(err)
	}

	if err := c.Interpret(context.Background(), prog, os.Stdout); err != nil {
		log.Fatal(err)
	}

	// Output:
	// 0
	// 0.25
	// 0.5
	// 0.75
	// 1
}

// ExampleCompiler_Compile lists the procedures generated for each input port.
func ExampleCompiler_Compile() {
	c := actgraph.New()
	prog, err := c.Resolve(ramp().Document())
	if err != nil {
		log.Fatal(err)
	}

	unit, err := c.Compile(prog, codegen.Options{})
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range unit.Procedures {
		fmt.Printf("%s %s loops=%d\n", p.Name, prog.Graph.PortName(p.End, graph.In), p.Loops)
	}

	// Output:
	// act0_0 samples.first loops=0
	// act0_1 samples.last loops=0
	// act0_2 samples.count loops=0
	// act0_3 samples.run loops=1
	// act1_0 out.value loops=0
}
