/*
Package dsl provides a Go DSL for programmatically constructing activation graphs.

It allows developers to define graphs using a fluent builder instead of
YAML or HCL documents. This is particularly useful for generated graphs,
unit tests and IDE autocompletion.

Example usage:

	b := dsl.New("linspace")

	b.Add("samples").
		Kind("linspace").
		Go("value", "out.value")

	b.Add("out").
		Kind("print")

	b.Input("first", "float64", 10, "samples.first").
		Input("last", "float64", 20, "samples.last").
		Input("count", "int", 21, "samples.count").
		Trigger("run", "samples.run")

	reg, treg := nodes.Default()
	prog, err := b.Build(reg, treg)
	// prog.Graph and prog.Table feed the compiler or the interpreter.
*/
package dsl
