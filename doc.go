/*
Package actgraph compiles activation graphs into Go source and runs them.

An activation graph is a set of nodes with named input and output ports.
Writing a value to an input port activates the node's behaviour for that port,
which may write to output ports and so activate the ports connected to them.
Graphs have no scheduler: control flow is the chain of activations.

# Concept

A graph is described in a document (YAML, JSON or HCL) or with the builder in
package dsl. The compiler resolves port types, generates one procedure per
input port and builds the result as a Go plugin that the host loads and runs.
The interpreter in package interp runs the same graph directly and serves as
the behavioural reference.

# Usage

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/aretw0/actgraph"
	)

	func main() {
		c := actgraph.New()

		prog, err := c.Load("examples/mandelbrot.yaml")
		if err != nil {
			log.Fatal(err)
		}

		// Build with the go command and run the loaded module.
		if err := c.Run(context.Background(), prog, os.Stdout); err != nil {
			log.Fatal(err)
		}
	}

Compile returns the generated source without invoking the toolchain, and
Interpret runs the graph in-process.
*/
package actgraph
