package nodes

import (
	_ "embed"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

//go:embed support.go
var supportSource []byte

// supportDecls holds the source text of every function in support.go,
// keyed by name.
var supportDecls = mustParseSupport(supportSource)

func mustParseSupport(src []byte) map[string]string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "support.go", src, 0)
	if err != nil {
		panic(fmt.Sprintf("nodes: parse support source: %v", err))
	}
	decls := make(map[string]string)
	for _, d := range file.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fn.Pos()).Offset
		end := fset.Position(fn.End()).Offset
		decls[fn.Name.Name] = string(src[start:end])
	}
	return decls
}

func supportDecl(name string) string {
	decl, ok := supportDecls[name]
	if !ok {
		panic("nodes: no support function " + name)
	}
	return decl
}
