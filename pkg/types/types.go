package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the structural families a Type can belong to.
type Kind int

const (
	KindScalar Kind = iota
	KindString
	KindVector
	KindArray
	KindTuple
	KindStruct
	KindStrong
	KindCustom
	KindPath
	KindEnum
)

var kindNames = [...]string{
	KindScalar: "scalar",
	KindString: "string",
	KindVector: "vector",
	KindArray:  "array",
	KindTuple:  "tuple",
	KindStruct: "struct",
	KindStrong: "strong",
	KindCustom: "custom",
	KindPath:   "path",
	KindEnum:   "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field is a named member of a struct type. Tuple elements use positional names.
type Field struct {
	Name string
	Type *Type
}

// Type is an immutable handle describing the data carried by a port.
// Types are compared structurally with Equal; pointer identity is not significant.
type Type struct {
	kind     Kind
	name     string
	elem     *Type
	length   int
	fields   []Field
	variants []string
	custom   *CustomSpec
}

// CustomSpec describes a type whose Go representation is supplied by a node library.
type CustomSpec struct {
	// Decl is the complete Go declaration emitted into generated units.
	Decl string
	// Deps are custom types Decl refers to.
	Deps []*Type
	// Imports needed by Decl.
	Imports []string
	// Decode converts a document literal (maps, lists, numbers) into the native Go value.
	Decode func(raw any) (any, error)
	// Literal renders a native value as a Go expression.
	Literal func(v any) (string, error)
}

// Scalar numeric and boolean types.
var (
	Float64    = &Type{kind: KindScalar, name: "float64"}
	Float32    = &Type{kind: KindScalar, name: "float32"}
	Int        = &Type{kind: KindScalar, name: "int"}
	Int64      = &Type{kind: KindScalar, name: "int64"}
	Bool       = &Type{kind: KindScalar, name: "bool"}
	Complex128 = &Type{kind: KindScalar, name: "complex128"}
	String     = &Type{kind: KindString, name: "string"}
	PathType   = &Type{kind: KindPath, name: "path"}
	// Trigger is the empty tuple; it carries no data and marks pure control ports.
	Trigger = &Type{kind: KindTuple, name: ""}
)

// Vector returns a variable-length sequence type.
func Vector(elem *Type) *Type {
	return &Type{kind: KindVector, elem: elem}
}

// Array returns a fixed-length sequence type.
func Array(elem *Type, n int) *Type {
	return &Type{kind: KindArray, elem: elem, length: n}
}

// Tuple returns an anonymous positional aggregate.
func Tuple(elems ...*Type) *Type {
	t := &Type{kind: KindTuple}
	for i, e := range elems {
		t.fields = append(t.fields, Field{Name: "F" + strconv.Itoa(i), Type: e})
	}
	return t
}

// Struct returns a named aggregate. Field names are exported in generated code.
func Struct(name string, fields ...Field) *Type {
	return &Type{kind: KindStruct, name: name, fields: append([]Field(nil), fields...)}
}

// Strong returns a distinct named type wrapping under.
func Strong(name string, under *Type) *Type {
	return &Type{kind: KindStrong, name: name, elem: under}
}

// Enum returns a named enumeration over the given variant names.
func Enum(name string, variants ...string) *Type {
	return &Type{kind: KindEnum, name: name, variants: append([]string(nil), variants...)}
}

// Custom returns a library-supplied named type.
func Custom(name string, spec CustomSpec) *Type {
	s := spec
	return &Type{kind: KindCustom, name: name, custom: &s}
}

func (t *Type) Kind() Kind          { return t.kind }
func (t *Type) Name() string        { return t.name }
func (t *Type) Elem() *Type         { return t.elem }
func (t *Type) Len() int            { return t.length }
func (t *Type) Fields() []Field     { return t.fields }
func (t *Type) Variants() []string  { return t.variants }
func (t *Type) Custom() *CustomSpec { return t.custom }

// Named reports whether the type needs a declaration in generated code.
func (t *Type) Named() bool {
	switch t.kind {
	case KindStruct, KindStrong, KindEnum, KindCustom:
		return true
	}
	return false
}

// GoType renders the type as a Go type expression.
func (t *Type) GoType() string {
	switch t.kind {
	case KindScalar:
		return t.name
	case KindString, KindPath:
		return "string"
	case KindVector:
		return "[]" + t.elem.GoType()
	case KindArray:
		return "[" + strconv.Itoa(t.length) + "]" + t.elem.GoType()
	case KindTuple:
		if len(t.fields) == 0 {
			return "struct{}"
		}
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.Name + " " + f.Type.GoType()
		}
		return "struct{ " + strings.Join(parts, "; ") + " }"
	default:
		return t.name
	}
}

// String returns a readable description used in diagnostics.
func (t *Type) String() string {
	if t == nil {
		return "<unresolved>"
	}
	switch t.kind {
	case KindTuple:
		if len(t.fields) == 0 {
			return "trigger"
		}
	case KindPath:
		return "path"
	}
	return t.GoType()
}

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind || t.name != o.name || t.length != o.length {
		return false
	}
	if (t.elem == nil) != (o.elem == nil) || (t.elem != nil && !t.elem.Equal(o.elem)) {
		return false
	}
	if len(t.fields) != len(o.fields) || len(t.variants) != len(o.variants) {
		return false
	}
	for i := range t.fields {
		if t.fields[i].Name != o.fields[i].Name || !t.fields[i].Type.Equal(o.fields[i].Type) {
			return false
		}
	}
	for i := range t.variants {
		if t.variants[i] != o.variants[i] {
			return false
		}
	}
	return true
}

// Decl returns the Go declaration for named types and "" otherwise.
func (t *Type) Decl() string {
	switch t.kind {
	case KindStruct:
		var sb strings.Builder
		fmt.Fprintf(&sb, "type %s struct {\n", t.name)
		for _, f := range t.fields {
			fmt.Fprintf(&sb, "\t%s %s\n", exported(f.Name), f.Type.GoType())
		}
		sb.WriteString("}")
		return sb.String()
	case KindStrong:
		return fmt.Sprintf("type %s %s", t.name, t.elem.GoType())
	case KindEnum:
		var sb strings.Builder
		fmt.Fprintf(&sb, "type %s int\n\nconst (\n", t.name)
		for i, v := range t.variants {
			if i == 0 {
				fmt.Fprintf(&sb, "\t%s%s %s = iota\n", t.name, exported(v), t.name)
				continue
			}
			fmt.Fprintf(&sb, "\t%s%s\n", t.name, exported(v))
		}
		sb.WriteString(")")
		return sb.String()
	case KindCustom:
		return t.custom.Decl
	}
	return ""
}

// Imports lists the packages the type's declaration needs.
func (t *Type) Imports() []string {
	if t.kind == KindCustom {
		return t.custom.Imports
	}
	return nil
}

// Dependencies returns every named type reachable from t, t included, ordered by name.
func Dependencies(t *Type) []*Type {
	seen := map[string]*Type{}
	var walk func(*Type)
	walk = func(x *Type) {
		if x == nil {
			return
		}
		if x.Named() {
			if _, ok := seen[x.name]; ok {
				return
			}
			seen[x.name] = x
		}
		walk(x.elem)
		for _, f := range x.fields {
			walk(f.Type)
		}
		if x.custom != nil {
			for _, d := range x.custom.Deps {
				walk(d)
			}
		}
	}
	walk(t)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Type, len(names))
	for i, n := range names {
		out[i] = seen[n]
	}
	return out
}

func exported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
