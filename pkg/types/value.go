package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Value is a typed literal. The set of implementations is closed: one per Kind.
type Value interface {
	Type() *Type
	// Native returns the Go value matching the type's GoType for scalars and custom
	// types; aggregates return []any or map[string]any.
	Native() any
	// GoLiteral renders the value as a Go expression of the type's GoType.
	GoLiteral() (string, error)
	value()
}

type (
	ScalarValue struct {
		T *Type
		V any
	}
	StringValue struct{ S string }
	PathValue   struct{ P string }
	VectorValue struct {
		T     *Type
		Elems []Value
	}
	ArrayValue struct {
		T     *Type
		Elems []Value
	}
	TupleValue struct {
		T     *Type
		Elems []Value
	}
	StructValue struct {
		T      *Type
		Fields []Value
	}
	StrongValue struct {
		T     *Type
		Inner Value
	}
	CustomValue struct {
		T *Type
		V any
	}
	EnumValue struct {
		T     *Type
		Index int
	}
)

func (ScalarValue) value() {}
func (StringValue) value() {}
func (PathValue) value()   {}
func (VectorValue) value() {}
func (ArrayValue) value()  {}
func (TupleValue) value()  {}
func (StructValue) value() {}
func (StrongValue) value() {}
func (CustomValue) value() {}
func (EnumValue) value()   {}

func (v ScalarValue) Type() *Type { return v.T }
func (v StringValue) Type() *Type { return String }
func (v PathValue) Type() *Type   { return PathType }
func (v VectorValue) Type() *Type { return v.T }
func (v ArrayValue) Type() *Type  { return v.T }
func (v TupleValue) Type() *Type  { return v.T }
func (v StructValue) Type() *Type { return v.T }
func (v StrongValue) Type() *Type { return v.T }
func (v CustomValue) Type() *Type { return v.T }
func (v EnumValue) Type() *Type   { return v.T }

func (v ScalarValue) Native() any { return v.V }
func (v StringValue) Native() any { return v.S }
func (v PathValue) Native() any   { return v.P }
func (v VectorValue) Native() any { return natives(v.Elems) }
func (v ArrayValue) Native() any  { return natives(v.Elems) }
func (v TupleValue) Native() any  { return natives(v.Elems) }
func (v StrongValue) Native() any { return v.Inner.Native() }
func (v CustomValue) Native() any { return v.V }
func (v EnumValue) Native() any   { return v.Index }

func (v StructValue) Native() any {
	m := make(map[string]any, len(v.Fields))
	for i, f := range v.T.fields {
		m[f.Name] = v.Fields[i].Native()
	}
	return m
}

func natives(vs []Value) []any {
	out := make([]any, len(vs))
	for i, e := range vs {
		out[i] = e.Native()
	}
	return out
}

func (v ScalarValue) GoLiteral() (string, error) {
	switch x := v.V.(type) {
	case float64:
		return v.T.name + "(" + strconv.FormatFloat(x, 'g', -1, 64) + ")", nil
	case float32:
		return v.T.name + "(" + strconv.FormatFloat(float64(x), 'g', -1, 32) + ")", nil
	case int:
		return v.T.name + "(" + strconv.Itoa(x) + ")", nil
	case int64:
		return v.T.name + "(" + strconv.FormatInt(x, 10) + ")", nil
	case bool:
		return strconv.FormatBool(x), nil
	case complex128:
		return fmt.Sprintf("complex128(complex(%s, %s))",
			strconv.FormatFloat(real(x), 'g', -1, 64), strconv.FormatFloat(imag(x), 'g', -1, 64)), nil
	}
	return "", fmt.Errorf("scalar %s holds unsupported %T", v.T, v.V)
}

func (v StringValue) GoLiteral() (string, error) { return strconv.Quote(v.S), nil }
func (v PathValue) GoLiteral() (string, error)   { return strconv.Quote(v.P), nil }

func (v VectorValue) GoLiteral() (string, error) { return composite(v.T.GoType(), v.Elems) }
func (v ArrayValue) GoLiteral() (string, error)  { return composite(v.T.GoType(), v.Elems) }
func (v TupleValue) GoLiteral() (string, error)  { return composite(v.T.GoType(), v.Elems) }

func (v StructValue) GoLiteral() (string, error) {
	parts := make([]string, len(v.Fields))
	for i, f := range v.T.fields {
		lit, err := v.Fields[i].GoLiteral()
		if err != nil {
			return "", err
		}
		parts[i] = exported(f.Name) + ": " + lit
	}
	return v.T.name + "{" + strings.Join(parts, ", ") + "}", nil
}

func (v StrongValue) GoLiteral() (string, error) {
	lit, err := v.Inner.GoLiteral()
	if err != nil {
		return "", err
	}
	return v.T.name + "(" + lit + ")", nil
}

func (v CustomValue) GoLiteral() (string, error) {
	if v.T.custom.Literal == nil {
		return "", fmt.Errorf("custom type %s has no literal form", v.T.name)
	}
	return v.T.custom.Literal(v.V)
}

func (v EnumValue) GoLiteral() (string, error) {
	return v.T.name + exported(v.T.variants[v.Index]), nil
}

func composite(typ string, elems []Value) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		lit, err := e.GoLiteral()
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return typ + "{" + strings.Join(parts, ", ") + "}", nil
}

// Elements exposes the members of aggregate values and nil for leaves.
func Elements(v Value) []Value {
	switch x := v.(type) {
	case VectorValue:
		return x.Elems
	case ArrayValue:
		return x.Elems
	case TupleValue:
		return x.Elems
	case StructValue:
		return x.Fields
	case StrongValue:
		return []Value{x.Inner}
	}
	return nil
}

// Decode converts a document literal into a Value of type t.
// Numbers may arrive as any Go numeric type; aggregates as []any or map[string]any.
func Decode(t *Type, raw any) (Value, error) {
	switch t.kind {
	case KindScalar:
		return decodeScalar(t, raw)
	case KindString:
		var s string
		if err := mapstructure.WeakDecode(raw, &s); err != nil {
			return nil, &DecodeError{Type: t, Err: err}
		}
		return StringValue{S: s}, nil
	case KindPath:
		s, ok := raw.(string)
		if !ok {
			return nil, &DecodeError{Type: t, Err: fmt.Errorf("expected string, got %T", raw)}
		}
		return PathValue{P: s}, nil
	case KindVector, KindArray, KindTuple:
		return decodeSequence(t, raw)
	case KindStruct:
		return decodeStruct(t, raw)
	case KindStrong:
		inner, err := Decode(t.elem, raw)
		if err != nil {
			return nil, err
		}
		return StrongValue{T: t, Inner: inner}, nil
	case KindEnum:
		return decodeEnum(t, raw)
	case KindCustom:
		if t.custom.Decode == nil {
			return nil, &DecodeError{Type: t, Err: fmt.Errorf("no literal decoder")}
		}
		v, err := t.custom.Decode(raw)
		if err != nil {
			return nil, &DecodeError{Type: t, Err: err}
		}
		return CustomValue{T: t, V: v}, nil
	}
	return nil, &DecodeError{Type: t, Err: fmt.Errorf("unsupported kind %s", t.kind)}
}

func decodeScalar(t *Type, raw any) (Value, error) {
	var err error
	switch t.name {
	case "float64":
		var f float64
		err = mapstructure.WeakDecode(raw, &f)
		if err == nil {
			return ScalarValue{T: t, V: f}, nil
		}
	case "float32":
		var f float32
		err = mapstructure.WeakDecode(raw, &f)
		if err == nil {
			return ScalarValue{T: t, V: f}, nil
		}
	case "int":
		var i int
		err = mapstructure.WeakDecode(raw, &i)
		if err == nil {
			return ScalarValue{T: t, V: i}, nil
		}
	case "int64":
		var i int64
		err = mapstructure.WeakDecode(raw, &i)
		if err == nil {
			return ScalarValue{T: t, V: i}, nil
		}
	case "bool":
		var b bool
		err = mapstructure.WeakDecode(raw, &b)
		if err == nil {
			return ScalarValue{T: t, V: b}, nil
		}
	case "complex128":
		var c complex128
		c, err = decodeComplex(raw)
		if err == nil {
			return ScalarValue{T: t, V: c}, nil
		}
	default:
		err = fmt.Errorf("unknown scalar %q", t.name)
	}
	return nil, &DecodeError{Type: t, Err: err}
}

func decodeComplex(raw any) (complex128, error) {
	var parts struct {
		Re float64 `mapstructure:"re"`
		Im float64 `mapstructure:"im"`
	}
	switch x := raw.(type) {
	case complex128:
		return x, nil
	case []any:
		if len(x) != 2 {
			return 0, fmt.Errorf("complex literal needs [re, im], got %d elements", len(x))
		}
		if err := mapstructure.WeakDecode(x[0], &parts.Re); err != nil {
			return 0, err
		}
		if err := mapstructure.WeakDecode(x[1], &parts.Im); err != nil {
			return 0, err
		}
	case map[string]any:
		if err := mapstructure.WeakDecode(x, &parts); err != nil {
			return 0, err
		}
	default:
		if err := mapstructure.WeakDecode(raw, &parts.Re); err != nil {
			return 0, err
		}
	}
	return complex(parts.Re, parts.Im), nil
}

func decodeSequence(t *Type, raw any) (Value, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, &DecodeError{Type: t, Err: fmt.Errorf("expected list, got %T", raw)}
	}
	switch t.kind {
	case KindArray:
		if len(items) != t.length {
			return nil, &DecodeError{Type: t, Err: fmt.Errorf("expected %d elements, got %d", t.length, len(items))}
		}
	case KindTuple:
		if len(items) != len(t.fields) {
			return nil, &DecodeError{Type: t, Err: fmt.Errorf("expected %d elements, got %d", len(t.fields), len(items))}
		}
	}
	elems := make([]Value, len(items))
	for i, item := range items {
		et := t.elem
		if t.kind == KindTuple {
			et = t.fields[i].Type
		}
		v, err := Decode(et, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = v
	}
	switch t.kind {
	case KindVector:
		return VectorValue{T: t, Elems: elems}, nil
	case KindArray:
		return ArrayValue{T: t, Elems: elems}, nil
	}
	return TupleValue{T: t, Elems: elems}, nil
}

func decodeStruct(t *Type, raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Type: t, Err: fmt.Errorf("expected map, got %T", raw)}
	}
	fields := make([]Value, len(t.fields))
	for i, f := range t.fields {
		item, ok := m[f.Name]
		if !ok {
			item, ok = m[strings.ToLower(f.Name)]
		}
		if !ok {
			return nil, &DecodeError{Type: t, Err: fmt.Errorf("missing field %q", f.Name)}
		}
		v, err := Decode(f.Type, item)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = v
	}
	return StructValue{T: t, Fields: fields}, nil
}

func decodeEnum(t *Type, raw any) (Value, error) {
	if s, ok := raw.(string); ok {
		for i, v := range t.variants {
			if v == s {
				return EnumValue{T: t, Index: i}, nil
			}
		}
		return nil, &DecodeError{Type: t, Err: fmt.Errorf("unknown variant %q", s)}
	}
	var idx int
	if err := mapstructure.WeakDecode(raw, &idx); err != nil {
		return nil, &DecodeError{Type: t, Err: err}
	}
	if idx < 0 || idx >= len(t.variants) {
		return nil, &DecodeError{Type: t, Err: fmt.Errorf("variant index %d out of range", idx)}
	}
	return EnumValue{T: t, Index: idx}, nil
}
