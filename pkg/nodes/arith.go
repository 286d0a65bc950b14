package nodes

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/actgraph/pkg/types"
)

// ErrUnsupportedType is returned when a node is wired to a type it cannot process.
var ErrUnsupportedType = errors.New("unsupported operand type")

func isComplex(t *types.Type) bool { return t != nil && t.Equal(types.Complex128) }

func isReal(t *types.Type) bool {
	return t != nil && t.Kind() == types.KindScalar && !t.Equal(types.Bool) && !t.Equal(types.Complex128)
}

// coerce renders expr of type from as a value of type to.
func coerce(expr string, from, to *types.Type) string {
	if from == nil || to == nil || from.Equal(to) {
		return expr
	}
	if isComplex(to) && isReal(from) {
		return "complex(float64(" + expr + "), 0)"
	}
	return to.GoType() + "(" + expr + ")"
}

// product renders a*b rounded to t. Every floating-point product, generated or
// interpreted, goes through an explicit conversion so it is never fused with a
// following addition.
func product(a, b string, t *types.Type) string {
	if isComplex(t) {
		return fmt.Sprintf("complex(float64(real(%[1]s)*real(%[2]s))-float64(imag(%[1]s)*imag(%[2]s)), "+
			"float64(real(%[1]s)*imag(%[2]s))+float64(imag(%[1]s)*real(%[2]s)))", a, b)
	}
	return t.GoType() + "(" + a + "*" + b + ")"
}

// magnitude renders the squared magnitude of x as float64.
func magnitude(x string, t *types.Type) (string, error) {
	switch {
	case isComplex(t):
		return fmt.Sprintf("float64(real(%[1]s)*real(%[1]s)) + float64(imag(%[1]s)*imag(%[1]s))", x), nil
	case t != nil && t.Equal(Vec2Type):
		return fmt.Sprintf("float64(%[1]s.X*%[1]s.X) + float64(%[1]s.Y*%[1]s.Y)", x), nil
	case isReal(t):
		return fmt.Sprintf("float64(float64(%[1]s) * float64(%[1]s))", x), nil
	}
	return "", fmt.Errorf("%w: abs2 of %s", ErrUnsupportedType, t)
}

func mulComplex(a, b complex128) complex128 {
	return complex(float64(real(a)*real(b))-float64(imag(a)*imag(b)),
		float64(real(a)*imag(b))+float64(imag(a)*real(b)))
}

// convertLike converts v to the dynamic type of like. A missing v becomes the zero
// value, matching an unwritten context field.
func convertLike(v, like any) (any, error) {
	if like == nil {
		return v, nil
	}
	target := reflect.TypeOf(like)
	if v == nil {
		return reflect.Zero(target).Interface(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == target {
		return v, nil
	}
	if target.Kind() == reflect.Complex128 {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return complex(f, 0), nil
	}
	if rv.Kind() == reflect.Complex128 || !rv.CanConvert(target) {
		return nil, fmt.Errorf("%w: cannot convert %T to %T", ErrUnsupportedType, v, like)
	}
	return rv.Convert(target).Interface(), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%w: %T is not real", ErrUnsupportedType, v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case float32:
		return int(x), nil
	}
	return 0, fmt.Errorf("%w: %T is not a count", ErrUnsupportedType, v)
}

// arith applies op to a and b, b first converted to the type of a.
func arith(op byte, a, b any) (any, error) {
	b, err := convertLike(b, a)
	if err != nil {
		return nil, err
	}
	switch x := a.(type) {
	case int:
		y := b.(int)
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return x * y, nil
		case '/':
			if y == 0 {
				return nil, errors.New("integer division by zero")
			}
			return x / y, nil
		}
	case int64:
		y := b.(int64)
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return x * y, nil
		case '/':
			if y == 0 {
				return nil, errors.New("integer division by zero")
			}
			return x / y, nil
		}
	case float64:
		y := b.(float64)
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return float64(x * y), nil
		case '/':
			return x / y, nil
		}
	case float32:
		y := b.(float32)
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return float32(x * y), nil
		case '/':
			return x / y, nil
		}
	case complex128:
		y := b.(complex128)
		switch op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return mulComplex(x, y), nil
		case '/':
			return x / y, nil
		}
	}
	return nil, fmt.Errorf("%w: %c on %T", ErrUnsupportedType, op, a)
}

func squareOf(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x * x, nil
	case int64:
		return x * x, nil
	case float64:
		return float64(x * x), nil
	case float32:
		return float32(x * x), nil
	case complex128:
		return mulComplex(x, x), nil
	}
	return nil, fmt.Errorf("%w: square of %T", ErrUnsupportedType, v)
}

func magnitudeOf(v any) (float64, error) {
	switch x := v.(type) {
	case complex128:
		return float64(real(x)*real(x)) + float64(imag(x)*imag(x)), nil
	case Vec2:
		return float64(x.X*x.X) + float64(x.Y*x.Y), nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	return float64(f * f), nil
}

func lessThan(a, b any) (bool, error) {
	b, err := convertLike(b, a)
	if err != nil {
		return false, err
	}
	switch x := a.(type) {
	case int:
		return x < b.(int), nil
	case int64:
		return x < b.(int64), nil
	case float64:
		return x < b.(float64), nil
	case float32:
		return x < b.(float32), nil
	case string:
		return x < b.(string), nil
	}
	return false, fmt.Errorf("%w: %T is not ordered", ErrUnsupportedType, a)
}

func typeMismatch(want, got any) error {
	return fmt.Errorf("%w: expected %T, got %T", ErrUnsupportedType, want, got)
}
