package nodes

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/actgraph/pkg/types"
)

// Vec2 is a point or extent in the plane.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max Vec2
}

// GridSize is the number of columns and rows of a sampling grid.
type GridSize struct {
	Cols, Rows int
}

// Cell addresses one element of a grid.
type Cell struct {
	Col, Row int
}

// Canvas is a row-major raster of brightness values in [0, 1].
type Canvas struct {
	Cols, Rows int
	Pix        []float64
}

// Library types. Their generated declarations mirror the Go types above field for
// field, so values cross the host boundary by position.
var (
	Vec2Type = types.Custom("Vec2", types.CustomSpec{
		Decl:    "type Vec2 struct {\n\tX, Y float64\n}",
		Decode:  func(raw any) (any, error) { return decodeVec2(raw) },
		Literal: func(v any) (string, error) { return vec2Literal(v) },
	})
	RectType = types.Custom("Rect", types.CustomSpec{
		Decl:    "type Rect struct {\n\tMin, Max Vec2\n}",
		Deps:    []*types.Type{Vec2Type},
		Decode:  func(raw any) (any, error) { return decodeRect(raw) },
		Literal: rectLiteral,
	})
	GridSizeType = types.Custom("GridSize", types.CustomSpec{
		Decl:    "type GridSize struct {\n\tCols, Rows int\n}",
		Decode:  func(raw any) (any, error) { return decodePair[GridSize](raw, "cols", "rows") },
		Literal: func(v any) (string, error) { return pairLiteral[GridSize](v, "GridSize{Cols: %d, Rows: %d}") },
	})
	CellType = types.Custom("Cell", types.CustomSpec{
		Decl:    "type Cell struct {\n\tCol, Row int\n}",
		Decode:  func(raw any) (any, error) { return decodePair[Cell](raw, "col", "row") },
		Literal: func(v any) (string, error) { return pairLiteral[Cell](v, "Cell{Col: %d, Row: %d}") },
	})
	CanvasType = types.Custom("Canvas", types.CustomSpec{
		Decl: "type Canvas struct {\n\tCols, Rows int\n\tPix        []float64\n}",
	})
	// Lines is the type of rendered text rows.
	Lines = types.Vector(types.String)
)

// RegisterTypes makes the library types available by name.
func RegisterTypes(reg *types.Registry) {
	for _, t := range []*types.Type{Vec2Type, RectType, GridSizeType, CellType, CanvasType} {
		reg.Register(t.Name(), t)
	}
}

func decodeVec2(raw any) (Vec2, error) {
	var v Vec2
	if list, ok := raw.([]any); ok {
		if len(list) != 2 {
			return v, fmt.Errorf("vec2 needs [x, y], got %d elements", len(list))
		}
		if err := mapstructure.WeakDecode(list[0], &v.X); err != nil {
			return v, err
		}
		return v, mapstructure.WeakDecode(list[1], &v.Y)
	}
	if native, ok := raw.(Vec2); ok {
		return native, nil
	}
	err := mapstructure.WeakDecode(raw, &v)
	return v, err
}

func decodeRect(raw any) (Rect, error) {
	var r Rect
	switch x := raw.(type) {
	case Rect:
		return x, nil
	case []any:
		switch len(x) {
		case 2:
			var err error
			if r.Min, err = decodeVec2(x[0]); err != nil {
				return r, fmt.Errorf("min: %w", err)
			}
			if r.Max, err = decodeVec2(x[1]); err != nil {
				return r, fmt.Errorf("max: %w", err)
			}
			return r, nil
		case 4:
			var f [4]float64
			for i := range f {
				if err := mapstructure.WeakDecode(x[i], &f[i]); err != nil {
					return r, err
				}
			}
			return Rect{Min: Vec2{f[0], f[1]}, Max: Vec2{f[2], f[3]}}, nil
		}
		return r, fmt.Errorf("rect needs [min, max] or [x0, y0, x1, y1], got %d elements", len(x))
	case map[string]any:
		minRaw, ok := lookupKey(x, "min")
		if !ok {
			return r, fmt.Errorf("rect: missing min")
		}
		maxRaw, ok := lookupKey(x, "max")
		if !ok {
			return r, fmt.Errorf("rect: missing max")
		}
		var err error
		if r.Min, err = decodeVec2(minRaw); err != nil {
			return r, fmt.Errorf("min: %w", err)
		}
		if r.Max, err = decodeVec2(maxRaw); err != nil {
			return r, fmt.Errorf("max: %w", err)
		}
		return r, nil
	}
	return r, fmt.Errorf("rect: unsupported literal %T", raw)
}

func lookupKey(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

type intPair interface{ GridSize | Cell }

func decodePair[T intPair](raw any, a, b string) (T, error) {
	var out T
	if native, ok := raw.(T); ok {
		return native, nil
	}
	var vals [2]int
	switch x := raw.(type) {
	case []any:
		if len(x) != 2 {
			return out, fmt.Errorf("expected [%s, %s], got %d elements", a, b, len(x))
		}
		for i := range vals {
			if err := mapstructure.WeakDecode(x[i], &vals[i]); err != nil {
				return out, err
			}
		}
	case map[string]any:
		for i, key := range []string{a, b} {
			v, ok := lookupKey(x, key)
			if !ok {
				return out, fmt.Errorf("missing %s", key)
			}
			if err := mapstructure.WeakDecode(v, &vals[i]); err != nil {
				return out, err
			}
		}
	default:
		return out, fmt.Errorf("unsupported literal %T", raw)
	}
	switch p := any(&out).(type) {
	case *GridSize:
		*p = GridSize{Cols: vals[0], Rows: vals[1]}
	case *Cell:
		*p = Cell{Col: vals[0], Row: vals[1]}
	}
	return out, nil
}

func pairLiteral[T intPair](v any, format string) (string, error) {
	switch x := v.(type) {
	case GridSize:
		return fmt.Sprintf(format, x.Cols, x.Rows), nil
	case Cell:
		return fmt.Sprintf(format, x.Col, x.Row), nil
	}
	var zero T
	return "", fmt.Errorf("expected %T, got %T", zero, v)
}

func floatLiteral(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%v has no literal form", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func vec2Literal(v any) (string, error) {
	p, ok := v.(Vec2)
	if !ok {
		return "", fmt.Errorf("expected Vec2, got %T", v)
	}
	x, err := floatLiteral(p.X)
	if err != nil {
		return "", err
	}
	y, err := floatLiteral(p.Y)
	if err != nil {
		return "", err
	}
	return "Vec2{X: " + x + ", Y: " + y + "}", nil
}

func rectLiteral(v any) (string, error) {
	r, ok := v.(Rect)
	if !ok {
		return "", fmt.Errorf("expected Rect, got %T", v)
	}
	lo, err := vec2Literal(r.Min)
	if err != nil {
		return "", err
	}
	hi, err := vec2Literal(r.Max)
	if err != nil {
		return "", err
	}
	return "Rect{Min: " + lo + ", Max: " + hi + "}", nil
}
