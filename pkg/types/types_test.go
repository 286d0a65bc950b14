package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/pkg/types"
)

func TestType_GoType(t *testing.T) {
	point := types.Struct("Point", types.Field{Name: "x", Type: types.Float64}, types.Field{Name: "y", Type: types.Float64})

	tests := []struct {
		name string
		typ  *types.Type
		want string
	}{
		{"Scalar", types.Float64, "float64"},
		{"String", types.String, "string"},
		{"Path", types.PathType, "string"},
		{"Vector", types.Vector(types.Int), "[]int"},
		{"Array", types.Array(types.Bool, 3), "[3]bool"},
		{"Trigger", types.Trigger, "struct{}"},
		{"Tuple", types.Tuple(types.Int, types.String), "struct{ F0 int; F1 string }"},
		{"Struct", point, "Point"},
		{"Strong", types.Strong("Meters", types.Float64), "Meters"},
		{"Enum", types.Enum("Mode", "fast", "slow"), "Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.GoType())
		})
	}
}

func TestType_Equal(t *testing.T) {
	assert.True(t, types.Vector(types.Int).Equal(types.Vector(types.Int)))
	assert.False(t, types.Vector(types.Int).Equal(types.Vector(types.Float64)))
	assert.True(t, types.Tuple().Equal(types.Trigger))
	assert.False(t, types.Array(types.Int, 2).Equal(types.Array(types.Int, 3)))
	assert.False(t, types.Strong("A", types.Int).Equal(types.Strong("B", types.Int)))
}

func TestType_Decl(t *testing.T) {
	point := types.Struct("Point", types.Field{Name: "x", Type: types.Float64})
	assert.Equal(t, "type Point struct {\n\tX float64\n}", point.Decl())
	assert.Equal(t, "type Meters float64", types.Strong("Meters", types.Float64).Decl())

	mode := types.Enum("Mode", "fast", "slow")
	assert.Equal(t, "type Mode int\n\nconst (\n\tModeFast Mode = iota\n\tModeSlow\n)", mode.Decl())
	assert.Empty(t, types.Int.Decl())
}

func TestDependencies_SortedAndDeduplicated(t *testing.T) {
	inner := types.Strong("Alpha", types.Int)
	outer := types.Struct("Zeta",
		types.Field{Name: "a", Type: inner},
		types.Field{Name: "b", Type: types.Vector(inner)},
	)

	deps := types.Dependencies(outer)
	require.Len(t, deps, 2)
	assert.Equal(t, "Alpha", deps[0].Name())
	assert.Equal(t, "Zeta", deps[1].Name())
}

func TestDecode_Scalars(t *testing.T) {
	v, err := types.Decode(types.Float64, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.Native())
	lit, err := v.GoLiteral()
	require.NoError(t, err)
	assert.Equal(t, "float64(10)", lit)

	v, err = types.Decode(types.Int, 100.0)
	require.NoError(t, err)
	assert.Equal(t, 100, v.Native())

	v, err = types.Decode(types.Complex128, []any{1.5, -2})
	require.NoError(t, err)
	assert.Equal(t, complex(1.5, -2), v.Native())
	lit, err = v.GoLiteral()
	require.NoError(t, err)
	assert.Equal(t, "complex128(complex(1.5, -2))", lit)

	v, err = types.Decode(types.Complex128, map[string]any{"re": 0.5})
	require.NoError(t, err)
	assert.Equal(t, complex(0.5, 0), v.Native())
}

func TestDecode_Aggregates(t *testing.T) {
	point := types.Struct("Point", types.Field{Name: "x", Type: types.Float64}, types.Field{Name: "y", Type: types.Float64})

	v, err := types.Decode(point, map[string]any{"x": 1, "y": 2.5})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.5}, v.Native())
	lit, err := v.GoLiteral()
	require.NoError(t, err)
	assert.Equal(t, "Point{X: float64(1), Y: float64(2.5)}", lit)
	assert.Len(t, types.Elements(v), 2)

	v, err = types.Decode(types.Vector(types.Int), []any{1, 2, 3})
	require.NoError(t, err)
	lit, err = v.GoLiteral()
	require.NoError(t, err)
	assert.Equal(t, "[]int{int(1), int(2), int(3)}", lit)

	_, err = types.Decode(types.Array(types.Int, 2), []any{1})
	var decodeErr *types.DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	mode := types.Enum("Mode", "fast", "slow")
	v, err = types.Decode(mode, "slow")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Native())
	lit, err = v.GoLiteral()
	require.NoError(t, err)
	assert.Equal(t, "ModeSlow", lit)

	_, err = types.Decode(mode, "medium")
	assert.Error(t, err)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := types.NewRegistry()

	got, err := reg.Lookup("float64")
	require.NoError(t, err)
	assert.Same(t, types.Float64, got)

	got, err = reg.Lookup("[]int")
	require.NoError(t, err)
	assert.True(t, got.Equal(types.Vector(types.Int)))

	_, err = reg.Lookup("quaternion")
	assert.ErrorIs(t, err, types.ErrUnknownType)

	reg.Register("meters", types.Strong("Meters", types.Float64))
	assert.Contains(t, reg.Names(), "meters")
}
