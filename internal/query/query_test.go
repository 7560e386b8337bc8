package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declgrep/declgrep/pkg/types"
)

func parseOK(t *testing.T, input string) *types.Decl {
	t.Helper()
	decl, err := Parse(input)
	require.NoError(t, err, "query %q", input)
	require.NoError(t, decl.Validate())
	return decl
}

func TestParse_FnWithNamedParams(t *testing.T) {
	decl := parseOK(t, "fn add(a: i32, b: i32) -> i32")
	require.Equal(t, types.KindFn, decl.Kind)

	sig := decl.Fn
	assert.Equal(t, "add", sig.Name)
	assert.Equal(t, []types.Param{
		{Name: "a", Type: "i32"},
		{Name: "b", Type: "i32"},
	}, sig.Params)
	assert.Equal(t, "i32", sig.Return)
}

func TestParse_FnBareTypes(t *testing.T) {
	decl := parseOK(t, "fn(i32, Vec<String>) -> bool")
	sig := decl.Fn
	assert.Empty(t, sig.Name)
	assert.Equal(t, []types.Param{
		{Type: "i32"},
		{Type: "vec<string>"},
	}, sig.Params)
	assert.Equal(t, "bool", sig.Return)
}

func TestParse_FnNoReturn(t *testing.T) {
	assert.Equal(t, "", parseOK(t, "fn log(msg: String)").Fn.Return)
}

func TestParse_FnUnitReturnEqualsNone(t *testing.T) {
	explicit := parseOK(t, "fn() -> ()")
	implicit := parseOK(t, "fn()")
	assert.True(t, explicit.Fn.Equivalent(implicit.Fn))
}

func TestParse_FnReceiverTolerated(t *testing.T) {
	// A real method signature pastes verbatim; the receiver is dropped.
	for _, q := range []string{
		"fn norm(&self) -> f64",
		"fn norm(self) -> f64",
		"fn norm(&mut self) -> f64",
		"fn norm(&'a mut self) -> f64",
	} {
		decl := parseOK(t, q)
		assert.Empty(t, decl.Fn.Params, "query %q", q)
		assert.Equal(t, "f64", decl.Fn.Return, "query %q", q)
	}
}

func TestParse_FnTrailingComma(t *testing.T) {
	decl := parseOK(t, "fn(i32, i32,)")
	assert.Len(t, decl.Fn.Params, 2)
}

func TestParse_QueriesAreCaseFolded(t *testing.T) {
	a := parseOK(t, "fn(I32) -> BOOL")
	b := parseOK(t, "fn(i32) -> bool")
	assert.True(t, a.Fn.Equivalent(b.Fn))
}

func TestParse_StructNamed(t *testing.T) {
	decl := parseOK(t, "struct Point { x: i32, y: i32 }")
	require.Equal(t, types.KindStruct, decl.Kind)

	def := decl.Struct
	assert.Equal(t, "point", def.Name)
	assert.False(t, def.IsTuple)
	assert.Equal(t, types.ShapeNamed, def.Fields.Kind)
	assert.Equal(t, []types.Field{
		{Name: "x", Type: "i32"},
		{Name: "y", Type: "i32"},
	}, def.Fields.Fields)
}

func TestParse_StructBracedCriteria(t *testing.T) {
	// Bare ident in braces is a type criterion; `name:` is a name criterion.
	def := parseOK(t, "struct { u64, count: }").Struct
	require.Len(t, def.Fields.Fields, 2)
	assert.Equal(t, types.Field{Type: "u64"}, def.Fields.Fields[0])
	assert.Equal(t, types.Field{Name: "count"}, def.Fields.Fields[1])
}

func TestParse_StructTuple(t *testing.T) {
	def := parseOK(t, "struct(i32, i32)").Struct
	assert.True(t, def.IsTuple)
	assert.Equal(t, types.ShapeUnnamed, def.Fields.Kind)
	assert.Equal(t, []types.Field{{Type: "i32"}, {Type: "i32"}}, def.Fields.Fields)
}

func TestParse_StructUnit(t *testing.T) {
	def := parseOK(t, "struct Marker;").Struct
	assert.Equal(t, types.ShapeUnit, def.Fields.Kind)
	assert.Equal(t, "marker", def.Name)
}

func TestParse_EnumVariants(t *testing.T) {
	decl := parseOK(t, "enum Shape { Circle(f64), Rect { w: f64, h: f64 }, Empty }")
	require.Equal(t, types.KindEnum, decl.Kind)

	def := decl.Enum
	assert.Equal(t, "shape", def.Name)
	require.Len(t, def.Variants, 3)
	assert.Equal(t, types.ShapeUnnamed, def.Variants[0].Fields.Kind)
	assert.Equal(t, types.ShapeNamed, def.Variants[1].Fields.Kind)
	assert.Equal(t, types.ShapeUnit, def.Variants[2].Fields.Kind)
}

func TestParse_EnumAnonymous(t *testing.T) {
	def := parseOK(t, "enum { V }").Enum
	assert.Empty(t, def.Name)
	require.Len(t, def.Variants, 1)
	assert.Equal(t, "v", def.Variants[0].Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", "   "},
		{"unknown keyword", "trait Foo {}"},
		{"fn without params", "fn add"},
		{"fn missing return type", "fn() ->"},
		{"struct without body", "struct Foo"},
		{"enum without braces", "enum Foo"},
		{"unterminated fields", "struct { a: u64"},
		{"named field in tuple position", "struct(a: u64)"},
		{"trailing garbage", "struct Unit; extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			assert.Error(t, err)
		})
	}
}

func TestParse_ErrorIsPositioned(t *testing.T) {
	_, err := Parse("struct Foo")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Message)
}
