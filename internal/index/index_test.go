package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declgrep/declgrep/pkg/types"
)

func loc(line int) types.Location {
	return types.Location{File: "test.rs", Line: line}
}

func fnDecl(line int, paramTypes ...string) types.Decl {
	sig := &types.FnSignature{Name: "f"}
	for _, ty := range paramTypes {
		sig.Params = append(sig.Params, types.Param{Type: ty})
	}
	return types.Decl{Kind: types.KindFn, Fn: sig, Loc: loc(line)}
}

func structDecl(line int, name string, isTuple bool, fields ...types.Field) types.Decl {
	kind := types.ShapeNamed
	if isTuple {
		kind = types.ShapeUnnamed
	}
	return types.Decl{
		Kind: types.KindStruct,
		Struct: &types.StructDef{
			Name:    name,
			IsTuple: isTuple,
			Fields:  types.NewFieldSet(kind, fields),
		},
		Loc: loc(line),
	}
}

func TestBuild_EmptyFile(t *testing.T) {
	set, err := Build("empty.rs", nil)
	require.NoError(t, err)
	assert.Equal(t, "empty.rs", set.File)
	assert.Equal(t, 0, set.Fns.Len())
	assert.Empty(t, set.Enums)
}

func TestFnShard_LookupAndMiss(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{fnDecl(3, "i32", "i32")})
	require.NoError(t, err)

	hit, ok := set.Fns.Lookup(&types.FnSignature{
		Params: []types.Param{{Type: "i32"}, {Type: "i32"}},
	})
	assert.True(t, ok)
	assert.Equal(t, loc(3), hit)

	_, ok = set.Fns.Lookup(&types.FnSignature{Params: []types.Param{{Type: "i32"}}})
	assert.False(t, ok)
}

func TestFnShard_OverwriteKeepsLaterDeclaration(t *testing.T) {
	// Two identical shapes in one file: the later location wins.
	set, err := Build("test.rs", []types.Decl{
		fnDecl(3, "i32"),
		fnDecl(9, "i32"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Fns.Len())

	hit, ok := set.Fns.Lookup(&types.FnSignature{Params: []types.Param{{Type: "i32"}}})
	require.True(t, ok)
	assert.Equal(t, 9, hit.Line)
}

func TestStructShard_FindByType(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		structDecl(1, "a", false, types.Field{Name: "count", Type: "u64"}),
		structDecl(5, "b", false, types.Field{Name: "total", Type: "u64"}),
		structDecl(9, "c", true, types.Field{Type: "u64"}),
	})
	require.NoError(t, err)

	named := set.Structs.FindByType("u64", false)
	assert.ElementsMatch(t, []types.Location{loc(1), loc(5)}, named)

	tuple := set.Structs.FindByType("u64", true)
	assert.Equal(t, []types.Location{loc(9)}, tuple)

	assert.Empty(t, set.Structs.FindByType("string", false))
}

func TestStructShard_FindByName(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		structDecl(1, "a", false, types.Field{Name: "count", Type: "u64"}),
		structDecl(5, "b", false, types.Field{Name: "counter", Type: "i32"}),
		structDecl(9, "c", false, types.Field{Name: "total", Type: "u64"}),
	})
	require.NoError(t, err)

	// Exact name.
	assert.ElementsMatch(t,
		[]types.Location{loc(1), loc(5)},
		set.Structs.FindByName("count", false))

	// Prefix reaches both "count" and "counter".
	assert.ElementsMatch(t,
		[]types.Location{loc(1), loc(5)},
		set.Structs.FindByName("cou", false))

	assert.Empty(t, set.Structs.FindByName("missing", false))
	assert.Empty(t, set.Structs.FindByName("", false))
}

func TestStructShard_FindByNameShapeFilter(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		structDecl(1, "a", false, types.Field{Name: "count", Type: "u64"}),
	})
	require.NoError(t, err)

	// A tuple-shaped query never sees named structs.
	assert.Empty(t, set.Structs.FindByName("count", true))
}

func TestStructShard_NoNamedFields(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		structDecl(1, "tup", true, types.Field{Type: "i32"}),
	})
	require.NoError(t, err)
	assert.Empty(t, set.Structs.FindByName("anything", true))
}

func TestStructShard_DuplicateFieldReportedOnce(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		structDecl(1, "pair", true, types.Field{Type: "i32"}, types.Field{Type: "i32"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Location{loc(1)}, set.Structs.FindByType("i32", true))
}

func TestEnumShard_KeepsDeclarationOrder(t *testing.T) {
	set, err := Build("test.rs", []types.Decl{
		{Kind: types.KindEnum, Enum: &types.EnumDef{Name: "a"}, Loc: loc(1)},
		{Kind: types.KindEnum, Enum: &types.EnumDef{Name: "b"}, Loc: loc(7)},
	})
	require.NoError(t, err)

	require.Len(t, set.Enums, 2)
	assert.Equal(t, "a", set.Enums[0].Def.Name)
	assert.Equal(t, loc(7), set.Enums[1].Loc)
}
