package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestDiscoverFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib.rs":          "",
		"src/main.rs":     "",
		"src/util.txt":    "",
		".git/ignored.rs": "",
	})

	files, err := DiscoverFiles(root, "rs")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"lib.rs", "src/main.rs"}, names)
}

func TestSearch_FunctionAcrossFiles(t *testing.T) {
	// Scenario: the same shape under different names in different files is
	// reported once per file.
	root := writeTree(t, map[string]string{
		"file1.rs": "fn add(x: i32, y: i32) -> i32 { x + y }\n",
		"file2.rs": "fn sum(a: i32, b: i32) -> i32 { a + b }\n",
	})

	eng := New(nil)
	result, err := eng.Search(context.Background(), root, "fn(i32, i32) -> i32")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesSearched)
	assert.Equal(t, 0, result.FilesFailed)
	require.Len(t, result.Locations, 2)

	var files []string
	for _, loc := range result.Locations {
		files = append(files, filepath.Base(loc.File))
	}
	assert.ElementsMatch(t, []string{"file1.rs", "file2.rs"}, files)
}

func TestSearch_TupleStructIsolation(t *testing.T) {
	root := writeTree(t, map[string]string{
		"defs.rs": "struct Point(i32, i32);\nstruct Pair { x: i32, y: i32 }\n",
	})

	eng := New(nil)
	result, err := eng.Search(context.Background(), root, "struct(i32)")
	require.NoError(t, err)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, 1, result.Locations[0].Line)
}

func TestSearch_EnumQuery(t *testing.T) {
	root := writeTree(t, map[string]string{
		"shapes.rs": "enum Shape { Circle(f64), Square(f64) }\n",
		"other.rs":  "enum Color { Red, Green }\n",
	})

	eng := New(nil)
	result, err := eng.Search(context.Background(), root, "enum Q { Circle }")
	require.NoError(t, err)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, "shapes.rs", filepath.Base(result.Locations[0].File))
}

func TestSearch_EmptyCorpus(t *testing.T) {
	eng := New(nil)
	result, err := eng.Search(context.Background(), t.TempDir(), "fn(i32)")
	require.NoError(t, err)
	assert.Empty(t, result.Locations)
	assert.Equal(t, 0, result.FilesSearched)
}

func TestSearch_NoMatchIsNotAnError(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib.rs": "fn only() {}\n",
	})

	eng := New(nil)
	result, err := eng.Search(context.Background(), root, "fn(u64) -> u64")
	require.NoError(t, err)
	assert.Empty(t, result.Locations)
	assert.Equal(t, 1, result.FilesSearched)
}

func TestSearch_MalformedFileIsDropped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"good.rs": "fn add(x: i32, y: i32) -> i32 { x + y }\n",
		"bad.rs":  "fn broken( {\n",
	})

	eng := New(nil)
	result, err := eng.Search(context.Background(), root, "fn(i32, i32) -> i32")
	require.NoError(t, err)

	// The malformed file still counts toward the searched corpus but is
	// excluded from all shards.
	assert.Equal(t, 2, result.FilesSearched)
	assert.Equal(t, 1, result.FilesFailed)
	require.Len(t, result.Locations, 1)
	assert.Equal(t, "good.rs", filepath.Base(result.Locations[0].File))
}

func TestSearch_QueryParseErrorIsFatal(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib.rs": "fn f() {}\n",
	})

	eng := New(nil)
	_, err := eng.Search(context.Background(), root, "struct Foo")
	assert.Error(t, err)
}

func TestSearch_CustomExtension(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.rs":  "fn f(x: u8) {}\n",
		"b.rsx": "fn g(x: u8) {}\n",
	})

	eng := New(&Config{Extension: "rsx"})
	result, err := eng.Search(context.Background(), root, "fn(u8)")
	require.NoError(t, err)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, "b.rsx", filepath.Base(result.Locations[0].File))
}

func TestSearch_SingleWorker(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.rs": "fn f(x: u8) {}\n",
		"b.rs": "fn g(x: u8) {}\n",
		"c.rs": "fn h(y: u16) {}\n",
	})

	eng := New(&Config{Workers: 1})
	result, err := eng.Search(context.Background(), root, "fn(u8)")
	require.NoError(t, err)
	assert.Len(t, result.Locations, 2)
	assert.Equal(t, 3, result.FilesSearched)
}

func TestShardFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib.rs": "struct S { a: u64 }\n",
	})

	set, err := ShardFile(filepath.Join(root, "lib.rs"))
	require.NoError(t, err)
	assert.Len(t, set.Structs.FindByType("u64", false), 1)

	_, err = ShardFile(filepath.Join(root, "missing.rs"))
	assert.Error(t, err)
}
