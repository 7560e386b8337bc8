// Package index builds the per-file lookup structures (shards) the matchers
// query. One ShardSet is built per file from that file's declarations;
// shards are never merged across files, so no cross-file synchronization is
// needed to build them and one file's duplicate declaration can never hide
// another file's match.
package index

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/vellum"

	"github.com/declgrep/declgrep/pkg/types"
)

// ShardSet holds every index built over a single file's declarations. Built
// once by the worker that owns the file, read-only afterward.
type ShardSet struct {
	File    string
	Fns     FnShard
	Structs StructShard
	Enums   []EnumEntry
}

// EnumEntry pairs an enum definition with its location. Enum matching is a
// nested structural predicate with no useful key, so the shard is a flat
// sequence scanned linearly per query.
type EnumEntry struct {
	Loc types.Location
	Def *types.EnumDef
}

// Build constructs the shard set for one file. It can fail only while
// materializing the field-name automaton.
func Build(file string, decls []types.Decl) (*ShardSet, error) {
	set := &ShardSet{
		File: file,
		Fns:  FnShard{byKey: make(map[string]types.Location)},
	}

	for i := range decls {
		d := &decls[i]
		switch d.Kind {
		case types.KindFn:
			set.Fns.insert(d.Fn, d.Loc)
		case types.KindStruct:
			set.Structs.insert(d.Struct, d.Loc)
		case types.KindEnum:
			set.Enums = append(set.Enums, EnumEntry{Loc: d.Loc, Def: d.Enum})
		}
	}

	if err := set.Structs.finalize(); err != nil {
		return nil, fmt.Errorf("building name index for %s: %w", file, err)
	}
	return set, nil
}

// FnShard is the exact-match function table: signature equivalence class ->
// location. Insertion overwrites on key collision, so a file declaring the
// identical shape twice keeps only the later declaration's location. That
// policy is intentional and relied on by the matcher, which keeps at most
// one location per file.
type FnShard struct {
	byKey map[string]types.Location
}

func (s *FnShard) insert(sig *types.FnSignature, loc types.Location) {
	s.byKey[sig.Key()] = loc
}

// Lookup finds the location of a declaration structurally equal to sig.
func (s *FnShard) Lookup(sig *types.FnSignature) (types.Location, bool) {
	loc, ok := s.byKey[sig.Key()]
	return loc, ok
}

// Len reports how many distinct signature shapes the file declares.
func (s *FnShard) Len() int { return len(s.byKey) }

// structEntry is one struct definition's attribution record: its location
// plus the tuple flag the matcher filters on.
type structEntry struct {
	loc     types.Location
	isTuple bool
}

// StructShard indexes every field of every struct in the file two ways: a
// type index (normalized type -> entries) and a name index over the sorted
// set of distinct field names, materialized as an FST supporting exact and
// prefix lookup in time proportional to the query length.
type StructShard struct {
	entries []structEntry
	byType  map[string][]int
	byName  map[string][]int
	names   *vellum.FST
}

func (s *StructShard) insert(def *types.StructDef, loc types.Location) {
	if s.byType == nil {
		s.byType = make(map[string][]int)
		s.byName = make(map[string][]int)
	}

	idx := len(s.entries)
	s.entries = append(s.entries, structEntry{loc: loc, isTuple: def.IsTuple})

	seenTypes := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, f := range def.Fields.Fields {
		if f.Type != "" && !seenTypes[f.Type] {
			seenTypes[f.Type] = true
			s.byType[f.Type] = append(s.byType[f.Type], idx)
		}
		if f.Name != "" && !seenNames[f.Name] {
			seenNames[f.Name] = true
			s.byName[f.Name] = append(s.byName[f.Name], idx)
		}
	}
}

// finalize builds the field-name automaton from the sorted distinct names.
// O(n log n) per shard; called exactly once, after the last insert.
func (s *StructShard) finalize() error {
	if len(s.byName) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := builder.Insert([]byte(name), uint64(i)); err != nil {
			return err
		}
	}
	if err := builder.Close(); err != nil {
		return err
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return err
	}
	s.names = fst
	return nil
}

// FindByType returns the locations of structs having at least one field of
// the given normalized type, restricted to the query's shape: tuple queries
// see only tuple structs, named queries only named structs.
func (s *StructShard) FindByType(ty string, isTuple bool) []types.Location {
	var out []types.Location
	for _, idx := range s.byType[ty] {
		if e := s.entries[idx]; e.isTuple == isTuple {
			out = append(out, e.loc)
		}
	}
	return out
}

// FindByName returns the locations of structs having at least one field
// whose name has the given prefix, with the same shape restriction as
// FindByType. Exact lookup is the degenerate prefix.
func (s *StructShard) FindByName(prefix string, isTuple bool) []types.Location {
	if s.names == nil || prefix == "" {
		return nil
	}

	matched := s.prefixNames(prefix)
	if len(matched) == 0 {
		return nil
	}

	var out []types.Location
	seen := make(map[types.Location]bool)
	for _, name := range matched {
		for _, idx := range s.byName[name] {
			e := s.entries[idx]
			if e.isTuple != isTuple || seen[e.loc] {
				continue
			}
			seen[e.loc] = true
			out = append(out, e.loc)
		}
	}
	return out
}

// prefixNames streams the automaton over the key range [prefix,
// prefixSuccessor(prefix)).
func (s *StructShard) prefixNames(prefix string) []string {
	start := []byte(prefix)
	itr, err := s.names.Iterator(start, prefixSuccessor(prefix))
	if err != nil {
		return nil
	}

	var matched []string
	for err == nil {
		key, _ := itr.Current()
		if !strings.HasPrefix(string(key), prefix) {
			break
		}
		matched = append(matched, string(key))
		err = itr.Next()
	}
	return matched
}

// prefixSuccessor returns the smallest byte string greater than every string
// with the given prefix, or nil when no such bound exists.
func prefixSuccessor(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			out := make([]byte, i+1)
			copy(out, b[:i])
			out[i] = b[i] + 1
			return out
		}
	}
	return nil
}
