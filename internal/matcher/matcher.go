// Package matcher implements the per-kind match predicates evaluated against
// one file's shard set.
//
// The three kinds deliberately match differently:
//
//   - Functions match exactly: the query must be structurally equal to the
//     declaration (names ignored, absent return equals unit).
//   - Structs match fuzzily: each query field contributes an independent
//     name-or-type criterion and the results are unioned, supporting
//     discovery ("every struct touching this type") rather than exact-shape
//     equality.
//   - Enums match through a short-circuit OR over enum name, variant names,
//     and variant field criteria; the predicate is recursive over the nested
//     shape and yields only a boolean.
//
// Matching cannot fail: malformed query shapes are rejected by the query
// parser, never here. All type comparisons are string comparisons on the
// normalized spelling: syntactic, not alias-aware.
package matcher

import (
	"strings"

	"github.com/declgrep/declgrep/internal/index"
	"github.com/declgrep/declgrep/pkg/types"
)

// Match dispatches the query to the kind-appropriate predicate over one
// shard set, returning the file's matching locations.
func Match(q *types.Decl, set *index.ShardSet) []types.Location {
	switch q.Kind {
	case types.KindFn:
		return Functions(q.Fn, set)
	case types.KindStruct:
		return Structs(q.Struct, set)
	case types.KindEnum:
		return Enums(q.Enum, set)
	default:
		return nil
	}
}

// Functions performs an exact-match lookup in the file's function shard. At
// most one location per file: the shard's own overwrite policy guarantees
// one entry per equivalence class.
func Functions(q *types.FnSignature, set *index.ShardSet) []types.Location {
	loc, ok := set.Fns.Lookup(q)
	if !ok {
		return nil
	}
	return []types.Location{loc}
}

// Structs evaluates every field-level criterion of the query and unions the
// results. A named criterion consults the name index (prefix semantics), a
// type criterion the type index (exact); both restrict candidates to the
// query's shape, so tuple queries never match named structs and vice versa.
func Structs(q *types.StructDef, set *index.ShardSet) []types.Location {
	var out []types.Location
	seen := make(map[types.Location]bool)

	add := func(locs []types.Location) {
		for _, loc := range locs {
			if !seen[loc] {
				seen[loc] = true
				out = append(out, loc)
			}
		}
	}

	// A field's name and type are independent criteria: `{x: u64}` matches
	// on the type even when nothing is named x.
	for _, f := range q.Fields.Fields {
		if f.Name != "" {
			add(set.Structs.FindByName(f.Name, q.IsTuple))
		}
		if f.Type != "" {
			add(set.Structs.FindByType(f.Type, q.IsTuple))
		}
	}
	return out
}

// Enums scans the file's enum shard linearly, collecting every definition
// the query predicate accepts.
func Enums(q *types.EnumDef, set *index.ShardSet) []types.Location {
	var out []types.Location
	for _, e := range set.Enums {
		if enumMatches(q, e.Def) {
			out = append(out, e.Loc)
		}
	}
	return out
}

// enumMatches is the short-circuit OR over the nested shape. Evaluation
// stops at the first satisfied disjunct; which part matched is never
// reported.
func enumMatches(q, cand *types.EnumDef) bool {
	if q.Name != "" && q.Name == cand.Name {
		return true
	}

	for _, qv := range q.Variants {
		for _, cv := range cand.Variants {
			if qv.Name != "" && qv.Name == cv.Name {
				return true
			}
		}
	}

	for _, qv := range q.Variants {
		for _, cv := range cand.Variants {
			if fieldsMatch(qv.Fields, cv.Fields) {
				return true
			}
		}
	}

	return false
}

// fieldsMatch applies the record name-or-type criterion between two field
// sets of the same shape kind. Unit shapes carry no fields, so no criterion
// can hold between them.
func fieldsMatch(q, cand types.FieldSet) bool {
	if q.Kind != cand.Kind {
		return false
	}
	for _, qf := range q.Fields {
		for _, cf := range cand.Fields {
			if qf.Name != "" && cf.Name != "" && strings.HasPrefix(cf.Name, qf.Name) {
				return true
			}
			if qf.Type != "" && qf.Type == cf.Type {
				return true
			}
		}
	}
	return false
}
