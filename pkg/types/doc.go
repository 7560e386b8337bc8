// Package types defines the normalized declaration model shared by the
// scanner, the query parser, the indexing engine, and the matchers.
//
// Every identifier and type spelling is case-folded and whitespace-normalized
// at construction time, so all downstream comparisons are plain string
// comparisons on the normalized form. This is a deliberate simplification:
// type equality here is syntactic, not semantic, so `MyAlias` and the type
// it aliases never compare equal.
//
// # Declarations
//
// A Decl is a tagged union over the three searchable declaration kinds:
//
//	fn:     a function or method signature (FnSignature)
//	struct: a record definition (StructDef)
//	enum:   a tagged-union definition (EnumDef)
//
// Each Decl carries the Location of the declaration's first token. Decls are
// built once per run and never mutated afterward.
//
// # Signature equivalence
//
// FnSignature equality deliberately excludes the declared name: two
// signatures are equivalent iff their parameter types match positionally
// (parameter names ignored) and their return types match, where an absent
// return clause and an explicit unit return `()` are the same thing. Key
// serializes exactly that equivalence class, so it can be used as a map key.
package types
