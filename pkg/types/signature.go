package types

import "strings"

// Param is one function parameter. Name is optional: query-side parameters
// may be spelled as a bare type, meaning "any parameter name, this type".
// Both fields hold normalized spellings.
type Param struct {
	Name string
	Type string
}

// FnSignature is a normalized function or method signature. Name is optional
// and excluded from equivalence: Key covers parameter types (positionally)
// and the return type only. An empty Return means unit.
type FnSignature struct {
	Name   string
	Params []Param
	Return string
}

// Key serializes the signature's equivalence class. Two signatures produce
// the same key iff they have the same parameter count, positionally equal
// parameter types, and equal return types; declared and parameter names are
// ignored. The key is what the function shard hashes on.
func (s *FnSignature) Key() string {
	var b strings.Builder
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Type)
	}
	b.WriteString("->")
	b.WriteString(s.Return)
	return b.String()
}

// Equivalent reports structural equality per Key semantics.
func (s *FnSignature) Equivalent(other *FnSignature) bool {
	if len(s.Params) != len(other.Params) {
		return false
	}
	return s.Key() == other.Key()
}
