package types

import "errors"

// DeclKind discriminates the Decl tagged union.
type DeclKind string

const (
	KindFn     DeclKind = "fn"
	KindStruct DeclKind = "struct"
	KindEnum   DeclKind = "enum"
)

// Decl is one extracted (or query-side) declaration. Exactly one of Fn,
// Struct, Enum is non-nil, selected by Kind. Loc is the declaration's start
// position; query declarations leave it zero.
type Decl struct {
	Kind   DeclKind
	Fn     *FnSignature
	Struct *StructDef
	Enum   *EnumDef
	Loc    Location
}

// Validate checks that the tagged union is well formed: the payload named by
// Kind is present and the others are absent.
func (d *Decl) Validate() error {
	switch d.Kind {
	case KindFn:
		if d.Fn == nil || d.Struct != nil || d.Enum != nil {
			return errors.New("fn declaration must carry exactly a signature")
		}
	case KindStruct:
		if d.Struct == nil || d.Fn != nil || d.Enum != nil {
			return errors.New("struct declaration must carry exactly a struct definition")
		}
	case KindEnum:
		if d.Enum == nil || d.Fn != nil || d.Struct != nil {
			return errors.New("enum declaration must carry exactly an enum definition")
		}
	default:
		return errors.New("invalid declaration kind")
	}
	return nil
}
