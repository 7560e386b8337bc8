package types

// ShapeKind is the structural category of a struct's or variant's fields.
type ShapeKind string

const (
	ShapeNamed   ShapeKind = "named"   // braced fields: { a: T, b: U }
	ShapeUnnamed ShapeKind = "unnamed" // parenthesized fields: (T, U)
	ShapeUnit    ShapeKind = "unit"    // no fields at all
)

// Field is one struct or variant field. On declarations extracted from
// source, Type is always set and Name is set only for named fields. On
// query-side fields either may be empty: a bare `name:` criterion has no
// type, a bare-type criterion has no name.
type Field struct {
	Name string
	Type string
}

// FieldSet pairs a shape kind with its ordered fields. A unit shape carries
// no fields.
type FieldSet struct {
	Kind   ShapeKind
	Fields []Field
}

// NewFieldSet builds a FieldSet, collapsing an empty field list to unit.
func NewFieldSet(kind ShapeKind, fields []Field) FieldSet {
	if len(fields) == 0 {
		return FieldSet{Kind: ShapeUnit}
	}
	return FieldSet{Kind: kind, Fields: fields}
}

// StructDef is a normalized record definition. IsTuple distinguishes
// parenthesized (tuple) structs from braced and unit structs, and gates
// shape filtering during matching.
type StructDef struct {
	Name    string
	IsTuple bool
	Fields  FieldSet
}

// Variant is one arm of an enum definition.
type Variant struct {
	Name   string
	Fields FieldSet
}

// EnumDef is a normalized tagged-union definition.
type EnumDef struct {
	Name     string
	Variants []Variant
}
