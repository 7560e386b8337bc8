package types

import (
	"strings"
	"unicode"
)

// NormalizeIdent case-folds and trims an identifier.
func NormalizeIdent(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeType produces the canonical spelling of a type expression:
// lower-cased, with whitespace collapsed so that a single space survives only
// between two word-like runes (`& 'a  mut Foo` -> `&'a mut foo`). An explicit
// empty tuple `()` collapses to the empty string, the same representation as
// "no type". Normalizing twice is a no-op.
func NormalizeType(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	pending := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = prev != 0
			continue
		}
		if pending {
			if isWordRune(prev) && isWordRune(r) {
				b.WriteByte(' ')
			}
			pending = false
		}
		b.WriteRune(r)
		prev = r
	}

	out := b.String()
	if out == "()" {
		return ""
	}
	return out
}

// isWordRune reports whether r can appear inside an identifier, a numeric
// literal, or a lifetime. Two adjacent word runes need a separating space to
// keep `mut foo` from fusing into `mutfoo`.
func isWordRune(r rune) bool {
	return r == '_' || r == '\'' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
