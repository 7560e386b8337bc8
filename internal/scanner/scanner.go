package scanner

import (
	"os"
	"strings"

	"github.com/declgrep/declgrep/pkg/types"
)

// ScanFile reads and scans one source file, returning every top-level
// declaration it contains. Read errors and scan errors are both returned to
// the caller, which drops the file and continues with the rest of the corpus.
func ScanFile(path string) ([]types.Decl, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Scan(path, string(content))
}

// Scan extracts fn, struct, and enum declarations from source text. Methods
// inside impl blocks are flattened to function declarations with their
// receivers dropped. Declarations inside mod blocks, trait bodies, and
// function bodies are not extracted.
func Scan(file, src string) ([]types.Decl, error) {
	toks, err := Tokenize(file, src)
	if err != nil {
		return nil, err
	}
	sc := &scanner{file: file, toks: toks}
	return sc.run()
}

// RenderType joins a token run into a normalized type spelling. Exported for
// the query parser, which renders types from the same token stream.
func RenderType(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return types.NormalizeType(b.String())
}

// declModifiers that may precede a declaration keyword. The recorded
// location of a declaration is the first modifier token, so `pub fn f()`
// reports the position of `pub`.
var declModifiers = map[string]bool{
	"pub":     true,
	"const":   true,
	"async":   true,
	"unsafe":  true,
	"extern":  true,
	"static":  true,
	"default": true,
}

type scanner struct {
	file string
	toks []Token
	pos  int
}

func (s *scanner) peek() Token { return s.toks[s.pos] }
func (s *scanner) next() Token { t := s.toks[s.pos]; s.pos++; return t }
func (s *scanner) atEOF() bool { return s.toks[s.pos].Kind == TokEOF }

func (s *scanner) errorf(tok Token, msg string) error {
	return &ScanError{File: s.file, Line: tok.Line, Col: tok.Col, Message: msg}
}

func (s *scanner) loc(tok Token) types.Location {
	return types.Location{File: s.file, Line: tok.Line, Column: tok.Col}
}

func (s *scanner) run() ([]types.Decl, error) {
	var decls []types.Decl
	err := s.items(false, &decls)
	if err != nil {
		return nil, err
	}
	return decls, nil
}

// items walks one brace level. At the top level inImpl is false and struct,
// enum, fn, and impl items are recognized; inside an impl block only fn
// items are. Everything else is skipped token by token with balanced
// delimiters honored.
func (s *scanner) items(inImpl bool, out *[]types.Decl) error {
	var pending *Token // first modifier of the declaration being led into

	for !s.atEOF() {
		tok := s.peek()

		if inImpl && tok.IsPunct("}") {
			return nil
		}

		if tok.Kind == TokWord {
			switch tok.Text {
			case "fn":
				decl, err := s.fnItem(startToken(pending, tok))
				if err != nil {
					return err
				}
				*out = append(*out, decl)
				pending = nil
				continue
			case "struct":
				if !inImpl {
					decl, err := s.structItem(startToken(pending, tok))
					if err != nil {
						return err
					}
					*out = append(*out, decl)
					pending = nil
					continue
				}
			case "enum":
				if !inImpl {
					decl, err := s.enumItem(startToken(pending, tok))
					if err != nil {
						return err
					}
					*out = append(*out, decl)
					pending = nil
					continue
				}
			case "impl":
				if !inImpl {
					if err := s.implItem(out); err != nil {
						return err
					}
					pending = nil
					continue
				}
			}
			if declModifiers[tok.Text] {
				if pending == nil {
					p := tok
					pending = &p
				}
				s.next()
				continue
			}
			pending = nil
			s.next()
			continue
		}

		pending = nil
		if isOpenDelim(tok.Text) {
			if err := s.skipBalanced(); err != nil {
				return err
			}
			continue
		}
		s.next()
	}
	return nil
}

func startToken(pending *Token, kw Token) Token {
	if pending != nil {
		return *pending
	}
	return kw
}

// fnItem parses a fn item starting at the `fn` keyword; start is the token
// whose position identifies the declaration.
func (s *scanner) fnItem(start Token) (types.Decl, error) {
	s.next() // fn

	sig := &types.FnSignature{}
	if s.peek().Kind == TokWord {
		sig.Name = types.NormalizeIdent(s.next().Text)
	}
	if err := s.skipGenerics(); err != nil {
		return types.Decl{}, err
	}

	if !s.peek().IsPunct("(") {
		return types.Decl{}, s.errorf(s.peek(), "expected parameter list")
	}
	params, err := s.paramList()
	if err != nil {
		return types.Decl{}, err
	}
	sig.Params = params

	if s.peek().IsPunct("->") {
		s.next()
		ret, err := s.typeUntil(func(t Token) bool {
			return t.IsPunct("{") || t.IsPunct(";") || t.IsWord("where")
		})
		if err != nil {
			return types.Decl{}, err
		}
		sig.Return = ret
	}

	if err := s.skipToItemEnd(); err != nil {
		return types.Decl{}, err
	}

	return types.Decl{Kind: types.KindFn, Fn: sig, Loc: s.loc(start)}, nil
}

// paramList consumes a parenthesized parameter list, dropping any receiver
// (`self` in all its spellings) and parameter names that are not plain
// identifiers.
func (s *scanner) paramList() ([]types.Param, error) {
	open := s.next() // '('
	var params []types.Param

	for {
		if s.atEOF() {
			return nil, s.errorf(open, "unterminated parameter list")
		}
		if s.peek().IsPunct(")") {
			s.next()
			return params, nil
		}

		run, err := s.tokensUntil(func(t Token) bool {
			return t.IsPunct(",") || t.IsPunct(")")
		})
		if err != nil {
			return nil, err
		}
		if s.peek().IsPunct(",") {
			s.next()
		}

		if len(run) == 0 || isReceiver(run) {
			continue
		}
		params = append(params, splitParam(run))
	}
}

// isReceiver reports whether a parameter run is a method receiver: `self`
// optionally behind `&`, a lifetime, and `mut`.
func isReceiver(run []Token) bool {
	i := 0
	if i < len(run) && run[i].IsPunct("&") {
		i++
	}
	if i < len(run) && run[i].Kind == TokWord && strings.HasPrefix(run[i].Text, "'") {
		i++
	}
	if i < len(run) && run[i].IsWord("mut") {
		i++
	}
	return i < len(run) && run[i].IsWord("self")
}

// splitParam divides a parameter run at its top-level ':'. A single
// identifier pattern becomes the name; tuple or wildcard patterns leave the
// name empty. A run with no ':' is a bare type.
func splitParam(run []Token) types.Param {
	depth := 0
	for i, t := range run {
		if t.Kind == TokPunct {
			switch t.Text {
			case "(", "[", "{", "<":
				depth++
			case ")", "]", "}", ">":
				depth--
			case ":":
				if depth == 0 {
					var name string
					pat := run[:i]
					if len(pat) > 0 && pat[0].IsWord("mut") {
						pat = pat[1:]
					}
					if len(pat) == 1 && pat[0].Kind == TokWord && pat[0].Text != "_" {
						name = types.NormalizeIdent(pat[0].Text)
					}
					return types.Param{Name: name, Type: RenderType(run[i+1:])}
				}
			}
		}
	}
	return types.Param{Type: RenderType(run)}
}

// structItem parses a struct item in braced, tuple, or unit form.
func (s *scanner) structItem(start Token) (types.Decl, error) {
	s.next() // struct

	def := &types.StructDef{}
	if s.peek().Kind == TokWord {
		def.Name = types.NormalizeIdent(s.next().Text)
	}
	if err := s.skipGenerics(); err != nil {
		return types.Decl{}, err
	}
	if err := s.skipWhereClause(); err != nil {
		return types.Decl{}, err
	}

	switch {
	case s.peek().IsPunct("{"):
		fields, err := s.namedFields()
		if err != nil {
			return types.Decl{}, err
		}
		def.Fields = types.NewFieldSet(types.ShapeNamed, fields)

	case s.peek().IsPunct("("):
		fields, err := s.tupleFields()
		if err != nil {
			return types.Decl{}, err
		}
		def.IsTuple = true
		def.Fields = types.NewFieldSet(types.ShapeUnnamed, fields)
		if err := s.skipWhereClause(); err != nil {
			return types.Decl{}, err
		}
		if s.peek().IsPunct(";") {
			s.next()
		}

	case s.peek().IsPunct(";"):
		s.next()
		def.Fields = types.NewFieldSet(types.ShapeUnit, nil)

	default:
		return types.Decl{}, s.errorf(s.peek(), "expected struct body")
	}

	return types.Decl{Kind: types.KindStruct, Struct: def, Loc: s.loc(start)}, nil
}

// namedFields consumes `{ name: type, ... }`, tolerating field visibility
// modifiers and trailing commas.
func (s *scanner) namedFields() ([]types.Field, error) {
	open := s.next() // '{'
	var fields []types.Field

	for {
		if s.atEOF() {
			return nil, s.errorf(open, "unterminated field list")
		}
		if s.peek().IsPunct("}") {
			s.next()
			return fields, nil
		}

		run, err := s.tokensUntil(func(t Token) bool {
			return t.IsPunct(",") || t.IsPunct("}")
		})
		if err != nil {
			return nil, err
		}
		if s.peek().IsPunct(",") {
			s.next()
		}

		run = stripVisibility(run)
		if len(run) == 0 {
			continue
		}
		fields = append(fields, splitField(run))
	}
}

// splitField divides a field run at its top-level ':'. Query-side runs may
// lack a type (`name:`) or a name (bare type); source-side runs always have
// both.
func splitField(run []Token) types.Field {
	depth := 0
	for i, t := range run {
		if t.Kind == TokPunct {
			switch t.Text {
			case "(", "[", "{", "<":
				depth++
			case ")", "]", "}", ">":
				depth--
			case ":":
				if depth == 0 && i == 1 && run[0].Kind == TokWord {
					return types.Field{
						Name: types.NormalizeIdent(run[0].Text),
						Type: RenderType(run[i+1:]),
					}
				}
			}
		}
	}
	return types.Field{Type: RenderType(run)}
}

// tupleFields consumes `( type, ... )`.
func (s *scanner) tupleFields() ([]types.Field, error) {
	open := s.next() // '('
	var fields []types.Field

	for {
		if s.atEOF() {
			return nil, s.errorf(open, "unterminated tuple field list")
		}
		if s.peek().IsPunct(")") {
			s.next()
			return fields, nil
		}

		run, err := s.tokensUntil(func(t Token) bool {
			return t.IsPunct(",") || t.IsPunct(")")
		})
		if err != nil {
			return nil, err
		}
		if s.peek().IsPunct(",") {
			s.next()
		}

		run = stripVisibility(run)
		if len(run) == 0 {
			continue
		}
		fields = append(fields, types.Field{Type: RenderType(run)})
	}
}

// enumItem parses an enum item with named, tuple, and unit variants.
// Discriminants are skipped.
func (s *scanner) enumItem(start Token) (types.Decl, error) {
	s.next() // enum

	def := &types.EnumDef{}
	if s.peek().Kind == TokWord {
		def.Name = types.NormalizeIdent(s.next().Text)
	}
	if err := s.skipGenerics(); err != nil {
		return types.Decl{}, err
	}
	if err := s.skipWhereClause(); err != nil {
		return types.Decl{}, err
	}

	if !s.peek().IsPunct("{") {
		return types.Decl{}, s.errorf(s.peek(), "expected enum body")
	}
	open := s.next()

	for {
		if s.atEOF() {
			return types.Decl{}, s.errorf(open, "unterminated enum body")
		}
		if s.peek().IsPunct("}") {
			s.next()
			break
		}

		v, err := s.variant()
		if err != nil {
			return types.Decl{}, err
		}
		def.Variants = append(def.Variants, v)

		if s.peek().IsPunct(",") {
			s.next()
		}
	}

	return types.Decl{Kind: types.KindEnum, Enum: def, Loc: s.loc(start)}, nil
}

func (s *scanner) variant() (types.Variant, error) {
	if s.peek().Kind != TokWord {
		return types.Variant{}, s.errorf(s.peek(), "expected variant name")
	}
	v := types.Variant{Name: types.NormalizeIdent(s.next().Text)}

	switch {
	case s.peek().IsPunct("("):
		fields, err := s.tupleFields()
		if err != nil {
			return types.Variant{}, err
		}
		v.Fields = types.NewFieldSet(types.ShapeUnnamed, fields)
	case s.peek().IsPunct("{"):
		fields, err := s.namedFields()
		if err != nil {
			return types.Variant{}, err
		}
		v.Fields = types.NewFieldSet(types.ShapeNamed, fields)
	default:
		v.Fields = types.NewFieldSet(types.ShapeUnit, nil)
	}

	if s.peek().IsPunct("=") {
		s.next()
		if _, err := s.tokensUntil(func(t Token) bool {
			return t.IsPunct(",") || t.IsPunct("}")
		}); err != nil {
			return types.Variant{}, err
		}
	}

	return v, nil
}

// implItem skips to the impl body and extracts the fn items inside it.
func (s *scanner) implItem(out *[]types.Decl) error {
	start := s.next() // impl
	for !s.atEOF() && !s.peek().IsPunct("{") {
		if isOpenDelim(s.peek().Text) && s.peek().Kind == TokPunct {
			if err := s.skipBalanced(); err != nil {
				return err
			}
			continue
		}
		s.next()
	}
	if s.atEOF() {
		return s.errorf(start, "unterminated impl block")
	}
	s.next() // '{'

	if err := s.items(true, out); err != nil {
		return err
	}
	if s.atEOF() {
		return s.errorf(start, "unterminated impl block")
	}
	s.next() // '}'
	return nil
}

// skipToItemEnd consumes a where clause if present, then either a `{ ... }`
// body or a terminating `;`.
func (s *scanner) skipToItemEnd() error {
	if err := s.skipWhereClause(); err != nil {
		return err
	}
	switch {
	case s.peek().IsPunct(";"):
		s.next()
		return nil
	case s.peek().IsPunct("{"):
		return s.skipBalanced()
	default:
		return s.errorf(s.peek(), "expected function body or `;`")
	}
}

func (s *scanner) skipWhereClause() error {
	if !s.peek().IsWord("where") {
		return nil
	}
	s.next()
	_, err := s.tokensUntil(func(t Token) bool {
		return t.IsPunct("{") || t.IsPunct(";")
	})
	return err
}

// skipGenerics consumes `<...>` with nested angle brackets.
func (s *scanner) skipGenerics() error {
	if !s.peek().IsPunct("<") {
		return nil
	}
	open := s.next()
	depth := 1
	for !s.atEOF() {
		t := s.next()
		if t.IsPunct("<") {
			depth++
		} else if t.IsPunct(">") {
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return s.errorf(open, "unterminated generic parameter list")
}

// typeUntil renders the type spelled by the tokens before the first stop
// token at the current nesting depth.
func (s *scanner) typeUntil(stop func(Token) bool) (string, error) {
	run, err := s.tokensUntil(stop)
	if err != nil {
		return "", err
	}
	if len(run) == 0 {
		return "", s.errorf(s.peek(), "expected type")
	}
	return RenderType(run), nil
}

// tokensUntil collects tokens up to (not including) the first token at the
// current nesting depth satisfying stop. Delimiters inside the run stay
// balanced; angle brackets nest too, which is safe in type position.
func (s *scanner) tokensUntil(stop func(Token) bool) ([]Token, error) {
	var run []Token
	depth := 0
	for {
		t := s.peek()
		if t.Kind == TokEOF {
			return nil, s.errorf(t, "unexpected end of input")
		}
		if depth == 0 && stop(t) {
			return run, nil
		}
		if t.Kind == TokPunct {
			switch t.Text {
			case "(", "[", "{", "<":
				depth++
			case ")", "]", "}", ">":
				if depth == 0 {
					return run, nil
				}
				depth--
			}
		}
		run = append(run, s.next())
	}
}

// skipBalanced consumes a delimited block starting at the current opening
// delimiter.
func (s *scanner) skipBalanced() error {
	open := s.next()
	closer := matchingDelim(open.Text)
	depth := 1
	for !s.atEOF() {
		t := s.next()
		if t.Kind != TokPunct {
			continue
		}
		if t.Text == open.Text {
			depth++
		} else if t.Text == closer {
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return s.errorf(open, "unbalanced delimiter")
}

func stripVisibility(run []Token) []Token {
	if len(run) == 0 || !run[0].IsWord("pub") {
		return run
	}
	run = run[1:]
	if len(run) > 0 && run[0].IsPunct("(") {
		depth := 0
		for i, t := range run {
			if t.IsPunct("(") {
				depth++
			} else if t.IsPunct(")") {
				depth--
				if depth == 0 {
					return run[i+1:]
				}
			}
		}
	}
	return run
}

func isOpenDelim(text string) bool {
	return text == "(" || text == "[" || text == "{"
}

func matchingDelim(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	default:
		return ""
	}
}
