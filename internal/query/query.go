// Package query parses the compact query grammar into a normalized
// declaration.
//
// One query string produces exactly one declaration of one of the three
// kinds:
//
//	fn add(a: i32, b: i32) -> i32
//	fn(i32, i32) -> i32
//	struct Point(i32, i32)
//	struct { count: u64 }
//	enum Shape { Circle(f64), Rect { w: f64, h: f64 } }
//
// Parsing is single-pass recursive descent with one-token lookahead: a
// parameter or braced field starting with `ident :` is named, anything else
// is a bare type. Trailing commas are tolerated in every list, and a leading
// receiver (`self`, `&self`, `&mut self`) in a fn parameter list is skipped
// so a method signature can be pasted verbatim.
//
// Inside braced fields a bare identifier is a TYPE criterion; a bare NAME
// criterion is spelled `name:` with the type omitted.
//
// A parse failure is fatal to the run: the query is never retried or
// partially accepted.
package query

import (
	"fmt"
	"strings"

	"github.com/declgrep/declgrep/internal/scanner"
	"github.com/declgrep/declgrep/pkg/types"
)

// ParseError is a positioned query-grammar failure.
type ParseError struct {
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("query column %d: %s", e.Col, e.Message)
}

// Parse turns one query string into one declaration. The location of the
// returned declaration is zero; query declarations have no source position.
func Parse(input string) (*types.Decl, error) {
	if strings.TrimSpace(input) == "" {
		return nil, types.ErrEmptyQuery
	}

	toks, err := scanner.Tokenize("query", input)
	if err != nil {
		if se, ok := err.(*scanner.ScanError); ok {
			return nil, &ParseError{Col: se.Col, Message: se.Message}
		}
		return nil, err
	}

	p := &parser{toks: toks}
	decl, err := p.query()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, p.errorf("unexpected input after query: %q", p.peek().Text)
	}
	return decl, nil
}

type parser struct {
	toks []scanner.Token
	pos  int
}

func (p *parser) peek() scanner.Token { return p.toks[p.pos] }
func (p *parser) next() scanner.Token { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) atEOF() bool         { return p.toks[p.pos].Kind == scanner.TokEOF }

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Col: p.peek().Col, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) query() (*types.Decl, error) {
	switch {
	case p.peek().IsWord("fn"):
		p.next()
		sig, err := p.fnQuery()
		if err != nil {
			return nil, err
		}
		return &types.Decl{Kind: types.KindFn, Fn: sig}, nil

	case p.peek().IsWord("struct"):
		p.next()
		def, err := p.structQuery()
		if err != nil {
			return nil, err
		}
		return &types.Decl{Kind: types.KindStruct, Struct: def}, nil

	case p.peek().IsWord("enum"):
		p.next()
		def, err := p.enumQuery()
		if err != nil {
			return nil, err
		}
		return &types.Decl{Kind: types.KindEnum, Enum: def}, nil

	default:
		return nil, p.errorf("expected `fn`, `struct`, or `enum` at the beginning of the query")
	}
}

// fnQuery := ident? '(' param_list? ')' ('->' type)?
func (p *parser) fnQuery() (*types.FnSignature, error) {
	sig := &types.FnSignature{}
	if p.peek().Kind == scanner.TokWord {
		sig.Name = types.NormalizeIdent(p.next().Text)
	}

	if !p.peek().IsPunct("(") {
		return nil, p.errorf("expected `(` to open the parameter list")
	}
	p.next()

	for !p.peek().IsPunct(")") {
		run, err := p.runUntil(",", ")")
		if err != nil {
			return nil, err
		}
		if p.peek().IsPunct(",") {
			p.next()
		}
		if len(run) == 0 {
			continue
		}
		if isReceiverRun(run) {
			continue
		}
		sig.Params = append(sig.Params, paramFromRun(run))
	}
	p.next() // ')'

	if p.peek().IsPunct("->") {
		p.next()
		run, err := p.runToEnd()
		if err != nil {
			return nil, err
		}
		if len(run) == 0 {
			return nil, p.errorf("expected return type after `->`")
		}
		sig.Return = scanner.RenderType(run)
	}

	return sig, nil
}

// structQuery := ident? (braced_fields | tuple_fields | ';')
func (p *parser) structQuery() (*types.StructDef, error) {
	def := &types.StructDef{}
	if p.peek().Kind == scanner.TokWord {
		def.Name = types.NormalizeIdent(p.next().Text)
	}

	switch {
	case p.peek().IsPunct("{"):
		fields, err := p.bracedFields()
		if err != nil {
			return nil, err
		}
		def.Fields = types.NewFieldSet(types.ShapeNamed, fields)

	case p.peek().IsPunct("("):
		fields, err := p.tupleFields()
		if err != nil {
			return nil, err
		}
		def.IsTuple = true
		def.Fields = types.NewFieldSet(types.ShapeUnnamed, fields)

	case p.peek().IsPunct(";"):
		p.next()
		def.Fields = types.NewFieldSet(types.ShapeUnit, nil)

	default:
		return nil, p.errorf("expected `{`, `(`, or `;` after the struct name")
	}

	return def, nil
}

// enumQuery := ident? '{' variant (',' variant)* '}'
func (p *parser) enumQuery() (*types.EnumDef, error) {
	def := &types.EnumDef{}
	if p.peek().Kind == scanner.TokWord {
		def.Name = types.NormalizeIdent(p.next().Text)
	}

	if !p.peek().IsPunct("{") {
		return nil, p.errorf("expected `{` to open the variant list")
	}
	p.next()

	for !p.peek().IsPunct("}") {
		if p.atEOF() {
			return nil, p.errorf("unterminated variant list")
		}
		v, err := p.variant()
		if err != nil {
			return nil, err
		}
		def.Variants = append(def.Variants, v)
		if p.peek().IsPunct(",") {
			p.next()
		}
	}
	p.next() // '}'

	return def, nil
}

// variant := ident (braced_fields | tuple_fields)?
func (p *parser) variant() (types.Variant, error) {
	if p.peek().Kind != scanner.TokWord {
		return types.Variant{}, p.errorf("expected a variant name")
	}
	v := types.Variant{Name: types.NormalizeIdent(p.next().Text)}

	switch {
	case p.peek().IsPunct("{"):
		fields, err := p.bracedFields()
		if err != nil {
			return types.Variant{}, err
		}
		v.Fields = types.NewFieldSet(types.ShapeNamed, fields)
	case p.peek().IsPunct("("):
		fields, err := p.tupleFields()
		if err != nil {
			return types.Variant{}, err
		}
		v.Fields = types.NewFieldSet(types.ShapeUnnamed, fields)
	default:
		v.Fields = types.NewFieldSet(types.ShapeUnit, nil)
	}

	return v, nil
}

// bracedFields := '{' field (',' field)* ','? '}'
func (p *parser) bracedFields() ([]types.Field, error) {
	p.next() // '{'
	var fields []types.Field

	for !p.peek().IsPunct("}") {
		if p.atEOF() {
			return nil, p.errorf("unterminated field list")
		}
		run, err := p.runUntil(",", "}")
		if err != nil {
			return nil, err
		}
		if p.peek().IsPunct(",") {
			p.next()
		}
		if len(run) == 0 {
			continue
		}
		fields = append(fields, fieldFromRun(run))
	}
	p.next() // '}'

	return fields, nil
}

// tupleFields := '(' type (',' type)* ','? ')'
func (p *parser) tupleFields() ([]types.Field, error) {
	p.next() // '('
	var fields []types.Field

	for !p.peek().IsPunct(")") {
		if p.atEOF() {
			return nil, p.errorf("unterminated tuple field list")
		}
		run, err := p.runUntil(",", ")")
		if err != nil {
			return nil, err
		}
		if p.peek().IsPunct(",") {
			p.next()
		}
		if len(run) == 0 {
			continue
		}
		if hasTopLevelColon(run) {
			return nil, &ParseError{Col: run[0].Col, Message: "named field in tuple position"}
		}
		fields = append(fields, types.Field{Type: scanner.RenderType(run)})
	}
	p.next() // ')'

	return fields, nil
}

// runUntil collects tokens up to the first top-level occurrence of one of
// the stop punctuators, honoring nested (), [], {}, <>.
func (p *parser) runUntil(stops ...string) ([]scanner.Token, error) {
	var run []scanner.Token
	depth := 0
	for {
		t := p.peek()
		if t.Kind == scanner.TokEOF {
			return nil, p.errorf("unexpected end of query")
		}
		if t.Kind == scanner.TokPunct {
			if depth == 0 {
				for _, s := range stops {
					if t.Text == s {
						return run, nil
					}
				}
			}
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
		run = append(run, p.next())
	}
}

// runToEnd collects the remaining tokens of the query.
func (p *parser) runToEnd() ([]scanner.Token, error) {
	var run []scanner.Token
	for !p.atEOF() {
		run = append(run, p.next())
	}
	return run, nil
}

// paramFromRun resolves the bare-type / `name: type` ambiguity with one
// token of lookahead for `:`.
func paramFromRun(run []scanner.Token) types.Param {
	if len(run) >= 2 && run[0].Kind == scanner.TokWord && run[1].IsPunct(":") {
		return types.Param{
			Name: types.NormalizeIdent(run[0].Text),
			Type: scanner.RenderType(run[2:]),
		}
	}
	return types.Param{Type: scanner.RenderType(run)}
}

// fieldFromRun resolves a braced query field: `name: type` and `name:` are
// name criteria, anything else is a type criterion.
func fieldFromRun(run []scanner.Token) types.Field {
	if len(run) >= 2 && run[0].Kind == scanner.TokWord && run[1].IsPunct(":") {
		return types.Field{
			Name: types.NormalizeIdent(run[0].Text),
			Type: scanner.RenderType(run[2:]),
		}
	}
	return types.Field{Type: scanner.RenderType(run)}
}

// isReceiverRun reports whether a parameter run is a method receiver pasted
// along with the rest of a real signature.
func isReceiverRun(run []scanner.Token) bool {
	i := 0
	if i < len(run) && run[i].IsPunct("&") {
		i++
	}
	if i < len(run) && run[i].Kind == scanner.TokWord && strings.HasPrefix(run[i].Text, "'") {
		i++
	}
	if i < len(run) && run[i].IsWord("mut") {
		i++
	}
	return i == len(run)-1 && run[i].IsWord("self")
}

func hasTopLevelColon(run []scanner.Token) bool {
	depth := 0
	for _, t := range run {
		if t.Kind != scanner.TokPunct {
			continue
		}
		switch t.Text {
		case "(", "[", "{", "<":
			depth++
		case ")", "]", "}", ">":
			depth--
		case ":":
			if depth == 0 {
				return true
			}
		}
	}
	return false
}
