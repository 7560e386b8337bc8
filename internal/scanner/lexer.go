package scanner

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies lexer output.
type TokenKind int

const (
	// TokWord covers identifiers, keywords, numeric literals, and lifetimes.
	TokWord TokenKind = iota
	// TokPunct covers punctuation; multi-rune operators `->`, `::`, `=>` are
	// single tokens so downstream code never splits them.
	TokPunct
	// TokEOF terminates every token stream.
	TokEOF
)

// Token is one lexed token with its start position (1-based line, 0-based
// column).
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
}

// IsWord reports whether the token is a word with the given text.
func (t Token) IsWord(text string) bool {
	return t.Kind == TokWord && t.Text == text
}

// IsPunct reports whether the token is punctuation with the given text.
func (t Token) IsPunct(text string) bool {
	return t.Kind == TokPunct && t.Text == text
}

// ScanError is a positioned lexing or declaration-scanning failure. A file
// producing one is dropped from the corpus; the run continues.
type ScanError struct {
	File    string
	Line    int
	Col     int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Message)
}

// lexer tokenizes source text. Comments, string/char literals, and
// attributes are consumed here so the declaration scanner never sees a brace
// hidden inside a literal.
type lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
}

func newLexer(file, src string) *lexer {
	return &lexer{file: file, src: src, line: 1}
}

// Tokenize lexes the whole input. It fails only on unterminated comments or
// literals; structural problems are left to the scanner.
func (lx *lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(line, col int, format string, args ...interface{}) error {
	return &ScanError{File: lx.file, Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekRune() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return r
}

func (lx *lexer) peekRuneAt(offset int) rune {
	pos := lx.pos
	for i := 0; i <= offset; i++ {
		if pos >= len(lx.src) {
			return 0
		}
		r, size := utf8.DecodeRuneInString(lx.src[pos:])
		if i == offset {
			return r
		}
		pos += size
	}
	return 0
}

func (lx *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	if r == '\n' {
		lx.line++
		lx.col = 0
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) next() (Token, error) {
	for {
		if lx.pos >= len(lx.src) {
			return Token{Kind: TokEOF, Line: lx.line, Col: lx.col}, nil
		}

		r := lx.peekRune()
		switch {
		case unicode.IsSpace(r):
			lx.advance()
			continue

		case r == '/' && lx.peekRuneAt(1) == '/':
			for lx.pos < len(lx.src) && lx.peekRune() != '\n' {
				lx.advance()
			}
			continue

		case r == '/' && lx.peekRuneAt(1) == '*':
			if err := lx.skipBlockComment(); err != nil {
				return Token{}, err
			}
			continue

		case r == '#':
			// Attributes #[...] and #![...] never contribute to a
			// declaration's shape; swallow them whole.
			if err := lx.skipAttribute(); err != nil {
				return Token{}, err
			}
			continue

		case r == '"':
			if err := lx.skipString(); err != nil {
				return Token{}, err
			}
			continue

		case r == '\'':
			tok, consumed, err := lx.lexQuote()
			if err != nil {
				return Token{}, err
			}
			if consumed {
				continue
			}
			return tok, nil

		case isIdentStart(r):
			return lx.lexWord()

		case unicode.IsDigit(r):
			return lx.lexNumber(), nil

		default:
			return lx.lexPunct(), nil
		}
	}
}

func (lx *lexer) skipBlockComment() error {
	startLine, startCol := lx.line, lx.col
	lx.advance() // '/'
	lx.advance() // '*'
	depth := 1
	for lx.pos < len(lx.src) {
		r := lx.peekRune()
		if r == '/' && lx.peekRuneAt(1) == '*' {
			lx.advance()
			lx.advance()
			depth++
			continue
		}
		if r == '*' && lx.peekRuneAt(1) == '/' {
			lx.advance()
			lx.advance()
			depth--
			if depth == 0 {
				return nil
			}
			continue
		}
		lx.advance()
	}
	return lx.errorf(startLine, startCol, "unterminated block comment")
}

func (lx *lexer) skipAttribute() error {
	startLine, startCol := lx.line, lx.col
	lx.advance() // '#'
	if lx.peekRune() == '!' {
		lx.advance()
	}
	if lx.peekRune() != '[' {
		// A stray '#' outside an attribute; nothing useful to do with it.
		return nil
	}
	depth := 0
	for lx.pos < len(lx.src) {
		switch lx.peekRune() {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				lx.advance()
				return nil
			}
		case '"':
			if err := lx.skipString(); err != nil {
				return err
			}
			continue
		}
		lx.advance()
	}
	return lx.errorf(startLine, startCol, "unterminated attribute")
}

func (lx *lexer) skipString() error {
	startLine, startCol := lx.line, lx.col
	lx.advance() // opening quote
	for lx.pos < len(lx.src) {
		r := lx.advance()
		if r == '\\' && lx.pos < len(lx.src) {
			lx.advance()
			continue
		}
		if r == '"' {
			return nil
		}
	}
	return lx.errorf(startLine, startCol, "unterminated string literal")
}

// skipRawString consumes r"..." and r#"..."# forms. The leading 'r' (or
// "br") has already been consumed.
func (lx *lexer) skipRawString() error {
	startLine, startCol := lx.line, lx.col
	hashes := 0
	for lx.peekRune() == '#' {
		lx.advance()
		hashes++
	}
	if lx.peekRune() != '"' {
		return lx.errorf(startLine, startCol, "malformed raw string literal")
	}
	lx.advance()
	closer := `"` + strings.Repeat("#", hashes)
	for lx.pos < len(lx.src) {
		if strings.HasPrefix(lx.src[lx.pos:], closer) {
			for range closer {
				lx.advance()
			}
			return nil
		}
		lx.advance()
	}
	return lx.errorf(startLine, startCol, "unterminated raw string literal")
}

// lexQuote disambiguates lifetimes from char literals. A quote followed by
// an identifier rune with no closing quote right after is a lifetime and
// becomes a word token; anything else is a char literal and is consumed.
func (lx *lexer) lexQuote() (Token, bool, error) {
	line, col := lx.line, lx.col
	first := lx.peekRuneAt(1)
	if isIdentStart(first) && lx.peekRuneAt(2) != '\'' {
		start := lx.pos
		lx.advance() // quote
		for lx.pos < len(lx.src) && isIdentRune(lx.peekRune()) {
			lx.advance()
		}
		return Token{Kind: TokWord, Text: lx.src[start:lx.pos], Line: line, Col: col}, false, nil
	}

	lx.advance() // opening quote
	for lx.pos < len(lx.src) {
		r := lx.advance()
		if r == '\\' && lx.pos < len(lx.src) {
			lx.advance()
			continue
		}
		if r == '\'' {
			return Token{}, true, nil
		}
	}
	return Token{}, false, lx.errorf(line, col, "unterminated char literal")
}

func (lx *lexer) lexWord() (Token, error) {
	line, col := lx.line, lx.col
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentRune(lx.peekRune()) {
		lx.advance()
	}
	text := lx.src[start:lx.pos]

	// Raw and byte string prefixes glue onto the opening delimiter.
	if (text == "r" || text == "b" || text == "br") &&
		(lx.peekRune() == '"' || lx.peekRune() == '#') {
		if text == "b" && lx.peekRune() != '"' {
			return Token{Kind: TokWord, Text: text, Line: line, Col: col}, nil
		}
		if text == "b" {
			if err := lx.skipString(); err != nil {
				return Token{}, err
			}
		} else if err := lx.skipRawString(); err != nil {
			return Token{}, err
		}
		return lx.next()
	}

	return Token{Kind: TokWord, Text: text, Line: line, Col: col}, nil
}

func (lx *lexer) lexNumber() Token {
	line, col := lx.line, lx.col
	start := lx.pos
	for lx.pos < len(lx.src) {
		r := lx.peekRune()
		if isIdentRune(r) || r == '.' {
			lx.advance()
			continue
		}
		break
	}
	return Token{Kind: TokWord, Text: lx.src[start:lx.pos], Line: line, Col: col}
}

func (lx *lexer) lexPunct() Token {
	line, col := lx.line, lx.col
	for _, op := range [...]string{"->", "=>", "::"} {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.advance()
			lx.advance()
			return Token{Kind: TokPunct, Text: op, Line: line, Col: col}
		}
	}
	r := lx.advance()
	return Token{Kind: TokPunct, Text: string(r), Line: line, Col: col}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize lexes source text for a named input. Exported for the query
// parser, which runs over the same token stream as the scanner.
func Tokenize(file, src string) ([]Token, error) {
	return newLexer(file, src).Tokenize()
}
