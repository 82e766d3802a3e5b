package factstore

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokLParen tokenKind = iota + 1
	tokRParen
	tokString
	tokAtom
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports malformed fact or pattern text.
type SyntaxError struct {
	Text    string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Pos, e.Text, e.Message)
}

func tokenize(text string) ([]token, error) {
	var toks []token
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '"':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(text) {
				ch := text[i]
				if ch == '\\' && i+1 < len(text) {
					b.WriteByte(text[i+1])
					i += 2
					continue
				}
				if ch == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(ch)
				i++
			}
			if !closed {
				return nil, &SyntaxError{Text: text, Pos: start, Message: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: start})
		default:
			start := i
			for i < len(text) && !strings.ContainsRune(" \t\r\n()\"", rune(text[i])) {
				i++
			}
			toks = append(toks, token{kind: tokAtom, text: text[start:i], pos: start})
		}
	}
	return toks, nil
}

// sexp is a parsed element: either a token or a parenthesized list.
type sexp struct {
	tok    token
	list   []sexp
	isList bool
}

func parseSexp(text string) (sexp, error) {
	toks, err := tokenize(text)
	if err != nil {
		return sexp{}, err
	}
	if len(toks) == 0 {
		return sexp{}, &SyntaxError{Text: text, Message: "empty input"}
	}
	if toks[0].kind != tokLParen {
		return sexp{}, &SyntaxError{Text: text, Pos: toks[0].pos, Message: "expected '('"}
	}
	node, next, err := parseList(text, toks, 0)
	if err != nil {
		return sexp{}, err
	}
	if next != len(toks) {
		return sexp{}, &SyntaxError{Text: text, Pos: toks[next].pos, Message: "unexpected trailing input"}
	}
	return node, nil
}

func parseList(text string, toks []token, i int) (sexp, int, error) {
	node := sexp{isList: true, tok: toks[i]}
	i++
	for i < len(toks) {
		switch toks[i].kind {
		case tokRParen:
			return node, i + 1, nil
		case tokLParen:
			child, next, err := parseList(text, toks, i)
			if err != nil {
				return sexp{}, 0, err
			}
			node.list = append(node.list, child)
			i = next
		default:
			node.list = append(node.list, sexp{tok: toks[i]})
			i++
		}
	}
	return sexp{}, 0, &SyntaxError{Text: text, Pos: node.tok.pos, Message: "unbalanced parentheses"}
}

// head validates the template-name position of a fact or pattern.
func head(text string, node sexp) (string, error) {
	if len(node.list) == 0 {
		return "", &SyntaxError{Text: text, Pos: node.tok.pos, Message: "missing template name"}
	}
	first := node.list[0]
	if first.isList || first.tok.kind != tokAtom || !IsSymbolText(first.tok.text) {
		return "", &SyntaxError{Text: text, Pos: first.tok.pos, Message: "template name must be a symbol"}
	}
	return first.tok.text, nil
}

// isNamedForm reports whether the elements after the template name are
// (field value...) groups.
func isNamedForm(text string, node sexp) (bool, error) {
	rest := node.list[1:]
	if len(rest) == 0 {
		return false, nil
	}
	named := rest[0].isList
	for _, el := range rest {
		if el.isList != named {
			return false, &SyntaxError{Text: text, Pos: el.tok.pos, Message: "cannot mix ordered values and named fields"}
		}
		if el.isList {
			if len(el.list) == 0 || el.list[0].isList || el.list[0].tok.kind != tokAtom || !IsSymbolText(el.list[0].tok.text) {
				return false, &SyntaxError{Text: text, Pos: el.tok.pos, Message: "field name must be a symbol"}
			}
			for _, v := range el.list[1:] {
				if v.isList {
					return false, &SyntaxError{Text: text, Pos: v.tok.pos, Message: "nested lists are not allowed in fields"}
				}
			}
		}
	}
	return named, nil
}

func literal(text string, el sexp) (Value, error) {
	if el.tok.kind == tokString {
		return String(el.tok.text), nil
	}
	v, err := ParseAtom(el.tok.text)
	if err != nil {
		return nil, &SyntaxError{Text: text, Pos: el.tok.pos, Message: err.Error()}
	}
	return v, nil
}

// ParseFact parses the textual form of a ground fact. The result has no ID;
// named facts are not yet resolved against their template.
func ParseFact(text string) (Fact, error) {
	node, err := parseSexp(text)
	if err != nil {
		return Fact{}, err
	}
	name, err := head(text, node)
	if err != nil {
		return Fact{}, err
	}
	named, err := isNamedForm(text, node)
	if err != nil {
		return Fact{}, err
	}

	fact := Fact{Template: name}
	if named {
		fact.Fields = make([]Field, 0, len(node.list)-1)
		for _, el := range node.list[1:] {
			fld := Field{Name: el.list[0].tok.text, Values: []Value{}}
			for _, v := range el.list[1:] {
				val, err := literal(text, v)
				if err != nil {
					return Fact{}, err
				}
				fld.Values = append(fld.Values, val)
			}
			fact.Fields = append(fact.Fields, fld)
		}
		return fact, nil
	}

	fact.Values = make([]Value, 0, len(node.list)-1)
	for _, el := range node.list[1:] {
		val, err := literal(text, el)
		if err != nil {
			return Fact{}, err
		}
		fact.Values = append(fact.Values, val)
	}
	return fact, nil
}

func parseTerm(text string, el sexp) (Term, error) {
	if el.tok.kind == tokString {
		return Term{Kind: TermConst, Value: String(el.tok.text)}, nil
	}
	t := el.tok.text
	switch {
	case t == "?":
		return Term{Kind: TermWildcard}, nil
	case t == "$?":
		return Term{Kind: TermMultiWildcard}, nil
	case strings.HasPrefix(t, "$?"):
		if !IsSymbolText(t[2:]) {
			return Term{}, &SyntaxError{Text: text, Pos: el.tok.pos, Message: fmt.Sprintf("invalid variable %s", t)}
		}
		return Term{Kind: TermMultiVar, Name: t[2:]}, nil
	case strings.HasPrefix(t, "?"):
		if !IsSymbolText(t[1:]) {
			return Term{}, &SyntaxError{Text: text, Pos: el.tok.pos, Message: fmt.Sprintf("invalid variable %s", t)}
		}
		return Term{Kind: TermVar, Name: t[1:]}, nil
	}
	v, err := literal(text, el)
	if err != nil {
		return Term{}, err
	}
	return Term{Kind: TermConst, Value: v}, nil
}

func parseTerms(text string, els []sexp) ([]Term, error) {
	terms := make([]Term, 0, len(els))
	multi := 0
	for _, el := range els {
		term, err := parseTerm(text, el)
		if err != nil {
			return nil, err
		}
		if term.multi() {
			multi++
			if multi > 1 {
				return nil, &SyntaxError{Text: text, Pos: el.tok.pos, Message: "at most one multi-value term per sequence"}
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// ParsePattern parses a fact pattern that may contain variables (?x, $?x)
// and wildcards (?, $?).
func ParsePattern(text string) (Pattern, error) {
	node, err := parseSexp(text)
	if err != nil {
		return Pattern{}, err
	}
	name, err := head(text, node)
	if err != nil {
		return Pattern{}, err
	}
	named, err := isNamedForm(text, node)
	if err != nil {
		return Pattern{}, err
	}

	p := Pattern{Template: name, Named: named}
	if named {
		seen := make(map[string]bool)
		for _, el := range node.list[1:] {
			fname := el.list[0].tok.text
			if seen[fname] {
				return Pattern{}, &SyntaxError{Text: text, Pos: el.tok.pos, Message: fmt.Sprintf("field %s given twice", fname)}
			}
			seen[fname] = true
			terms, err := parseTerms(text, el.list[1:])
			if err != nil {
				return Pattern{}, err
			}
			p.Fields = append(p.Fields, FieldPattern{Name: fname, Terms: terms})
		}
		return p, nil
	}

	p.Terms, err = parseTerms(text, node.list[1:])
	if err != nil {
		return Pattern{}, err
	}
	return p, nil
}
