// Package formula evaluates arithmetic formulas over named numeric fields.
//
// A formula is an expression of decimal literals, field names, the binary
// operators + - * /, unary minus and parentheses, for example
//
//	(listings_taken * listing_closed_percentage) / 100
//
// Field names are identifiers made of letters, digits and underscores that do
// not start with a digit.
package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("formula syntax error")

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	text string
	kind tokenKind
	pos  int
	num  float64
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case strings.ContainsRune("+-*/", r):
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			dots := 0
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				if runes[i] == '.' {
					dots++
				}
				i++
			}
			text := string(runes[start:i])
			if dots > 1 || text == "." {
				return nil, fmt.Errorf("%w: malformed number %q at %d", ErrSyntax, text, start)
			}
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed number %q at %d", ErrSyntax, text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: n, pos: start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, r, i)
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

// Expr is a parsed formula.
type Expr struct {
	root   node
	source string
	refs   []string
}

// Parse compiles a formula.
func Parse(src string) (*Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, seen: make(map[string]bool)}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("%w: empty formula", ErrSyntax)
	}

	root, err := p.expression()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}

	return &Expr{root: root, source: src, refs: p.refs}, nil
}

// References returns the distinct field names the formula uses, in order of first use.
func (e *Expr) References() []string {
	out := make([]string, len(e.refs))
	copy(out, e.refs)
	return out
}

// String returns the formula source.
func (e *Expr) String() string {
	return e.source
}

// Eval evaluates the formula, resolving field names through lookup.
// The result may be NaN or infinite; see Evaluate for the sanitised form.
func (e *Expr) Eval(lookup func(name string) float64) float64 {
	return e.root.eval(lookup)
}

type parser struct {
	seen   map[string]bool
	tokens []token
	refs   []string
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// expression := term (("+" | "-") term)*
func (p *parser) expression() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text[0], left: left, right: right}
	}
}

// term := unary (("*" | "/") unary)*
func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text[0], left: left, right: right}
	}
}

// unary := ("-" | "+") unary | primary
func (p *parser) unary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "-" {
			return negNode{operand: operand}, nil
		}
		return operand, nil
	}
	return p.primary()
}

// primary := number | ident | "(" expression ")"
func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode(t.num), nil
	case tokIdent:
		if !p.seen[t.text] {
			p.seen[t.text] = true
			p.refs = append(p.refs, t.text)
		}
		return refNode(t.text), nil
	case tokLParen:
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ')' at %d", ErrSyntax, closing.pos)
		}
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
}

type node interface {
	eval(lookup func(string) float64) float64
}

type numberNode float64

func (n numberNode) eval(func(string) float64) float64 { return float64(n) }

type refNode string

func (n refNode) eval(lookup func(string) float64) float64 { return lookup(string(n)) }

type negNode struct {
	operand node
}

func (n negNode) eval(lookup func(string) float64) float64 { return -n.operand.eval(lookup) }

type binaryNode struct {
	left  node
	right node
	op    byte
}

func (n binaryNode) eval(lookup func(string) float64) float64 {
	l, r := n.left.eval(lookup), n.right.eval(lookup)
	switch n.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	default:
		return l / r
	}
}
