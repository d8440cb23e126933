package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/delaneyj/proptree/value"
)

// Builtins callable from expressions.
// The value is the arity; -1 takes any number of arguments.
var Builtins = map[string]int{
	"debug": -1,
	"min":   -1,
	"max":   -1,
	"abs":   1,
	"round": 1,
	"floor": 1,
	"ceil":  1,
	"rgb":   3,
	"rgba":  4,
}

// reserved names cannot be bound by let.
var reserved = map[string]bool{
	"true": true, "false": true, "index": true, "model": true, "let": true,
}

// LocalName reports whether name can be bound as a local: an identifier
// that is neither a keyword nor a builtin.
func LocalName(name string) bool {
	if name == "" || !isIdentStart(name[0]) || reserved[name] {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	_, builtin := Builtins[name]
	return !builtin
}

type parser struct {
	src    string
	toks   []token
	i      int
	locals map[string]bool
}

// Parse decodes the text form of an expression. Statements separated by ';'
// form a Block.
func Parse(src string) (Node, error) {
	return ParseWithLocals(src)
}

// ParseWithLocals parses a handler body whose signal binds locals, such as
// the text of a key press.
func ParseWithLocals(src string, locals ...string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, locals: map[string]bool{}}
	for _, name := range locals {
		p.locals[name] = true
	}

	var stmts []Node
	for p.peek().typ != tEOF {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		if p.is(";") {
			p.next()
			continue
		}
		if p.peek().typ != tEOF {
			return nil, p.errorf(p.peek(), "unexpected %q", p.peek().text)
		}
	}
	switch len(stmts) {
	case 0:
		return nil, &SyntaxError{Src: src, Msg: "empty expression"}
	case 1:
		return stmts[0], nil
	}
	return &Block{Stmts: stmts}, nil
}

// MustParse is Parse for expressions known to be valid.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.typ != tEOF {
		p.i++
	}
	return t
}

func (p *parser) is(punct string) bool {
	t := p.peek()
	return t.typ == tPunct && t.text == punct
}

func (p *parser) need(punct string) error {
	if !p.is(punct) {
		return p.errorf(p.peek(), "expected %q", punct)
	}
	p.next()
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Src: p.src, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) statement() (Node, error) {
	if t := p.peek(); t.typ == tIdent && t.text == "let" {
		p.next()
		name := p.next()
		if name.typ != tIdent || !LocalName(name.text) {
			return nil, p.errorf(name, "expected a local name after let")
		}
		if err := p.need("="); err != nil {
			return nil, err
		}
		v, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		p.locals[name.text] = true
		return &Let{Name: name.text, Value: v}, nil
	}

	lhs, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.typ != tPunct {
		return lhs, nil
	}
	switch t.text {
	case "=", "+=", "-=", "*=", "/=":
		p.next()
		rhs, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		switch lhs := lhs.(type) {
		case *Ref:
			return &Assign{Op: t.text, Target: lhs, Value: rhs}, nil
		case *Local:
			if t.text != "=" {
				rhs = &Binary{Op: strings.TrimSuffix(t.text, "="), L: lhs, R: rhs}
			}
			return &Let{Name: lhs.Name, Value: rhs}, nil
		}
		return nil, p.errorf(t, "cannot assign to %s", String(lhs))
	}
	return lhs, nil
}

const (
	bpCond    = 2
	bpOr      = 3
	bpAnd     = 4
	bpEq      = 5
	bpCompare = 6
	bpSum     = 7
	bpProduct = 8
	bpUnary   = 9
	bpField   = 10
)

func lbp(t token) int {
	if t.typ != tPunct {
		return 0
	}
	switch t.text {
	case "?":
		return bpCond
	case "||":
		return bpOr
	case "&&":
		return bpAnd
	case "==", "!=":
		return bpEq
	case "<", ">", "<=", ">=":
		return bpCompare
	case "+", "-":
		return bpSum
	case "*", "/", "%":
		return bpProduct
	case ".":
		return bpField
	}
	return 0
}

func (p *parser) expr(rbp int) (Node, error) {
	left, err := p.nud(p.next())
	if err != nil {
		return nil, err
	}
	for lbp(p.peek()) > rbp {
		left, err = p.led(p.next(), left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) nud(t token) (Node, error) {
	switch t.typ {
	case tEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	case tNumber:
		n, err := parseNumber(t.text)
		if err != nil {
			return nil, p.errorf(t, "%v", err)
		}
		return &Literal{Value: value.Number(n)}, nil
	case tString:
		s, err := strconv.Unquote(t.text)
		if err != nil {
			return nil, p.errorf(t, "bad string: %v", err)
		}
		return &Literal{Value: value.String(s)}, nil
	case tColor:
		c, err := value.ParseColor(t.text)
		if err != nil {
			return nil, p.errorf(t, "%v", err)
		}
		return &Literal{Value: value.ColorValue(c)}, nil
	case tIdent:
		return p.ident(t)
	}

	switch t.text {
	case "(":
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return e, p.need(")")
	case "-", "+", "!":
		x, err := p.expr(bpUnary)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.text, X: x}, nil
	case "[":
		arr := &ArrayLit{}
		for !p.is("]") {
			it, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, it)
			if !p.is(",") {
				break
			}
			p.next()
		}
		return arr, p.need("]")
	case "{":
		obj := &ObjectLit{}
		for !p.is("}") {
			kt := p.next()
			var key string
			switch kt.typ {
			case tIdent:
				key = kt.text
			case tString:
				key, _ = strconv.Unquote(kt.text)
			default:
				return nil, p.errorf(kt, "expected object key")
			}
			if err := p.need(":"); err != nil {
				return nil, err
			}
			v, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			obj.Keys = append(obj.Keys, key)
			obj.Values = append(obj.Values, v)
			if !p.is(",") {
				break
			}
			p.next()
		}
		return obj, p.need("}")
	}
	return nil, p.errorf(t, "unexpected %q", t.text)
}

func (p *parser) ident(t token) (Node, error) {
	switch t.text {
	case "true":
		return &Literal{Value: value.Bool(true)}, nil
	case "false":
		return &Literal{Value: value.Bool(false)}, nil
	case "index":
		return &Index{}, nil
	case "model":
		return &Model{}, nil
	case "let":
		return nil, p.errorf(t, "let must start a statement")
	}

	if p.locals[t.text] {
		return &Local{Name: t.text}, nil
	}

	ref := &Ref{Path: []string{t.text}}
	for p.is(".") && p.toks[p.i+1].typ == tIdent {
		p.next()
		ref.Path = append(ref.Path, p.next().text)
	}
	if !p.is("(") {
		return ref, nil
	}

	p.next()
	var args []Node
	for !p.is(")") {
		a, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.is(",") {
			break
		}
		p.next()
	}
	if err := p.need(")"); err != nil {
		return nil, err
	}

	arity, builtin := Builtins[t.text]
	if len(ref.Path) > 1 || !builtin {
		return &Emit{Signal: ref, Args: args}, nil
	}
	if arity >= 0 && len(args) != arity {
		return nil, p.errorf(t, "%s takes %d arguments, got %d", t.text, arity, len(args))
	}
	if (t.text == "min" || t.text == "max") && len(args) == 0 {
		return nil, p.errorf(t, "%s needs arguments", t.text)
	}
	return &Call{Fn: t.text, Args: args}, nil
}

func (p *parser) led(t token, left Node) (Node, error) {
	switch t.text {
	case "?":
		then, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if err := p.need(":"); err != nil {
			return nil, err
		}
		els, err := p.expr(bpCond - 1)
		if err != nil {
			return nil, err
		}
		return &Cond{If: left, Then: then, Else: els}, nil
	case ".":
		name := p.next()
		if name.typ != tIdent {
			return nil, p.errorf(name, "expected field name")
		}
		return &Field{X: left, Name: name.text}, nil
	}
	right, err := p.expr(lbp(t))
	if err != nil {
		return nil, err
	}
	return &Binary{Op: t.text, L: left, R: right}, nil
}

// parseNumber normalizes unit suffixes: durations to milliseconds, percent
// to a fraction, lengths to pixels.
func parseNumber(text string) (float64, error) {
	end := 0
	for end < len(text) && (isDigit(text[end]) || text[end] == '.') {
		end++
	}
	n, err := strconv.ParseFloat(text[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", text)
	}
	switch unit := strings.ToLower(text[end:]); unit {
	case "", "px", "ms":
		return n, nil
	case "s":
		return n * 1000, nil
	case "%":
		return n * 0.01, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}
