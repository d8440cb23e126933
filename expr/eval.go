package expr

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/delaneyj/proptree/value"
)

// Env resolves references for one evaluation. Load is expected to record a
// dependency on the property it reads.
type Env interface {
	Load(ref *Ref) (value.Value, error)
	Store(ref *Ref, v value.Value) error
	// Index and Model report false outside a repeater instance.
	Index() (int, bool)
	Model() (value.Value, bool)
	// Emit runs the handlers of a declared signal.
	Emit(ref *Ref, args []value.Value) error
}

// Locals layers local variables over an Env. Eval adds one for statement
// lists, so it is only needed to bind signal arguments up front.
type Locals struct {
	Env
	vars map[string]value.Value
}

// WithLocals binds vars over env. The map is copied.
func WithLocals(env Env, vars map[string]value.Value) *Locals {
	l := &Locals{Env: env, vars: make(map[string]value.Value, len(vars))}
	for k, v := range vars {
		l.vars[k] = v
	}
	return l
}

func (l *Locals) Lookup(name string) (value.Value, bool) {
	v, ok := l.vars[name]
	return v, ok
}

func (l *Locals) Set(name string, v value.Value) {
	l.vars[name] = v
}

// EvalError is a runtime failure of an expression, such as an operator
// applied to the wrong types.
type EvalError struct {
	Expr string
	Msg  string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %s: %s", e.Expr, e.Msg)
}

func evalErrorf(n Node, format string, args ...any) error {
	return &EvalError{Expr: String(n), Msg: fmt.Sprintf(format, args...)}
}

// Eval computes n against env. Only the taken side of ?:, && and || is
// evaluated.
func Eval(n Node, env Env) (value.Value, error) {
	switch n.(type) {
	case *Block, *Let:
		if _, ok := env.(*Locals); !ok {
			env = WithLocals(env, nil)
		}
	}
	return eval(n, env)
}

func eval(n Node, env Env) (value.Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Ref:
		return env.Load(n)
	case *Index:
		i, ok := env.Index()
		if !ok {
			return value.Void, evalErrorf(n, "index outside a repeater")
		}
		return value.Number(float64(i)), nil
	case *Model:
		m, ok := env.Model()
		if !ok {
			return value.Void, evalErrorf(n, "model outside a repeater")
		}
		return m, nil
	case *Field:
		x, err := eval(n.X, env)
		if err != nil {
			return value.Void, err
		}
		if x.Type() != value.TypeObject {
			return value.Void, evalErrorf(n, "field %q of %s", n.Name, x.Type())
		}
		return x.Field(n.Name), nil
	case *Unary:
		return evalUnary(n, env)
	case *Binary:
		return evalBinary(n, env)
	case *Cond:
		c, err := evalBool(n.If, env)
		if err != nil {
			return value.Void, err
		}
		if c {
			return eval(n.Then, env)
		}
		return eval(n.Else, env)
	case *ArrayLit:
		items := make([]value.Value, len(n.Items))
		for i, it := range n.Items {
			v, err := eval(it, env)
			if err != nil {
				return value.Void, err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	case *ObjectLit:
		fields := make(map[string]value.Value, len(n.Keys))
		for i, k := range n.Keys {
			v, err := eval(n.Values[i], env)
			if err != nil {
				return value.Void, err
			}
			fields[k] = v
		}
		return value.Object(fields), nil
	case *Assign:
		return value.Void, evalAssign(n, env)
	case *Block:
		last := value.Void
		for _, st := range n.Stmts {
			v, err := eval(st, env)
			if err != nil {
				return value.Void, err
			}
			last = v
		}
		return last, nil
	case *Call:
		return evalCall(n, env)
	case *Local:
		if l, ok := env.(*Locals); ok {
			if v, ok := l.Lookup(n.Name); ok {
				return v, nil
			}
		}
		return value.Void, evalErrorf(n, "%s is not bound", n.Name)
	case *Let:
		l, ok := env.(*Locals)
		if !ok {
			return value.Void, evalErrorf(n, "let outside a statement list")
		}
		v, err := eval(n.Value, env)
		if err != nil {
			return value.Void, err
		}
		l.Set(n.Name, v)
		return value.Void, nil
	case *Emit:
		args := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, env)
			if err != nil {
				return value.Void, err
			}
			args[i] = v
		}
		return value.Void, env.Emit(n.Signal, args)
	}
	return value.Void, fmt.Errorf("unknown node %T", n)
}

func evalBool(n Node, env Env) (bool, error) {
	v, err := eval(n, env)
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, evalErrorf(n, "want bool, got %s", v.Type())
	}
	return b, nil
}

func evalNumber(n Node, env Env) (float64, error) {
	v, err := eval(n, env)
	if err != nil {
		return 0, err
	}
	f, ok := v.Number()
	if !ok {
		return 0, evalErrorf(n, "want number, got %s", v.Type())
	}
	return f, nil
}

func evalUnary(n *Unary, env Env) (value.Value, error) {
	if n.Op == "!" {
		b, err := evalBool(n.X, env)
		if err != nil {
			return value.Void, err
		}
		return value.Bool(!b), nil
	}
	f, err := evalNumber(n.X, env)
	if err != nil {
		return value.Void, err
	}
	if n.Op == "-" {
		f = -f
	}
	return value.Number(f), nil
}

func evalBinary(n *Binary, env Env) (value.Value, error) {
	switch n.Op {
	case "&&", "||":
		l, err := evalBool(n.L, env)
		if err != nil {
			return value.Void, err
		}
		if l == (n.Op == "||") {
			return value.Bool(l), nil
		}
		r, err := evalBool(n.R, env)
		if err != nil {
			return value.Void, err
		}
		return value.Bool(r), nil
	}

	l, err := eval(n.L, env)
	if err != nil {
		return value.Void, err
	}
	r, err := eval(n.R, env)
	if err != nil {
		return value.Void, err
	}
	return binaryOp(n, n.Op, l, r)
}

func binaryOp(n Node, op string, l, r value.Value) (value.Value, error) {
	switch op {
	case "==":
		return value.Bool(value.Equal(l, r)), nil
	case "!=":
		return value.Bool(!value.Equal(l, r)), nil
	}

	ls, lstr := l.Str()
	rs, rstr := r.Str()
	if op == "+" && (lstr || rstr) {
		if !lstr {
			ls = plain(l)
		}
		if !rstr {
			rs = plain(r)
		}
		return value.String(ls + rs), nil
	}
	if lstr && rstr {
		switch op {
		case "<":
			return value.Bool(ls < rs), nil
		case ">":
			return value.Bool(ls > rs), nil
		case "<=":
			return value.Bool(ls <= rs), nil
		case ">=":
			return value.Bool(ls >= rs), nil
		}
	}

	a, aok := l.Number()
	b, bok := r.Number()
	if !aok || !bok {
		return value.Void, evalErrorf(n, "%s %s %s", l.Type(), op, r.Type())
	}
	switch op {
	case "+":
		return value.Number(a + b), nil
	case "-":
		return value.Number(a - b), nil
	case "*":
		return value.Number(a * b), nil
	case "/":
		return value.Number(a / b), nil
	case "%":
		return value.Number(math.Mod(a, b)), nil
	case "<":
		return value.Bool(a < b), nil
	case ">":
		return value.Bool(a > b), nil
	case "<=":
		return value.Bool(a <= b), nil
	case ">=":
		return value.Bool(a >= b), nil
	}
	return value.Void, evalErrorf(n, "unknown operator %q", op)
}

// plain is the string form used for concatenation, without quoting.
func plain(v value.Value) string {
	if s, ok := v.Str(); ok {
		return s
	}
	return v.String()
}

func evalAssign(n *Assign, env Env) error {
	rhs, err := eval(n.Value, env)
	if err != nil {
		return err
	}
	if n.Op != "=" {
		cur, err := env.Load(n.Target)
		if err != nil {
			return err
		}
		rhs, err = binaryOp(n, strings.TrimSuffix(n.Op, "="), cur, rhs)
		if err != nil {
			return err
		}
	}
	return env.Store(n.Target, rhs)
}

func evalCall(n *Call, env Env) (value.Value, error) {
	if n.Fn == "debug" {
		parts := make([]string, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := eval(a, env)
			if err != nil {
				return value.Void, err
			}
			parts = append(parts, plain(v))
		}
		log.Printf("debug: %s", strings.Join(parts, " "))
		return value.Void, nil
	}

	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		f, err := evalNumber(a, env)
		if err != nil {
			return value.Void, err
		}
		args[i] = f
	}

	switch n.Fn {
	case "min", "max":
		out := args[0]
		for _, f := range args[1:] {
			if n.Fn == "min" {
				out = math.Min(out, f)
			} else {
				out = math.Max(out, f)
			}
		}
		return value.Number(out), nil
	case "abs":
		return value.Number(math.Abs(args[0])), nil
	case "round":
		return value.Number(math.Round(args[0])), nil
	case "floor":
		return value.Number(math.Floor(args[0])), nil
	case "ceil":
		return value.Number(math.Ceil(args[0])), nil
	case "rgb":
		return value.ColorValue(value.RGBA(channel(args[0]), channel(args[1]), channel(args[2]), 0xff)), nil
	case "rgba":
		return value.ColorValue(value.RGBA(channel(args[0]), channel(args[1]), channel(args[2]), channel(args[3]*255))), nil
	}
	return value.Void, evalErrorf(n, "unknown function %q", n.Fn)
}

func channel(f float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(f))))
}
