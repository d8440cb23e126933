// Package expr holds the binding expressions carried by a compiled layout
// description: the node types, their text codec and an evaluator.
package expr

import (
	"github.com/delaneyj/proptree/value"
)

// Node is one expression node.
type Node interface {
	node()
}

// Literal is a constant.
type Literal struct {
	Value value.Value
}

// Ref names a property by dotted path ("root.width", "label.text", "hello").
// Trailing segments past the property name are object field accesses.
type Ref struct {
	Path []string
}

// Index is the index of the enclosing repeater instance.
type Index struct{}

// Model is the model element of the enclosing repeater instance.
type Model struct{}

// Field reads a field of an object value.
type Field struct {
	X    Node
	Name string
}

type Unary struct {
	Op string
	X  Node
}

type Binary struct {
	Op   string
	L, R Node
}

// Cond is cond ? then : else. Only the taken branch is evaluated.
type Cond struct {
	If, Then, Else Node
}

type ArrayLit struct {
	Items []Node
}

type ObjectLit struct {
	Keys   []string
	Values []Node
}

// Assign writes a property from a signal handler: =, +=, -=, *=, /=.
type Assign struct {
	Op     string
	Target *Ref
	Value  Node
}

// Block evaluates statements in order and yields the last value.
type Block struct {
	Stmts []Node
}

// Call invokes a builtin function.
type Call struct {
	Fn   string
	Args []Node
}

// Local reads a local variable: a signal argument or a name bound by let.
type Local struct {
	Name string
}

// Let binds a local variable for the statements after it. Assigning to an
// existing local parses as a Let too.
type Let struct {
	Name  string
	Value Node
}

// Emit raises a declared signal. Its handlers run with Args bound to the
// signal's parameters.
type Emit struct {
	Signal *Ref
	Args   []Node
}

func (*Literal) node()   {}
func (*Ref) node()       {}
func (*Index) node()     {}
func (*Model) node()     {}
func (*Field) node()     {}
func (*Unary) node()     {}
func (*Binary) node()    {}
func (*Cond) node()      {}
func (*ArrayLit) node()  {}
func (*ObjectLit) node() {}
func (*Assign) node()    {}
func (*Block) node()     {}
func (*Call) node()      {}
func (*Local) node()     {}
func (*Let) node()       {}
func (*Emit) node()      {}

// Walk visits n depth first, parents before children. Returning false from
// fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Field:
		Walk(n.X, fn)
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.L, fn)
		Walk(n.R, fn)
	case *Cond:
		Walk(n.If, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *ArrayLit:
		for _, it := range n.Items {
			Walk(it, fn)
		}
	case *ObjectLit:
		for _, v := range n.Values {
			Walk(v, fn)
		}
	case *Assign:
		Walk(n.Target, fn)
		Walk(n.Value, fn)
	case *Block:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case *Call:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Let:
		Walk(n.Value, fn)
	case *Emit:
		// The signal is not a property reference.
		for _, a := range n.Args {
			Walk(a, fn)
		}
	}
}

// Refs lists every property reference in n, assignment targets included.
func Refs(n Node) []*Ref {
	var refs []*Ref
	Walk(n, func(n Node) bool {
		if r, ok := n.(*Ref); ok {
			refs = append(refs, r)
		}
		return true
	})
	return refs
}

// Emits lists the signals n raises.
func Emits(n Node) []*Emit {
	var emits []*Emit
	Walk(n, func(n Node) bool {
		if e, ok := n.(*Emit); ok {
			emits = append(emits, e)
		}
		return true
	})
	return emits
}

// HasEffects reports whether n writes a property or raises a signal.
func HasEffects(n Node) bool {
	return HasAssign(n) || len(Emits(n)) > 0
}

// HasAssign reports whether n writes any property.
func HasAssign(n Node) bool {
	found := false
	Walk(n, func(n Node) bool {
		if _, ok := n.(*Assign); ok {
			found = true
		}
		return !found
	})
	return found
}

// UsesRepeater reports whether n reads the repeater index or model.
func UsesRepeater(n Node) bool {
	found := false
	Walk(n, func(n Node) bool {
		switch n.(type) {
		case *Index, *Model:
			found = true
		}
		return !found
	})
	return found
}
