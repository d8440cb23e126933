package expr

import (
	"strings"
)

// String prints n in the form Parse accepts, with only the parentheses the
// grammar needs.
func String(n Node) string {
	var sb strings.Builder
	write(&sb, n)
	return sb.String()
}

const bpAtom = 11

func prec(n Node) int {
	switch n := n.(type) {
	case *Binary:
		return lbp(token{typ: tPunct, text: n.Op})
	case *Unary:
		return bpUnary
	case *Cond:
		return bpCond
	case *Assign, *Let:
		return 1
	case *Block:
		return 0
	}
	return bpAtom
}

func writeParen(sb *strings.Builder, n Node, paren bool) {
	if paren {
		sb.WriteByte('(')
	}
	write(sb, n)
	if paren {
		sb.WriteByte(')')
	}
}

func write(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Literal:
		sb.WriteString(n.Value.String())
	case *Ref:
		sb.WriteString(strings.Join(n.Path, "."))
	case *Index:
		sb.WriteString("index")
	case *Model:
		sb.WriteString("model")
	case *Field:
		writeParen(sb, n.X, prec(n.X) < bpField)
		sb.WriteByte('.')
		sb.WriteString(n.Name)
	case *Unary:
		sb.WriteString(n.Op)
		writeParen(sb, n.X, prec(n.X) < bpUnary)
	case *Binary:
		bp := prec(n)
		writeParen(sb, n.L, prec(n.L) < bp)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		writeParen(sb, n.R, prec(n.R) <= bp)
	case *Cond:
		writeParen(sb, n.If, prec(n.If) <= bpCond)
		sb.WriteString(" ? ")
		writeParen(sb, n.Then, prec(n.Then) < bpCond)
		sb.WriteString(" : ")
		writeParen(sb, n.Else, prec(n.Else) < bpCond)
	case *ArrayLit:
		sb.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, it)
		}
		sb.WriteByte(']')
	case *ObjectLit:
		sb.WriteByte('{')
		for i, k := range n.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			write(sb, n.Values[i])
		}
		sb.WriteByte('}')
	case *Assign:
		write(sb, n.Target)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		write(sb, n.Value)
	case *Block:
		for i, s := range n.Stmts {
			if i > 0 {
				sb.WriteString("; ")
			}
			write(sb, s)
		}
	case *Call:
		sb.WriteString(n.Fn)
		writeArgs(sb, n.Args)
	case *Local:
		sb.WriteString(n.Name)
	case *Let:
		sb.WriteString("let ")
		sb.WriteString(n.Name)
		sb.WriteString(" = ")
		write(sb, n.Value)
	case *Emit:
		write(sb, n.Signal)
		writeArgs(sb, n.Args)
	}
}

func writeArgs(sb *strings.Builder, args []Node) {
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		write(sb, a)
	}
	sb.WriteByte(')')
}
