// Package autodiff parses infix arithmetic expressions and evaluates their
// value and gradient in one forward-mode pass.
package autodiff

import (
	"strconv"
	"strings"
)

type Kind int

const (
	KindConst Kind = iota
	KindVar
	KindNeg
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindPow
	KindSin
	KindCos
	KindTan
	KindExp
	KindLog
	KindSqrt
)

var kindNames = map[Kind]string{
	KindConst: "const",
	KindVar:   "var",
	KindNeg:   "neg",
	KindAdd:   "add",
	KindSub:   "sub",
	KindMul:   "mul",
	KindDiv:   "div",
	KindPow:   "pow",
	KindSin:   "sin",
	KindCos:   "cos",
	KindTan:   "tan",
	KindExp:   "exp",
	KindLog:   "log",
	KindSqrt:  "sqrt",
}

var functions = map[string]Kind{
	"sin":  KindSin,
	"cos":  KindCos,
	"tan":  KindTan,
	"exp":  KindExp,
	"log":  KindLog,
	"ln":   KindLog,
	"sqrt": KindSqrt,
}

var binarySymbols = map[Kind]string{
	KindAdd: "+",
	KindSub: "-",
	KindMul: "*",
	KindDiv: "/",
	KindPow: "^",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is one expression tree node. A node owns its children; trees are
// never shared between programs.
type Node struct {
	Kind     Kind
	Pos      int
	Value    float64
	Name     string
	Children []*Node

	slot int
}

func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.Kind {
	case KindConst:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case KindVar:
		b.WriteString(n.Name)
	case KindNeg:
		b.WriteString("(-")
		n.Children[0].write(b)
		b.WriteString(")")
	case KindAdd, KindSub, KindMul, KindDiv, KindPow:
		b.WriteString("(")
		n.Children[0].write(b)
		b.WriteString(" " + binarySymbols[n.Kind] + " ")
		n.Children[1].write(b)
		b.WriteString(")")
	default:
		b.WriteString(n.Kind.String())
		b.WriteString("(")
		n.Children[0].write(b)
		b.WriteString(")")
	}
}

// Variables lists referenced variable names in first-use order.
func (n *Node) Variables() []string {
	seen := map[string]bool{}
	var names []string
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Kind == KindVar && !seen[cur.Name] {
			seen[cur.Name] = true
			names = append(names, cur.Name)
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return names
}
