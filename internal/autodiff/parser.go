package autodiff

import (
	"fmt"

	"amari/internal/engineerr"
)

// MaxDepth bounds parser nesting (parentheses, unary chains, exponent
// towers) so hostile input cannot exhaust the stack.
const MaxDepth = 256

type parser struct {
	tokens []token
	pos    int
	depth  int
}

// Parse builds the expression tree for src. Precedence from tightest:
// ^ (right associative), unary -, then * and /, then + and -.
func Parse(src string) (*Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, &engineerr.SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, unexpected(tok)
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOp(op string) bool {
	tok := p.peek()
	return tok.kind == tokOp && tok.text == op
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > MaxDepth {
		return &engineerr.SyntaxError{Pos: pos, Msg: fmt.Sprintf("expression nested deeper than %d levels", MaxDepth)}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (*Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		kind := KindAdd
		if op.text == "-" {
			kind = KindSub
		}
		left = &Node{Kind: kind, Pos: op.pos, Children: []*Node{left, right}}
	}
	return left, nil
}

func (p *parser) parseTerm() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		kind := KindMul
		if op.text == "/" {
			kind = KindDiv
		}
		left = &Node{Kind: kind, Pos: op.pos, Children: []*Node{left, right}}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	if p.isOp("-") || p.isOp("+") {
		op := p.next()
		if err := p.enter(op.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op.text == "+" {
			return operand, nil
		}
		return &Node{Kind: KindNeg, Pos: op.pos, Children: []*Node{operand}}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (*Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	op := p.next()
	if err := p.enter(op.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindPow, Pos: op.pos, Children: []*Node{base, exponent}}, nil
}

func (p *parser) parsePrimary() (*Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &Node{Kind: KindConst, Pos: tok.pos, Value: tok.value}, nil
	case tokIdent:
		if kind, ok := functions[tok.text]; ok {
			if p.peek().kind != tokLParen {
				return nil, &engineerr.SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("function %s needs a parenthesised argument", tok.text)}
			}
			arg, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			return &Node{Kind: kind, Pos: tok.pos, Children: []*Node{arg}}, nil
		}
		if p.peek().kind == tokLParen {
			return nil, &engineerr.SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unknown function %q", tok.text)}
		}
		return &Node{Kind: KindVar, Pos: tok.pos, Name: tok.text}, nil
	case tokLParen:
		p.pos--
		return p.parseGroup()
	default:
		return nil, unexpected(tok)
	}
}

func (p *parser) parseGroup() (*Node, error) {
	open := p.next()
	if open.kind != tokLParen {
		return nil, unexpected(open)
	}
	if err := p.enter(open.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	closing := p.next()
	if closing.kind != tokRParen {
		if closing.kind == tokEOF {
			return nil, &engineerr.SyntaxError{Pos: closing.pos, Msg: fmt.Sprintf("missing ')' for '(' at position %d", open.pos)}
		}
		return nil, unexpected(closing)
	}
	return inner, nil
}

func unexpected(tok token) error {
	return &engineerr.SyntaxError{Pos: tok.pos, Msg: "unexpected " + tok.describe()}
}
