package expr

import (
	"fmt"
	"strconv"
)

// node is one node of the parsed expression tree.
type node interface{ expressionNode() }

type literalNode struct {
	value any // nil, bool, float64 or string
}

type identNode struct {
	name string
}

type memberNode struct {
	object   node
	property string
}

type indexNode struct {
	object node
	index  node
}

type callNode struct {
	callee node
	args   []node
}

type unaryNode struct {
	op      tokenKind // tokenNot or tokenMinus
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

func (literalNode) expressionNode() {}
func (identNode) expressionNode()   {}
func (memberNode) expressionNode()  {}
func (indexNode) expressionNode()   {}
func (callNode) expressionNode()    {}
func (unaryNode) expressionNode()   {}
func (binaryNode) expressionNode()  {}

type parser struct {
	tokens []token
	pos    int
}

// parse builds the expression tree for a guard expression. The grammar is a
// deliberately small subset: literals, identifiers, member/index access,
// calls, unary !/-, arithmetic, comparisons and boolean connectives.
func parse(src string) (node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.current().kind != tokenEOF {
		return nil, fmt.Errorf("position %d: unexpected token %q", p.current().pos, p.current().text)
	}

	return root, nil
}

func (p *parser) current() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.current()
	if tok.kind != kind {
		return token{}, fmt.Errorf("position %d: expected %s, found %q", tok.pos, what, tok.text)
	}

	return p.advance(), nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenOr {
		op := p.advance().kind

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenAnd {
		op := p.advance().kind

		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenEq || p.current().kind == tokenNotEq {
		op := p.advance().kind

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		kind := p.current().kind
		if kind != tokenGreater && kind != tokenLess && kind != tokenGreaterEq && kind != tokenLessEq {
			return left, nil
		}

		op := p.advance().kind

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenPlus || p.current().kind == tokenMinus {
		op := p.advance().kind

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenStar || p.current().kind == tokenSlash || p.current().kind == tokenPercent {
		op := p.advance().kind

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	kind := p.current().kind
	if kind == tokenNot || kind == tokenMinus {
		op := p.advance().kind

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return unaryNode{op: op, operand: operand}, nil
	}

	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().kind {
		case tokenDot:
			p.advance()

			prop, err := p.expect(tokenIdent, "property name")
			if err != nil {
				return nil, err
			}

			target = memberNode{object: target, property: prop.text}
		case tokenLBracket:
			p.advance()

			index, err := p.parseOr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(tokenRBracket, "']'"); err != nil {
				return nil, err
			}

			target = indexNode{object: target, index: index}
		case tokenLParen:
			p.advance()

			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}

			target = callNode{callee: target, args: args}
		default:
			return target, nil
		}
	}
}

func (p *parser) parseArgs() ([]node, error) {
	args := make([]node, 0, 2)

	if p.current().kind == tokenRParen {
		p.advance()

		return args, nil
	}

	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		switch p.current().kind {
		case tokenComma:
			p.advance()
		case tokenRParen:
			p.advance()

			return args, nil
		default:
			return nil, fmt.Errorf("position %d: expected ',' or ')', found %q", p.current().pos, p.current().text)
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.current()

	switch tok.kind {
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("position %d: malformed number %q", tok.pos, tok.text)
		}

		p.advance()

		return literalNode{value: value}, nil
	case tokenString:
		p.advance()

		return literalNode{value: tok.text}, nil
	case tokenIdent:
		p.advance()

		switch tok.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null", "nil":
			return literalNode{value: nil}, nil
		default:
			return identNode{name: tok.text}, nil
		}
	case tokenLParen:
		p.advance()

		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokenRParen, "')'"); err != nil {
			return nil, err
		}

		return inner, nil
	default:
		return nil, fmt.Errorf("position %d: unexpected token %q", tok.pos, tok.text)
	}
}
