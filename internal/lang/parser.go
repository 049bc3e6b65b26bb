package lang

import (
	"errors"
	"fmt"
)

// Parser turns a token stream into a Program. Construct one with NewParser over the output of a
// Lexer, call Parse, then check Err before using the result.
type Parser struct {
	tokens []Token
	pos    int
	errs   []error
}

// NewParser creates a Parser over a complete token stream, as produced by Lexer.Tokenize.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Err returns every parse error accumulated during Parse, joined into one error, or nil if parsing
// succeeded outright.
func (p *Parser) Err() error {
	return errors.Join(p.errs...)
}

func (p *Parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}

	return Token{Kind: EOF}
}

func (p *Parser) currentLine() int {
	return p.current().Line
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}

	return tok
}

func (p *Parser) check(k Kind) bool {
	return p.current().Kind == k
}

func (p *Parser) skipNewlines() {
	for p.check(Newline) {
		p.advance()
	}
}

func (p *Parser) expect(k Kind) (Token, error) {
	if !p.check(k) {
		return Token{}, &UnexpectedTokenError{
			Line:     p.currentLine(),
			Expected: k.String(),
			Found:    p.current().String(),
		}
	}

	return p.advance(), nil
}

func (p *Parser) expectIdentifier() (string, error) {
	tok, err := p.expect(Ident)
	if err != nil {
		return "", err
	}

	return tok.StrVal, nil
}

// recover advances past tokens until a statement or declaration boundary (newline or EOF) so a
// single malformed statement does not desynchronize the rest of the parse.
func (p *Parser) recover() {
	for !p.check(Newline) && !p.check(EOF) {
		p.advance()
	}

	p.skipNewlines()
}

// Parse consumes the entire token stream and returns the resulting Program. Call Err afterward to
// check whether any errors occurred; the returned Program may be partial when they did.
func (p *Parser) Parse() Program {
	var prog Program

	for {
		p.skipNewlines()

		if p.check(EOF) {
			break
		}

		switch p.current().Kind {
		case Byte, Card, Int, CharType:
			v, err := p.parseVarDecl()
			if err != nil {
				p.errs = append(p.errs, err)
				p.recover()
				continue
			}

			prog.Globals = append(prog.Globals, v)

		case Proc, Func:
			proc, err := p.parseProcedure()
			if err != nil {
				p.errs = append(p.errs, err)
				p.recover()
				continue
			}

			prog.Procedures = append(prog.Procedures, proc)

		case Module:
			p.advance()

		default:
			p.errs = append(p.errs, &ParseError{
				Line: p.currentLine(),
				Msg:  fmt.Sprintf("unexpected token at top level: %s", p.current()),
			})
			p.recover()
		}
	}

	return prog
}

func (p *Parser) parseType() (DataType, error) {
	var base BaseType

	switch p.current().Kind {
	case Byte:
		base = TypeByte
	case Card:
		base = TypeCard
	case Int:
		base = TypeInt
	case CharType:
		base = TypeChar
	default:
		return DataType{}, &UnexpectedTokenError{
			Line:     p.currentLine(),
			Expected: "BYTE, CARD, INT or CHAR",
			Found:    p.current().String(),
		}
	}

	p.advance()

	if !p.check(Array) {
		return DataType{Base: base}, nil
	}

	p.advance()

	// The element count trails the identifier (e.g. "BYTE ARRAY a(4)"), so it isn't known here.
	// parseArrayCount fills it in once the caller has consumed the name.
	switch base {
	case TypeByte, TypeChar:
		return DataType{Base: TypeByteArray}, nil
	case TypeCard:
		return DataType{Base: TypeCardArray}, nil
	case TypeInt:
		return DataType{Base: TypeIntArray}, nil
	default:
		return DataType{Base: TypeByteArray}, nil
	}
}

// parseArrayCount consumes an optional "(N)" element count following an array declarator's name.
// It defaults to 256 elements when the count is omitted.
func (p *Parser) parseArrayCount() (int, error) {
	count := 256

	if !p.check(LeftParen) {
		return count, nil
	}

	p.advance()

	n, err := p.parseNumber()
	if err != nil {
		return 0, err
	}

	count = int(n)

	if _, err := p.expect(RightParen); err != nil {
		return 0, err
	}

	return count, nil
}

func (p *Parser) parseNumber() (int32, error) {
	tok, err := p.expect(Number)
	if err != nil {
		return 0, err
	}

	return tok.NumVal, nil
}

func (p *Parser) parseVarDecl() (Variable, error) {
	typ, err := p.parseType()
	if err != nil {
		return Variable{}, err
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return Variable{}, err
	}

	if typ.IsArray() {
		count, err := p.parseArrayCount()
		if err != nil {
			return Variable{}, err
		}

		typ.Count = count
	}

	v := Variable{Name: name, Type: typ}

	if p.check(Equal) {
		p.advance()

		val, err := p.parseExpression()
		if err != nil {
			return Variable{}, err
		}

		v.InitialValue = val
	}

	return v, nil
}

// Expression grammar, precedence low to high: or, and, comparison, shift, additive, multiplicative,
// unary, primary.

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.check(Or) || p.check(Xor) {
		op := OpOr
		if p.check(Xor) {
			op = OpXor
		}

		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.check(And) {
		p.advance()

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}

	for {
		var op BinaryOp

		switch p.current().Kind {
		case Equal:
			op = OpEqual
		case NotEqual:
			op = OpNotEqual
		case Less:
			op = OpLess
		case LessEqual:
			op = OpLessEqual
		case Greater:
			op = OpGreater
		case GreaterEqual:
			op = OpGreaterEqual
		default:
			return left, nil
		}

		p.advance()

		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseShift() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.check(Lsh) || p.check(Rsh) {
		op := OpLeftShift
		if p.check(Rsh) {
			op = OpRightShift
		}

		p.advance()

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.check(Plus) || p.check(Minus) {
		op := OpAdd
		if p.check(Minus) {
			op = OpSubtract
		}

		p.advance()

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op BinaryOp

		switch p.current().Kind {
		case Star:
			op = OpMultiply
		case Slash:
			op = OpDivide
		case Mod:
			op = OpModulo
		default:
			return left, nil
		}

		p.advance()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.current().Kind {
	case Minus:
		p.advance()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return Negate{Operand: operand}, nil

	case Not:
		p.advance()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return Not{Operand: operand}, nil

	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.current().Kind {
	case Number:
		tok := p.advance()
		return Number{Value: tok.NumVal}, nil

	case String:
		tok := p.advance()
		return StringLit{Value: tok.StrVal}, nil

	case Char:
		tok := p.advance()
		return CharLit{Value: tok.CharVal}, nil

	case Ident:
		name := p.advance().StrVal

		switch p.current().Kind {
		case LeftBracket:
			p.advance()

			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(RightBracket); err != nil {
				return nil, err
			}

			return ArrayAccess{Array: name, Index: idx}, nil

		case LeftParen:
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, err
			}

			return FunctionCall{Name: name, Args: args}, nil

		default:
			return VariableRef{Name: name}, nil
		}

	case LeftParen:
		p.advance()

		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(RightParen); err != nil {
			return nil, err
		}

		return expr, nil

	case At:
		p.advance()

		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}

		return AddressOf{Name: name}, nil

	case Caret:
		p.advance()

		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		return Dereference{Pointer: operand}, nil

	default:
		return nil, &UnexpectedTokenError{
			Line:     p.currentLine(),
			Expected: "expression",
			Found:    p.current().String(),
		}
	}
}

func (p *Parser) parseArgumentList() ([]Expr, error) {
	if _, err := p.expect(LeftParen); err != nil {
		return nil, err
	}

	var args []Expr

	if !p.check(RightParen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			args = append(args, arg)

			if !p.check(Comma) {
				break
			}

			p.advance()
		}
	}

	if _, err := p.expect(RightParen); err != nil {
		return nil, err
	}

	return args, nil
}

// Statement grammar.

func (p *Parser) parseStatement() (Stmt, error, bool) {
	switch p.current().Kind {
	case EOF, Od, Fi, Else, ElseIf, Until, Return:
		return nil, nil, false

	case Newline:
		p.advance()
		return nil, nil, true

	case Byte, Card, Int, CharType:
		v, err := p.parseVarDecl()
		if err != nil {
			return nil, err, true
		}

		return VarDecl{Variable: v}, nil, true

	case If:
		stmt, err := p.parseIf()
		return stmt, err, true

	case While:
		stmt, err := p.parseWhile()
		return stmt, err, true

	case For:
		stmt, err := p.parseFor()
		return stmt, err, true

	case Do:
		stmt, err := p.parseUntil()
		return stmt, err, true

	case Exit:
		p.advance()
		return Exit{}, nil, true

	case Caret:
		p.advance()

		ptr, err := p.parsePrimary()
		if err != nil {
			return nil, err, true
		}

		if _, err := p.expect(Equal); err != nil {
			return nil, err, true
		}

		val, err := p.parseExpression()
		if err != nil {
			return nil, err, true
		}

		return PointerAssignment{Pointer: ptr, Value: val}, nil, true

	case Ident:
		name := p.advance().StrVal

		switch p.current().Kind {
		case LeftBracket:
			p.advance()

			idx, err := p.parseExpression()
			if err != nil {
				return nil, err, true
			}

			if _, err := p.expect(RightBracket); err != nil {
				return nil, err, true
			}

			if _, err := p.expect(Equal); err != nil {
				return nil, err, true
			}

			val, err := p.parseExpression()
			if err != nil {
				return nil, err, true
			}

			return ArrayAssignment{Array: name, Index: idx, Value: val}, nil, true

		case Equal:
			p.advance()

			val, err := p.parseExpression()
			if err != nil {
				return nil, err, true
			}

			return Assignment{Target: name, Value: val}, nil, true

		case LeftParen:
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, err, true
			}

			return ProcCall{Name: name, Args: args}, nil, true

		default:
			return ProcCall{Name: name}, nil, true
		}

	default:
		return nil, &UnexpectedTokenError{
			Line:     p.currentLine(),
			Expected: "statement",
			Found:    p.current().String(),
		}, true
	}
}

// parseBlock parses statements until it hits a token that terminates the enclosing construct
// (EOF, OD, FI, ELSE, ELSEIF, UNTIL, or RETURN), which it leaves unconsumed.
func (p *Parser) parseBlock() (Block, error) {
	var block Block

	for {
		stmt, err, more := p.parseStatement()
		if err != nil {
			return nil, err
		}

		if !more {
			return block, nil
		}

		if stmt != nil {
			block = append(block, stmt)
		}
	}
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance() // IF

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if p.check(Then) {
		p.advance()
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var els Block

	p.skipNewlines()

	if p.check(Else) {
		p.advance()

		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}

		p.skipNewlines()
	}

	if _, err := p.expect(Fi); err != nil {
		return nil, err
	}

	return If{Condition: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance() // WHILE

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if _, err := p.expect(Do); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if _, err := p.expect(Od); err != nil {
		return nil, err
	}

	return While{Condition: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	p.advance() // FOR

	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(Equal); err != nil {
		return nil, err
	}

	start, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(To); err != nil {
		return nil, err
	}

	end, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var step Expr

	if p.check(Step) {
		p.advance()

		step, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	p.skipNewlines()

	if _, err := p.expect(Do); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if _, err := p.expect(Od); err != nil {
		return nil, err
	}

	return For{Var: name, Start: start, End: end, Step: step, Body: body}, nil
}

// parseUntil parses a posttest loop: DO <body> UNTIL <condition> OD. The body always runs once
// before the condition is checked.
func (p *Parser) parseUntil() (Stmt, error) {
	p.advance() // DO

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if _, err := p.expect(Until); err != nil {
		return nil, err
	}

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	p.skipNewlines()

	if _, err := p.expect(Od); err != nil {
		return nil, err
	}

	return Until{Condition: cond, Body: body}, nil
}

// Procedures.

func (p *Parser) parseParameterList() ([]Parameter, error) {
	if !p.check(LeftParen) {
		return nil, nil
	}

	p.advance()

	var params []Parameter

	if !p.check(RightParen) {
		for {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}

			name, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}

			if typ.IsArray() {
				count, err := p.parseArrayCount()
				if err != nil {
					return nil, err
				}

				typ.Count = count
			}

			params = append(params, Parameter{Name: name, Type: typ})

			if !p.check(Comma) {
				break
			}

			p.advance()
		}
	}

	if _, err := p.expect(RightParen); err != nil {
		return nil, err
	}

	return params, nil
}

func isTypeKeyword(k Kind) bool {
	switch k {
	case Byte, Card, Int, CharType:
		return true
	default:
		return false
	}
}

func (p *Parser) parseProcedure() (Procedure, error) {
	var returnType *DataType

	if p.check(Func) {
		p.advance()

		t, err := p.parseType()
		if err != nil {
			return Procedure{}, err
		}

		returnType = &t
	} else {
		if _, err := p.expect(Proc); err != nil {
			return Procedure{}, err
		}
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return Procedure{}, err
	}

	params, err := p.parseParameterList()
	if err != nil {
		return Procedure{}, err
	}

	p.skipNewlines()

	var locals []Variable

	for isTypeKeyword(p.current().Kind) {
		v, err := p.parseVarDecl()
		if err != nil {
			return Procedure{}, err
		}

		locals = append(locals, v)
		p.skipNewlines()
	}

	body, err := p.parseBlock()
	if err != nil {
		return Procedure{}, err
	}

	p.skipNewlines()

	if p.check(Return) {
		p.advance()

		var retVal Expr

		if !p.check(Newline) && !p.check(EOF) && !p.check(Od) && !p.check(Fi) {
			retVal, err = p.parseExpression()
			if err != nil {
				return Procedure{}, err
			}
		}

		body = append(body, Return{Value: retVal})
	}

	p.skipNewlines()

	if _, err := p.expect(Od); err != nil {
		return Procedure{}, err
	}

	return Procedure{Name: name, Params: params, ReturnType: returnType, Locals: locals, Body: body}, nil
}
