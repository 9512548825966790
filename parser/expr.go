package parser

import (
	"strconv"

	"micc/ast"
	"micc/builtins"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

// parseFloatText converts lexed float text into a float64.
func parseFloatText(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

// relOpFor maps a relational token to its RelOp, and reports whether tok is
// a relational operator at all.
func relOpFor(k token.Kind) (eval.RelOp, bool) {
	switch k {
	case token.EQ:
		return eval.RelEQ, true
	case token.NE:
		return eval.RelNE, true
	case token.LT:
		return eval.RelLT, true
	case token.LE:
		return eval.RelLE, true
	case token.GT:
		return eval.RelGT, true
	case token.GE:
		return eval.RelGE, true
	default:
		return 0, false
	}
}

// parseExpr parses one expression: SimpleExpression [relation SimpleExpression],
// grounded on the Oberon-family grammar the surface syntax otherwise
// follows (BEGIN/END blocks, POINTER TO, ARRAY OF). Relations do not chain:
// `a = b = c` is not legal, matching the single-relation shape.
func (p *Parser) parseExpr() *ast.Value {
	lhs := p.parseSimpleExpr()
	if op, ok := relOpFor(p.tok.Kind); ok {
		pos := p.tok.Pos
		p.advance()
		rhs := p.parseSimpleExpr()
		return p.ev.Relation(op, lhs, rhs, pos)
	}
	return lhs
}

// parseSimpleExpr parses [+|-] term {(+|-|OR) term}, where `|` is the
// boolean-OR spelling this language uses in place of a reserved OR word.
func (p *Parser) parseSimpleExpr() *ast.Value {
	var v *ast.Value
	if p.at(token.MINUS) {
		pos := p.tok.Pos
		p.advance()
		v = p.ev.Unary(true, p.parseTerm(), pos)
	} else {
		p.accept(token.PLUS)
		v = p.parseTerm()
	}

	for {
		switch p.tok.Kind {
		case token.PLUS:
			pos := p.tok.Pos
			p.advance()
			v = p.ev.Binary(eval.OpAdd, v, p.parseTerm(), pos)
		case token.MINUS:
			pos := p.tok.Pos
			p.advance()
			v = p.ev.Binary(eval.OpSub, v, p.parseTerm(), pos)
		case token.PIPE:
			pos := p.tok.Pos
			p.advance()
			v = p.logicalOp(false, v, p.parseTerm(), pos)
		default:
			return v
		}
	}
}

// parseTerm parses factor {(*|/|%|AND) factor}, where `&` is this
// language's boolean-AND spelling.
func (p *Parser) parseTerm() *ast.Value {
	v := p.parseFactor()
	for {
		switch p.tok.Kind {
		case token.STAR:
			pos := p.tok.Pos
			p.advance()
			v = p.ev.Binary(eval.OpMul, v, p.parseFactor(), pos)
		case token.SLASH:
			pos := p.tok.Pos
			p.advance()
			v = p.ev.Binary(eval.OpDiv, v, p.parseFactor(), pos)
		case token.PERCENT:
			pos := p.tok.Pos
			p.advance()
			v = p.ev.Binary(eval.OpRem, v, p.parseFactor(), pos)
		case token.AMP:
			pos := p.tok.Pos
			p.advance()
			v = p.logicalOp(true, v, p.parseFactor(), pos)
		default:
			return v
		}
	}
}

// parseFactor parses a unary prefix (`~` boolean-not, `-` negation, `+`
// no-op) or a primary.
func (p *Parser) parseFactor() *ast.Value {
	switch p.tok.Kind {
	case token.TILDE:
		pos := p.tok.Pos
		p.advance()
		return p.logicalNot(p.parseFactor(), pos)
	case token.MINUS:
		pos := p.tok.Pos
		p.advance()
		return p.ev.Unary(true, p.parseFactor(), pos)
	case token.PLUS:
		p.advance()
		return p.parseFactor()
	default:
		return p.parsePrimary()
	}
}

// logicalOp implements `&`/`|` as plain boolean AND/OR: both operands are
// Bool, so a bitwise Arith at Bool's storage width (1 byte, 0 or 1) is
// exactly logical AND/OR, without going through package eval's
// promoteBitwise (which requires unsigned integer operands, not Bool).
func (p *Parser) logicalOp(and bool, lhs, rhs *ast.Value, pos token.Position) *ast.Value {
	boolT := p.reg.Basic(types.Bool)
	if lhs.IsConst() && rhs.IsConst() {
		var result bool
		if and {
			result = lhs.Payload.Bool && rhs.Payload.Bool
		} else {
			result = lhs.Payload.Bool || rhs.Payload.Bool
		}
		return &ast.Value{Mode: ast.Const, Type: boolT, Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: result}, Pos: pos}
	}
	p.ev.PushMilStack(p.ev.CoerceTo(lhs, boolT))
	p.ev.PushMilStack(p.ev.CoerceTo(rhs, boolT))
	if and {
		p.emit.Arith(mil.And, mil.U1)
	} else {
		p.emit.Arith(mil.Or, mil.U1)
	}
	return &ast.Value{Mode: ast.Val, Type: boolT, Pos: pos}
}

// logicalNot implements `~` as `v = FALSE`, reusing package eval's own
// Relation folding/emission rather than a bitwise complement (which would
// invert every bit of Bool's storage byte, not just its low bit).
func (p *Parser) logicalNot(v *ast.Value, pos token.Position) *ast.Value {
	falseVal := &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Bool), Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: false}, Pos: pos}
	return p.ev.Relation(eval.RelEQ, v, falseVal, pos)
}

// parsePrimary parses a literal, a parenthesized expression, or an
// identifier -- which may name a constant, a variable/local/param
// designator (with its postfix chain), a builtin call, or a user
// procedure call.
func (p *Parser) parsePrimary() *ast.Value {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.INTLIT:
		text := p.tok.Value
		p.advance()
		n, err := ParseIntText(text)
		if err != nil {
			p.sink.Errorf(diag.Lex, pos, "malformed integer literal %q: %s", text, err)
		}
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Int32), Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: n}, Pos: pos}

	case token.FLOATLIT:
		text := p.tok.Value
		p.advance()
		f, err := parseFloatText(text)
		if err != nil {
			p.sink.Errorf(diag.Lex, pos, "malformed float literal %q: %s", text, err)
		}
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Float64), Payload: ast.ConstPayload{Kind: ast.ConstFloat, Float: f}, Pos: pos}

	case token.STRINGLIT:
		text := p.tok.Value
		p.advance()
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.StringLit), Payload: ast.ConstPayload{Kind: ast.ConstString, Str: text}, Pos: pos}

	case token.CHARLIT:
		text := p.tok.Value
		p.advance()
		var r rune
		for _, rr := range text {
			r = rr
			break
		}
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Char), Payload: ast.ConstPayload{Kind: ast.ConstChar, Char: r}, Pos: pos}

	case token.LPAREN:
		p.advance()
		v := p.parseExpr()
		p.expect(token.RPAREN)
		return v

	case token.IDENT:
		return p.parseIdentExpr()

	default:
		p.sink.Errorf(diag.Syn, pos, "expected an expression, got %s", p.tok.Kind)
		p.advance()
		return &ast.Value{Mode: ast.Val, Type: p.reg.Basic(types.NoType), Pos: pos}
	}
}

// parseIdentExpr resolves an identifier primary: the pseudo-literals
// TRUE/FALSE/NIL (spec.md carries no keyword for these -- they are ordinary
// identifiers recognised by spelling, the same convention basic-type names
// use), a builtin call, a user procedure call, or a designator.
func (p *Parser) parseIdentExpr() *ast.Value {
	tok := p.tok
	pos := tok.Pos

	switch tok.Value {
	case "TRUE":
		p.advance()
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Bool), Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: true}, Pos: pos}
	case "FALSE":
		p.advance()
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Bool), Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: false}, Pos: pos}
	case "NIL":
		p.advance()
		return &ast.Value{Mode: ast.Const, Type: p.reg.Basic(types.Nil), Pos: pos}
	}

	if v, ok := p.tryParseCall(tok); ok {
		return v
	}

	p.advance()
	return p.parseDesignator(tok)
}

// tryParseCall recognises tok as the head of a builtin or user-procedure
// call and, if so, parses its argument list and returns the dispatched
// result. It does not consume tok's own token itself is left un-advanced
// when it returns false, so the caller can fall back to treating tok as a
// plain designator.
func (p *Parser) tryParseCall(tok token.Token) (*ast.Value, bool) {
	pos := tok.Pos
	if name, ok := builtinNameFor(tok.Value); ok {
		if _, declared := p.scope.FindByName(tok.Value); !declared {
			p.advance()
			return p.parseCallArgs(func(args []*ast.Value) *ast.Value {
				return p.bi.Dispatch(name, args, pos)
			}, name), true
		}
	}

	if d, ok := p.scope.FindByName(tok.Value); ok && d.Kind == ast.DProcedure {
		p.advance()
		sig := d.Type.(*types.Proc)
		return p.parseCallArgs(func(args []*ast.Value) *ast.Value {
			for _, a := range args {
				p.ev.PushMilStack(a)
			}
			p.emit.Call(d.QualifiedName())
			return &ast.Value{Mode: ast.Val, Type: sig.Return, Pos: pos}
		}, ""), true
	}

	return nil, false
}

// parseCallArgs parses `(arg, arg, ...)`, honouring builtins.RequiresLvalue
// for the named builtin (name == "" for a user procedure call, which never
// requires an lvalue argument).
func (p *Parser) parseCallArgs(apply func([]*ast.Value) *ast.Value, name builtins.Name) *ast.Value {
	p.expect(token.LPAREN)
	var args []*ast.Value
	for !p.at(token.RPAREN) {
		if name != "" && builtins.RequiresLvalue(name, len(args)) {
			args = append(args, p.parseLvalueArg())
		} else {
			args = append(args, p.parseExpr())
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return apply(args)
}

// builtinNameFor reports whether text spells one of the closed builtin
// names, returning the typed builtins.Name.
func builtinNameFor(text string) (builtins.Name, bool) {
	switch builtins.Name(text) {
	case builtins.Abs, builtins.Cap, builtins.BitAnd, builtins.BitOr, builtins.BitXor,
		builtins.BitNot, builtins.BitAsr, builtins.BitShl, builtins.BitShr, builtins.Bits,
		builtins.Cast, builtins.Chr, builtins.Default, builtins.Floor, builtins.Flt,
		builtins.Getenv, builtins.Len, builtins.Long, builtins.Max, builtins.Min,
		builtins.Odd, builtins.Ord, builtins.Short, builtins.Signed, builtins.Size,
		builtins.Strlen, builtins.Unsigned, builtins.Vararg, builtins.Varargs,
		builtins.Assert, builtins.Dec, builtins.Dispose, builtins.Excl, builtins.Halt,
		builtins.Inc, builtins.Incl, builtins.New, builtins.Pcall, builtins.Print,
		builtins.Println, builtins.Raise, builtins.Setenv:
		return builtins.Name(text), true
	default:
		return "", false
	}
}
