package parser

import (
	"strconv"

	"micc/ast"
	"micc/builtins"
	"micc/diag"
	"micc/eval"
	"micc/token"
	"micc/types"
)

// stmtSeqEnd is the set of tokens that legally end a statement sequence
// without a trailing terminator statement of their own.
var stmtSeqEnd = []token.Kind{
	token.END, token.ELSE, token.ELSIF, token.CASE, token.DEFAULT,
	token.CATCH, token.FINALLY, token.EOF,
}

func (p *Parser) atStmtSeqEnd() bool {
	for _, k := range stmtSeqEnd {
		if p.tok.Kind == k {
			return true
		}
	}
	return false
}

// parseStmtSeq parses zero or more `;`-separated statements, stopping at
// whichever block terminator the caller is nested in.
func (p *Parser) parseStmtSeq() {
	for !p.atStmtSeqEnd() {
		p.parseStmt()
		if !p.accept(token.SEMI) {
			break
		}
	}
}

func (p *Parser) parseStmt() {
	switch p.tok.Kind {
	case token.IDENT:
		p.parseIdentOrLabelStmt()
	case token.IF:
		p.parseIfStmt()
	case token.WHILE:
		p.parseWhileStmt()
	case token.LOOP:
		p.parseLoopStmt()
	case token.EXIT:
		p.parseExitStmt()
	case token.SWITCH:
		p.parseSwitchStmt()
	case token.GOTO:
		p.parseGotoStmt()
	case token.RETURN:
		p.parseReturnStmt()
	case token.RAISE:
		p.parseRaiseStmt()
	case token.TRY:
		p.parseTryStmt()
	default:
		if p.atStmtSeqEnd() {
			return
		}
		p.sink.Errorf(diag.Syn, p.tok.Pos, "expected a statement, got %s", p.tok.Kind)
		p.sync(token.SEMI, token.END)
	}
}

// parseIdentOrLabelStmt disambiguates `name: stmt` (a label definition,
// spec.md §4.5's goto target) from a call statement or an assignment,
// using one token of lookahead past the identifier.
func (p *Parser) parseIdentOrLabelStmt() {
	tok := p.tok
	if p.peek().Kind == token.COLON {
		p.advance() // name
		p.advance() // ':'
		p.labels[tok.Value] = labelInfo{depth: p.blockDepth, pos: tok.Pos}
		p.emit.Label(tok.Value)
		if !p.atStmtSeqEnd() && p.tok.Kind != token.SEMI {
			p.parseStmt()
		}
		return
	}

	if _, ok := p.tryParseCall(tok); ok {
		return
	}

	p.advance()
	store, typ := p.assignDesignator(tok)
	p.expect(token.ASSIGN)
	rhs := p.parseExpr()
	if !eval.Assignable(typ, rhs) {
		p.sink.Errorf(diag.Type, tok.Pos, "cannot assign %s to %s", rhs.Type, typ)
	}
	store(rhs)
}

func (p *Parser) parseIfStmt() {
	p.expect(token.IF)
	p.emitCondition(p.parseExpr())
	p.emit.If()
	p.expect(token.THEN)
	p.emit.Then()
	p.blockDepth++
	p.parseStmtSeq()
	p.blockDepth--

	elsifOpens := 0
	for p.accept(token.ELSIF) {
		p.emit.Else()
		p.emitCondition(p.parseExpr())
		p.emit.If()
		p.expect(token.THEN)
		p.emit.Then()
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
		elsifOpens++
	}

	if p.accept(token.ELSE) {
		p.emit.Else()
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
	}

	for i := 0; i < elsifOpens; i++ {
		p.emit.EndIf()
	}
	p.expect(token.END)
	p.emit.EndIf()
}

// emitCondition coerces v to Bool and pushes it, the shape both IF and
// WHILE need before opening their structured block.
func (p *Parser) emitCondition(v *ast.Value) {
	p.ev.PushMilStack(p.ev.CoerceTo(v, p.reg.Basic(types.Bool)))
}

func (p *Parser) parseWhileStmt() {
	p.expect(token.WHILE)
	p.emitCondition(p.parseExpr())
	p.emit.While()
	p.expect(token.DO)
	p.emit.Do()
	p.loopDepth++
	p.blockDepth++
	p.parseStmtSeq()
	p.blockDepth--
	p.loopDepth--
	p.expect(token.END)
	p.emit.EndWhile()
}

func (p *Parser) parseLoopStmt() {
	p.expect(token.LOOP)
	p.emit.Loop()
	p.loopDepth++
	p.blockDepth++
	p.parseStmtSeq()
	p.blockDepth--
	p.loopDepth--
	p.expect(token.END)
	p.emit.EndLoop()
}

func (p *Parser) parseExitStmt() {
	pos := p.tok.Pos
	p.expect(token.EXIT)
	if p.loopDepth == 0 {
		p.sink.Errorf(diag.Syn, pos, "EXIT is only legal inside a LOOP or WHILE")
		return
	}
	p.emit.Exit()
}

// parseSwitchStmt parses `SWITCH expr CASE label{,label}[..label]: stmts
// {CASE ...} [DEFAULT: stmts] END`. A CASE arm may name several discrete
// labels or one `lo..hi` range (SPEC_FULL.md's range-label supplement);
// each becomes its own Case marker sharing the arm's body.
func (p *Parser) parseSwitchStmt() {
	p.expect(token.SWITCH)
	subj := p.parseExpr()
	p.ev.PushMilStack(subj)
	p.emit.Switch()

	for p.accept(token.CASE) {
		for {
			p.emit.Case(p.parseCaseLabel())
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.COLON)
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
	}

	if p.accept(token.DEFAULT) {
		p.expect(token.COLON)
		p.emit.Default()
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
	}

	p.expect(token.END)
	p.emit.EndSwitch()
}

func (p *Parser) parseCaseLabel() string {
	lo := p.parseExpr()
	label := constLabelText(lo)
	if p.accept(token.DOTDOT) {
		hi := p.parseExpr()
		label += ".." + constLabelText(hi)
	}
	return label
}

func constLabelText(v *ast.Value) string {
	if !v.IsConst() {
		return "?"
	}
	switch v.Payload.Kind {
	case ast.ConstInt:
		return strconv.FormatInt(v.Payload.Int, 10)
	case ast.ConstUInt:
		return strconv.FormatUint(v.Payload.UInt, 10)
	case ast.ConstChar:
		return string(v.Payload.Char)
	case ast.ConstEnum:
		return v.Payload.Enum.Name
	default:
		return "?"
	}
}

func (p *Parser) parseGotoStmt() {
	pos := p.tok.Pos
	p.expect(token.GOTO)
	name := p.expect(token.IDENT).Value
	p.pendingGotos = append(p.pendingGotos, gotoRef{name: name, depth: p.blockDepth, pos: pos})
	p.emit.Goto(name)
}

// parseReturnStmt parses `RETURN [expr]`, rejecting RETURN inside an open
// FINALLY block (spec.md's exception-handling invariant: a finally handler
// must run to completion, not short-circuit its enclosing procedure).
func (p *Parser) parseReturnStmt() {
	pos := p.tok.Pos
	p.expect(token.RETURN)
	if p.finallyDepth > 0 {
		p.sink.Errorf(diag.Syn, pos, "RETURN is not legal inside a FINALLY block")
	}
	hasValue := !p.atStmtSeqEnd() && p.tok.Kind != token.SEMI
	if hasValue {
		v := p.parseExpr()
		target := v.Type
		if p.curProc != nil {
			if sig, ok := p.curProc.Type.(*types.Proc); ok {
				target = sig.Return
			}
		}
		p.ev.PushMilStack(p.ev.CoerceTo(v, target))
	}
	p.emit.Ret(hasValue)
}

// parseRaiseStmt parses `RAISE expr`, lowering through the same builtin
// RAISE(code) the parenthesised call form uses (builtins.Raise) -- RAISE is
// a reserved word here, so the identifier-call path in expr.go never sees
// it as a callable name.
func (p *Parser) parseRaiseStmt() {
	pos := p.tok.Pos
	p.expect(token.RAISE)
	v := p.parseExpr()
	p.bi.Dispatch(builtins.Raise, []*ast.Value{v}, pos)
}

func (p *Parser) parseTryStmt() {
	p.expect(token.TRY)
	p.emit.Try()
	p.blockDepth++
	p.parseStmtSeq()
	p.blockDepth--

	for p.accept(token.CATCH) {
		p.emit.Catch()
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
	}

	if p.accept(token.FINALLY) {
		p.emit.Finally()
		p.finallyDepth++
		p.blockDepth++
		p.parseStmtSeq()
		p.blockDepth--
		p.finallyDepth--
	}

	p.expect(token.END)
	p.emit.EndTry()
}
