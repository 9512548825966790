package parser

import (
	"micc/ast"
	"micc/diag"
	"micc/token"
	"micc/types"
)

// parseProcedure parses `PROCEDURE name(params)[: ret]; [FORWARD;] |
// decls BEGIN stmts END name;`, handling forward-declaration completion
// per spec.md §3 ("A Procedure may be forward, in which case another
// Procedure in the same module must later complete it; signatures must
// match exactly at link time").
func (p *Parser) parseProcedure(outer *ast.Declaration) {
	pos := p.tok.Pos
	p.expect(token.PROCEDURE)
	nameTok := p.expect(token.IDENT)
	vis := p.visibilityOf()

	params, variadic := p.parseParamList()
	var ret types.Type = p.reg.Basic(types.NoType)
	if p.accept(token.COLON) {
		ret = p.parseType()
	}
	p.expect(token.SEMI)

	sig := p.reg.NewProc(params, ret, variadic)

	name := p.intern(nameTok.Value)
	existing, hasExisting := p.scope.FindLocal(name.String())

	var d *ast.Declaration
	if hasExisting && existing.Kind == ast.DProcedure && existing.Forward && !existing.Defined {
		if !procSignaturesMatch(existing.Type.(*types.Proc), sig) {
			p.sink.Errorf(diag.Fwd, pos, "procedure %q does not match its forward declaration", name)
		}
		d = existing
		sig = existing.Type.(*types.Proc)
	} else {
		d = p.arena.NewDeclaration(ast.DProcedure, name, pos)
		d.Visibility = vis
		d.Type = sig
		if err := p.scope.Define(d); err != nil {
			p.sink.Errorf(diag.Scope, pos, "%s", err)
		}
	}
	sig.SetOwner(d)
	p.checkVisibility(d, sig, pos)

	if p.accept(token.FORWARD) {
		p.expect(token.SEMI)
		d.Forward = true
		return
	}

	d.Scope = ast.NewScope(p.scope, d)
	d.Locals = &ast.IDAllocator{}
	p.bindParams(d, params)

	prevScope, prevProc, prevLocals := p.scope, p.curProc, p.locals
	p.scope, p.curProc, p.locals = d.Scope, d, d.Locals
	prevLabels, prevGotos := p.labels, p.pendingGotos
	p.labels, p.pendingGotos = map[string]labelInfo{}, nil

	p.bi.CurrentProc = sig
	if variadic {
		p.bi.VarargsArgSlot = d.Locals.Next()
		p.bi.VarargsCountSlot = d.Locals.Next()
	}

	p.emit.BeginProcedure(d.QualifiedName(), signatureString(sig))
	p.pushDeferred()
	p.parseDeclSeq(d)
	p.resolveDeferred(pos)

	if p.accept(token.BEGIN) {
		p.parseStmtSeq()
	}
	p.emit.EndProcedure()
	p.checkGotos()
	d.Defined = true

	p.expect(token.END)
	p.expect(token.IDENT)
	p.expect(token.SEMI)

	p.scope, p.curProc, p.locals = prevScope, prevProc, prevLocals
	p.labels, p.pendingGotos = prevLabels, prevGotos
	p.bi.CurrentProc = nil
}

func signatureString(sig *types.Proc) string {
	s := "("
	for i, prm := range sig.Params {
		if i > 0 {
			s += ", "
		}
		s += prm.Type.String()
	}
	s += ")"
	if sig.Return.Kind() != types.NoType {
		s += ": " + sig.Return.String()
	}
	return s
}

func procSignaturesMatch(a, b *types.Proc) bool {
	if !types.Identical(a.Return, b.Return) || len(a.Params) != len(b.Params) || a.Variadic != b.Variadic {
		return false
	}
	for i := range a.Params {
		if !types.Identical(a.Params[i].Type, b.Params[i].Type) || a.Params[i].Mode != b.Params[i].Mode {
			return false
		}
	}
	return true
}

// parseParamList parses `(name, name: T; VAR name: T; ..)`, where a bare
// trailing `..` marks the procedure variadic (spec.md §3 supplement:
// "trailing `..` parameter, enables VARARG/VARARGS").
func (p *Parser) parseParamList() ([]*types.Param, bool) {
	p.expect(token.LPAREN)
	var params []*types.Param
	variadic := false
	for !p.at(token.RPAREN) {
		if p.accept(token.DOTDOT) {
			variadic = true
			break
		}
		mode := types.ParamByValue
		if p.accept(token.VAR) {
			mode = types.ParamByRef
		}
		var names []string
		for {
			names = append(names, p.tok.Value)
			p.expect(token.IDENT)
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.COLON)
		t := p.parseType()
		for _, n := range names {
			params = append(params, &types.Param{Name: n, Type: t, Mode: mode})
		}
		if !p.accept(token.SEMI) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params, variadic
}

// bindParams creates a DParamDecl for each formal parameter, scoped to
// the procedure's own scope and assigned a stable D3 local ID.
func (p *Parser) bindParams(d *ast.Declaration, params []*types.Param) {
	for _, prm := range params {
		pd := p.arena.NewDeclaration(ast.DParamDecl, p.intern(prm.Name), d.Pos)
		pd.Type = prm.Type
		pd.ParamMode = prm.Mode
		pd.LocalID = d.Locals.Next()
		if err := d.Scope.Define(pd); err != nil {
			p.sink.Errorf(diag.Scope, d.Pos, "%s", err)
		}
	}
}

// checkGotos validates every goto recorded during the just-parsed
// procedure body against spec.md §4.5's rule: "a forward goto is legal
// only to a label in an ancestor or equal depth in the same procedure".
func (p *Parser) checkGotos() {
	for _, g := range p.pendingGotos {
		lbl, ok := p.labels[g.name]
		if !ok {
			p.sink.Errorf(diag.Syn, g.pos, "goto target %q is not defined in this procedure", g.name)
			continue
		}
		if lbl.depth > g.depth {
			p.sink.Errorf(diag.Syn, g.pos, "goto target %q is at a deeper block than the goto", g.name)
		}
	}
}
