package parser

import (
	"micc/ast"
	"micc/diag"
	"micc/mil"
	"micc/token"
	"micc/types"
)

// designator is the parser's working state for one IDENT-rooted lvalue
// chain (`name`, `name.field`, `name[expr]`, `name^`, `name->field`, and
// combinations). Every step but the last is loaded eagerly as it is
// parsed, matching the container-then-op pattern package builtins already
// uses for INC/DEC/NEW's own lvalue arguments; only the terminal Ld/St
// choice is deferred until the caller knows whether the designator is
// being read or assigned.
type designator struct {
	decl     *ast.Declaration // base declaration; nil if base is not assignable (e.g. a constant)
	typ      types.Type       // resolved type after all steps
	loaded   bool             // true once the base has been pushed onto the IR stack
	lastKind dstepKind
	lastName string // dstepField
	lastElem mil.Width
}

type dstepKind int

const (
	dstepNone dstepKind = iota
	dstepField
	dstepIndex
	dstepDeref
)

// findFieldType looks up a member by name on a Record/Object/Union type.
func findFieldType(t types.Type, name string) (types.Type, bool) {
	switch u := types.Underlying(t).(type) {
	case *types.Record:
		for _, f := range u.Fields {
			if f.Name == name {
				return f.Type, true
			}
		}
	case *types.Object:
		for _, f := range u.Fields {
			if f.Name == name {
				return f.Type, true
			}
		}
	case *types.Union:
		for _, f := range u.Members {
			if f.Name == name {
				return f.Type, true
			}
		}
	}
	return nil, false
}

// resolveBase looks up name in scope, reporting an undeclared-identifier
// diagnostic and returning a NoType placeholder decl-less designator on
// failure.
func (p *Parser) resolveBase(name string, pos token.Position) *designator {
	d, ok := p.scope.FindByName(name)
	if !ok {
		p.sink.Errorf(diag.Scope, pos, "%q is not declared", name)
		return &designator{typ: p.reg.Basic(types.NoType)}
	}
	switch d.Kind {
	case ast.DConstDecl:
		return &designator{typ: d.Type}
	case ast.DVarDecl, ast.DLocalDecl, ast.DParamDecl:
		return &designator{decl: d, typ: d.Type}
	default:
		p.sink.Errorf(diag.Scope, pos, "%q does not name a value", name)
		return &designator{typ: p.reg.Basic(types.NoType)}
	}
}

// loadBase emits the base's Ld opcode the first time the designator needs
// its value on the IR stack (as either the final read or as the container
// for a following postfix step).
func (p *Parser) loadBase(d *designator) {
	if d.loaded || d.decl == nil {
		return
	}
	switch d.decl.Kind {
	case ast.DParamDecl:
		p.emit.LdArg(d.decl.LocalID)
	case ast.DLocalDecl:
		p.emit.LdLoc(d.decl.LocalID)
	case ast.DVarDecl:
		p.emit.LdVar(d.decl.QualifiedName())
	}
	d.loaded = true
}

// applyStep folds the designator's currently-pending step into a container
// load (emitting its read opcode) and installs step as the new pending
// step, so only the very last step is ever left un-applied.
func (p *Parser) applyStep(d *designator, kind dstepKind, name string, elem mil.Width) {
	p.loadBase(d)
	p.finishRead(d)
	d.lastKind = kind
	d.lastName = name
	d.lastElem = elem
}

// finishRead emits the pending step's Ld opcode, collapsing it into the
// loaded container value.
func (p *Parser) finishRead(d *designator) {
	switch d.lastKind {
	case dstepField:
		p.emit.LdFld(d.lastName)
	case dstepIndex:
		p.emit.LdElem(d.lastElem)
	case dstepDeref:
		p.emit.LdInd(d.lastElem)
	}
	d.lastKind = dstepNone
}

// parseDesignator parses one IDENT and its postfix chain. base is the
// already-consumed identifier token.
func (p *Parser) parseDesignator(base token.Token) *ast.Value {
	if cd, ok := p.scope.FindByName(base.Value); ok && cd.Kind == ast.DConstDecl {
		v := *cd.ConstValue
		v.Pos = base.Pos
		return &v
	}
	d := p.resolveBase(base.Value, base.Pos)

	for {
		switch p.tok.Kind {
		case token.DOT:
			p.advance()
			fieldTok := p.expect(token.IDENT)
			ft, ok := findFieldType(d.typ, fieldTok.Value)
			if !ok {
				p.sink.Errorf(diag.Type, fieldTok.Pos, "no field %q on %s", fieldTok.Value, d.typ)
				ft = p.reg.Basic(types.NoType)
			}
			p.applyStep(d, dstepField, fieldTok.Value, 0)
			d.typ = ft

		case token.LBRACK:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACK)
			arr, ok := types.ArrayOf(d.typ)
			var elemT types.Type = p.reg.Basic(types.NoType)
			if ok {
				elemT = arr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot index non-array type %s", d.typ)
			}
			p.loadBase(d)
			p.finishRead(d)
			p.PushMilStackFor(idx)
			d.lastKind = dstepIndex
			d.lastElem = milElemWidth(elemT)
			d.typ = elemT

		case token.CARET:
			p.advance()
			ptr, ok := d.typ.(*types.Pointer)
			var elemT types.Type = p.reg.Basic(types.NoType)
			if ok {
				elemT = ptr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot dereference non-pointer type %s", d.typ)
			}
			p.applyStep(d, dstepDeref, "", milElemWidth(elemT))
			d.typ = elemT

		case token.ARROW:
			p.advance()
			ptr, ok := d.typ.(*types.Pointer)
			var pointee types.Type = p.reg.Basic(types.NoType)
			if ok {
				pointee = ptr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot dereference non-pointer type %s", d.typ)
			}
			p.applyStep(d, dstepDeref, "", milElemWidth(pointee))
			fieldTok := p.expect(token.IDENT)
			ft, ok2 := findFieldType(pointee, fieldTok.Value)
			if !ok2 {
				p.sink.Errorf(diag.Type, fieldTok.Pos, "no field %q on %s", fieldTok.Value, pointee)
				ft = p.reg.Basic(types.NoType)
			}
			p.applyStep(d, dstepField, fieldTok.Value, 0)
			d.typ = ft

		default:
			return p.finishDesignatorRead(d)
		}
	}
}

// PushMilStackFor materialises v onto the IR stack if it is not already
// there (thin wrapper so designator.go doesn't need eval's unexported
// stack).
func (p *Parser) PushMilStackFor(v *ast.Value) { p.ev.PushMilStack(v) }

func (p *Parser) finishDesignatorRead(d *designator) *ast.Value {
	if d.decl == nil {
		// a bare constant already returned above; a NoType placeholder
		// falls through here for a prior lookup failure.
		return &ast.Value{Mode: ast.Val, Type: d.typ}
	}
	p.loadBase(d)
	p.finishRead(d)
	return &ast.Value{Mode: ast.Val, Type: d.typ, Decl: d.decl, LValue: true}
}

// assignDesignator parses one assignment target and returns a closure that
// stores rhs into it once rhs has been fully evaluated (spec.md §4.5's
// assignment statement: target, then `:=`, then the source expression).
func (p *Parser) assignDesignator(base token.Token) (store func(rhs *ast.Value), typ types.Type) {
	d := p.resolveBase(base.Value, base.Pos)
	if d.decl == nil {
		p.sink.Errorf(diag.Type, base.Pos, "%q is not assignable", base.Value)
		return func(*ast.Value) {}, p.reg.Basic(types.NoType)
	}

	for {
		switch p.tok.Kind {
		case token.DOT:
			p.advance()
			fieldTok := p.expect(token.IDENT)
			ft, ok := findFieldType(d.typ, fieldTok.Value)
			if !ok {
				p.sink.Errorf(diag.Type, fieldTok.Pos, "no field %q on %s", fieldTok.Value, d.typ)
				ft = p.reg.Basic(types.NoType)
			}
			p.applyStep(d, dstepField, fieldTok.Value, 0)
			d.typ = ft
			continue

		case token.LBRACK:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACK)
			arr, ok := types.ArrayOf(d.typ)
			var elemT types.Type = p.reg.Basic(types.NoType)
			if ok {
				elemT = arr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot index non-array type %s", d.typ)
			}
			p.loadBase(d)
			p.finishRead(d)
			p.PushMilStackFor(idx)
			d.lastKind = dstepIndex
			d.lastElem = milElemWidth(elemT)
			d.typ = elemT
			continue

		case token.CARET:
			p.advance()
			ptr, ok := d.typ.(*types.Pointer)
			var elemT types.Type = p.reg.Basic(types.NoType)
			if ok {
				elemT = ptr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot dereference non-pointer type %s", d.typ)
			}
			p.applyStep(d, dstepDeref, "", milElemWidth(elemT))
			d.typ = elemT
			continue

		case token.ARROW:
			p.advance()
			ptr, ok := d.typ.(*types.Pointer)
			var pointee types.Type = p.reg.Basic(types.NoType)
			if ok {
				pointee = ptr.Elem
			} else {
				p.sink.Errorf(diag.Type, base.Pos, "cannot dereference non-pointer type %s", d.typ)
			}
			p.applyStep(d, dstepDeref, "", milElemWidth(pointee))
			fieldTok := p.expect(token.IDENT)
			ft, ok2 := findFieldType(pointee, fieldTok.Value)
			if !ok2 {
				p.sink.Errorf(diag.Type, fieldTok.Pos, "no field %q on %s", fieldTok.Value, pointee)
				ft = p.reg.Basic(types.NoType)
			}
			p.applyStep(d, dstepField, fieldTok.Value, 0)
			d.typ = ft
			continue
		}
		break
	}

	finalTyp := d.typ
	finalKind, finalName, finalElem := d.lastKind, d.lastName, d.lastElem
	baseDecl := d.decl
	needsContainer := finalKind != dstepNone
	if needsContainer {
		p.loadBase(d)
	}

	return func(rhs *ast.Value) {
		p.PushMilStackFor(p.ev.CoerceTo(rhs, finalTyp))
		switch finalKind {
		case dstepField:
			p.emit.StFld(finalName)
		case dstepIndex:
			p.emit.StElem(finalElem)
		case dstepDeref:
			p.emit.StInd(finalElem)
		default:
			switch baseDecl.Kind {
			case ast.DParamDecl:
				p.emit.StArg(baseDecl.LocalID)
			case ast.DLocalDecl:
				p.emit.StLoc(baseDecl.LocalID)
			case ast.DVarDecl:
				p.emit.StVar(baseDecl.QualifiedName())
			}
		}
	}, finalTyp
}

// parseLvalueArg parses a builtin call argument in an lvalue position
// (spec.md §4.4's RequiresLvalue table: NEW/INC/DEC/INCL/EXCL/PCALL). These
// never take a chain -- package builtins' emitLoad/emitStore/emitLoadAddr
// only know how to address a plain Var/Local/Param declaration -- so no
// postfix is accepted here, and no load is emitted; the builtin itself
// loads and stores (directly, or via an address for INC/DEC/INCL/EXCL)
// through Decl.
func (p *Parser) parseLvalueArg() *ast.Value {
	tok := p.expect(token.IDENT)
	d, ok := p.scope.FindByName(tok.Value)
	if !ok || (d.Kind != ast.DVarDecl && d.Kind != ast.DLocalDecl && d.Kind != ast.DParamDecl) {
		p.sink.Errorf(diag.Type, tok.Pos, "%q is not an assignable value", tok.Value)
		return &ast.Value{Mode: ast.Val, Type: p.reg.Basic(types.NoType), Pos: tok.Pos}
	}
	return &ast.Value{Mode: ast.LValue, Type: d.Type, Decl: d, Pos: tok.Pos}
}

// milElemWidth is milWidth's parser-side counterpart for element/pointee
// types that may be NoType (an already-reported error) or a compound type
// with no scalar width, in which case the width argument is meaningless
// and WIntPtr is used as a stand-in.
func milElemWidth(t types.Type) mil.Width {
	switch types.Underlying(t).Kind() {
	case types.Int8:
		return mil.I1
	case types.Int16:
		return mil.I2
	case types.Int32:
		return mil.I4
	case types.Int64:
		return mil.I8
	case types.Uint8, types.Bool, types.Char:
		return mil.U1
	case types.Uint16:
		return mil.U2
	case types.Uint32:
		return mil.U4
	case types.Uint64:
		return mil.U8
	case types.Float32:
		return mil.R4
	case types.Float64:
		return mil.R8
	default:
		return mil.WIntPtr
	}
}
