package parser

import (
	"micc/ast"
	"micc/diag"
	"micc/token"
	"micc/types"
)

// basicTypeNames maps the M spellings of the basic kinds (spec.md §3) to
// their types.Kind. These are ordinary identifiers, not keywords -- M
// reserves no keyword for any basic type name.
var basicTypeNames = map[string]types.Kind{
	"ANY": types.Any, "BOOL": types.Bool, "CHAR": types.Char,
	"INT8": types.Int8, "INT16": types.Int16, "INT32": types.Int32, "INT64": types.Int64,
	"UINT8": types.Uint8, "UINT16": types.Uint16, "UINT32": types.Uint32, "UINT64": types.Uint64,
	"FLOAT32": types.Float32, "FLOAT64": types.Float64,
	"INTPTR": types.IntPtr, "DBLINTPTR": types.DblIntPtr,
}

// startsType reports whether the current token can begin a type
// expression, used by meta-actual parsing to tell a type actual apart
// from a constant-expression actual.
func (p *Parser) startsType() bool {
	switch p.tok.Kind {
	case token.RECORD, token.OBJECT, token.UNION, token.POINTER, token.ARRAY, token.CONSTENUM:
		return true
	case token.IDENT:
		if _, ok := basicTypeNames[p.tok.Value]; ok {
			return true
		}
		if d, ok := p.scope.FindByName(p.tok.Value); ok && d.Kind == ast.DTypeDecl {
			return true
		}
		return false
	default:
		return false
	}
}

// parseType parses one type expression: a basic-type name, a named-type
// reference (possibly forward, registered on the current deferred list),
// or a compound type constructor.
func (p *Parser) parseType() types.Type {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.POINTER:
		p.advance()
		p.expect(token.TO)
		base := p.parseType()
		return p.reg.NewPointer(base)

	case token.ARRAY:
		p.advance()
		length := 0
		if p.at(token.INTLIT) {
			n, err := ParseIntText(p.tok.Value)
			if err != nil {
				p.sink.Errorf(diag.Lex, p.tok.Pos, "malformed array length: %s", err)
			}
			length = int(n)
			p.advance()
		}
		p.expect(token.OF)
		elem := p.parseType()
		return p.reg.NewArray(elem, length)

	case token.RECORD:
		p.advance()
		fields := p.parseFieldList()
		p.expect(token.END)
		return p.reg.NewRecord(fields)

	case token.OBJECT:
		p.advance()
		fields := p.parseFieldList()
		p.expect(token.END)
		return p.reg.NewObject(fields, nil)

	case token.UNION:
		p.advance()
		members := p.parseFieldList()
		p.expect(token.END)
		return p.reg.NewUnion(members)

	case token.CONSTENUM:
		p.advance()
		return p.parseConstEnum()

	case token.IDENT:
		if kind, ok := basicTypeNames[p.tok.Value]; ok {
			p.advance()
			return p.reg.Basic(kind)
		}
		name := p.parseDottedPath()
		if d, ok := p.scope.FindByName(name); ok && d.Kind == ast.DTypeDecl {
			return d.Type
		}
		nr := p.reg.NewNameRef(name)
		p.deferNameRef(nr)
		return nr

	default:
		p.sink.Errorf(diag.Syn, pos, "expected a type, got %s", p.tok.Kind)
		return p.reg.Basic(types.NoType)
	}
}

func (p *Parser) parseFieldList() []*types.Field {
	var fields []*types.Field
	for p.at(token.IDENT) {
		var names []string
		for {
			names = append(names, p.tok.Value)
			p.advance()
			if !p.accept(token.COMMA) {
				break
			}
		}
		vis := p.visibilityOf()
		p.expect(token.COLON)
		t := p.parseType()
		for _, n := range names {
			fields = append(fields, &types.Field{Name: n, Type: t, Visibility: vis})
		}
		if !p.accept(token.SEMI) {
			break
		}
	}
	return fields
}

// parseConstEnum parses `CONSTENUM name [= expr] [, name [= expr]]* END`,
// auto-incrementing from the previous member's value (or 0) when no
// explicit value is given.
func (p *Parser) parseConstEnum() *types.ConstEnum {
	var members []*types.EnumMember
	next := int64(0)
	for p.at(token.IDENT) {
		name := p.tok.Value
		p.advance()
		if p.accept(token.EQ) {
			v := p.parseExpr()
			if v.IsConst() {
				next = v.Payload.Int
			}
		}
		members = append(members, &types.EnumMember{Name: name, Value: next})
		next++
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.END)
	return p.reg.NewConstEnum(members)
}
