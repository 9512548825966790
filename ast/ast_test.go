package ast_test

import (
	"testing"

	"micc/ast"
	"micc/token"
	"micc/types"
)

func TestScopeDefineDuplicateReportsAtSecondDefinition(t *testing.T) {
	tab := token.NewTable()
	a := &ast.Arena{}
	scope := ast.NewScope(nil, nil)

	name := tab.Intern("x")
	first := a.NewDeclaration(ast.DVarDecl, name, token.Position{Line: 1})
	second := a.NewDeclaration(ast.DVarDecl, name, token.Position{Line: 2})

	if err := scope.Define(first); err != nil {
		t.Fatalf("first definition must succeed: %v", err)
	}
	err := scope.Define(second)
	if err == nil {
		t.Fatal("expected duplicate-name error on second definition")
	}
	dup, ok := err.(*ast.DuplicateNameError)
	if !ok {
		t.Fatalf("expected *DuplicateNameError, got %T", err)
	}
	if dup.Previous.Line != 1 {
		t.Errorf("expected error to reference the first definition's position")
	}
}

func TestScopeFindByNameSatisfiesP2(t *testing.T) {
	tab := token.NewTable()
	a := &ast.Arena{}
	outer := ast.NewScope(nil, nil)
	inner := ast.NewScope(outer, nil)

	outerDecl := a.NewDeclaration(ast.DConstDecl, tab.Intern("c"), token.Position{})
	if err := outer.Define(outerDecl); err != nil {
		t.Fatal(err)
	}
	innerDecl := a.NewDeclaration(ast.DVarDecl, tab.Intern("v"), token.Position{})
	if err := inner.Define(innerDecl); err != nil {
		t.Fatal(err)
	}

	if got, ok := inner.FindByName("c"); !ok || got != outerDecl {
		t.Error("inner scope must see outer declarations")
	}
	if got, ok := inner.FindByName("v"); !ok || got != innerDecl {
		t.Error("scope.FindByName(d.Name) must return d")
	}
	if _, ok := outer.FindByName("v"); ok {
		t.Error("outer scope must not see inner declarations")
	}
}

func TestLocalIDsStableWithinProcedure(t *testing.T) {
	tab := token.NewTable()
	a := &ast.Arena{}
	proc := a.NewDeclaration(ast.DProcedure, tab.Intern("f"), token.Position{})

	p1 := a.NewDeclaration(ast.DParamDecl, tab.Intern("a"), token.Position{})
	p1.LocalID = proc.Locals.Next()
	p2 := a.NewDeclaration(ast.DLocalDecl, tab.Intern("b"), token.Position{})
	p2.LocalID = proc.Locals.Next()

	if p1.LocalID == p2.LocalID {
		t.Fatal("distinct locals must receive distinct stable IDs")
	}
	if p1.LocalID != 0 || p2.LocalID != 1 {
		t.Errorf("expected sequential IDs 0,1; got %d,%d", p1.LocalID, p2.LocalID)
	}
}

func TestImportSpecEqualityStructural(t *testing.T) {
	reg := types.NewRegistry()
	a := ast.ImportSpec{Path: "Foo.Bar", MetaActuals: []*ast.Value{
		{Mode: ast.Const, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: 4}},
	}}
	b := ast.ImportSpec{Path: "Foo.Bar", MetaActuals: []*ast.Value{
		{Mode: ast.Const, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: 4}},
	}}
	if !a.Equal(b) {
		t.Fatal("identical path + identical meta-actual tuple must be equal")
	}

	c := ast.ImportSpec{Path: "Foo.Bar", MetaActuals: []*ast.Value{
		{Mode: ast.Const, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: 8}},
	}}
	if a.Equal(c) {
		t.Fatal("different meta-actuals must yield distinct import specs")
	}

	d := ast.ImportSpec{Path: "Foo.Bar", MetaActuals: []*ast.Value{
		{Mode: ast.TypeV, Type: reg.Basic(types.Int32)},
	}}
	e := ast.ImportSpec{Path: "Foo.Bar", MetaActuals: []*ast.Value{
		{Mode: ast.TypeV, Type: reg.Basic(types.Int64)},
	}}
	if d.Equal(e) {
		t.Fatal("different type actuals must yield distinct import specs")
	}
}

func TestQualifiedName(t *testing.T) {
	tab := token.NewTable()
	a := &ast.Arena{}
	mod := a.NewDeclaration(ast.DModule, tab.Intern("M"), token.Position{})
	proc := a.NewDeclaration(ast.DProcedure, tab.Intern("f"), token.Position{})
	proc.Outer = mod
	local := a.NewDeclaration(ast.DLocalDecl, tab.Intern("x"), token.Position{})
	local.Outer = proc

	if got := local.QualifiedName(); got != "f.x" {
		t.Errorf("expected qualified name f.x, got %q", got)
	}
}
