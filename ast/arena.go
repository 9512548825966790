package ast

import "micc/token"

// Arena owns the Declaration and Expr nodes allocated while analysing one
// procedure body or module. spec.md §3 distinguishes the Declaration arena
// (freed with the rest of the compilation session) from the Expr arena
// (drained right after code generation for that body) -- Arena backs both,
// and callers choose which lifetime applies by calling Release at the
// right point.
type Arena struct {
	decls []*Declaration
	exprs []*Expr
}

// NewDeclaration allocates and position-stamps a Declaration in the arena.
func (a *Arena) NewDeclaration(kind DeclKind, name *token.Symbol, pos token.Position) *Declaration {
	d := &Declaration{Kind: kind, Name: name, Pos: pos}
	if kind == DModule || kind == DProcedure {
		d.Locals = &IDAllocator{}
	}
	a.decls = append(a.decls, d)
	return d
}

// NewExpr allocates an Expr wrapping v in the arena.
func (a *Arena) NewExpr(v *Value, pos token.Position) *Expr {
	e := NewExpr(v, pos)
	a.exprs = append(a.exprs, e)
	return e
}

// ReleaseExprs drops the arena's Expr references, matching spec.md §3's
// "Expression nodes ... live in a separate arena drained after code
// generation". Declarations are untouched -- they outlive code generation.
func (a *Arena) ReleaseExprs() {
	for i := len(a.exprs) - 1; i >= 0; i-- {
		a.exprs[i] = nil
	}
	a.exprs = a.exprs[:0]
}

// Release drops every reference the arena holds, for end-of-session
// teardown (spec.md §5).
func (a *Arena) Release() {
	a.ReleaseExprs()
	for i := len(a.decls) - 1; i >= 0; i-- {
		a.decls[i] = nil
	}
	a.decls = nil
}
