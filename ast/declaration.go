package ast

import (
	"fmt"

	"micc/token"
	"micc/types"
)

// DeclKind is the closed set of declaration kinds spec.md §3 defines.
type DeclKind int

const (
	DModule DeclKind = iota
	DTypeDecl
	DConstDecl
	DImport
	DField
	DVarDecl
	DLocalDecl
	DParamDecl
	DProcedure
)

func (k DeclKind) String() string {
	return [...]string{
		"Module", "TypeDecl", "ConstDecl", "Import", "Field", "VarDecl",
		"LocalDecl", "ParamDecl", "Procedure",
	}[k]
}

// Declaration is one node of the declaration tree: modules contain types,
// constants, variables, procedures; records contain fields; procedures
// contain parameters and locals (spec.md §3).
type Declaration struct {
	Kind       DeclKind
	Name       *token.Symbol
	Visibility types.Visibility
	Type       types.Type
	Outer      *Declaration
	Pos        token.Position

	// Scope is non-nil for declarations that introduce a scope of their own
	// (Module, Procedure). Other declarations rely on Outer.Scope.
	Scope *Scope

	// Extra, kind-specific data.
	ConstValue *Value       // DConstDecl
	ImportSpec *ImportSpec  // DImport
	LocalID    int          // DVarDecl/DLocalDecl/DParamDecl: stable ID (D3)
	ParamMode  types.ParamMode // DParamDecl

	Forward   bool         // DProcedure: declared `FORWARD`
	Completes *Declaration // DProcedure: the forward decl this one completes, if any
	Defined   bool         // DProcedure: a body has been emitted for it
	Locals    *IDAllocator // DProcedure: D3 stable-ID allocator for its params/locals
}

// QualifiedName returns "Outer.Outer.Name" up to (but not including) the
// enclosing module, matching the dotted-path convention import specs use.
func (d *Declaration) QualifiedName() string {
	if d.Outer == nil || d.Outer.Kind == DModule {
		return d.Name.String()
	}
	return d.Outer.QualifiedName() + "." + d.Name.String()
}

// DuplicateNameError reports a D1 violation: two sibling declarations
// sharing a name in the same scope.
type DuplicateNameError struct {
	Name     string
	Pos      token.Position
	Previous token.Position
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%q already declared (previous declaration at %s)", e.Name, e.Previous)
}

// VisibilityError reports a D2 violation: a public declaration's type
// refers to a type that is not at least as visible.
type VisibilityError struct {
	Name string
	Pos  token.Position
}

func (e *VisibilityError) Error() string {
	return fmt.Sprintf("public declaration %q refers to a private type", e.Name)
}

// Scope implements the scope-chain half of the declaration tree: a map of
// locally-visible names plus a link to the enclosing scope. findByName
// walks outward, satisfying P2 (scope.findByName(d.name) == d for every d
// defined directly in scope, and for every visible outer declaration).
type Scope struct {
	Outer *Scope
	Owner *Declaration
	names map[string]*Declaration
}

// NewScope creates a scope nested inside outer (outer may be nil for the
// top-level module scope) and owned by owner (may be nil for transient
// scopes such as a statement block -- spec.md's Declaration tree only
// names Module/Procedure/record-body scopes explicitly, but nested blocks
// reuse the same mechanism).
func NewScope(outer *Scope, owner *Declaration) *Scope {
	return &Scope{Outer: outer, Owner: owner, names: make(map[string]*Declaration)}
}

// Define enters d into s under d.Name, enforcing D1: a duplicate is
// reported at the point of the second definition and the first definition
// is left in place (the caller gets the error, not a parser panic, so
// sibling declarations keep being processed per spec.md §7's accumulation
// policy).
func (s *Scope) Define(d *Declaration) error {
	key := d.Name.String()
	if prev, ok := s.names[key]; ok {
		return &DuplicateNameError{Name: key, Pos: d.Pos, Previous: prev.Pos}
	}
	s.names[key] = d
	d.Outer = s.Owner
	return nil
}

// FindLocal looks up name in this scope only, without walking Outer.
func (s *Scope) FindLocal(name string) (*Declaration, bool) {
	d, ok := s.names[name]
	return d, ok
}

// FindByName walks the scope chain outward, implementing P2's lookup
// contract and the shadowing rule implicit in spec.md's scope-chain field.
func (s *Scope) FindByName(name string) (*Declaration, bool) {
	for sc := s; sc != nil; sc = sc.Outer {
		if d, ok := sc.names[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// All returns every declaration defined directly in this scope, in
// insertion-independent (map) order -- callers that need deterministic
// order (e.g. the emitter assigning D3 IDs) must sort by Pos or by the
// order they call Define in and track that separately.
func (s *Scope) All() []*Declaration {
	out := make([]*Declaration, 0, len(s.names))
	for _, d := range s.names {
		out = append(out, d)
	}
	return out
}
