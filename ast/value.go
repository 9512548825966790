// Package ast implements the declaration tree, compile-time value model,
// and module lifecycle described in spec.md §3 ("Declarations",
// "Expressions & Values", "Modules"). It is the data model the evaluator
// (package eval) and builtin dispatcher (package builtins) operate on.
package ast

import (
	"micc/token"
	"micc/types"
)

// Mode is the closed set of compile-time value modes spec.md §3 defines.
type Mode int

const (
	Const  Mode = iota // a folded compile-time constant
	Val                 // a runtime value already on the IR operand stack
	LValue              // a runtime, addressable designator
	Ref                 // a reference (e.g. VAR parameter binding)
	ProcV               // a procedure value (for CALL targets, PCALL, etc.)
	TypeV               // a type used as a value (e.g. argument to SIZE/CAST)
)

func (m Mode) String() string {
	switch m {
	case Const:
		return "Const"
	case Val:
		return "Val"
	case LValue:
		return "LValue"
	case Ref:
		return "Ref"
	case ProcV:
		return "Proc"
	case TypeV:
		return "Type"
	default:
		return "Mode(?)"
	}
}

// ConstKind tags which field of Const is populated.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstUInt
	ConstFloat
	ConstBool
	ConstChar
	ConstString
	ConstSet
	ConstEnum
)

// ConstPayload is the tagged scalar a Const-mode Value carries (spec.md
// §3: "Constants carry a tagged scalar").
type ConstPayload struct {
	Kind ConstKind

	Int    int64  // ConstInt
	UInt   uint64 // ConstUInt, ConstSet (bitmap)
	Float  float64
	Bool   bool
	Char   rune
	Str    string
	Enum   *types.EnumMember
}

// Value is the compile-time quadruple (mode, type, payload, lvalue-flag)
// from spec.md §3.
type Value struct {
	Mode    Mode
	Type    types.Type
	Payload ConstPayload // meaningful only when Mode == Const
	LValue  bool
	Decl    *Declaration // the declaration this value designates, if any
	Pos     token.Position
}

// IsConst reports whether v is a folded compile-time constant.
func (v *Value) IsConst() bool { return v.Mode == Const }

// Expr wraps a Value with an optional auto-cast chain, mirroring
// spec.md §4.1/§4.3's "AutoCast expression node" used by coerceTo and the
// builtin dispatcher's argument-widening step. Expr nodes, when retained at
// all, live in the per-procedure Arena drained after code generation
// (spec.md §3's "Expression nodes... live in a separate arena").
type Expr struct {
	Value    *Value
	AutoCast types.Type // non-nil: this Expr is Inner auto-cast to AutoCast
	Inner    *Expr
	Pos      token.Position
}

// NewExpr wraps a bare Value as a leaf Expr.
func NewExpr(v *Value, pos token.Position) *Expr {
	return &Expr{Value: v, Pos: pos}
}

// Type returns the effective type of the expression: the cast target if
// one was applied, otherwise the wrapped Value's type.
func (e *Expr) Type() types.Type {
	if e.AutoCast != nil {
		return e.AutoCast
	}
	return e.Value.Type
}

// WrapAutoCast returns a new Expr representing e auto-cast to t.
func WrapAutoCast(e *Expr, t types.Type) *Expr {
	return &Expr{Value: e.Value, Inner: e, AutoCast: t, Pos: e.Pos}
}
