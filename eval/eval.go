package eval

import (
	"micc/ast"
	"micc/diag"
	"micc/mil"
	"micc/token"
	"micc/types"
)

// BinaryOp is the closed set of arithmetic binary operators the evaluator
// folds or emits.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
)

func (o BinaryOp) arithOp() mil.ArithOp {
	return [...]mil.ArithOp{mil.Add, mil.Sub, mil.Mul, mil.Div, mil.Rem, mil.And, mil.Or, mil.Xor}[o]
}

// ShiftKind is the closed set of shift operators.
type ShiftKind int

const (
	ShiftLeft ShiftKind = iota
	ShiftRight
	ShiftArith
)

func (o ShiftKind) shiftOp() mil.ShiftOp {
	return [...]mil.ShiftOp{mil.Shl, mil.Shr, mil.Sar}[o]
}

// RelOp is the closed set of relational operators.
type RelOp int

const (
	RelEQ RelOp = iota
	RelNE
	RelLT
	RelLE
	RelGT
	RelGE
)

// Evaluator holds the compile-time operand stack and wires folding/coercion
// decisions through to the IR emitter when an operand is not constant
// (spec.md §4.3).
type Evaluator struct {
	reg   *types.Registry
	sink  *diag.Sink
	emit  *mil.Emitter
	stack []*ast.Value
}

// New creates an Evaluator bound to a type registry, diagnostic sink, and
// emitter, all scoped to one compilation session.
func New(reg *types.Registry, sink *diag.Sink, emit *mil.Emitter) *Evaluator {
	return &Evaluator{reg: reg, sink: sink, emit: emit}
}

// Push pushes v onto the compile-time operand stack.
func (ev *Evaluator) Push(v *ast.Value) { ev.stack = append(ev.stack, v) }

// Pop pops the top of the compile-time operand stack. Aborts (INTERNAL) if
// the stack is empty -- a parser bug, never a user error.
func (ev *Evaluator) Pop() *ast.Value {
	if len(ev.stack) == 0 {
		ev.sink.Abort("evaluator stack underflow")
	}
	v := ev.stack[len(ev.stack)-1]
	ev.stack = ev.stack[:len(ev.stack)-1]
	return v
}

// Depth reports the current operand stack depth (for parser assertions and
// tests).
func (ev *Evaluator) Depth() int { return len(ev.stack) }

// ldcFor emits the literal-load opcode matching kind's IR width and value
// class.
func (ev *Evaluator) ldcFor(kind types.Kind, p ast.ConstPayload) {
	switch {
	case kindReal(kind):
		if kind == types.Float32 {
			ev.emit.LdcR4(float32(p.Float))
		} else {
			ev.emit.LdcR8(p.Float)
		}
	case kindSigned(kind):
		if widthBits(kind) <= 32 {
			ev.emit.LdcI4(int32(p.Int))
		} else {
			ev.emit.LdcI8(p.Int)
		}
	default:
		if widthBits(kind) <= 32 {
			ev.emit.LdcI4(int32(p.UInt))
		} else {
			ev.emit.LdcI8(int64(p.UInt))
		}
	}
}

// PushMilStack materialises a Const-mode Value onto the IR operand stack:
// if v is already runtime (Val/LValue/Ref), it is returned unchanged. This
// is used "right before calling a routine that only accepts runtime
// values" (spec.md §4.3).
func (ev *Evaluator) PushMilStack(v *ast.Value) *ast.Value {
	if !v.IsConst() {
		return v
	}
	ev.ldcFor(types.Underlying(v.Type).Kind(), v.Payload)
	return &ast.Value{Mode: ast.Val, Type: v.Type, Pos: v.Pos}
}

// CoerceTo converts v to targetType: folds a constant in place, or emits an
// explicit `conv` for a runtime value (spec.md §4.3's coerceTo, E2's
// explicit-conv requirement).
func (ev *Evaluator) CoerceTo(v *ast.Value, target types.Type) *ast.Value {
	if types.Identical(v.Type, target) {
		return v
	}
	if v.IsConst() {
		return &ast.Value{
			Mode:    ast.Const,
			Type:    target,
			Payload: convertConst(types.Underlying(target).Kind(), v.Payload),
			Pos:     v.Pos,
		}
	}
	ev.emit.Conv(milWidth(types.Underlying(target).Kind()))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: v.Pos}
}

// convertConst reinterprets a constant payload as targetKind, following
// the same int/uint/real conversion a `conv` opcode performs at runtime.
func convertConst(targetKind types.Kind, p ast.ConstPayload) ast.ConstPayload {
	switch {
	case kindReal(targetKind):
		var f float64
		switch p.Kind {
		case ast.ConstInt:
			f = float64(p.Int)
		case ast.ConstUInt:
			f = float64(p.UInt)
		case ast.ConstFloat:
			f = p.Float
		}
		if targetKind == types.Float32 {
			f = float64(float32(f))
		}
		return ast.ConstPayload{Kind: ast.ConstFloat, Float: f}
	case kindSigned(targetKind):
		var i int64
		switch p.Kind {
		case ast.ConstInt:
			i = p.Int
		case ast.ConstUInt:
			i = int64(p.UInt)
		case ast.ConstFloat:
			i = int64(p.Float)
		}
		return ast.ConstPayload{Kind: ast.ConstInt, Int: wrapSigned(i, widthBits(targetKind))}
	default:
		var u uint64
		switch p.Kind {
		case ast.ConstInt:
			u = uint64(p.Int)
		case ast.ConstUInt:
			u = p.UInt
		case ast.ConstFloat:
			u = uint64(p.Float)
		}
		return ast.ConstPayload{Kind: ast.ConstUInt, UInt: wrapUnsigned(u, widthBits(targetKind))}
	}
}

// Binary applies op to lhs and rhs: folds if both are Const, otherwise
// promotes per spec.md §4.3 rules 1/2/4 and emits the corresponding sized
// arithmetic opcode. pos is used for diagnostics.
func (ev *Evaluator) Binary(op BinaryOp, lhs, rhs *ast.Value, pos token.Position) *ast.Value {
	var kind types.Kind
	switch op {
	case OpAnd, OpOr, OpXor:
		kind = ev.promoteBitwise(lhs.Type, rhs.Type, pos).Kind
	default:
		if types.IsReal(lhs.Type) || types.IsReal(rhs.Type) {
			kind = promoteReals(lhs.Type, rhs.Type).Kind
		} else {
			kind = ev.promoteIntegers(lhs.Type, rhs.Type, pos).Kind
		}
	}
	target := ev.reg.Basic(kind)

	if lhs.IsConst() && rhs.IsConst() {
		lc := convertConst(kind, lhs.Payload)
		rc := convertConst(kind, rhs.Payload)
		folded, err := foldArith(op, kind, lc, rc, pos)
		if err != nil {
			reportDivideByZero(ev.sink, pos)
			return &ast.Value{Mode: ast.Const, Type: ev.reg.Basic(types.NoType), Pos: pos}
		}
		return &ast.Value{Mode: ast.Const, Type: target, Payload: folded, Pos: pos}
	}

	ev.PushMilStack(ev.CoerceTo(lhs, target))
	ev.PushMilStack(ev.CoerceTo(rhs, target))
	ev.emit.Arith(op.arithOp(), milWidth(kind))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: pos}
}

// Shift applies a shift operator per rule 3.
func (ev *Evaluator) Shift(op ShiftKind, lhs, rhs *ast.Value, pos token.Position) *ast.Value {
	leftP, rightP := ev.promoteShift(lhs.Type, rhs.Type, pos)
	target := ev.reg.Basic(leftP.Kind)

	if lhs.IsConst() && rhs.IsConst() {
		lc := convertConst(leftP.Kind, lhs.Payload)
		rc := convertConst(rightP.Kind, rhs.Payload)
		return &ast.Value{Mode: ast.Const, Type: target, Payload: foldShift(op, leftP.Kind, lc, rc), Pos: pos}
	}

	ev.PushMilStack(ev.CoerceTo(lhs, target))
	ev.PushMilStack(ev.CoerceTo(rhs, ev.reg.Basic(rightP.Kind)))
	ev.emit.Shift(op.shiftOp(), milWidth(leftP.Kind))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: pos}
}

// Unary applies arithmetic negation or bitwise-not to v.
func (ev *Evaluator) Unary(neg bool, v *ast.Value, pos token.Position) *ast.Value {
	kind := types.Underlying(v.Type).Kind()
	if v.IsConst() {
		var p ast.ConstPayload
		if neg {
			p = foldUnaryNeg(kind, v.Payload)
		} else {
			p = foldBitwiseNot(kind, v.Payload)
		}
		return &ast.Value{Mode: ast.Const, Type: v.Type, Payload: p, Pos: pos}
	}
	ev.PushMilStack(v)
	if neg {
		ev.emit.Neg(milWidth(kind))
	} else {
		ev.emit.BitUnary(mil.Not, milWidth(kind))
	}
	return &ast.Value{Mode: ast.Val, Type: v.Type, Pos: pos}
}

// Relation yields a Bool-typed Value for a relational comparison. Folds if
// both operands are Const.
func (ev *Evaluator) Relation(op RelOp, lhs, rhs *ast.Value, pos token.Position) *ast.Value {
	boolType := ev.reg.Basic(types.Bool)

	if lhs.IsConst() && rhs.IsConst() {
		result := compareConst(op, lhs.Payload, rhs.Payload)
		return &ast.Value{Mode: ast.Const, Type: boolType, Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: result}, Pos: pos}
	}

	var kind types.Kind
	if types.IsReal(lhs.Type) || types.IsReal(rhs.Type) {
		kind = promoteReals(lhs.Type, rhs.Type).Kind
	} else if types.IsInteger(lhs.Type) && types.IsInteger(rhs.Type) {
		kind = ev.promoteIntegers(lhs.Type, rhs.Type, pos).Kind
	} else {
		kind = types.Underlying(lhs.Type).Kind()
	}
	target := ev.reg.Basic(kind)
	ev.PushMilStack(ev.CoerceTo(lhs, target))
	ev.PushMilStack(ev.CoerceTo(rhs, target))
	ev.emit.Cmp(op.cmpOp(), milWidth(kind))
	return &ast.Value{Mode: ast.Val, Type: ev.reg.Basic(types.Bool), Pos: pos}
}

func (o RelOp) cmpOp() mil.CmpOp {
	return [...]mil.CmpOp{mil.CmpEQ, mil.CmpNE, mil.CmpLT, mil.CmpLE, mil.CmpGT, mil.CmpGE}[o]
}

func compareConst(op RelOp, l, r ast.ConstPayload) bool {
	switch {
	case l.Kind == ast.ConstFloat || r.Kind == ast.ConstFloat:
		lv, rv := constAsFloat(l), constAsFloat(r)
		return relFloat(op, lv, rv)
	case l.Kind == ast.ConstUInt || r.Kind == ast.ConstUInt:
		lv, rv := constAsUint(l), constAsUint(r)
		return relUint(op, lv, rv)
	case l.Kind == ast.ConstBool:
		return relBool(op, l.Bool, r.Bool)
	case l.Kind == ast.ConstChar:
		return relInt(op, int64(l.Char), int64(r.Char))
	default:
		return relInt(op, l.Int, r.Int)
	}
}

func constAsFloat(p ast.ConstPayload) float64 {
	switch p.Kind {
	case ast.ConstInt:
		return float64(p.Int)
	case ast.ConstUInt:
		return float64(p.UInt)
	default:
		return p.Float
	}
}

func constAsUint(p ast.ConstPayload) uint64 {
	if p.Kind == ast.ConstInt {
		return uint64(p.Int)
	}
	return p.UInt
}

func relInt(op RelOp, l, r int64) bool {
	switch op {
	case RelEQ:
		return l == r
	case RelNE:
		return l != r
	case RelLT:
		return l < r
	case RelLE:
		return l <= r
	case RelGT:
		return l > r
	default:
		return l >= r
	}
}

func relUint(op RelOp, l, r uint64) bool {
	switch op {
	case RelEQ:
		return l == r
	case RelNE:
		return l != r
	case RelLT:
		return l < r
	case RelLE:
		return l <= r
	case RelGT:
		return l > r
	default:
		return l >= r
	}
}

func relFloat(op RelOp, l, r float64) bool {
	switch op {
	case RelEQ:
		return l == r
	case RelNE:
		return l != r
	case RelLT:
		return l < r
	case RelLE:
		return l <= r
	case RelGT:
		return l > r
	default:
		return l >= r
	}
}

func relBool(op RelOp, l, r bool) bool {
	switch op {
	case RelEQ:
		return l == r
	case RelNE:
		return l != r
	default:
		return false
	}
}
