package builtins

import (
	"math"

	"micc/ast"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

func (d *Dispatcher) abs(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Abs, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsNumeric(x.Type) {
		d.sink.Errorf(diag.Type, pos, "ABS requires a numeric argument")
		return d.errVal(pos)
	}
	kind := types.Underlying(x.Type).Kind()
	if x.IsConst() {
		switch {
		case types.IsReal(x.Type):
			return &ast.Value{Mode: ast.Const, Type: x.Type, Payload: ast.ConstPayload{Kind: ast.ConstFloat, Float: math.Abs(x.Payload.Float)}, Pos: pos}
		case types.IsSigned(x.Type):
			v := x.Payload.Int
			if v < 0 {
				v = -v
			}
			return &ast.Value{Mode: ast.Const, Type: x.Type, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: v}, Pos: pos}
		default:
			return &ast.Value{Mode: ast.Const, Type: x.Type, Payload: x.Payload, Pos: pos}
		}
	}
	if types.IsUInt(x.Type) {
		return x
	}
	d.ev.PushMilStack(x)
	d.emit.Call("$MIC.abs" + suffixFor(kind))
	return &ast.Value{Mode: ast.Val, Type: x.Type, Pos: pos}
}

func (d *Dispatcher) capOf(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Cap, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	arr, ok := types.ArrayOf(args[0].Type)
	if !ok {
		d.sink.Errorf(diag.Type, pos, "CAP requires an array argument")
		return d.errVal(pos)
	}
	u32 := d.reg.Basic(types.Uint32)
	if !arr.IsOpen() {
		return &ast.Value{Mode: ast.Const, Type: u32, Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: uint64(arr.Len)}, Pos: pos}
	}
	d.ev.PushMilStack(args[0])
	d.emit.Call("$MIC.cap")
	return &ast.Value{Mode: ast.Val, Type: u32, Pos: pos}
}

// coerceBitwiseLiteral retypes a non-negative integer literal to Uint32 so it
// satisfies a bitwise operand's unsigned-integer requirement. Every integer
// literal parses as signed Int32 regardless of context (parser/expr.go's
// token.INTLIT case), so without this a literal operand would always fail
// the IsUInt gates below; this mirrors the assignment-compatibility
// "literal fits" rule (eval/assign.go's literalFits) one level up, by value
// rather than by declared type.
func coerceBitwiseLiteral(reg *types.Registry, v *ast.Value) *ast.Value {
	if !v.IsConst() || types.IsUInt(v.Type) {
		return v
	}
	switch v.Payload.Kind {
	case ast.ConstUInt:
		return &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Uint32), Payload: v.Payload, Pos: v.Pos}
	case ast.ConstInt:
		if v.Payload.Int < 0 {
			return v
		}
		return &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Uint32), Payload: v.Payload, Pos: v.Pos}
	default:
		return v
	}
}

func (d *Dispatcher) bitArith(name Name, op eval.BinaryOp, args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(name, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	lhs := coerceBitwiseLiteral(d.reg, args[0])
	rhs := coerceBitwiseLiteral(d.reg, args[1])
	if !types.IsUInt(lhs.Type) || !types.IsUInt(rhs.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires unsigned-integer operands", name)
		return d.errVal(pos)
	}
	return d.ev.Binary(op, lhs, rhs, pos)
}

func (d *Dispatcher) bitShift(name Name, op eval.ShiftKind, args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(name, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	lhs := coerceBitwiseLiteral(d.reg, args[0])
	return d.ev.Shift(op, lhs, args[1], pos)
}

func (d *Dispatcher) bitNot(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(BitNot, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := coerceBitwiseLiteral(d.reg, args[0])
	if !types.IsUInt(x.Type) {
		d.sink.Errorf(diag.Type, pos, "BITNOT requires an unsigned-integer operand")
		return d.errVal(pos)
	}
	return d.ev.Unary(false, x, pos)
}

func (d *Dispatcher) bitsOf(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Bits, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	if !types.IsNumeric(args[0].Type) {
		d.sink.Errorf(diag.Type, pos, "BITS requires a numeric argument")
		return d.errVal(pos)
	}
	return &ast.Value{Mode: ast.Const, Type: d.reg.Basic(types.Uint32), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: uint64(types.Rank(args[0].Type))}, Pos: pos}
}

// cast reinterprets the bit pattern of x as target's kind, requiring equal,
// known storage widths -- CAST never performs a numeric conversion (that is
// FLT/LONG/SHORT's job).
func (d *Dispatcher) cast(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Cast, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	x, tv := args[0], args[1]
	if tv.Mode != ast.TypeV {
		d.sink.Errorf(diag.Type, pos, "CAST requires a type as its second argument")
		return d.errVal(pos)
	}
	target := tv.Type
	srcK := types.Underlying(x.Type).Kind()
	dstK := types.Underlying(target).Kind()
	if byteWidth(srcK) == 0 || byteWidth(srcK) != byteWidth(dstK) {
		d.sink.Errorf(diag.Type, pos, "CAST requires operands of equal, known width")
		return d.errVal(pos)
	}
	if x.IsConst() {
		return &ast.Value{Mode: ast.Const, Type: target, Payload: reinterpretConst(srcK, dstK, x.Payload), Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Conv(milWidthFor(dstK))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: pos}
}

func reinterpretConst(srcK, dstK types.Kind, p ast.ConstPayload) ast.ConstPayload {
	bits := kindBits(srcK)
	var raw uint64
	switch {
	case srcK == types.Float32:
		raw = uint64(math.Float32bits(float32(p.Float)))
	case srcK == types.Float64:
		raw = math.Float64bits(p.Float)
	case kindIsSignedLocal(srcK):
		raw = uint64(p.Int) & maskBits(bits)
	default:
		raw = p.UInt & maskBits(bits)
	}
	switch {
	case dstK == types.Float32:
		return ast.ConstPayload{Kind: ast.ConstFloat, Float: float64(math.Float32frombits(uint32(raw)))}
	case dstK == types.Float64:
		return ast.ConstPayload{Kind: ast.ConstFloat, Float: math.Float64frombits(raw)}
	case kindIsSignedLocal(dstK):
		return ast.ConstPayload{Kind: ast.ConstInt, Int: signExtend(raw, bits)}
	default:
		return ast.ConstPayload{Kind: ast.ConstUInt, UInt: raw}
	}
}

func (d *Dispatcher) chr(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Chr, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsInteger(x.Type) {
		d.sink.Errorf(diag.Type, pos, "CHR requires an integer argument")
		return d.errVal(pos)
	}
	charT := d.reg.Basic(types.Char)
	if x.IsConst() {
		var v rune
		if x.Payload.Kind == ast.ConstUInt {
			v = rune(x.Payload.UInt)
		} else {
			v = rune(x.Payload.Int)
		}
		return &ast.Value{Mode: ast.Const, Type: charT, Payload: ast.ConstPayload{Kind: ast.ConstChar, Char: v}, Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Conv(mil.U1)
	return &ast.Value{Mode: ast.Val, Type: charT, Pos: pos}
}

// defaultValue implements DEFAULT(T): the zero value of a type used as a
// value, e.g. for initializing a VAR with no explicit initializer.
func (d *Dispatcher) defaultValue(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Default, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	tv := args[0]
	if tv.Mode != ast.TypeV {
		d.sink.Errorf(diag.Type, pos, "DEFAULT requires a type argument")
		return d.errVal(pos)
	}
	t := tv.Type
	switch {
	case types.IsSigned(t):
		return &ast.Value{Mode: ast.Const, Type: t, Payload: ast.ConstPayload{Kind: ast.ConstInt}, Pos: pos}
	case types.IsUInt(t):
		return &ast.Value{Mode: ast.Const, Type: t, Payload: ast.ConstPayload{Kind: ast.ConstUInt}, Pos: pos}
	case types.IsReal(t):
		return &ast.Value{Mode: ast.Const, Type: t, Payload: ast.ConstPayload{Kind: ast.ConstFloat}, Pos: pos}
	}
	switch types.Underlying(t).Kind() {
	case types.Bool:
		return &ast.Value{Mode: ast.Const, Type: t, Payload: ast.ConstPayload{Kind: ast.ConstBool}, Pos: pos}
	case types.Char:
		return &ast.Value{Mode: ast.Const, Type: t, Payload: ast.ConstPayload{Kind: ast.ConstChar}, Pos: pos}
	case types.KPointer:
		return &ast.Value{Mode: ast.Const, Type: t, Pos: pos}
	}
	d.sink.Errorf(diag.Type, pos, "DEFAULT has no zero value for type %s", t)
	return d.errVal(pos)
}

func (d *Dispatcher) floor(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Floor, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsReal(x.Type) {
		d.sink.Errorf(diag.Type, pos, "FLOOR requires a real argument")
		return d.errVal(pos)
	}
	if x.IsConst() {
		return &ast.Value{Mode: ast.Const, Type: x.Type, Payload: ast.ConstPayload{Kind: ast.ConstFloat, Float: math.Floor(x.Payload.Float)}, Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Call("$MIC.floor" + suffixFor(types.Underlying(x.Type).Kind()))
	return &ast.Value{Mode: ast.Val, Type: x.Type, Pos: pos}
}

func (d *Dispatcher) flt(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Flt, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	if !types.IsNumeric(args[0].Type) {
		d.sink.Errorf(diag.Type, pos, "FLT requires a numeric argument")
		return d.errVal(pos)
	}
	return d.ev.CoerceTo(args[0], d.reg.Basic(types.Float64))
}

func (d *Dispatcher) getenv(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Getenv, args, pos, 1, 2) {
		return d.errVal(pos)
	}
	for _, a := range args {
		if !types.IsText(a.Type) {
			d.sink.Errorf(diag.Type, pos, "GETENV requires text arguments")
			return d.errVal(pos)
		}
	}
	for _, a := range args {
		d.ev.PushMilStack(a)
	}
	fn := "$MIC.getenv"
	if len(args) == 2 {
		fn = "$MIC.getenvOr"
	}
	d.emit.Call(fn)
	return &ast.Value{Mode: ast.Val, Type: d.reg.Basic(types.StringLit), Pos: pos}
}

// lenOf implements LEN, which (unlike CAP) demands a fixed-size array so the
// length is a compile-time constant.
func (d *Dispatcher) lenOf(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Len, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	arr, ok := types.ArrayOf(args[0].Type)
	if !ok || arr.IsOpen() {
		d.sink.Errorf(diag.Type, pos, "LEN requires a fixed-size array argument")
		return d.errVal(pos)
	}
	return &ast.Value{Mode: ast.Const, Type: d.reg.Basic(types.Uint32), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: uint64(arr.Len)}, Pos: pos}
}

func (d *Dispatcher) long(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Long, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsInteger(x.Type) {
		d.sink.Errorf(diag.Type, pos, "LONG requires an integer argument")
		return d.errVal(pos)
	}
	target := d.reg.Basic(intKindForLocal(types.IsSigned(x.Type), 64))
	return d.ev.CoerceTo(x, target)
}

func (d *Dispatcher) short(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Short, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsInteger(x.Type) {
		d.sink.Errorf(diag.Type, pos, "SHORT requires an integer argument")
		return d.errVal(pos)
	}
	bits := kindBits(types.Underlying(x.Type).Kind()) / 2
	if bits < 8 {
		bits = 8
	}
	target := d.reg.Basic(intKindForLocal(types.IsSigned(x.Type), bits))
	return d.ev.CoerceTo(x, target)
}

func (d *Dispatcher) minmax(name Name, args []*ast.Value, pos token.Position, isMax bool) *ast.Value {
	if !d.arity(name, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	a, b := args[0], args[1]
	if !types.IsNumeric(a.Type) || !types.IsNumeric(b.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires numeric arguments", name)
		return d.errVal(pos)
	}
	target := a.Type
	if types.Rank(b.Type) > types.Rank(a.Type) {
		target = b.Type
	}
	a = d.ev.CoerceTo(a, target)
	b = d.ev.CoerceTo(b, target)
	if a.IsConst() && b.IsConst() {
		greater := constGreater(a.Payload, b.Payload, types.Underlying(target).Kind())
		if greater == isMax {
			return a
		}
		return b
	}
	d.ev.PushMilStack(a)
	d.ev.PushMilStack(b)
	fn := "min"
	if isMax {
		fn = "max"
	}
	d.emit.Call("$MIC." + fn + suffixFor(types.Underlying(target).Kind()))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: pos}
}

func (d *Dispatcher) odd(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Odd, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsInteger(x.Type) {
		d.sink.Errorf(diag.Type, pos, "ODD requires an integer argument")
		return d.errVal(pos)
	}
	boolT := d.reg.Basic(types.Bool)
	if x.IsConst() {
		var odd bool
		if x.Payload.Kind == ast.ConstUInt {
			odd = x.Payload.UInt&1 != 0
		} else {
			odd = x.Payload.Int&1 != 0
		}
		return &ast.Value{Mode: ast.Const, Type: boolT, Payload: ast.ConstPayload{Kind: ast.ConstBool, Bool: odd}, Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Call("$MIC.odd" + suffixFor(types.Underlying(x.Type).Kind()))
	return &ast.Value{Mode: ast.Val, Type: boolT, Pos: pos}
}

func (d *Dispatcher) ord(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Ord, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	i32 := d.reg.Basic(types.Int32)
	if _, ok := types.Underlying(x.Type).(*types.ConstEnum); ok {
		if x.IsConst() && x.Payload.Kind == ast.ConstEnum && x.Payload.Enum != nil {
			return &ast.Value{Mode: ast.Const, Type: i32, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: x.Payload.Enum.Value}, Pos: pos}
		}
		d.ev.PushMilStack(x)
		d.emit.Conv(mil.I4)
		return &ast.Value{Mode: ast.Val, Type: i32, Pos: pos}
	}
	if types.Underlying(x.Type).Kind() != types.Char {
		d.sink.Errorf(diag.Type, pos, "ORD requires a Char or ConstEnum argument")
		return d.errVal(pos)
	}
	if x.IsConst() {
		return &ast.Value{Mode: ast.Const, Type: i32, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: int64(x.Payload.Char)}, Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Conv(mil.I4)
	return &ast.Value{Mode: ast.Val, Type: i32, Pos: pos}
}

// reinterpretSign implements SIGNED/UNSIGNED: a same-width bit-reinterpret
// across signedness, the integer half of what CAST does more generally.
func (d *Dispatcher) reinterpretSign(name Name, args []*ast.Value, pos token.Position, toSigned bool) *ast.Value {
	if !d.arity(name, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	if !types.IsInteger(x.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires an integer argument", name)
		return d.errVal(pos)
	}
	bits := kindBits(types.Underlying(x.Type).Kind())
	target := d.reg.Basic(intKindForLocal(toSigned, bits))
	if x.IsConst() {
		var raw uint64
		if x.Payload.Kind == ast.ConstUInt {
			raw = x.Payload.UInt
		} else {
			raw = uint64(x.Payload.Int)
		}
		raw &= maskBits(bits)
		if toSigned {
			return &ast.Value{Mode: ast.Const, Type: target, Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: signExtend(raw, bits)}, Pos: pos}
		}
		return &ast.Value{Mode: ast.Const, Type: target, Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: raw}, Pos: pos}
	}
	d.ev.PushMilStack(x)
	d.emit.Conv(milWidthFor(intKindForLocal(toSigned, bits)))
	return &ast.Value{Mode: ast.Val, Type: target, Pos: pos}
}

func (d *Dispatcher) sizeBuiltin(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Size, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	tv := args[0]
	if tv.Mode != ast.TypeV {
		d.sink.Errorf(diag.Type, pos, "SIZE requires a type argument")
		return d.errVal(pos)
	}
	n := sizeOf(tv.Type)
	if n == 0 {
		d.sink.Errorf(diag.Type, pos, "SIZE has no defined layout for %s", tv.Type)
	}
	return &ast.Value{Mode: ast.Const, Type: d.reg.Basic(types.Uint32), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: uint64(n)}, Pos: pos}
}

func (d *Dispatcher) strlen(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Strlen, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	v := args[0]
	if !types.IsText(v.Type) {
		d.sink.Errorf(diag.Type, pos, "STRLEN requires a text argument")
		return d.errVal(pos)
	}
	u32 := d.reg.Basic(types.Uint32)
	if v.IsConst() && v.Payload.Kind == ast.ConstString {
		return &ast.Value{Mode: ast.Const, Type: u32, Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: uint64(len(v.Payload.Str))}, Pos: pos}
	}
	d.ev.PushMilStack(v)
	d.emit.Call("$MIC.strlen")
	return &ast.Value{Mode: ast.Val, Type: u32, Pos: pos}
}

// vararg/varargs implement the VARARG(i)/VARARGS() supplement: reading
// through the two reserved argument slots a variadic procedure's trailing
// `..` parameter lowers to.
func (d *Dispatcher) vararg(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Vararg, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	if d.CurrentProc == nil || !d.CurrentProc.Variadic {
		d.sink.Errorf(diag.Type, pos, "VARARG is only valid inside a variadic procedure")
		return d.errVal(pos)
	}
	idx := args[0]
	if !types.IsInteger(idx.Type) {
		d.sink.Errorf(diag.Type, pos, "VARARG requires an integer index")
		return d.errVal(pos)
	}
	d.emit.LdArg(d.VarargsArgSlot)
	d.ev.PushMilStack(idx)
	d.emit.LdElem(mil.WIntPtr)
	return &ast.Value{Mode: ast.Val, Type: d.reg.Basic(types.IntPtr), Pos: pos}
}

func (d *Dispatcher) varargs(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Varargs, args, pos, 0, 0) {
		return d.errVal(pos)
	}
	if d.CurrentProc == nil || !d.CurrentProc.Variadic {
		d.sink.Errorf(diag.Type, pos, "VARARGS is only valid inside a variadic procedure")
		return d.errVal(pos)
	}
	d.emit.LdArg(d.VarargsCountSlot)
	return &ast.Value{Mode: ast.Val, Type: d.reg.Basic(types.Uint32), Pos: pos}
}
