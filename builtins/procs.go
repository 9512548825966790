package builtins

import (
	"micc/ast"
	"micc/diag"
	"micc/eval"
	"micc/token"
	"micc/types"
)

func (d *Dispatcher) assert(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Assert, args, pos, 1, 3) {
		return d.errVal(pos)
	}
	if types.Underlying(args[0].Type).Kind() != types.Bool {
		d.sink.Errorf(diag.Type, pos, "ASSERT requires a Bool condition")
		return d.errVal(pos)
	}
	for _, a := range args {
		d.ev.PushMilStack(a)
	}
	d.emit.Call("$MIC.assert")
	return d.errVal(pos)
}

// incDec implements INC/DEC. It takes the lvalue's address, dups it so the
// address survives the read-modify-write, loads through the dup'd copy,
// folds/emits the step addition through package eval (reusing its promotion
// and overflow-wrapping rules), then stores back through the original
// address -- the ldlocaddr/dup/ldind/.../stind cycle MicBuiltins.cpp's
// incdec() uses for every lvalue category.
func (d *Dispatcher) incDec(name Name, args []*ast.Value, pos token.Position, sign int64) *ast.Value {
	if !d.arity(name, args, pos, 1, 2) {
		return d.errVal(pos)
	}
	lv := args[0]
	if lv.Decl == nil {
		d.sink.Abort("%s target has no declaration", name)
	}
	if !types.IsNumeric(lv.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires a numeric lvalue", name)
		return d.errVal(pos)
	}
	var step *ast.Value
	if len(args) == 2 {
		step = args[1]
	} else {
		step = oneLiteral(d.reg, lv.Type)
	}
	op := eval.OpAdd
	if sign < 0 {
		op = eval.OpSub
	}
	w := milWidthFor(types.Underlying(lv.Type).Kind())
	d.emitLoadAddr(lv.Decl)
	d.emit.Dup()
	d.emit.LdInd(w)
	cur := &ast.Value{Mode: ast.Val, Type: lv.Type, Pos: pos}
	d.ev.Binary(op, cur, step, pos)
	d.emit.StInd(w)
	return d.errVal(pos)
}

func (d *Dispatcher) dispose(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Dispose, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	if _, ok := types.PointerBase(args[0].Type); !ok {
		d.sink.Errorf(diag.Type, pos, "DISPOSE requires a pointer argument")
		return d.errVal(pos)
	}
	d.ev.PushMilStack(args[0])
	d.emit.Free()
	return d.errVal(pos)
}

// setOp implements INCL/EXCL: set |= (1 << elem) or set &= ~(1 << elem),
// built out of the same Shift/Binary/Unary primitives eval exposes to the
// parser's expression walker, lowered through the same address-taking
// dup/ldind/.../stind cycle incDec uses.
func (d *Dispatcher) setOp(name Name, args []*ast.Value, pos token.Position, include bool) *ast.Value {
	if !d.arity(name, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	set, elem := args[0], args[1]
	if set.Decl == nil {
		d.sink.Abort("%s target has no declaration", name)
	}
	if !types.IsUInt(set.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires an unsigned-integer set lvalue", name)
		return d.errVal(pos)
	}
	if !types.IsInteger(elem.Type) {
		d.sink.Errorf(diag.Type, pos, "%s requires an integer element index", name)
		return d.errVal(pos)
	}
	w := milWidthFor(types.Underlying(set.Type).Kind())
	d.emitLoadAddr(set.Decl)
	d.emit.Dup()
	d.emit.LdInd(w)
	cur := &ast.Value{Mode: ast.Val, Type: set.Type, Pos: pos}
	one := oneLiteral(d.reg, set.Type)
	bit := d.ev.Shift(eval.ShiftLeft, one, elem, pos)
	if include {
		d.ev.Binary(eval.OpOr, cur, bit, pos)
	} else {
		notBit := d.ev.Unary(false, bit, pos)
		d.ev.Binary(eval.OpAnd, cur, notBit, pos)
	}
	d.emit.StInd(w)
	return d.errVal(pos)
}

func (d *Dispatcher) halt(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Halt, args, pos, 0, 1) {
		return d.errVal(pos)
	}
	if len(args) == 0 {
		d.emit.LdcI4(0)
	} else {
		if !types.IsInteger(args[0].Type) {
			d.sink.Errorf(diag.Type, pos, "HALT requires an integer exit code")
			return d.errVal(pos)
		}
		d.ev.PushMilStack(args[0])
	}
	d.emit.Call("$MIC.halt")
	return d.errVal(pos)
}

// newObj implements NEW: a pointer to a record/object allocates a single
// instance; a pointer to an open array additionally takes an element count.
func (d *Dispatcher) newObj(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(New, args, pos, 1, 2) {
		return d.errVal(pos)
	}
	ptr := args[0]
	if ptr.Decl == nil {
		d.sink.Abort("NEW target has no declaration")
	}
	base, ok := types.PointerBase(ptr.Type)
	if !ok {
		d.sink.Errorf(diag.Type, pos, "NEW requires a pointer lvalue")
		return d.errVal(pos)
	}
	if arr, isArr := types.ArrayOf(base); isArr && arr.IsOpen() {
		if len(args) != 2 || !types.IsInteger(args[1].Type) {
			d.sink.Errorf(diag.Type, pos, "NEW of a pointer to an open array requires an element-count argument")
			return d.errVal(pos)
		}
		d.ev.PushMilStack(args[1])
		d.emit.NewArr(arr.Elem.String())
	} else {
		if len(args) != 1 {
			d.sink.Errorf(diag.Type, pos, "NEW only accepts a count argument for a pointer to an open array")
		}
		d.emit.NewObj(base.String())
	}
	d.emitStore(ptr.Decl)
	return d.errVal(pos)
}

// pcall lowers PCALL(proc, args...) to a try/catch/finally block around a
// direct call, yielding an Int32 result code: 0 on a normal return, 1 if the
// call raised.
func (d *Dispatcher) pcall(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Pcall, args, pos, 1, -1) {
		return d.errVal(pos)
	}
	proc := args[0]
	if proc.Decl == nil {
		d.sink.Errorf(diag.Type, pos, "PCALL requires a procedure reference")
		return d.errVal(pos)
	}
	i32 := d.reg.Basic(types.Int32)
	d.emit.Try()
	for _, a := range args[1:] {
		d.ev.PushMilStack(a)
	}
	d.emit.Call(proc.Decl.QualifiedName())
	d.emit.LdcI4(0)
	d.emit.Catch()
	d.emit.LdcI4(1)
	d.emit.Finally()
	d.emit.EndTry()
	return &ast.Value{Mode: ast.Val, Type: i32, Pos: pos}
}

// print implements PRINT/PRINTLN. Numeric operands are widened to Int64/
// Uint64/Float64 before the call, so the runtime surface stays closed to
// $MIC.printI8/printU8/printF8/printBool/printCh/printStr, per
// MicBuiltins.cpp's PRINT.
func (d *Dispatcher) print(args []*ast.Value, pos token.Position, newline bool) *ast.Value {
	name := Print
	if newline {
		name = Println
	}
	if !d.arity(name, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	x := args[0]
	kind := types.Underlying(x.Type).Kind()
	var fn string
	switch {
	case kind == types.Char:
		fn = "$MIC.printCh"
	case types.IsText(x.Type):
		fn = "$MIC.printStr"
	case kind == types.Bool:
		fn = "$MIC.printBool"
	case types.IsInteger(x.Type):
		target := d.reg.Basic(intKindForLocal(types.IsSigned(x.Type), 64))
		x = d.ev.CoerceTo(x, target)
		fn = "$MIC.print" + suffixFor(types.Underlying(target).Kind())
	case types.IsReal(x.Type):
		target := d.reg.Basic(types.Float64)
		x = d.ev.CoerceTo(x, target)
		fn = "$MIC.printF8"
	default:
		d.sink.Errorf(diag.Type, pos, "%s has no rendering for type %s", name, x.Type)
		return d.errVal(pos)
	}
	d.ev.PushMilStack(x)
	d.emit.Call(fn)
	if newline {
		d.emit.LdcI4('\n')
		d.emit.Call("$MIC.printCh")
	}
	return d.errVal(pos)
}

func (d *Dispatcher) raise(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Raise, args, pos, 1, 1) {
		return d.errVal(pos)
	}
	if !types.IsInteger(args[0].Type) {
		d.sink.Errorf(diag.Type, pos, "RAISE requires an integer error code")
		return d.errVal(pos)
	}
	d.ev.PushMilStack(args[0])
	d.emit.Raise()
	return d.errVal(pos)
}

func (d *Dispatcher) setenv(args []*ast.Value, pos token.Position) *ast.Value {
	if !d.arity(Setenv, args, pos, 2, 2) {
		return d.errVal(pos)
	}
	for _, a := range args {
		if !types.IsText(a.Type) {
			d.sink.Errorf(diag.Type, pos, "SETENV requires text arguments")
			return d.errVal(pos)
		}
	}
	for _, a := range args {
		d.ev.PushMilStack(a)
	}
	d.emit.Call("$MIC.setenv")
	return d.errVal(pos)
}
