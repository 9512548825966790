// Package builtins implements the signature-checking and IR lowering for
// the closed set of built-in functions and procedures spec.md §4.4 names
// (ABS, LEN, NEW, PRINT, INC/DEC, ...), plus the VARARG/VARARGS/SIZE/PCALL
// additions SPEC_FULL.md §3 recovers from the original implementation.
//
// Each built-in's handler folds the two-phase checkArgs/emit contract spec.md
// describes into one pass: it validates arity and operand types first,
// reporting a Type diagnostic and bailing out to a NoType value on failure,
// then emits the IR and returns the result Value.
package builtins

import (
	"micc/ast"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

// Name is the closed set of built-in identifiers.
type Name string

const (
	Abs      Name = "ABS"
	Cap      Name = "CAP"
	BitAnd   Name = "BITAND"
	BitOr    Name = "BITOR"
	BitXor   Name = "BITXOR"
	BitNot   Name = "BITNOT"
	BitAsr   Name = "BITASR"
	BitShl   Name = "BITSHL"
	BitShr   Name = "BITSHR"
	Bits     Name = "BITS"
	Cast     Name = "CAST"
	Chr      Name = "CHR"
	Default  Name = "DEFAULT"
	Floor    Name = "FLOOR"
	Flt      Name = "FLT"
	Getenv   Name = "GETENV"
	Len      Name = "LEN"
	Long     Name = "LONG"
	Max      Name = "MAX"
	Min      Name = "MIN"
	Odd      Name = "ODD"
	Ord      Name = "ORD"
	Short    Name = "SHORT"
	Signed   Name = "SIGNED"
	Size     Name = "SIZE"
	Strlen   Name = "STRLEN"
	Unsigned Name = "UNSIGNED"
	Vararg   Name = "VARARG"
	Varargs  Name = "VARARGS"

	Assert  Name = "ASSERT"
	Dec     Name = "DEC"
	Dispose Name = "DISPOSE"
	Excl    Name = "EXCL"
	Halt    Name = "HALT"
	Inc     Name = "INC"
	Incl    Name = "INCL"
	New     Name = "NEW"
	Pcall   Name = "PCALL"
	Print   Name = "PRINT"
	Println Name = "PRINTLN"
	Raise   Name = "RAISE"
	Setenv  Name = "SETENV"
)

// RequiresLvalue advertises to the parser which positional arguments must be
// parsed as lvalue designators, per spec.md §4.4.
func RequiresLvalue(name Name, argIndex int) bool {
	if argIndex != 0 {
		return false
	}
	switch name {
	case New, Inc, Dec, Excl, Incl, Pcall:
		return true
	}
	return false
}

// Dispatcher is the two-phase checkArgs/emit entry point bound to one
// compilation session's evaluator, type registry, diagnostic sink, and IR
// emitter.
type Dispatcher struct {
	ev   *eval.Evaluator
	reg  *types.Registry
	sink *diag.Sink
	emit *mil.Emitter

	// CurrentProc is the signature of the procedure currently being emitted,
	// consulted by VARARG/VARARGS to confirm it is trailed by `..`.
	CurrentProc *types.Proc
	// VarargsArgSlot/VarargsCountSlot are the reserved argument indices the
	// parser allocates for a variadic procedure's packed-argument pointer
	// and element count; VARARG/VARARGS read through them.
	VarargsArgSlot   int
	VarargsCountSlot int
}

// NewDispatcher creates a Dispatcher bound to one session's components.
func NewDispatcher(ev *eval.Evaluator, reg *types.Registry, sink *diag.Sink, emit *mil.Emitter) *Dispatcher {
	return &Dispatcher{ev: ev, reg: reg, sink: sink, emit: emit}
}

func (d *Dispatcher) errVal(pos token.Position) *ast.Value {
	return &ast.Value{Mode: ast.Val, Type: d.reg.Basic(types.NoType), Pos: pos}
}

// arity reports an arity diagnostic and returns false if len(args) is
// outside [min, max]; max < 0 means unbounded.
func (d *Dispatcher) arity(name Name, args []*ast.Value, pos token.Position, min, max int) bool {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			d.sink.Errorf(diag.Type, pos, "%s: expecting %d argument(s), got %d", name, min, len(args))
		case max < 0:
			d.sink.Errorf(diag.Type, pos, "%s: expecting at least %d argument(s), got %d", name, min, len(args))
		default:
			d.sink.Errorf(diag.Type, pos, "%s: expecting %d to %d argument(s), got %d", name, min, max, len(args))
		}
		return false
	}
	return true
}

// Dispatch type-checks and lowers one call to a built-in, pushing the IR for
// its arguments in left-to-right order (spec.md §4.4).
func (d *Dispatcher) Dispatch(name Name, args []*ast.Value, pos token.Position) *ast.Value {
	switch name {
	case Abs:
		return d.abs(args, pos)
	case Cap:
		return d.capOf(args, pos)
	case BitAnd:
		return d.bitArith(BitAnd, eval.OpAnd, args, pos)
	case BitOr:
		return d.bitArith(BitOr, eval.OpOr, args, pos)
	case BitXor:
		return d.bitArith(BitXor, eval.OpXor, args, pos)
	case BitNot:
		return d.bitNot(args, pos)
	case BitAsr:
		return d.bitShift(BitAsr, eval.ShiftArith, args, pos)
	case BitShl:
		return d.bitShift(BitShl, eval.ShiftLeft, args, pos)
	case BitShr:
		return d.bitShift(BitShr, eval.ShiftRight, args, pos)
	case Bits:
		return d.bitsOf(args, pos)
	case Cast:
		return d.cast(args, pos)
	case Chr:
		return d.chr(args, pos)
	case Default:
		return d.defaultValue(args, pos)
	case Floor:
		return d.floor(args, pos)
	case Flt:
		return d.flt(args, pos)
	case Getenv:
		return d.getenv(args, pos)
	case Len:
		return d.lenOf(args, pos)
	case Long:
		return d.long(args, pos)
	case Max:
		return d.minmax(Max, args, pos, true)
	case Min:
		return d.minmax(Min, args, pos, false)
	case Odd:
		return d.odd(args, pos)
	case Ord:
		return d.ord(args, pos)
	case Short:
		return d.short(args, pos)
	case Signed:
		return d.reinterpretSign(Signed, args, pos, true)
	case Size:
		return d.sizeBuiltin(args, pos)
	case Strlen:
		return d.strlen(args, pos)
	case Unsigned:
		return d.reinterpretSign(Unsigned, args, pos, false)
	case Vararg:
		return d.vararg(args, pos)
	case Varargs:
		return d.varargs(args, pos)

	case Assert:
		return d.assert(args, pos)
	case Dec:
		return d.incDec(Dec, args, pos, -1)
	case Dispose:
		return d.dispose(args, pos)
	case Excl:
		return d.setOp(Excl, args, pos, false)
	case Halt:
		return d.halt(args, pos)
	case Inc:
		return d.incDec(Inc, args, pos, 1)
	case Incl:
		return d.setOp(Incl, args, pos, true)
	case New:
		return d.newObj(args, pos)
	case Pcall:
		return d.pcall(args, pos)
	case Print:
		return d.print(args, pos, false)
	case Println:
		return d.print(args, pos, true)
	case Raise:
		return d.raise(args, pos)
	case Setenv:
		return d.setenv(args, pos)
	}
	d.sink.Abort("unhandled builtin %s", name)
	return d.errVal(pos)
}

// ---- lvalue plumbing shared by INC/DEC/INCL/EXCL/NEW ----

func (d *Dispatcher) emitLoad(decl *ast.Declaration) {
	switch decl.Kind {
	case ast.DParamDecl:
		d.emit.LdArg(decl.LocalID)
	case ast.DLocalDecl:
		d.emit.LdLoc(decl.LocalID)
	case ast.DVarDecl:
		d.emit.LdVar(decl.QualifiedName())
	case ast.DField:
		d.emit.LdFld(decl.Name.String())
	default:
		d.sink.Abort("cannot load declaration kind %s", decl.Kind)
	}
}

func (d *Dispatcher) emitStore(decl *ast.Declaration) {
	switch decl.Kind {
	case ast.DParamDecl:
		d.emit.StArg(decl.LocalID)
	case ast.DLocalDecl:
		d.emit.StLoc(decl.LocalID)
	case ast.DVarDecl:
		d.emit.StVar(decl.QualifiedName())
	case ast.DField:
		d.emit.StFld(decl.Name.String())
	default:
		d.sink.Abort("cannot store declaration kind %s", decl.Kind)
	}
}

// emitLoadAddr pushes the address of decl's storage rather than its value,
// the dup/ldind/stind cycle INC/DEC/INCL/EXCL need (MicBuiltins.cpp's
// incdec(), which always operates on an address already on the stack).
func (d *Dispatcher) emitLoadAddr(decl *ast.Declaration) {
	switch decl.Kind {
	case ast.DParamDecl:
		d.emit.LdArgAddr(decl.LocalID)
	case ast.DLocalDecl:
		d.emit.LdLocAddr(decl.LocalID)
	case ast.DVarDecl:
		d.emit.LdVarAddr(decl.QualifiedName())
	case ast.DField:
		d.emit.LdFldAddr(decl.Name.String())
	default:
		d.sink.Abort("cannot take the address of declaration kind %s", decl.Kind)
	}
}

// oneLiteral builds the constant 1 in typ's numeric class, for INC/DEC's
// default step and INCL/EXCL's bit construction.
func oneLiteral(reg *types.Registry, typ types.Type) *ast.Value {
	kind := types.Underlying(typ).Kind()
	switch {
	case types.IsReal(typ):
		return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstFloat, Float: 1}}
	case types.IsSigned(typ):
		return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: 1}}
	default:
		return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: 1}}
	}
}

// ---- Kind-level numeric helpers (CAST/SIGNED/UNSIGNED/SIZE/PRINT don't
// have an ast.Value in hand when they need these, so they work directly on
// types.Kind like package eval's own fold.go does) ----

func kindIsSignedLocal(k types.Kind) bool {
	switch k {
	case types.Int8, types.Int16, types.Int32, types.Int64:
		return true
	}
	return false
}

func kindIsUnsignedLocal(k types.Kind) bool {
	switch k {
	case types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return true
	}
	return false
}

func kindIsRealLocal(k types.Kind) bool {
	return k == types.Float32 || k == types.Float64
}

// byteWidth is the storage size in bytes of a basic scalar kind, 0 if k has
// no fixed layout of its own (a compound kind, handled by sizeOf instead).
func byteWidth(k types.Kind) int {
	switch k {
	case types.Int8, types.Uint8, types.Bool, types.Char:
		return 1
	case types.Int16, types.Uint16:
		return 2
	case types.Int32, types.Uint32, types.Float32:
		return 4
	case types.Int64, types.Uint64, types.Float64, types.IntPtr, types.DblIntPtr:
		return 8
	default:
		return 0
	}
}

func kindBits(k types.Kind) int { return byteWidth(k) * 8 }

func maskBits(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<bits - 1
}

func signExtend(raw uint64, bits int) int64 {
	raw &= maskBits(bits)
	sign := uint64(1) << (bits - 1)
	if bits < 64 && raw&sign != 0 {
		return int64(raw) - int64(1)<<bits
	}
	return int64(raw)
}

func intKindForLocal(signed bool, bits int) types.Kind {
	if signed {
		switch bits {
		case 8:
			return types.Int8
		case 16:
			return types.Int16
		case 32:
			return types.Int32
		default:
			return types.Int64
		}
	}
	switch bits {
	case 8:
		return types.Uint8
	case 16:
		return types.Uint16
	case 32:
		return types.Uint32
	default:
		return types.Uint64
	}
}

func milWidthFor(k types.Kind) mil.Width {
	switch k {
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

// suffixFor names the $MIC.<op><suffix> runtime helper matching a scalar
// kind, per original_source/MicBuiltins.cpp's coreName() convention.
func suffixFor(k types.Kind) string {
	switch k {
	case types.Int8:
		return "I1"
	case types.Int16:
		return "I2"
	case types.Int32:
		return "I4"
	case types.Int64:
		return "I8"
	case types.Uint8:
		return "U1"
	case types.Uint16:
		return "U2"
	case types.Uint32:
		return "U4"
	case types.Uint64:
		return "U8"
	case types.Float32:
		return "F4"
	case types.Float64:
		return "F8"
	case types.Bool:
		return "Bool"
	case types.Char:
		return "Ch"
	default:
		return "Str"
	}
}

// sizeOf computes SIZE's byte-layout answer for a (possibly compound) type.
func sizeOf(t types.Type) int {
	switch v := types.Underlying(t).(type) {
	case *types.Basic:
		return byteWidth(v.Kind())
	case *types.Pointer:
		return byteWidth(types.IntPtr)
	case *types.Array:
		if v.IsOpen() {
			return byteWidth(types.IntPtr) * 2 // {data pointer, length} descriptor
		}
		return sizeOf(v.Elem) * v.Len
	case *types.Record:
		total := 0
		for _, f := range v.Fields {
			total += sizeOf(f.Type)
		}
		return total
	case *types.Object:
		total := byteWidth(types.IntPtr) // method-table pointer
		for _, f := range v.Fields {
			total += sizeOf(f.Type)
		}
		return total
	case *types.Union:
		max := 0
		for _, m := range v.Members {
			if s := sizeOf(m.Type); s > max {
				max = s
			}
		}
		return max
	case *types.ConstEnum:
		return byteWidth(types.Int32)
	default:
		return 0
	}
}

func constGreater(a, b ast.ConstPayload, k types.Kind) bool {
	switch {
	case kindIsRealLocal(k):
		return a.Float > b.Float
	case kindIsUnsignedLocal(k):
		return a.UInt > b.UInt
	default:
		return a.Int > b.Int
	}
}
