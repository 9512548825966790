package builtins_test

import (
	"testing"

	"micc/ast"
	"micc/builtins"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

func newDispatcher() (*builtins.Dispatcher, *types.Registry, *diag.Sink, *mil.Emitter) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	emit := mil.NewEmitter(mil.NewInMemRenderer())
	ev := eval.New(reg, sink, emit)
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")
	return builtins.NewDispatcher(ev, reg, sink, emit), reg, sink, emit
}

func constInt(reg *types.Registry, kind types.Kind, v int64) *ast.Value {
	return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: v}}
}

func localLvalue(reg *types.Registry, kind types.Kind, id int) *ast.Value {
	decl := &ast.Declaration{Kind: ast.DLocalDecl, Name: &token.Symbol{}, LocalID: id, Type: reg.Basic(kind)}
	return &ast.Value{Mode: ast.LValue, Type: reg.Basic(kind), Decl: decl}
}

func containsSeq(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, n := range needle {
			if haystack[i+j] != n {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestAbsFoldsConstantNegativeInteger(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	result := d.Dispatch(builtins.Abs, []*ast.Value{constInt(reg, types.Int32, -5)}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if !result.IsConst() || result.Payload.Int != 5 {
		t.Fatalf("expected folded ABS(-5) == 5, got %+v", result)
	}
}

func TestLenRequiresFixedArray(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	openArr := &ast.Value{Mode: ast.Val, Type: reg.NewArray(reg.Basic(types.Int32), 0)}
	d.Dispatch(builtins.Len, []*ast.Value{openArr}, token.Position{})
	if !sink.HasErrors() {
		t.Fatal("expected a diagnostic for LEN on an open array")
	}
}

func TestLenFoldsFixedArrayLength(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	arr := &ast.Value{Mode: ast.Val, Type: reg.NewArray(reg.Basic(types.Int32), 10)}
	result := d.Dispatch(builtins.Len, []*ast.Value{arr}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if !result.IsConst() || result.Payload.UInt != 10 {
		t.Fatalf("expected folded LEN == 10, got %+v", result)
	}
}

// A genuinely signed runtime value (not a literal -- those coerce to
// Uint32, see TestBitAndAcceptsIntegerLiteralOperand) is still rejected.
func TestBitAndRejectsSignedOperands(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	signed := &ast.Value{Mode: ast.Val, Type: reg.Basic(types.Int32)}
	d.Dispatch(builtins.BitAnd, []*ast.Value{signed, constInt(reg, types.Int32, 2)}, token.Position{})
	if !sink.HasErrors() {
		t.Fatal("expected a diagnostic for BITAND on a signed operand")
	}
}

// spec.md §8 scenario 1's BITOR(a, 0x0F): an Int32-typed integer literal
// operand must not be rejected just because every literal parses signed.
func TestBitAndAcceptsIntegerLiteralOperand(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	a := &ast.Value{Mode: ast.Val, Type: reg.Basic(types.Uint32)}
	lit := constInt(reg, types.Int32, 0x0F)
	d.Dispatch(builtins.BitAnd, []*ast.Value{a, lit}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("expected a literal operand to coerce to unsigned, got: %v", sink.Diagnostics())
	}
}

func TestBitAndFoldsUnsignedOperands(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	a := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Uint32), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: 0xF0}}
	b := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Uint32), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: 0x0F}}
	result := d.Dispatch(builtins.BitAnd, []*ast.Value{a, b}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if !result.IsConst() || result.Payload.UInt != 0 {
		t.Fatalf("expected folded BITAND(0xF0,0x0F) == 0, got %+v", result)
	}
}

func TestCastRequiresEqualWidth(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	x := constInt(reg, types.Int32, 1)
	tv := &ast.Value{Mode: ast.TypeV, Type: reg.Basic(types.Int64)}
	d.Dispatch(builtins.Cast, []*ast.Value{x, tv}, token.Position{})
	if !sink.HasErrors() {
		t.Fatal("expected a diagnostic for CAST across mismatched widths")
	}
}

func TestCastReinterpretsSameWidthBitsConst(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	x := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Int32), Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: -1}}
	tv := &ast.Value{Mode: ast.TypeV, Type: reg.Basic(types.Uint32)}
	result := d.Dispatch(builtins.Cast, []*ast.Value{x, tv}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if !result.IsConst() || result.Payload.UInt != 0xFFFFFFFF {
		t.Fatalf("expected CAST(-1, Uint32) == 0xFFFFFFFF, got %+v", result)
	}
}

func TestSizeOfFixedArrayMultipliesElementCount(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	arr := reg.NewArray(reg.Basic(types.Int32), 4)
	tv := &ast.Value{Mode: ast.TypeV, Type: arr}
	result := d.Dispatch(builtins.Size, []*ast.Value{tv}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if !result.IsConst() || result.Payload.UInt != 16 {
		t.Fatalf("expected SIZE(ARRAY 4 OF Int32) == 16, got %+v", result)
	}
}

// INC's default step of 1 lowers through the address-taking dup/ldind/.../
// stind cycle, not a plain load/store of the named slot.
func TestIncAddsDefaultStepOfOne(t *testing.T) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	r := mil.NewInMemRenderer()
	emit := mil.NewEmitter(r)
	ev := eval.New(reg, sink, emit)
	d := builtins.NewDispatcher(ev, reg, sink, emit)
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")

	lv := localLvalue(reg, types.Int32, 0)
	d.Dispatch(builtins.Inc, []*ast.Value{lv}, token.Position{})

	emit.Ret(false)
	emit.EndProcedure()
	emit.EndModule()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range r.Module.Procedures {
		for _, op := range proc.Ops {
			ops = append(ops, op.Mnemonic)
		}
	}
	if !containsSeq(ops, []string{"ldlocaddr", "dup", "ldind", "ldc.i4", "add", "stind"}) {
		t.Fatalf("expected ldlocaddr/dup/ldind/ldc.i4/add/stind sequence, got %v", ops)
	}
}

func TestInclSetsBitViaShiftAndOr(t *testing.T) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	r := mil.NewInMemRenderer()
	emit := mil.NewEmitter(r)
	ev := eval.New(reg, sink, emit)
	d := builtins.NewDispatcher(ev, reg, sink, emit)
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")

	set := localLvalue(reg, types.Uint32, 0)
	// A non-const element index forces eval.Shift onto its runtime path
	// (both-const operands would fold to a Const bit mask instead of
	// emitting shl).
	idx := &ast.Value{Mode: ast.Val, Type: reg.Basic(types.Int32)}
	d.Dispatch(builtins.Incl, []*ast.Value{set, idx}, token.Position{})

	emit.Ret(false)
	emit.EndProcedure()
	emit.EndModule()
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range r.Module.Procedures {
		for _, op := range proc.Ops {
			ops = append(ops, op.Mnemonic)
		}
	}
	if !containsSeq(ops, []string{"ldlocaddr", "dup", "ldind", "ldc.i4", "conv", "shl", "or", "stind"}) {
		t.Fatalf("expected ldlocaddr/dup/ldind/ldc.i4/conv/shl/or/stind sequence, got %v", ops)
	}
}

func TestRequiresLvalueMatchesSpecTable(t *testing.T) {
	cases := []struct {
		name builtins.Name
		want bool
	}{
		{builtins.New, true},
		{builtins.Inc, true},
		{builtins.Dec, true},
		{builtins.Excl, true},
		{builtins.Incl, true},
		{builtins.Pcall, true},
		{builtins.Abs, false},
		{builtins.Print, false},
	}
	for _, c := range cases {
		if got := builtins.RequiresLvalue(c.name, 0); got != c.want {
			t.Errorf("RequiresLvalue(%s, 0) = %v, want %v", c.name, got, c.want)
		}
	}
	if builtins.RequiresLvalue(builtins.New, 1) {
		t.Error("only argument 0 should require an lvalue")
	}
}

func TestPcallLowersToTryCatchFinally(t *testing.T) {
	d, reg, sink, emit := newDispatcher()
	proc := &ast.Declaration{Kind: ast.DProcedure, Name: &token.Symbol{}}
	procVal := &ast.Value{Mode: ast.ProcV, Type: reg.NewProc(nil, reg.Basic(types.NoType), false), Decl: proc}
	result := d.Dispatch(builtins.Pcall, []*ast.Value{procVal}, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if result.Type.Kind() != types.Int32 {
		t.Fatalf("expected PCALL to yield an Int32 result code, got %s", result.Type)
	}
	if emit.OpenBlocks() != 0 {
		t.Fatal("PCALL must close its try block before returning")
	}
}

func TestPrintlnRejectsUnprintableType(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	rec := &ast.Value{Mode: ast.Val, Type: reg.NewRecord(nil)}
	d.Dispatch(builtins.Println, []*ast.Value{rec}, token.Position{})
	if !sink.HasErrors() {
		t.Fatal("expected a diagnostic for PRINTLN on a record")
	}
}

// PRINT must keep the runtime's closed call surface: every numeric operand
// widens to Int64/Uint64/Float64 before the call, so only printI8/printU8/
// printF8 ever get called, regardless of the operand's declared width.
func TestPrintWidensNumericOperandsBeforeCalling(t *testing.T) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	r := mil.NewInMemRenderer()
	emit := mil.NewEmitter(r)
	ev := eval.New(reg, sink, emit)
	d := builtins.NewDispatcher(ev, reg, sink, emit)
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")

	d.Dispatch(builtins.Print, []*ast.Value{{Mode: ast.Val, Type: reg.Basic(types.Int32)}}, token.Position{})
	d.Dispatch(builtins.Print, []*ast.Value{{Mode: ast.Val, Type: reg.Basic(types.Uint16)}}, token.Position{})
	d.Dispatch(builtins.Print, []*ast.Value{{Mode: ast.Val, Type: reg.Basic(types.Float32)}}, token.Position{})

	emit.Ret(false)
	emit.EndProcedure()
	emit.EndModule()

	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var calls []string
	for _, proc := range r.Module.Procedures {
		for _, op := range proc.Ops {
			if op.Mnemonic == "call" {
				calls = append(calls, op.Operands[0])
			}
		}
	}
	for _, want := range []string{"$MIC.printI8", "$MIC.printU8", "$MIC.printF8"} {
		found := false
		for _, c := range calls {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected a call to %s, got %v", want, calls)
		}
	}
}

// A scalar Char must route to printCh, not printStr -- types.IsText reports
// true for a bare Char too, so the Char check has to come first.
func TestPrintRoutesScalarCharToPrintCh(t *testing.T) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	r := mil.NewInMemRenderer()
	emit := mil.NewEmitter(r)
	ev := eval.New(reg, sink, emit)
	d := builtins.NewDispatcher(ev, reg, sink, emit)
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")

	d.Dispatch(builtins.Print, []*ast.Value{{Mode: ast.Val, Type: reg.Basic(types.Char)}}, token.Position{})

	emit.Ret(false)
	emit.EndProcedure()
	emit.EndModule()

	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	for _, proc := range r.Module.Procedures {
		for _, op := range proc.Ops {
			if op.Mnemonic == "call" && op.Operands[0] != "$MIC.printCh" {
				t.Fatalf("expected a scalar Char to call $MIC.printCh, got %s", op.Operands[0])
			}
		}
	}
}

func TestVarargRequiresVariadicProcedure(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	idx := constInt(reg, types.Int32, 0)
	d.Dispatch(builtins.Vararg, []*ast.Value{idx}, token.Position{})
	if !sink.HasErrors() {
		t.Fatal("expected a diagnostic for VARARG outside a variadic procedure")
	}
}

func TestVarargsReadsReservedCountSlot(t *testing.T) {
	d, reg, sink, _ := newDispatcher()
	d.CurrentProc = reg.NewProc(nil, reg.Basic(types.NoType), true)
	d.VarargsCountSlot = 2
	result := d.Dispatch(builtins.Varargs, nil, token.Position{})
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	if result.Type.Kind() != types.Uint32 {
		t.Fatalf("expected VARARGS() to yield a Uint32 count, got %s", result.Type)
	}
}
