package eval_test

import (
	"testing"

	"micc/ast"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

func newEvaluator() (*eval.Evaluator, *types.Registry, *diag.Sink) {
	reg := types.NewRegistry()
	sink := diag.NewSink()
	emit := mil.NewEmitter(mil.NewInMemRenderer())
	emit.BeginModule("M")
	emit.BeginProcedure("f", "()")
	return eval.New(reg, sink, emit), reg, sink
}

func constInt(reg *types.Registry, kind types.Kind, v int64) *ast.Value {
	return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstInt, Int: v}}
}

func constUint(reg *types.Registry, kind types.Kind, v uint64) *ast.Value {
	return &ast.Value{Mode: ast.Const, Type: reg.Basic(kind), Payload: ast.ConstPayload{Kind: ast.ConstUInt, UInt: v}}
}

func TestBinaryFoldsConstantIntegerAddition(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constInt(reg, types.Int32, 10)
	rhs := constInt(reg, types.Int32, 32)
	result := ev.Binary(eval.OpAdd, lhs, rhs, token.Position{})
	if !result.IsConst() || result.Payload.Int != 42 {
		t.Fatalf("expected folded constant 42, got %+v", result)
	}
}

func TestBinaryPromotesNarrowIntegersToAtLeast32Bits(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constInt(reg, types.Int8, 100)
	rhs := constInt(reg, types.Int8, 100)
	result := ev.Binary(eval.OpAdd, lhs, rhs, token.Position{})
	if result.Type.Kind() != types.Int32 {
		t.Fatalf("expected promoted result kind Int32, got %s", result.Type.Kind())
	}
	if result.Payload.Int != 200 {
		t.Fatalf("expected 200, got %d", result.Payload.Int)
	}
}

func TestBinaryWrapsOnOverflowNativeWidth(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constInt(reg, types.Int32, 2147483647) // max int32
	rhs := constInt(reg, types.Int32, 1)
	result := ev.Binary(eval.OpAdd, lhs, rhs, token.Position{})
	if result.Payload.Int != -2147483648 {
		t.Fatalf("expected wrap-around to INT32_MIN, got %d", result.Payload.Int)
	}
}

func TestBinaryDivideByZeroReportsConstDiagnostic(t *testing.T) {
	ev, reg, sink := newEvaluator()
	lhs := constInt(reg, types.Int32, 10)
	rhs := constInt(reg, types.Int32, 0)
	result := ev.Binary(eval.OpDiv, lhs, rhs, token.Position{Path: "a.mic", Line: 1, Col: 1})
	if !sink.HasErrors() {
		t.Fatal("expected a CONST diagnostic for division by zero")
	}
	d := sink.Diagnostics()[0]
	if d.Kind != diag.Const {
		t.Fatalf("expected Const diagnostic kind, got %s", d.Kind)
	}
	if result.Type.Kind() != types.NoType {
		t.Fatalf("expected a divide-by-zero fold to yield NoType so later uses suppress further errors, got %s", result.Type.Kind())
	}
}

func TestBitwiseRequiresUnsignedOperandsAndWidensToMax32(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constUint(reg, types.Uint8, 0xF0)
	rhs := constUint(reg, types.Uint16, 0x0F)
	result := ev.Binary(eval.OpAnd, lhs, rhs, token.Position{})
	if result.Type.Kind() != types.Uint32 {
		t.Fatalf("expected Uint32 result, got %s", result.Type.Kind())
	}
}

func TestShiftResultWidthMatchesLeftOperand(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constUint(reg, types.Uint64, 1)
	rhs := constUint(reg, types.Uint32, 4)
	result := ev.Shift(eval.ShiftLeft, lhs, rhs, token.Position{})
	if result.Type.Kind() != types.Uint64 {
		t.Fatalf("expected Uint64 result width, got %s", result.Type.Kind())
	}
	if result.Payload.UInt != 16 {
		t.Fatalf("expected 1<<4 == 16, got %d", result.Payload.UInt)
	}
}

func TestRelationFoldsConstantComparison(t *testing.T) {
	ev, reg, _ := newEvaluator()
	lhs := constInt(reg, types.Int32, 3)
	rhs := constInt(reg, types.Int32, 5)
	result := ev.Relation(eval.RelLT, lhs, rhs, token.Position{})
	if !result.IsConst() || !result.Payload.Bool {
		t.Fatalf("expected folded true, got %+v", result)
	}
}

func TestAssignableNumericWidthRule(t *testing.T) {
	reg := types.NewRegistry()
	small := constInt(reg, types.Int16, 5)
	if !eval.Assignable(reg.Basic(types.Int32), small) {
		t.Error("Int16 value must be assignable to a wider Int32 lhs")
	}
	big := &ast.Value{Mode: ast.Val, Type: reg.Basic(types.Int64)}
	if eval.Assignable(reg.Basic(types.Int32), big) {
		t.Error("a runtime Int64 value must not be assignable to a narrower Int32 lhs")
	}
}

func TestAssignableLiteralFitsNarrowerTarget(t *testing.T) {
	reg := types.NewRegistry()
	lit := constInt(reg, types.Int64, 10) // default-typed Int64 literal, value fits Int8
	if !eval.Assignable(reg.Basic(types.Int8), lit) {
		t.Error("a constant literal that fits the target width must be assignable")
	}
	tooBig := constInt(reg, types.Int64, 1000)
	if eval.Assignable(reg.Basic(types.Int8), tooBig) {
		t.Error("a constant literal that does not fit the target width must not be assignable")
	}
}

func TestAssignableArrayOfCharFromStringLiteral(t *testing.T) {
	reg := types.NewRegistry()
	arr := reg.NewArray(reg.Basic(types.Char), 6)
	lit := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.StringLit), Payload: ast.ConstPayload{Kind: ast.ConstString, Str: "hello"}}
	if !eval.Assignable(arr, lit) {
		t.Error("ARRAY 6 OF Char must accept a 5-byte string literal plus terminator")
	}
	tooLong := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.StringLit), Payload: ast.ConstPayload{Kind: ast.ConstString, Str: "too long for this array"}}
	if eval.Assignable(arr, tooLong) {
		t.Error("a string literal longer than the array capacity must not be assignable")
	}
}

func TestAssignablePointerNilAndIdenticalBase(t *testing.T) {
	reg := types.NewRegistry()
	base := reg.Basic(types.Int32)
	ptr := reg.NewPointer(base)
	nilVal := &ast.Value{Mode: ast.Const, Type: reg.Basic(types.Nil)}
	if !eval.Assignable(ptr, nilVal) {
		t.Error("nil must be assignable to any pointer type")
	}
	samePtr := &ast.Value{Mode: ast.Val, Type: reg.NewPointer(base)}
	if !eval.Assignable(ptr, samePtr) {
		t.Error("pointers to identical bases must be assignable")
	}
}

func TestCoerceToEmitsConvForRuntimeValue(t *testing.T) {
	ev, reg, _ := newEvaluator()
	v := &ast.Value{Mode: ast.Val, Type: reg.Basic(types.Int32)}
	out := ev.CoerceTo(v, reg.Basic(types.Int64))
	if out.Mode != ast.Val || out.Type.Kind() != types.Int64 {
		t.Fatalf("expected a runtime Int64 value, got %+v", out)
	}
}

func TestPushMilStackMaterializesConstant(t *testing.T) {
	ev, reg, _ := newEvaluator()
	c := constInt(reg, types.Int32, 7)
	out := ev.PushMilStack(c)
	if out.Mode != ast.Val {
		t.Fatalf("expected PushMilStack to change mode to Val, got %s", out.Mode)
	}
}
