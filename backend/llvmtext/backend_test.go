package llvmtext_test

import (
	"strings"
	"testing"

	"micc/backend/llvmtext"
	"micc/mil"
)

func TestRenderLowersScalarArithmeticAndReturn(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.add", "(Int32, Int32): Int32")
	e.LdArg(0)
	e.LdArg(1)
	e.Arith(mil.Add, mil.I4)
	e.Ret(true)
	e.EndProcedure()
	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "define") || !strings.Contains(out, "add") {
		t.Fatalf("expected lowered IR to contain a define and an add, got:\n%s", out)
	}
}

func TestRenderLowersLocalsAndCall(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")

	e.BeginProcedure("M.double", "(Int32): Int32")
	e.LdArg(0)
	e.StLoc(0)
	e.LdLoc(0)
	e.LdLoc(0)
	e.Arith(mil.Add, mil.I4)
	e.Ret(true)
	e.EndProcedure()

	e.BeginProcedure("M.quad", "(Int32): Int32")
	e.LdArg(0)
	e.Call("M.double")
	e.Call("M.double")
	e.Ret(true)
	e.EndProcedure()

	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "call") {
		t.Fatalf("expected lowered IR to contain a call instruction, got:\n%s", out)
	}
}

func TestRenderLowersIfElse(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.abs", "(Int32): Int32")
	e.LdArg(0)
	e.LdcI4(0)
	e.Cmp(mil.CmpLT, mil.I4)
	e.If()
	e.Then()
	e.LdcI4(0)
	e.LdArg(0)
	e.Arith(mil.Sub, mil.I4)
	e.Ret(true)
	e.Else()
	e.LdArg(0)
	e.Ret(true)
	e.EndIf()
	e.EndProcedure()
	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "br i1") {
		t.Fatalf("expected a conditional branch in the lowered IR, got:\n%s", out)
	}
}

func TestRenderLowersWhileLoop(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.count", "(Int32): Int32")
	e.LdArg(0)
	e.StLoc(0)
	e.While()
	e.LdLoc(0)
	e.LdcI4(0)
	e.Cmp(mil.CmpGT, mil.I4)
	e.Do()
	e.LdLoc(0)
	e.LdcI4(1)
	e.Arith(mil.Sub, mil.I4)
	e.StLoc(0)
	e.EndWhile()
	e.LdLoc(0)
	e.Ret(true)
	e.EndProcedure()
	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "br label") && !strings.Contains(out, "br i1") {
		t.Fatalf("expected a branch instruction for the loop, got:\n%s", out)
	}
}

// The ldlocaddr/dup/ldind/stind cycle INC lowers to (builtins.incDec):
// take the local's address, dup it, load through the dup'd copy, add,
// store back through the original address.
func TestRenderLowersIncViaAddressTakingCycle(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.bump", "(Int32): Int32")
	e.LdArg(0)
	e.StLoc(0)
	e.LdLocAddr(0)
	e.Dup()
	e.LdInd(mil.I4)
	e.LdcI4(2)
	e.Arith(mil.Add, mil.I4)
	e.StInd(mil.I4)
	e.LdLoc(0)
	e.Ret(true)
	e.EndProcedure()
	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "load") || !strings.Contains(out, "store") {
		t.Fatalf("expected a load and a store in the lowered IR, got:\n%s", out)
	}
}

// ldlocaddr (and ldargaddr) before any stloc for that local has no typed
// alloca to address yet -- Render must report an error, not panic.
func TestRenderRejectsLdLocAddrBeforeStLoc(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.bad", "()")
	e.LdLocAddr(0)
	e.Pop()
	e.Ret(false)
	e.EndProcedure()
	e.EndModule()

	if _, err := llvmtext.New().Render(r.Module); err == nil {
		t.Fatalf("expected Render to reject ldlocaddr before any stloc")
	}
}

func TestRenderRejectsUnsupportedOpcode(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("M.jump", "()")
	e.Label("L")
	e.Goto("L")
	e.Ret(false)
	e.EndProcedure()
	e.EndModule()

	if _, err := llvmtext.New().Render(r.Module); err == nil {
		t.Fatalf("expected Render to reject a goto/label body rather than emit a wrong one")
	}
}

func TestRenderLowersModuleVariable(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.AddVariable("M.counter", "Int32")
	e.BeginProcedure("M.bump", "()")
	e.LdVar("M.counter")
	e.LdcI4(1)
	e.Arith(mil.Add, mil.I4)
	e.StVar("M.counter")
	e.Ret(false)
	e.EndProcedure()
	e.EndModule()

	out, err := llvmtext.New().Render(r.Module)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "M.counter") {
		t.Fatalf("expected the global M.counter to appear in the lowered IR, got:\n%s", out)
	}
}
