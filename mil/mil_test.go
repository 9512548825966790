package mil_test

import (
	"bytes"
	"strings"
	"testing"

	"micc/mil"
)

func TestEmitterRejectsOpcodeOutsideProcedure(t *testing.T) {
	e := mil.NewEmitter(mil.NewInMemRenderer())
	e.BeginModule("M")
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected E1 panic for an opcode emitted outside a procedure")
		}
		if _, ok := r.(*mil.InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T: %v", r, r)
		}
	}()
	e.LdcI4(1)
}

func TestEmitterProperlyNestedBlocksCloseCleanly(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.BeginProcedure("f", "()")

	e.While()
	e.Do()
	e.If()
	e.Then()
	e.LdcI4(1)
	e.EndIf()
	e.EndWhile()

	if got := e.OpenBlocks(); got != 0 {
		t.Fatalf("expected 0 open blocks after properly nested close, got %d", got)
	}
	e.EndProcedure()
	e.EndModule()
}

func TestEmitterCrossedCloseOrderPanics(t *testing.T) {
	e := mil.NewEmitter(mil.NewInMemRenderer())
	e.BeginModule("M")
	e.BeginProcedure("f", "()")
	e.While()
	e.Do()
	e.If()
	e.Then()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected E3 panic when closing out of LIFO order")
		}
	}()
	// Closing the while before the if it contains violates E3.
	e.EndWhile()
}

func TestEmitterProcedureCannotCloseWithOpenBlock(t *testing.T) {
	e := mil.NewEmitter(mil.NewInMemRenderer())
	e.BeginModule("M")
	e.BeginProcedure("f", "()")
	e.If()
	e.Then()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected E3 panic when EndProcedure runs with a block still open")
		}
	}()
	e.EndProcedure()
}

func TestInMemRendererBuildsTree(t *testing.T) {
	r := mil.NewInMemRenderer()
	e := mil.NewEmitter(r)
	e.BeginModule("M")
	e.AddVariable("x", "I4")
	e.BeginProcedure("f", "() -> I4")
	e.LdcI4(42)
	e.Ret(true)
	e.EndProcedure()
	e.EndModule()

	if r.Module.Name != "M" {
		t.Fatalf("expected module name M, got %q", r.Module.Name)
	}
	if len(r.Module.Procedures) != 1 || r.Module.Procedures[0].Name != "f" {
		t.Fatalf("expected one procedure named f, got %+v", r.Module.Procedures)
	}
	ops := r.Module.Procedures[0].Ops
	if len(ops) != 2 || ops[0].Mnemonic != "ldc.i4" || ops[1].Mnemonic != "ret" {
		t.Fatalf("unexpected op sequence: %+v", ops)
	}
}

func TestTextRendererProducesBalancedBeginEnd(t *testing.T) {
	var buf bytes.Buffer
	tr := mil.NewTextRenderer(&buf)
	e := mil.NewEmitter(tr)
	e.BeginModule("M")
	e.BeginProcedure("f", "()")
	e.If()
	e.Then()
	e.LdcI4(1)
	e.EndIf()
	e.EndProcedure()
	e.EndModule()

	out := buf.String()
	for _, want := range []string{"module M", "proc f", "if", "then", "ldc.i4 1", "endif"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text output to contain %q, got:\n%s", want, out)
		}
	}
	if tr.Err() != nil {
		t.Fatalf("unexpected renderer write error: %v", tr.Err())
	}
}
