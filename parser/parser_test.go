package parser_test

import (
	"testing"

	"micc/diag"
	"micc/mil"
	"micc/parser"
	"micc/token"
	"micc/types"
)

func parseSrc(t *testing.T, src string) (*mil.MilModule, *diag.Sink) {
	t.Helper()
	syms := token.NewTable()
	reg := types.NewRegistry()
	sink := diag.NewSink()
	r := mil.NewInMemRenderer()
	emit := mil.NewEmitter(r)
	p := parser.New("test.m", src, syms, reg, sink, emit)
	p.ParseModule()
	return r.Module, sink
}

func mnemonics(ops []*mil.MilOp) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.Mnemonic)
	}
	return out
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

// Scenario 1: `a := BITOR(a, 0x0F)` on a UINT8 variable widens to UINT32
// for the operation and auto-casts the result back down.
func TestBitorWidensAndNarrowsModuleVariable(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; VAR a: UINT8; BEGIN a := BITOR(a, 0x0F) END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range mod.Procedures {
		if proc.Name == "M.$init" {
			ops = mnemonics(proc.Ops)
		}
	}
	if !containsSeq(ops, []string{"conv", "or"}) {
		t.Fatalf("expected a widening conv before the or opcode, got %v", ops)
	}
	if !containsSeq(ops, []string{"or", "conv", "stvar"}) {
		t.Fatalf("expected a narrowing conv between or and the store, got %v", ops)
	}
}

// Scenario 2: a pointer type's forward reference to a record declared
// later in the same TYPE section resolves once the section closes.
func TestForwardTypeReferenceResolvesAtSectionEnd(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; TYPE P = POINTER TO R; R = RECORD x: P END; END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
}

// Scenario 3: INC(i, 2) inside a procedure takes i's address, dups it for
// the read side of the read-modify-write, and stores back through the
// original address: ldlocaddr i; dup; ldind I4; ldc_i4 2; add; stind I4.
func TestIncLowersToLoadAddStore(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; PROCEDURE f(); VAR i: INT32; BEGIN INC(i, 2) END f; END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range mod.Procedures {
		if proc.Name == "f" {
			ops = mnemonics(proc.Ops)
		}
	}
	if !containsSeq(ops, []string{"ldlocaddr", "dup", "ldind", "ldc.i4", "add", "stind"}) {
		t.Fatalf("expected ldlocaddr/dup/ldind/ldc.i4/add/stind sequence, got %v", ops)
	}
}

// Scenario 5: PRINTLN("hi") lowers to the string print call followed by
// a newline character print.
func TestPrintlnLowersToStringThenNewlineCall(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; BEGIN PRINTLN("hi") END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range mod.Procedures {
		if proc.Name == "M.$init" {
			ops = mnemonics(proc.Ops)
		}
	}
	if !containsSeq(ops, []string{"call", "ldc.i4", "call"}) {
		t.Fatalf("expected call/ldc.i4/call sequence, got %v", ops)
	}
}

// Scenario 6: a constant divide-by-zero is reported once at the division
// site and the constant's type degrades to NoType so later uses don't
// cascade further errors.
func TestConstDivideByZeroReportsOnce(t *testing.T) {
	syms := token.NewTable()
	reg := types.NewRegistry()
	sink := diag.NewSink()
	emit := mil.NewEmitter(mil.NewInMemRenderer())
	p := parser.New("test.m", `MODULE M; CONST c = 1 / 0; END M.`, syms, reg, sink, emit)
	mod := p.ParseModule()

	count := 0
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.Const {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one CONST diagnostic, got %d: %v", count, sink.Diagnostics())
	}

	c, ok := mod.Scope.FindLocal("c")
	if !ok {
		t.Fatal("expected c to still be declared despite the fold error")
	}
	if c.Type.Kind() != types.NoType {
		t.Fatalf("expected c's type to degrade to NoType so later uses suppress further errors, got %s", c.Type.Kind())
	}
}

func TestIfElsifElseEmitsNestedStructuredBlocks(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; VAR a: BOOL; BEGIN
		IF a THEN a := TRUE ELSIF a THEN a := FALSE ELSE a := TRUE END
	END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range mod.Procedures {
		if proc.Name == "M.$init" {
			ops = mnemonics(proc.Ops)
		}
	}
	ifs, endifs := 0, 0
	for _, m := range ops {
		switch m {
		case "if":
			ifs++
		case "endif":
			endifs++
		}
	}
	if ifs != 2 || endifs != 2 {
		t.Fatalf("expected 2 nested if/endif pairs for the elsif chain, got if=%d endif=%d (%v)", ifs, endifs, ops)
	}
}

func TestExitOutsideLoopReportsSyntaxError(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; BEGIN EXIT END M.`)
	if !sink.HasErrors() {
		t.Fatalf("expected an error for EXIT outside a loop")
	}
}

func TestExitInsideLoopIsLegal(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; VAR a: BOOL; BEGIN
		LOOP
			IF a THEN EXIT END
		END
	END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []string
	for _, proc := range mod.Procedures {
		if proc.Name == "M.$init" {
			ops = mnemonics(proc.Ops)
		}
	}
	if !containsSeq(ops, []string{"exit"}) {
		t.Fatalf("expected an exit opcode, got %v", ops)
	}
}

func TestGotoToUndeclaredLabelReportsSyntaxError(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; PROCEDURE f(); BEGIN GOTO nowhere END f; END M.`)
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.Syn {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SYN diagnostic for an undefined goto target, got %v", sink.Diagnostics())
	}
}

func TestGotoToDeclaredLabelIsLegal(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; PROCEDURE f(); BEGIN GOTO done; done: RETURN END f; END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
}

func TestForwardProcedureCompletionMatchesSignature(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M;
		PROCEDURE f(x: INT32): INT32; FORWARD;
		PROCEDURE f(x: INT32): INT32; BEGIN RETURN x END f;
	END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
}

func TestForwardProcedureCompletionSignatureMismatchReportsFwdError(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M;
		PROCEDURE f(x: INT32): INT32; FORWARD;
		PROCEDURE f(x: INT64): INT32; BEGIN RETURN x END f;
	END M.`)
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.Fwd {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an FWD diagnostic for a mismatched forward completion, got %v", sink.Diagnostics())
	}
}

func TestReturnInsideFinallyReportsSyntaxError(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; PROCEDURE f(); BEGIN
		TRY
		FINALLY
			RETURN
		END
	END f; END M.`)
	found := false
	for _, d := range sink.Diagnostics() {
		if d.Kind == diag.Syn {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SYN diagnostic for RETURN inside FINALLY, got %v", sink.Diagnostics())
	}
}

func TestSwitchWithRangeAndDefaultCaseLowers(t *testing.T) {
	mod, sink := parseSrc(t, `MODULE M; VAR a: INT32; BEGIN
		SWITCH a
		CASE 1, 2, 3: a := 1
		CASE 10..20: a := 2
		DEFAULT: a := 0
		END
	END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
	var ops []*mil.MilOp
	for _, proc := range mod.Procedures {
		if proc.Name == "M.$init" {
			ops = proc.Ops
		}
	}
	var cases []string
	for _, op := range ops {
		if op.Mnemonic == "case" {
			cases = append(cases, op.Operands[0])
		}
	}
	want := []string{"1", "2", "3", "10..20"}
	if len(cases) != len(want) {
		t.Fatalf("expected case labels %v, got %v", want, cases)
	}
	for i := range want {
		if cases[i] != want[i] {
			t.Fatalf("expected case labels %v, got %v", want, cases)
		}
	}
}

func TestDesignatorChainAssignsThroughFieldAndIndex(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M;
		TYPE R = RECORD xs: ARRAY 4 OF INT32 END;
		VAR r: R;
		BEGIN r.xs[0] := 1
		END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
}

func TestRaiseStatementDispatchesThroughBuiltin(t *testing.T) {
	_, sink := parseSrc(t, `MODULE M; PROCEDURE f(); BEGIN RAISE 7 END f; END M.`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Diagnostics())
	}
}
