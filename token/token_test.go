package token_test

import (
	"testing"

	"micc/token"
)

func TestInternReturnsSamePointerForSameText(t *testing.T) {
	tab := token.NewTable()
	a := tab.Intern("Widget")
	b := tab.Intern("Widget")
	if a != b {
		t.Fatalf("expected Intern(%q) to return the same Symbol both times", "Widget")
	}
}

func TestInternReturnsDistinctPointersForDistinctText(t *testing.T) {
	tab := token.NewTable()
	a := tab.Intern("Widget")
	b := tab.Intern("Gadget")
	if a == b {
		t.Fatalf("expected distinct text to intern to distinct Symbols")
	}
}

func TestLookupFindsInternedSymbol(t *testing.T) {
	tab := token.NewTable()
	want := tab.Intern("Widget")
	got, ok := tab.Lookup("Widget")
	if !ok || got != want {
		t.Fatalf("expected Lookup to find the interned Symbol, got %v ok=%v", got, ok)
	}
}

func TestLookupMissReportsFalse(t *testing.T) {
	tab := token.NewTable()
	if sym, ok := tab.Lookup("NeverInterned"); ok {
		t.Fatalf("expected a miss for an uninterned name, got %v", sym)
	}
}

func TestSymbolStringReturnsOriginalText(t *testing.T) {
	tab := token.NewTable()
	sym := tab.Intern("Widget")
	if s := sym.String(); s != "Widget" {
		t.Fatalf("expected Symbol.String() to round-trip the text, got %q", s)
	}
}

func TestNilSymbolStringIsSafe(t *testing.T) {
	var sym *token.Symbol
	if s := sym.String(); s != "<nil>" {
		t.Fatalf("expected a nil *Symbol to stringify to %q, got %q", "<nil>", s)
	}
}

func TestPositionStringFormatsPathLineCol(t *testing.T) {
	pos := token.Position{Path: "M.mic", Line: 3, Col: 7}
	if s := pos.String(); s != "M.mic:3:7" {
		t.Fatalf("expected %q, got %q", "M.mic:3:7", s)
	}
}

func TestPositionIsZero(t *testing.T) {
	if !(token.Position{}).IsZero() {
		t.Fatalf("expected the zero Position to report IsZero")
	}
	if (token.Position{Path: "M.mic", Line: 1, Col: 1}).IsZero() {
		t.Fatalf("expected a set Position to report !IsZero")
	}
}

func TestKeywordsMapsReservedSpellings(t *testing.T) {
	if k, ok := token.Keywords["MODULE"]; !ok || k != token.MODULE {
		t.Fatalf("expected Keywords[%q] to map to token.MODULE", "MODULE")
	}
	if _, ok := token.Keywords["NotAKeyword"]; ok {
		t.Fatalf("expected an ordinary identifier spelling to not be a keyword")
	}
}

func TestKindStringNamesEveryDeclaredKeyword(t *testing.T) {
	for spelling, kind := range token.Keywords {
		if kind.String() != spelling {
			t.Fatalf("expected Kind.String() for %s to round-trip to %q, got %q", spelling, spelling, kind.String())
		}
	}
}

func TestKindStringFallsBackForUnknownValue(t *testing.T) {
	unknown := token.Kind(10000)
	if s := unknown.String(); s != "Kind(10000)" {
		t.Fatalf("expected an out-of-range Kind to stringify as Kind(10000), got %q", s)
	}
}

func TestTokenStringIncludesValueWhenPresent(t *testing.T) {
	tok := token.Token{Kind: token.IDENT, Value: "Widget", Pos: token.Position{Path: "M.mic", Line: 1, Col: 1}}
	s := tok.String()
	if s != `IDENT("Widget")@M.mic:1:1` {
		t.Fatalf("expected %q, got %q", `IDENT("Widget")@M.mic:1:1`, s)
	}
}

func TestTokenStringOmitsValueWhenEmpty(t *testing.T) {
	tok := token.Token{Kind: token.SEMI, Pos: token.Position{Path: "M.mic", Line: 1, Col: 1}}
	s := tok.String()
	if s != ";@M.mic:1:1" {
		t.Fatalf("expected %q, got %q", ";@M.mic:1:1", s)
	}
}
