package token

import "sync"

// Symbol is an interned identifier handle. Two Symbols compare equal with
// == if and only if they were interned from the same text -- callers never
// compare the underlying strings directly.
type Symbol struct {
	text string
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.text
}

// Table is a per-compilation-session symbol table. Scoping interning to a
// session (rather than a package-level global) keeps tests isolated, per
// spec.md §5 ("Global state ... scope it to a per-compilation context").
type Table struct {
	mu   sync.Mutex
	syms map[string]*Symbol
}

// NewTable creates an empty, ready-to-use symbol table.
func NewTable() *Table {
	return &Table{syms: make(map[string]*Symbol)}
}

// Intern returns the canonical Symbol for text, creating it on first use.
func (t *Table) Intern(text string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sym, ok := t.syms[text]; ok {
		return sym
	}
	sym := &Symbol{text: text}
	t.syms[text] = sym
	return sym
}

// Lookup returns the Symbol for text without creating it.
func (t *Table) Lookup(text string) (*Symbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sym, ok := t.syms[text]
	return sym, ok
}
