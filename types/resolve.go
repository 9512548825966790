package types

import "fmt"

// UnresolvedError reports a NameRef that was still unresolved when its
// enclosing declaration sequence closed (spec.md §4.1 step 2,
// E_UNRESOLVED_TYPE).
type UnresolvedError struct {
	Qualified string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved type reference %q", e.Qualified)
}

// Binder looks up a qualified type name and returns the type it names, if
// any. The parser's declaration-scope chain implements this.
type Binder interface {
	BindType(qualified string) (Type, bool)
}

// DeferredList accumulates the NameRefs created while parsing one
// declaration sequence (a record body, a module's declarations, a
// procedure's declarations), per spec.md §4.1 step 1. It is scoped to that
// sequence and resolved exactly once, at the sequence's closing boundary.
type DeferredList struct {
	refs []*NameRef
}

// Add registers a NameRef to be resolved when this sequence closes.
func (d *DeferredList) Add(ref *NameRef) {
	d.refs = append(d.refs, ref)
}

// Resolve implements spec.md §4.1 step 2: walk the deferred list and bind
// each NameRef against b. Entries that fail to bind are reported via
// UnresolvedError, one per unresolved entry, and resolution continues for
// the rest (best-effort per spec.md §7's accumulation policy).
func (d *DeferredList) Resolve(b Binder) []error {
	var errs []error
	for _, ref := range d.refs {
		if ref.Resolved != nil {
			continue
		}
		if t, ok := b.BindType(ref.Qualified); ok {
			ref.Resolved = t
		} else {
			errs = append(errs, &UnresolvedError{Qualified: ref.Qualified})
		}
	}
	return errs
}

// AllResolved reports whether every NameRef added to this list resolved
// successfully (used by tests asserting P1).
func (d *DeferredList) AllResolved() bool {
	for _, ref := range d.refs {
		if ref.Resolved == nil {
			return false
		}
	}
	return true
}
