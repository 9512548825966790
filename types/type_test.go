package types_test

import (
	"testing"

	"github.com/kr/pretty"

	"micc/types"
)

func TestBasicRegistryCanonical(t *testing.T) {
	r := types.NewRegistry()
	if r.Basic(types.Int32) != r.Basic(types.Int32) {
		t.Fatal("expected one canonical Int32 instance")
	}
	if r.Basic(types.Int32) == r.Basic(types.Int64) {
		t.Fatal("distinct kinds must not share an instance")
	}
}

func TestPointerBaseNeverNoType(t *testing.T) {
	r := types.NewRegistry()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic constructing POINTER TO NoType")
		}
	}()
	r.NewPointer(r.Basic(types.NoType))
}

func TestNameRefResolutionVisibleToAllHolders(t *testing.T) {
	r := types.NewRegistry()
	ref := r.NewNameRef("R")
	ptr := r.NewPointer(ref) // POINTER TO R, R not yet defined (T1's same-module carve-out)

	if types.IsResolved(ref) {
		t.Fatal("NameRef should start unresolved")
	}

	record := r.NewRecord(nil)
	ref.Resolved = record

	base, ok := types.PointerBase(ptr)
	if !ok {
		t.Fatal("expected ptr to report as a pointer")
	}
	if !types.Identical(base, record) {
		t.Errorf("pointer base did not see the resolution: %# v", pretty.Formatter(base))
	}
}

func TestDeferredListResolve(t *testing.T) {
	r := types.NewRegistry()
	ref := r.NewNameRef("P")
	var dl types.DeferredList
	dl.Add(ref)

	binder := stubBinder{"P": r.NewRecord(nil)}
	if errs := dl.Resolve(binder); len(errs) != 0 {
		t.Fatalf("unexpected resolve errors: %v", errs)
	}
	if !dl.AllResolved() {
		t.Fatal("expected all NameRefs resolved")
	}
}

func TestDeferredListUnresolvedReportsError(t *testing.T) {
	r := types.NewRegistry()
	ref := r.NewNameRef("Missing")
	var dl types.DeferredList
	dl.Add(ref)

	errs := dl.Resolve(stubBinder{})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one unresolved error, got %d", len(errs))
	}
	if _, ok := errs[0].(*types.UnresolvedError); !ok {
		t.Fatalf("expected *UnresolvedError, got %T", errs[0])
	}
}

func TestNumericRankOrder(t *testing.T) {
	r := types.NewRegistry()
	if types.Rank(r.Basic(types.Int8)) >= types.Rank(r.Basic(types.Int32)) {
		t.Fatal("8-bit rank must be less than 32-bit rank")
	}
	if types.Rank(r.Basic(types.Uint16)) != types.Rank(r.Basic(types.Int16)) {
		t.Fatal("signed and unsigned of the same width must share a rank")
	}
}

func TestSignatureEquivalent(t *testing.T) {
	r := types.NewRegistry()
	mk := func() *types.Proc {
		return r.NewProc([]*types.Param{
			{Name: "a", Type: r.Basic(types.Int32), Mode: types.ParamByValue},
		}, r.Basic(types.Bool), false)
	}
	a, b := mk(), mk()
	if !types.SignatureEquivalent(a, b) {
		t.Fatal("structurally identical signatures must be equivalent")
	}

	b.Return = r.Basic(types.Int32)
	if types.SignatureEquivalent(a, b) {
		t.Fatal("differing return types must not be equivalent")
	}
}

type stubBinder map[string]types.Type

func (s stubBinder) BindType(qualified string) (types.Type, bool) {
	t, ok := s[qualified]
	return t, ok
}
