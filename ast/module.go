package ast

// ImportSpec identifies a module uniquely: a dotted path plus a (possibly
// empty) ordered tuple of compile-time meta-actuals (spec.md §3,
// "Modules"). Equality is structural on the tuple.
type ImportSpec struct {
	Path        string
	MetaActuals []*Value
}

// Equal implements the structural-equality requirement on import specs:
// same path, same actuals in the same order, compared by constant payload
// (for const actuals) or type identity (for type actuals).
func (s ImportSpec) Equal(o ImportSpec) bool {
	if s.Path != o.Path || len(s.MetaActuals) != len(o.MetaActuals) {
		return false
	}
	for i, a := range s.MetaActuals {
		b := o.MetaActuals[i]
		if !metaActualEqual(a, b) {
			return false
		}
	}
	return true
}

func metaActualEqual(a, b *Value) bool {
	if a.Mode != b.Mode {
		return false
	}
	if a.Mode == TypeV {
		return a.Type == b.Type
	}
	if a.Mode != Const {
		return false
	}
	if a.Payload.Kind != b.Payload.Kind {
		return false
	}
	switch a.Payload.Kind {
	case ConstInt:
		return a.Payload.Int == b.Payload.Int
	case ConstUInt, ConstSet:
		return a.Payload.UInt == b.Payload.UInt
	case ConstFloat:
		return a.Payload.Float == b.Payload.Float
	case ConstBool:
		return a.Payload.Bool == b.Payload.Bool
	case ConstChar:
		return a.Payload.Char == b.Payload.Char
	case ConstString:
		return a.Payload.Str == b.Payload.Str
	case ConstEnum:
		return a.Payload.Enum == b.Payload.Enum
	}
	return false
}

// Module is a loaded module: an import spec, its source path, and the root
// declaration produced by analysing it (spec.md §3: "A loaded module is
// (import-spec, source path, root declaration)"). Root is nil while the
// module is still being loaded -- this is the cycle-detection placeholder
// the Import Manager (package module) relies on.
type Module struct {
	Spec       ImportSpec
	SourcePath string
	Root       *Declaration // DModule-kind; nil until analysis completes
	Suffix     string       // "$<N>" disambiguator for non-default meta-actuals
}

// QualifiedIRName is the module-qualified name IR emission uses: the
// module's dotted path plus its disambiguating suffix, if any.
func (m *Module) QualifiedIRName() string {
	if m.Suffix == "" {
		return m.Spec.Path
	}
	return m.Spec.Path + m.Suffix
}

// IDAllocator hands out stable, monotonically increasing IDs for locals,
// parameters, and fields bound within one enclosing procedure (D3: "Local
// offsets/IDs are assigned by the emitter when a declaration is bound; IDs
// are stable for the lifetime of the enclosing procedure").
type IDAllocator struct {
	next int
}

// Next returns the next stable ID and advances the allocator.
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}
