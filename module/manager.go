// Package module implements the Import/Module Manager (spec.md §4.6, C7):
// import-spec resolution, a cycle-detecting compile cache keyed by
// structural import-spec equality, and $<N> disambiguation for distinct
// meta-actual tuples sharing one path.
//
// Grounded on chai's mods package (ChaiModule.ResolveModulePath, LoadModule)
// and build/import.go's findModule/depGraph, collapsed into one package and
// run synchronously: chai resolves modules concurrently with goroutines and
// a sync.WaitGroup across build/compiler.go, but spec.md §5 requires a
// single-threaded compiler with deterministic diagnostic order, so the
// fan-out is replaced with the teacher's own batch-ordering logic run in a
// straight loop.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"micc/ast"
	"micc/diag"
	"micc/mil"
	"micc/parser"
	"micc/token"
	"micc/types"
)

// FileExtension is the on-disk suffix for M source (spec.md §6).
const FileExtension = ".mic"

// entry is one cache slot. mod.Root is nil while that module's load is in
// progress -- a second Load call that finds this slot is a cycle.
type entry struct {
	spec ast.ImportSpec
	mod  *ast.Module
}

// Manager owns the search roots and the ordered module cache for one
// compilation session. It is not safe for concurrent use, matching spec.md
// §5's single-threaded core.
type Manager struct {
	Roots []string // -I roots, argument order; always searched before a manifest root

	syms *token.Table
	reg  *types.Registry
	sink *diag.Sink
	emit *mil.Emitter

	manifest *manifest
	entries  []*entry
}

// New creates a Manager sharing one compilation session's symbol table,
// type registry, diagnostic sink, and IR emitter with every module it
// loads -- mirroring how build.Compiler threads one logging/deps context
// through every package it initializes.
func New(roots []string, syms *token.Table, reg *types.Registry, sink *diag.Sink, emit *mil.Emitter) *Manager {
	return &Manager{Roots: roots, syms: syms, reg: reg, sink: sink, emit: emit}
}

// LoadMain parses the root module named directly by the CLI's positional
// argument, bypassing Resolve since the caller already named the file.
func (m *Manager) LoadMain(path string) *ast.Module {
	name := strings.TrimSuffix(filepath.Base(path), FileExtension)
	spec := ast.ImportSpec{Path: name}
	mod := &ast.Module{Spec: spec, SourcePath: path}
	m.entries = append(m.entries, &entry{spec: spec, mod: mod})
	m.parseInto(mod, path)
	return mod
}

// Load resolves, parses, and caches one import spec, implementing spec.md
// §4.6's loadModule protocol:
//  1. a cache hit with a non-nil Root returns the cached declaration;
//  2. a cache hit with a nil Root is a module still being loaded -- a
//     cycle -- and reports E_MODULE_CYCLE without aborting unrelated work;
//  3. otherwise a placeholder slot (Root == nil) is inserted before
//     parsing begins, so a recursive import of the same spec sees case 2.
func (m *Manager) Load(spec ast.ImportSpec, fromDir string, pos token.Position) *ast.Module {
	for _, e := range m.entries {
		if e.spec.Equal(spec) {
			if e.mod.Root == nil {
				m.sink.Errorf(diag.Module, pos, "E_MODULE_CYCLE: %q is already being loaded", spec.Path)
				return nil
			}
			return e.mod
		}
	}

	path, ok := m.Resolve(spec.Path, fromDir)
	if !ok {
		m.sink.Errorf(diag.Module, pos, "E_MODULE_UNREACHABLE: no source file found for %q", spec.Path)
		return nil
	}

	mod := &ast.Module{Spec: spec, SourcePath: path, Suffix: m.suffixFor(spec)}
	m.entries = append(m.entries, &entry{spec: spec, mod: mod})
	m.parseInto(mod, path)
	return mod
}

func (m *Manager) parseInto(mod *ast.Module, path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		m.sink.Errorf(diag.Module, token.Position{Path: path}, "E_MODULE_UNREACHABLE: %s", err)
		return
	}
	p := parser.New(path, string(src), m.syms, m.reg, m.sink, m.emit)
	p.SetImportLoader(m)
	mod.Root = p.ParseModule()
}

// suffixFor assigns the "$<N>" disambiguator: the first entry loaded for a
// given path keeps the bare path as its IR name, each later entry for the
// same path with distinct meta-actuals counts up from $1.
func (m *Manager) suffixFor(spec ast.ImportSpec) string {
	n := 0
	for _, e := range m.entries {
		if e.spec.Path == spec.Path {
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("$%d", n)
}
