package parser

import (
	"path/filepath"

	"micc/ast"
	"micc/builtins"
	"micc/diag"
	"micc/eval"
	"micc/mil"
	"micc/token"
	"micc/types"
)

// ImportLoader is the module manager's resolution/cycle-detection/cache
// contract (package module's *Manager implements it), kept as an interface
// here so package parser never imports package module -- the dependency
// runs the other way, with the module manager constructing a Parser for
// each file it resolves.
type ImportLoader interface {
	Load(spec ast.ImportSpec, fromDir string, pos token.Position) *ast.Module
}

// Parser is the predictive recursive-descent driver described in spec.md
// §4.5: it owns the lexer's one-token lookahead, the declaration-tree
// scope chain, the block-depth/loop stacks, and the per-section deferred
// NameRef list, and it calls straight through to package eval and package
// mil as it recognises constructs.
type Parser struct {
	lex  *Lexer
	sink *diag.Sink
	syms *token.Table
	reg  *types.Registry
	ev   *eval.Evaluator
	emit *mil.Emitter
	bi   *builtins.Dispatcher
	arena *ast.Arena

	tok   token.Token
	ahead *token.Token

	moduleScope *ast.Scope
	scope       *ast.Scope

	deferredStack [][]*types.NameRef

	loopDepth    int
	blockDepth   int
	finallyDepth int

	curProc *ast.Declaration
	locals  *ast.IDAllocator

	labels       map[string]labelInfo
	pendingGotos []gotoRef

	path   string
	loader ImportLoader
}

// SetImportLoader wires the module manager that resolves and loads this
// parser's IMPORTS list (package module's *Manager). Left nil, imports are
// still recorded in scope as DImport declarations but their public members
// never become visible -- the behaviour a standalone single-file parse (as
// in parser_test.go) wants.
func (p *Parser) SetImportLoader(l ImportLoader) { p.loader = l }

type labelInfo struct {
	depth int
	pos   token.Position
}

type gotoRef struct {
	name  string
	depth int
	pos   token.Position
}

// New creates a Parser over one source file's already-read text, bound to
// the shared registry/sink/emitter/evaluator of one compilation session.
func New(path, src string, syms *token.Table, reg *types.Registry, sink *diag.Sink, emit *mil.Emitter) *Parser {
	ev := eval.New(reg, sink, emit)
	p := &Parser{
		lex:   NewLexer(path, src, sink),
		sink:  sink,
		syms:  syms,
		reg:   reg,
		ev:    ev,
		emit:  emit,
		bi:    builtins.NewDispatcher(ev, reg, sink, emit),
		arena: &ast.Arena{},
		path:  path,
	}
	p.advance()
	return p
}

// ---- token-stream plumbing ----

func (p *Parser) advance() {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return
	}
	p.tok = p.lex.Next()
}

// peek returns the token after the current one without consuming it.
func (p *Parser) peek() token.Token {
	if p.ahead == nil {
		t := p.lex.Next()
		p.ahead = &t
	}
	return *p.ahead
}

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

// expect consumes the current token if it matches k, else records a SYN
// diagnostic and leaves the token stream positioned for recovery.
func (p *Parser) expect(k token.Kind) token.Token {
	if p.tok.Kind != k {
		p.sink.Errorf(diag.Syn, p.tok.Pos, "expected %s, got %s", k, p.tok.Kind)
		return p.tok
	}
	t := p.tok
	p.advance()
	return t
}

func (p *Parser) accept(k token.Kind) bool {
	if p.tok.Kind == k {
		p.advance()
		return true
	}
	return false
}

// sync skips tokens until one of the given kinds (or EOF) is the current
// token, implementing spec.md §4.5's "synchronises to the next declaration
// keyword or statement terminator" recovery policy.
func (p *Parser) sync(kinds ...token.Kind) {
	for {
		if p.tok.Kind == token.EOF {
			return
		}
		for _, k := range kinds {
			if p.tok.Kind == k {
				return
			}
		}
		p.advance()
	}
}

var declStarters = []token.Kind{
	token.CONST, token.TYPE, token.VAR, token.PROCEDURE, token.BEGIN, token.END, token.SEMI,
}

// intern wraps syms.Intern so callers always go through the parser's one
// session-scoped table.
func (p *Parser) intern(text string) *token.Symbol { return p.syms.Intern(text) }

// ---- module ----

// ParseModule parses one complete `MODULE ... END Name.` unit and returns
// its root DModule declaration. Grounded on the worked scenarios in
// spec.md §8.
func (p *Parser) ParseModule() *ast.Declaration {
	pos := p.tok.Pos
	p.expect(token.MODULE)
	nameTok := p.expect(token.IDENT)
	name := p.intern(nameTok.Value)

	mod := p.arena.NewDeclaration(ast.DModule, name, pos)
	mod.Visibility = types.Public
	p.moduleScope = ast.NewScope(nil, mod)
	mod.Scope = p.moduleScope
	p.scope = p.moduleScope
	p.locals = mod.Locals

	p.emit.BeginModule(name.String())

	if p.accept(token.IMPORTS) {
		p.parseImportList(mod)
	}
	p.expect(token.SEMI)

	p.pushDeferred()
	p.parseDeclSeq(mod)
	p.resolveDeferred(pos)

	if p.accept(token.BEGIN) {
		p.emit.BeginProcedure(mod.QualifiedName()+".$init", "()")
		p.parseStmtSeq()
		p.emit.EndProcedure()
	}

	p.expect(token.END)
	p.expect(token.IDENT)
	p.expect(token.DOT)

	p.emit.EndModule()
	return mod
}

// parseImportList handles `IMPORTS A, B.C, D[meta...];`.
func (p *Parser) parseImportList(mod *ast.Declaration) {
	for {
		pos := p.tok.Pos
		path := p.parseDottedPath()
		var metaActuals []*ast.Value
		if p.accept(token.LBRACK) {
			for {
				metaActuals = append(metaActuals, p.parseMetaActual())
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RBRACK)
		}
		spec := ast.ImportSpec{Path: path, MetaActuals: metaActuals}
		last := path
		if idx := lastDot(path); idx >= 0 {
			last = path[idx+1:]
		}
		imp := p.arena.NewDeclaration(ast.DImport, p.intern(last), pos)
		imp.ImportSpec = &spec
		if err := p.scope.Define(imp); err != nil {
			p.sink.Errorf(diag.Scope, pos, "%s", err)
		}
		p.emit.AddImport(path)
		p.bindImport(last, spec, pos)
		if !p.accept(token.COMMA) {
			break
		}
	}
}

// bindImport resolves spec through the wired module manager and binds each
// of the resulting module's Public declarations into the importing scope
// under "<alias>.<member>" -- the flat compound key parseType's
// parseDottedPath + scope.FindByName lookup expects for a qualified type
// or value reference (spec.md §4.6). A nil loader (no module manager wired,
// as in a standalone single-file parse) or a failed load leaves the import
// recorded but contributes no visible members.
func (p *Parser) bindImport(alias string, spec ast.ImportSpec, pos token.Position) {
	if p.loader == nil {
		return
	}
	imported := p.loader.Load(spec, filepath.Dir(p.path), pos)
	if imported == nil || imported.Root == nil || imported.Root.Scope == nil {
		return
	}
	for _, d := range imported.Root.Scope.All() {
		if d.Visibility != types.Public {
			continue
		}
		proxy := p.arena.NewDeclaration(d.Kind, p.intern(alias+"."+d.Name.String()), pos)
		proxy.Visibility = d.Visibility
		proxy.Type = d.Type
		proxy.ConstValue = d.ConstValue
		proxy.Scope = d.Scope
		if err := p.scope.Define(proxy); err != nil {
			p.sink.Errorf(diag.Scope, pos, "%s", err)
		}
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func (p *Parser) parseDottedPath() string {
	s := p.expect(token.IDENT).Value
	for p.at(token.DOT) {
		p.advance()
		s += "." + p.expect(token.IDENT).Value
	}
	return s
}

// parseMetaActual parses one compile-time import argument: either a
// constant expression or a type name.
func (p *Parser) parseMetaActual() *ast.Value {
	if p.startsType() {
		t := p.parseType()
		return &ast.Value{Mode: ast.TypeV, Type: t, Pos: p.tok.Pos}
	}
	return p.parseExpr()
}

// ---- declaration sections ----

func (p *Parser) pushDeferred() {
	p.deferredStack = append(p.deferredStack, nil)
}

func (p *Parser) deferNameRef(nr *types.NameRef) {
	top := len(p.deferredStack) - 1
	p.deferredStack[top] = append(p.deferredStack[top], nr)
}

// resolveDeferred implements the forward-reference protocol (spec.md §4.1):
// at the end of a declaration sequence, every NameRef registered against
// it must resolve against the enclosing scope.
func (p *Parser) resolveDeferred(pos token.Position) {
	top := len(p.deferredStack) - 1
	pending := p.deferredStack[top]
	p.deferredStack = p.deferredStack[:top]

	for _, nr := range pending {
		if d, ok := p.scope.FindByName(nr.Qualified); ok && d.Kind == ast.DTypeDecl {
			nr.Resolved = d.Type
		} else {
			p.sink.Errorf(diag.Fwd, pos, "E_UNRESOLVED_TYPE: %q does not name a type", nr.Qualified)
		}
	}
}

// parseDeclSeq parses zero or more CONST/TYPE/VAR/PROCEDURE sections in
// any order, as M permits interleaving them at module and procedure scope.
func (p *Parser) parseDeclSeq(outer *ast.Declaration) {
	for {
		switch p.tok.Kind {
		case token.CONST:
			p.parseConstSection(outer)
		case token.TYPE:
			p.parseTypeSection(outer)
		case token.VAR:
			p.parseVarSection(outer)
		case token.PROCEDURE:
			p.parseProcedure(outer)
		default:
			return
		}
	}
}

func (p *Parser) visibilityOf() types.Visibility {
	switch {
	case p.accept(token.PUBLIC):
		return types.Public
	case p.accept(token.READONLY):
		return types.ReadOnly
	case p.accept(token.PRIVATE):
		return types.Private
	default:
		return types.Private
	}
}

// ---- CONST ----

func (p *Parser) parseConstSection(outer *ast.Declaration) {
	p.expect(token.CONST)
	for p.at(token.IDENT) {
		pos := p.tok.Pos
		nameTok := p.expect(token.IDENT)
		vis := p.visibilityOf()
		p.expect(token.EQ)
		val := p.parseExpr()
		p.expect(token.SEMI)

		d := p.arena.NewDeclaration(ast.DConstDecl, p.intern(nameTok.Value), pos)
		d.Visibility = vis
		d.Type = val.Type
		d.ConstValue = val
		if err := p.scope.Define(d); err != nil {
			p.sink.Errorf(diag.Scope, pos, "%s", err)
		}
		p.checkVisibility(d, val.Type, pos)
	}
}

// checkVisibility enforces D2: a public declaration's type must not be
// private.
func (p *Parser) checkVisibility(d *ast.Declaration, t types.Type, pos token.Position) {
	if d.Visibility != types.Public {
		return
	}
	if named, ok := types.Underlying(t).Owner().(*ast.Declaration); ok && named.Visibility == types.Private {
		p.sink.Errorf(diag.Scope, pos, "public declaration %q refers to a private type %q", d.Name, named.Name)
	}
}

// ---- TYPE ----

func (p *Parser) parseTypeSection(outer *ast.Declaration) {
	p.expect(token.TYPE)
	p.pushDeferred()
	for p.at(token.IDENT) {
		pos := p.tok.Pos
		nameTok := p.expect(token.IDENT)
		vis := p.visibilityOf()
		p.expect(token.EQ)

		d := p.arena.NewDeclaration(ast.DTypeDecl, p.intern(nameTok.Value), pos)
		d.Visibility = vis
		if err := p.scope.Define(d); err != nil {
			p.sink.Errorf(diag.Scope, pos, "%s", err)
		}

		t := p.parseType()
		d.Type = t
		if owner, ok := t.(interface{ SetOwner(any) }); ok {
			owner.SetOwner(d)
		}
		p.expect(token.SEMI)
		p.checkVisibility(d, t, pos)
	}
	p.resolveDeferred(p.tok.Pos)
}

// ---- VAR ----

func (p *Parser) parseVarSection(outer *ast.Declaration) {
	p.expect(token.VAR)
	for p.at(token.IDENT) {
		var names []token.Token
		var poss []token.Position
		for {
			names = append(names, p.expect(token.IDENT))
			poss = append(poss, p.tok.Pos)
			if !p.accept(token.COMMA) {
				break
			}
		}
		vis := p.visibilityOf()
		p.expect(token.COLON)
		t := p.parseType()
		p.expect(token.SEMI)

		for i, nameTok := range names {
			kind := ast.DVarDecl
			if p.curProc != nil {
				kind = ast.DLocalDecl
			}
			d := p.arena.NewDeclaration(kind, p.intern(nameTok.Value), poss[i])
			d.Visibility = vis
			d.Type = t
			if kind == ast.DLocalDecl {
				d.LocalID = p.locals.Next()
			}
			if err := p.scope.Define(d); err != nil {
				p.sink.Errorf(diag.Scope, poss[i], "%s", err)
			}
			if kind == ast.DVarDecl {
				p.emit.AddVariable(d.QualifiedName(), t.String())
			}
			p.checkVisibility(d, t, poss[i])
		}
	}
}
