// Package cfront lowers C source into the ast package's typed trees using
// the tree-sitter C grammar. It has no preprocessor: #include and macro
// definitions are skipped, and conditional blocks are lowered as if every
// branch were taken.
package cfront

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
)

var ErrSyntax = errors.New("syntax error")

// Frontend wraps a tree-sitter parser. A Frontend is not safe for
// concurrent use.
type Frontend struct {
	parser *sitter.Parser
	log    *config.LogGroup
}

func New(log *config.LogGroup) (*Frontend, error) {
	if log == nil {
		log = config.Discard()
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(sitter.NewLanguage(tree_sitter_c.Language())); err != nil {
		p.Close()
		return nil, fmt.Errorf("cfront: %w", err)
	}
	return &Frontend{parser: p, log: log}, nil
}

func (f *Frontend) Close() {
	if f != nil && f.parser != nil {
		f.parser.Close()
	}
}

// Parse lowers one C file. Locations in the result use file as their file
// name.
func (f *Frontend) Parse(file string, src []byte) (*ast.TranslationUnit, error) {
	tree := f.parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: parsing was cancelled", file)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		loc := ast.Loc{File: file}
		if bad := firstError(root); bad != nil {
			loc = position(file, bad)
		}
		return nil, fmt.Errorf("%v: %w", loc, ErrSyntax)
	}

	l := newLowerer(file, src, f.log)
	l.translationUnit(root)
	return &ast.TranslationUnit{File: file, Decls: l.decls}, nil
}

// ParseString is Parse with a fresh frontend.
func ParseString(file, src string) (*ast.TranslationUnit, error) {
	f, err := New(nil)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Parse(file, []byte(src))
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && (c.HasError() || c.IsMissing()) {
			if bad := firstError(c); bad != nil {
				return bad
			}
		}
	}
	return nil
}

func position(file string, n *sitter.Node) ast.Loc {
	p := n.StartPosition()
	line, err := safecast.Conv[int](p.Row)
	if err != nil {
		return ast.Loc{File: file}
	}
	col, err := safecast.Conv[int](p.Column)
	if err != nil {
		return ast.Loc{File: file}
	}
	return ast.Loc{File: file, Line: line + 1, Col: col + 1}
}

// symbol is what an ordinary identifier resolves to in a scope.
type symbol struct {
	decl ast.Decl
	// enumerator constants have no declaration node.
	enumerator bool
	value      int64
}

type scope struct {
	names map[string]symbol
	tags  map[string]*ast.RecordDecl
}

type lowerer struct {
	file string
	src  []byte
	log  *config.LogGroup

	scopes []*scope
	fn     *ast.FuncDecl

	// records defined while lowering the current declaration, emitted
	// before it.
	records []*ast.RecordDecl
	decls   []ast.Decl
}

func newLowerer(file string, src []byte, log *config.LogGroup) *lowerer {
	l := &lowerer{file: file, src: src, log: log}
	l.push()
	return l
}

func (l *lowerer) push() {
	l.scopes = append(l.scopes, &scope{
		names: make(map[string]symbol),
		tags:  make(map[string]*ast.RecordDecl),
	})
}

func (l *lowerer) pop() { l.scopes = l.scopes[:len(l.scopes)-1] }

func (l *lowerer) top() *scope { return l.scopes[len(l.scopes)-1] }

func (l *lowerer) declare(name string, sym symbol) {
	if name != "" {
		l.top().names[name] = sym
	}
}

func (l *lowerer) lookup(name string) (symbol, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if sym, ok := l.scopes[i].names[name]; ok {
			return sym, true
		}
	}
	return symbol{}, false
}

func (l *lowerer) lookupTag(name string) *ast.RecordDecl {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if rd, ok := l.scopes[i].tags[name]; ok {
			return rd
		}
	}
	return nil
}

func (l *lowerer) text(n *sitter.Node) string { return n.Utf8Text(l.src) }

func (l *lowerer) loc(n *sitter.Node) ast.Loc { return position(l.file, n) }

// takeRecords returns the records defined since the last call.
func (l *lowerer) takeRecords() []*ast.RecordDecl {
	rs := l.records
	l.records = nil
	return rs
}

func (l *lowerer) translationUnit(root *sitter.Node) {
	l.topLevel(root)
}

func (l *lowerer) topLevel(n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "function_definition":
			fd := l.functionDefinition(c)
			l.emitRecords()
			l.decls = append(l.decls, fd)
		case "declaration":
			ds := l.declaration(c)
			l.emitRecords()
			l.decls = append(l.decls, ds...)
		case "type_definition":
			l.typeDefinition(c)
			l.emitRecords()
		case "struct_specifier", "union_specifier", "enum_specifier":
			// A tag definition without declarators: `struct s { ... };`
			l.typeSpecifier(c)
			l.emitRecords()
		case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
			l.topLevel(c)
		case "linkage_specification":
			if body := c.ChildByFieldName("body"); body != nil {
				l.topLevel(body)
			}
		case "declaration_list":
			l.topLevel(c)
		case "preproc_include", "preproc_def", "preproc_function_def", "preproc_call", "comment":
		default:
			l.log.Debugf("%v: skipping top-level %s", l.loc(c), c.Kind())
		}
	}
}

func (l *lowerer) emitRecords() {
	for _, rd := range l.takeRecords() {
		l.decls = append(l.decls, rd)
	}
}
