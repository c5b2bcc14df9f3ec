// Package rewrite turns a solved analysis into replacement text for the
// declarations, function signatures and casts of the analyzed program.
// It does not edit files; callers splice the text in at each location.
package rewrite

import (
	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
)

// Replacement is the new text of one declaration or cast.
type Replacement struct {
	Node ast.Node
	Loc  ast.Loc
	Text string
}

type collector struct {
	res  *cconv.Result
	seen map[ast.Node]bool
	out  []Replacement
}

func (c *collector) add(n ast.Node, text string) {
	if c.seen[n] {
		return
	}
	c.seen[n] = true
	c.out = append(c.out, Replacement{Node: n, Loc: n.Pos(), Text: text})
}

// DeclReplacements returns the replacement of every declaration whose
// checked type differs from its written type, in source order per
// translation unit.
func DeclReplacements(res *cconv.Result) []Replacement {
	c := &collector{res: res, seen: make(map[ast.Node]bool)}
	for _, tu := range res.Units {
		for _, d := range tu.Decls {
			c.decl(d)
			if fd, ok := d.(*ast.FuncDecl); ok && fd.HasBody() {
				ast.Inspect(fd.Body, c.visit)
			}
			if vd, ok := d.(*ast.VarDecl); ok && vd.Init != nil {
				ast.Inspect(vd.Init, c.visit)
			}
		}
	}
	return c.out
}

func (c *collector) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.DeclStmt:
		for _, d := range n.Decls {
			c.decl(d)
		}
	case *ast.Cast:
		if text, ok := CastReplacement(c.res, n); ok {
			c.add(n, text)
		}
	}
	return true
}

func (c *collector) decl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.VarDecl:
		if text, ok := VarReplacement(c.res, d, d.Storage); ok {
			c.add(d, text)
		}
	case *ast.RecordDecl:
		for _, f := range d.Fields {
			if text, ok := VarReplacement(c.res, f, ast.NoStorage); ok {
				c.add(f, text)
			}
		}
	case *ast.FuncDecl:
		if text, ok := FunctionSignature(c.res, d); ok {
			c.add(d, text)
		}
	}
}

// VarReplacement renders a variable or field declaration with its solved
// type and bounds. It reports false when nothing changed.
func VarReplacement(res *cconv.Result, d ast.Decl, storage ast.StorageClass) (string, bool) {
	p := res.Pointer(d)
	if p == nil {
		return "", false
	}
	pv := p.Var()
	env := res.Env()
	if pv.PartOfFuncPrototype() || !pv.AnyChanges(env) {
		return "", false
	}

	prefix := ""
	if storage != ast.NoStorage {
		prefix = storage.String() + " "
	}
	if pv.HasItype() {
		if !pv.IsChecked(env) {
			return "", false
		}
		text := ast.Format(d.DeclType(), d.DeclName()) + " : itype(" + pv.MkString(env, false, true, false) + ")"
		return prefix + text + res.BoundsAnnotation(pv, true), true
	}
	return prefix + pv.MkString(env, true, false, false) + res.BoundsAnnotation(pv, false), true
}

// CastReplacement renders the checked type of an explicit pointer cast as
// "(T)".
func CastReplacement(res *cconv.Result, c *ast.Cast) (string, bool) {
	pv, ok := res.CastVar(c)
	if !ok || !pv.AnyChanges(res.Env()) {
		return "", false
	}
	return "(" + pv.MkString(res.Env(), false, false, false) + ")", true
}
