package cfront

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/BarrensZeppelin/cconv/ast"
)

func (l *lowerer) functionDefinition(n *sitter.Node) *ast.FuncDecl {
	base, storage, _ := l.specifiers(n)
	dc := l.declarator(n.ChildByFieldName("declarator"), base)
	fd := l.function(dc, storage)

	l.push()
	defer l.pop()
	for _, p := range fd.Params {
		l.declare(p.Name, symbol{decl: p})
	}
	outer := l.fn
	l.fn = fd
	defer func() { l.fn = outer }()
	fd.Body = l.compound(n.ChildByFieldName("body"), false)
	return fd
}

func (l *lowerer) function(dc declarator, storage ast.StorageClass) *ast.FuncDecl {
	ft, _ := ast.Underlying(dc.typ).(*ast.Func)
	fd := &ast.FuncDecl{
		Name:    dc.name,
		Type:    ft,
		Params:  dc.params,
		Storage: storage,
		Loc:     dc.loc,
	}
	for _, p := range fd.Params {
		p.Func = fd
	}
	l.declare(fd.Name, symbol{decl: fd})
	return fd
}

// declaration lowers a declaration to one Decl per declarator.
func (l *lowerer) declaration(n *sitter.Node) []ast.Decl {
	base, storage, _ := l.specifiers(n)
	var decls []ast.Decl
	for _, d := range fieldsByName(n, "declarator") {
		var init *sitter.Node
		if d.Kind() == "init_declarator" {
			init = d.ChildByFieldName("value")
		}
		dc := l.declarator(d, base)
		if ast.IsFunc(dc.typ) {
			decls = append(decls, l.function(dc, storage))
			continue
		}

		vd := &ast.VarDecl{Name: dc.name, Type: dc.typ, Storage: storage, Func: l.fn, Loc: dc.loc}
		l.declare(vd.Name, symbol{decl: vd})
		if init != nil {
			vd.Init = l.initializer(init, vd.Type)
			if a, ok := ast.Underlying(vd.Type).(*ast.Array); ok && a.Size < 0 {
				vd.Type = completeArray(a, vd.Init)
			}
		}
		decls = append(decls, vd)
	}
	return decls
}

// completeArray sizes an array declared with [] from its initializer.
func completeArray(a *ast.Array, init ast.Expr) ast.Type {
	switch x := init.(type) {
	case *ast.StringLit:
		return &ast.Array{Elem: a.Elem, Size: x.ByteLength(), Checked: a.Checked}
	case *ast.InitList:
		n := int64(len(x.Elts))
		x.Ty = &ast.Array{Elem: a.Elem, Size: n, Checked: a.Checked}
		return x.Ty
	}
	return a
}

func (l *lowerer) typeDefinition(n *sitter.Node) {
	base, _, _ := l.specifiers(n)
	for _, d := range fieldsByName(n, "declarator") {
		dc := l.declarator(d, base)
		l.declare(dc.name, symbol{decl: &ast.TypedefDecl{Name: dc.name, Type: dc.typ, Loc: dc.loc}})
	}
}

// initializer lowers the initializer of an object of type t.
func (l *lowerer) initializer(n *sitter.Node, t ast.Type) ast.Expr {
	if n.Kind() != "initializer_list" {
		x := l.expr(n)
		if s, ok := ast.IgnoreParens(x).(*ast.StringLit); ok && ast.IsArray(t) {
			return s
		}
		return ast.Convert(x, t)
	}

	var elts []ast.Expr
	var fields []*ast.FieldDecl
	if r, ok := ast.Underlying(t).(*ast.Record); ok && r.Decl != nil {
		fields = r.Decl.Fields
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() == "comment" {
			continue
		}
		var et ast.Type
		if c.Kind() == "initializer_pair" {
			et = l.designated(c, t)
			c = c.ChildByFieldName("value")
		} else if e := ast.Elem(t); e != nil && ast.IsArray(t) {
			et = e
		} else if j := len(elts); j < len(fields) {
			et = fields[j].Type
		}
		if et == nil {
			elts = append(elts, ast.RValue(l.expr(c)))
			continue
		}
		elts = append(elts, l.initializer(c, et))
	}
	return ast.NewInitList(elts, t, l.loc(n))
}

// designated returns the type initialized by a `.f = v` or `[i] = v` pair.
func (l *lowerer) designated(n *sitter.Node, t ast.Type) ast.Type {
	for _, d := range fieldsByName(n, "designator") {
		switch d.Kind() {
		case "field_designator":
			r, ok := ast.Underlying(t).(*ast.Record)
			if !ok || r.Decl == nil {
				return nil
			}
			f := r.Decl.Field(l.text(d.NamedChild(0)))
			if f == nil {
				return nil
			}
			t = f.Type
		case "subscript_designator":
			if t = ast.Elem(t); t == nil {
				return nil
			}
		}
	}
	return t
}
