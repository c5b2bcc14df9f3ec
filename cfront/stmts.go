package cfront

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/BarrensZeppelin/cconv/ast"
)

// compound lowers a `{ ... }` block. Function bodies share the scope of
// the parameters.
func (l *lowerer) compound(n *sitter.Node, scoped bool) *ast.BlockStmt {
	if scoped {
		l.push()
		defer l.pop()
	}
	b := &ast.BlockStmt{Loc: l.loc(n)}
	l.stmts(n, &b.List)
	return b
}

func (l *lowerer) stmts(n *sitter.Node, list *[]ast.Stmt) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
			l.stmts(c, list)
			continue
		}
		if s := l.stmt(c); s != nil {
			*list = append(*list, s)
		}
	}
}

func (l *lowerer) stmt(n *sitter.Node) ast.Stmt {
	if n == nil {
		return nil
	}
	loc := l.loc(n)
	switch n.Kind() {
	case "compound_statement":
		return l.compound(n, true)

	case "declaration":
		decls := l.declaration(n)
		ds := &ast.DeclStmt{Loc: loc}
		for _, rd := range l.takeRecords() {
			ds.Decls = append(ds.Decls, rd)
		}
		ds.Decls = append(ds.Decls, decls...)
		if len(ds.Decls) == 0 {
			return nil
		}
		return ds

	case "type_definition":
		l.typeDefinition(n)
		if rs := l.takeRecords(); len(rs) > 0 {
			ds := &ast.DeclStmt{Loc: loc}
			for _, rd := range rs {
				ds.Decls = append(ds.Decls, rd)
			}
			return ds
		}
		return nil

	case "expression_statement":
		if n.NamedChildCount() == 0 {
			return nil
		}
		return &ast.ExprStmt{X: l.expr(n.NamedChild(0))}

	case "return_statement":
		rs := &ast.ReturnStmt{Loc: loc}
		if n.NamedChildCount() > 0 {
			x := l.expr(n.NamedChild(0))
			if l.fn != nil && l.fn.Type != nil && !ast.IsVoid(l.fn.Type.Result) {
				x = ast.Convert(x, l.fn.Type.Result)
			} else {
				x = ast.RValue(x)
			}
			rs.Result = x
		}
		return rs

	case "if_statement":
		s := &ast.IfStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Then: l.stmt(n.ChildByFieldName("consequence")),
			Loc:  loc,
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Kind() == "else_clause" {
				alt = alt.NamedChild(0)
			}
			s.Else = l.stmt(alt)
		}
		return s

	case "while_statement":
		return &ast.WhileStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Body: l.stmt(n.ChildByFieldName("body")),
			Loc:  loc,
		}

	case "do_statement":
		return &ast.DoStmt{
			Body: l.stmt(n.ChildByFieldName("body")),
			Cond: l.condition(n.ChildByFieldName("condition")),
			Loc:  loc,
		}

	case "for_statement":
		l.push()
		defer l.pop()
		s := &ast.ForStmt{Loc: loc}
		if init := n.ChildByFieldName("initializer"); init != nil {
			if init.Kind() == "declaration" {
				s.Init = l.stmt(init)
			} else {
				s.Init = &ast.ExprStmt{X: l.expr(init)}
			}
		}
		if c := n.ChildByFieldName("condition"); c != nil {
			s.Cond = ast.RValue(l.expr(c))
		}
		if u := n.ChildByFieldName("update"); u != nil {
			s.Post = l.expr(u)
		}
		s.Body = l.stmt(n.ChildByFieldName("body"))
		return s

	case "switch_statement":
		return &ast.SwitchStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Body: l.stmt(n.ChildByFieldName("body")),
			Loc:  loc,
		}

	case "case_statement":
		cs := &ast.CaseStmt{Loc: loc}
		body := &ast.BlockStmt{Loc: loc}
		value := n.ChildByFieldName("value")
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if value != nil && c.StartByte() == value.StartByte() && c.EndByte() == value.EndByte() {
				continue
			}
			if s := l.stmt(c); s != nil {
				body.List = append(body.List, s)
			}
		}
		if value != nil {
			cs.Value = l.expr(value)
		}
		cs.Body = body
		return cs

	case "labeled_statement":
		ls := &ast.LabeledStmt{Label: l.text(n.ChildByFieldName("label")), Loc: loc}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c.Kind() != "statement_identifier" {
				ls.Body = l.stmt(c)
			}
		}
		return ls

	case "break_statement":
		return &ast.BranchStmt{Keyword: "break", Loc: loc}
	case "continue_statement":
		return &ast.BranchStmt{Keyword: "continue", Loc: loc}
	case "goto_statement":
		return &ast.BranchStmt{Keyword: "goto", Label: l.text(n.ChildByFieldName("label")), Loc: loc}

	case "struct_specifier", "union_specifier", "enum_specifier":
		l.typeSpecifier(n)
		rs := l.takeRecords()
		if len(rs) == 0 {
			return nil
		}
		ds := &ast.DeclStmt{Loc: loc}
		for _, rd := range rs {
			ds.Decls = append(ds.Decls, rd)
		}
		return ds

	case "comment", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call":
		return nil

	default:
		l.log.Debugf("%v: skipping statement %s", loc, n.Kind())
		return nil
	}
}

// condition lowers the parenthesized condition of a control statement.
func (l *lowerer) condition(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	if n.Kind() == "parenthesized_expression" && n.NamedChildCount() > 0 {
		n = n.NamedChild(0)
	}
	if n.Kind() == "declaration" {
		// C2y `if (T x = ...)`, not modeled
		return ast.NewUnsupported("declaration condition", nil, l.loc(n))
	}
	return ast.RValue(l.expr(n))
}
