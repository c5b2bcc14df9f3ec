package cfront

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/BarrensZeppelin/cconv/ast"
)

var unaryOps = map[string]ast.UnaryOp{
	"-": ast.Minus, "+": ast.Plus, "!": ast.LNot, "~": ast.Not,
}

func (l *lowerer) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Kind()
	}
	return ""
}

func (l *lowerer) expr(n *sitter.Node) ast.Expr {
	loc := l.loc(n)
	switch n.Kind() {
	case "identifier":
		return l.identifier(n)

	case "number_literal":
		return l.number(n)

	case "char_literal":
		return ast.NewChar(charValue(l.text(n)), loc)

	case "string_literal":
		return ast.NewString(stringValue(l.text(n)), loc)

	case "concatenated_string":
		var sb strings.Builder
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c.Kind() == "string_literal" {
				sb.WriteString(stringValue(l.text(c)))
			}
		}
		return ast.NewString(sb.String(), loc)

	case "true":
		return ast.NewInt(1, loc)
	case "false":
		return ast.NewInt(0, loc)
	case "null":
		return ast.NewImplicitCast(ast.NewInt(0, loc), ast.PointerTo(ast.VoidType))

	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			break
		}
		c := n.NamedChild(0)
		if c.Kind() == "compound_statement" {
			return ast.NewStmtExpr(l.compound(c, true), loc)
		}
		return ast.NewParen(l.expr(c))

	case "compound_statement":
		// ({ ... }) without the parenthesized wrapper
		return ast.NewStmtExpr(l.compound(n, true), loc)

	case "assignment_expression":
		lhs := l.expr(n.ChildByFieldName("left"))
		rhs := l.expr(n.ChildByFieldName("right"))
		op, ok := ast.BinaryOpFromString(l.operator(n))
		if !ok {
			break
		}
		if op == ast.Assign {
			rhs = ast.Convert(rhs, lhs.Type())
		} else {
			rhs = ast.RValue(rhs)
		}
		return ast.NewBinary(op, lhs, rhs, loc)

	case "binary_expression":
		x := ast.RValue(l.expr(n.ChildByFieldName("left")))
		y := ast.RValue(l.expr(n.ChildByFieldName("right")))
		op, ok := ast.BinaryOpFromString(l.operator(n))
		if !ok {
			break
		}
		if op.IsComparison() {
			// `p == NULL` compares at the pointer's type
			switch {
			case ast.IsPointer(x.Type()) && ast.IsNullPointerConstant(y):
				y = ast.Convert(y, x.Type())
			case ast.IsPointer(y.Type()) && ast.IsNullPointerConstant(x):
				x = ast.Convert(x, y.Type())
			}
		}
		return ast.NewBinary(op, x, y, loc)

	case "comma_expression":
		x := l.expr(n.ChildByFieldName("left"))
		y := l.expr(n.ChildByFieldName("right"))
		return ast.NewBinary(ast.Comma, x, ast.RValue(y), loc)

	case "unary_expression":
		op, ok := unaryOps[l.operator(n)]
		if !ok {
			break
		}
		return ast.NewUnary(op, ast.RValue(l.expr(n.ChildByFieldName("argument"))), loc)

	case "pointer_expression":
		x := l.expr(n.ChildByFieldName("argument"))
		if l.operator(n) == "&" {
			return ast.NewUnary(ast.AddrOf, x, loc)
		}
		return ast.NewUnary(ast.Deref, ast.RValue(x), loc)

	case "update_expression":
		x := l.expr(n.ChildByFieldName("argument"))
		prefix := n.Child(0) != nil && n.Child(0).Kind() == l.operator(n)
		var op ast.UnaryOp
		switch {
		case l.operator(n) == "++" && prefix:
			op = ast.PreInc
		case l.operator(n) == "++":
			op = ast.PostInc
		case prefix:
			op = ast.PreDec
		default:
			op = ast.PostDec
		}
		return ast.NewUnary(op, x, loc)

	case "cast_expression":
		t := l.typeName(n.ChildByFieldName("type"))
		return ast.NewCast(ast.RValue(l.expr(n.ChildByFieldName("value"))), t, loc)

	case "sizeof_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			return ast.NewSizeofType(l.typeName(t), loc)
		}
		v := n.ChildByFieldName("value")
		if t, ok := l.typedefOperand(v); ok {
			return ast.NewSizeofType(t, loc)
		}
		return ast.NewSizeofExpr(l.expr(v), loc)

	case "call_expression":
		fun := l.expr(n.ChildByFieldName("function"))
		var args []ast.Expr
		if al := n.ChildByFieldName("arguments"); al != nil {
			for i := uint(0); i < al.NamedChildCount(); i++ {
				if c := al.NamedChild(i); c.Kind() != "comment" {
					args = append(args, l.expr(c))
				}
			}
		}
		return ast.NewCall(fun, args, loc)

	case "field_expression":
		x := l.expr(n.ChildByFieldName("argument"))
		name := l.text(n.ChildByFieldName("field"))
		arrow := l.operator(n) == "->"
		rt := x.Type()
		if arrow {
			x = ast.RValue(x)
			rt = ast.Elem(x.Type())
		}
		if r, ok := ast.Underlying(rt).(*ast.Record); ok && r.Decl != nil {
			if f := r.Decl.Field(name); f != nil {
				return ast.NewMember(x, f, arrow, loc)
			}
		}
		l.log.Warnf("%v: unknown field %s", loc, name)
		return ast.NewUnsupported("member "+name, nil, loc, x)

	case "subscript_expression":
		x := ast.RValue(l.expr(n.ChildByFieldName("argument")))
		idx := ast.RValue(l.expr(n.ChildByFieldName("index")))
		return ast.NewIndex(x, idx, loc)

	case "conditional_expression":
		cond := ast.RValue(l.expr(n.ChildByFieldName("condition")))
		then := ast.RValue(l.expr(n.ChildByFieldName("consequence")))
		els := ast.RValue(l.expr(n.ChildByFieldName("alternative")))
		switch {
		case ast.IsPointer(then.Type()) && ast.IsNullPointerConstant(els):
			els = ast.Convert(els, then.Type())
		case ast.IsPointer(els.Type()) && ast.IsNullPointerConstant(then):
			then = ast.Convert(then, els.Type())
		}
		return ast.NewConditional(cond, then, els, loc)

	case "compound_literal_expression":
		t := l.typeName(n.ChildByFieldName("type"))
		init, ok := l.initializer(n.ChildByFieldName("value"), t).(*ast.InitList)
		if !ok {
			break
		}
		return ast.NewCompoundLit(t, init, loc)
	}

	var subs []ast.Expr
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if isExpr(c.Kind()) {
			subs = append(subs, l.expr(c))
		}
	}
	l.log.Warnf("%v: unsupported expression %s", loc, n.Kind())
	return ast.NewUnsupported(n.Kind(), nil, loc, subs...)
}

func isExpr(kind string) bool {
	return kind == "identifier" || strings.HasSuffix(kind, "_expression") ||
		strings.HasSuffix(kind, "_literal")
}

func (l *lowerer) identifier(n *sitter.Node) ast.Expr {
	name := l.text(n)
	sym, ok := l.lookup(name)
	switch {
	case ok && sym.enumerator:
		return ast.NewInt(sym.value, l.loc(n))
	case ok && sym.decl != nil:
		if _, td := sym.decl.(*ast.TypedefDecl); !td {
			return ast.Ref(sym.decl, l.loc(n))
		}
	}
	return ast.UnresolvedRef(name, l.loc(n))
}

// typedefOperand recognizes `sizeof(T)` for a typedef name T, which the
// grammar parses as an expression.
func (l *lowerer) typedefOperand(n *sitter.Node) (ast.Type, bool) {
	for n != nil && n.Kind() == "parenthesized_expression" && n.NamedChildCount() == 1 {
		n = n.NamedChild(0)
	}
	if n == nil || n.Kind() != "identifier" {
		return nil, false
	}
	sym, ok := l.lookup(l.text(n))
	if !ok {
		return nil, false
	}
	td, ok := sym.decl.(*ast.TypedefDecl)
	if !ok {
		return nil, false
	}
	return &ast.Named{Name: td.Name, Underlying: td.Type}, true
}

func (l *lowerer) number(n *sitter.Node) ast.Expr {
	text := l.text(n)
	loc := l.loc(n)
	hex := strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
	if (!hex && strings.ContainsAny(text, ".eE")) || (hex && strings.ContainsAny(text, ".pP")) {
		v, err := strconv.ParseFloat(strings.TrimRight(text, "fFlL"), 64)
		if err != nil {
			l.log.Warnf("%v: bad floating literal %s", loc, text)
		}
		return ast.NewFloat(v, loc)
	}

	digits := strings.TrimRight(text, "uUlL")
	if v, err := strconv.ParseInt(digits, 0, 64); err == nil {
		return ast.NewInt(v, loc)
	}
	u, err := strconv.ParseUint(digits, 0, 64)
	if err == nil {
		if v, err := safecast.Conv[int64](u); err == nil {
			return ast.NewInt(v, loc)
		}
	}
	l.log.Warnf("%v: integer literal %s out of range", loc, text)
	return ast.NewUnsupported("integer literal", ast.SizeType, loc)
}

// stringValue decodes a C string literal, including any encoding prefix.
func stringValue(text string) string {
	if i := strings.IndexByte(text, '"'); i > 0 {
		text = text[i:]
	}
	if v, err := strconv.Unquote(text); err == nil {
		return v
	}
	return strings.Trim(text, `"`)
}

func charValue(text string) int64 {
	if i := strings.IndexByte(text, '\''); i > 0 {
		text = text[i:]
	}
	if v, _, _, err := strconv.UnquoteChar(strings.Trim(text, "'"), '\''); err == nil {
		return int64(v)
	}
	return 0
}
