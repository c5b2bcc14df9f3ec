package cfront

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/BarrensZeppelin/cconv/ast"
)

// declarator is the result of applying a C declarator to a base type.
type declarator struct {
	name string
	typ  ast.Type
	loc  ast.Loc
	// params of the innermost function declarator, for definitions.
	params []*ast.ParamDecl
	proto  bool
}

// specifiers lowers the type specifier of a declaration together with the
// qualifiers and storage class written next to it.
func (l *lowerer) specifiers(n *sitter.Node) (ast.Type, ast.StorageClass, bool) {
	var (
		quals   ast.Qualifiers
		storage = ast.NoStorage
		inline  bool
	)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "type_qualifier":
			quals |= qualifier(l.text(c))
		case "storage_class_specifier":
			switch l.text(c) {
			case "static":
				storage = ast.Static
			case "extern":
				storage = ast.Extern
			case "inline", "__inline", "__inline__":
				inline = true
			}
		}
	}
	t := l.typeSpecifier(n.ChildByFieldName("type"))
	if quals != 0 {
		t = &ast.Qualified{Quals: quals, Type: t}
	}
	return t, storage, inline
}

func qualifier(s string) ast.Qualifiers {
	switch s {
	case "const":
		return ast.Const
	case "volatile":
		return ast.Volatile
	case "restrict", "__restrict", "__restrict__":
		return ast.Restrict
	default:
		return 0
	}
}

func (l *lowerer) typeSpecifier(n *sitter.Node) ast.Type {
	if n == nil {
		// implicit int
		return ast.IntType
	}
	switch n.Kind() {
	case "primitive_type":
		return primitive(l.text(n))
	case "sized_type_specifier":
		return sized(strings.Join(strings.Fields(l.text(n)), " "))
	case "type_identifier":
		name := l.text(n)
		if sym, ok := l.lookup(name); ok {
			if td, ok := sym.decl.(*ast.TypedefDecl); ok {
				return &ast.Named{Name: name, Underlying: td.Type}
			}
		}
		return builtinTypedef(name)
	case "struct_specifier", "union_specifier":
		return l.record(n)
	case "enum_specifier":
		return l.enum(n)
	default:
		l.log.Warnf("%v: unsupported type specifier %s", l.loc(n), n.Kind())
		return ast.IntType
	}
}

func primitive(name string) ast.Type {
	switch name {
	case "void":
		return ast.VoidType
	case "char":
		return ast.CharType
	case "int":
		return ast.IntType
	case "float":
		return ast.FloatType
	case "double":
		return ast.DoubleType
	case "bool", "_Bool":
		return ast.BoolType
	case "size_t":
		return ast.SizeType
	default:
		// the fixed-width and pointer-sized integer names
		return &ast.Basic{Kind: ast.Int, Name: name, Unsigned: strings.HasPrefix(name, "u")}
	}
}

func sized(name string) ast.Type {
	unsigned := strings.Contains(name, "unsigned")
	switch {
	case strings.Contains(name, "char"):
		return &ast.Basic{Kind: ast.Char, Name: name, Unsigned: unsigned}
	case strings.Contains(name, "double"):
		return &ast.Basic{Kind: ast.Float, Name: name}
	case name == "long":
		return ast.LongType
	default:
		return &ast.Basic{Kind: ast.Int, Name: name, Unsigned: unsigned}
	}
}

// builtinTypedef types names that headers would have declared.
func builtinTypedef(name string) ast.Type {
	switch name {
	case "va_list", "__builtin_va_list":
		return ast.VaListType
	case "ssize_t", "ptrdiff_t", "intptr_t", "off_t":
		return &ast.Named{Name: name, Underlying: ast.LongType}
	case "uintptr_t":
		return &ast.Named{Name: name, Underlying: ast.SizeType}
	default:
		// An opaque struct such as FILE.
		return &ast.Named{Name: name, Underlying: &ast.Record{Name: name}}
	}
}

func (l *lowerer) record(n *sitter.Node) ast.Type {
	union := n.Kind() == "union_specifier"
	name := ""
	if nn := n.ChildByFieldName("name"); nn != nil {
		name = l.text(nn)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		if rd := l.lookupTag(name); name != "" && rd != nil {
			return rd.Type()
		}
		// Incomplete until a later definition in the same scope.
		rd := &ast.RecordDecl{Name: name, Union: union, Loc: l.loc(n)}
		if name != "" {
			l.scopes[0].tags[name] = rd
		}
		return rd.Type()
	}

	rd := l.top().tags[name]
	if rd == nil || name == "" || len(rd.Fields) > 0 {
		rd = &ast.RecordDecl{Name: name, Union: union}
	}
	rd.Loc = l.loc(n)
	if name != "" {
		l.top().tags[name] = rd
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		fd := body.NamedChild(i)
		if fd.Kind() != "field_declaration" {
			continue
		}
		base, _, _ := l.specifiers(fd)
		for _, d := range fieldsByName(fd, "declarator") {
			dc := l.declarator(d, base)
			rd.Fields = append(rd.Fields, &ast.FieldDecl{
				Name:   dc.name,
				Type:   dc.typ,
				Record: rd,
				Loc:    dc.loc,
			})
		}
	}
	l.records = append(l.records, rd)
	return rd.Type()
}

func (l *lowerer) enum(n *sitter.Node) ast.Type {
	t := &ast.Enum{}
	if nn := n.ChildByFieldName("name"); nn != nil {
		t.Name = l.text(nn)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return t
	}
	next := int64(0)
	for i := uint(0); i < body.NamedChildCount(); i++ {
		e := body.NamedChild(i)
		if e.Kind() != "enumerator" {
			continue
		}
		if v := e.ChildByFieldName("value"); v != nil {
			if val, ok := ast.EvaluateInt(l.expr(v)); ok {
				next = val
			}
		}
		l.declare(l.text(e.ChildByFieldName("name")), symbol{enumerator: true, value: next})
		next++
	}
	return t
}

// fieldsByName returns every child of n stored under field name.
func fieldsByName(n *sitter.Node, name string) []*sitter.Node {
	var res []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.FieldNameForChild(uint32(i)) == name {
			res = append(res, n.Child(i))
		}
	}
	return res
}

// declarator applies the declarator n to the base type t. Declarators nest
// inside out: the outermost node applies to t first.
func (l *lowerer) declarator(n *sitter.Node, t ast.Type) declarator {
	var res declarator
	for n != nil {
		switch n.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			res.name, res.loc = l.text(n), l.loc(n)
			n = nil
			continue
		case "pointer_declarator", "abstract_pointer_declarator":
			p := ast.PointerTo(t)
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c.Kind() == "type_qualifier" {
					p.Quals |= qualifier(l.text(c))
				}
			}
			t = p
		case "array_declarator", "abstract_array_declarator":
			size := int64(-1)
			if s := n.ChildByFieldName("size"); s != nil {
				if v, ok := ast.EvaluateInt(l.expr(s)); ok {
					size = v
				}
			}
			t = ast.ArrayOf(t, size)
		case "function_declarator", "abstract_function_declarator":
			f := &ast.Func{Result: t}
			res.params, f.Variadic, f.Prototype = l.parameters(n.ChildByFieldName("parameters"))
			for _, p := range res.params {
				f.Params = append(f.Params, p.Type)
			}
			res.proto = f.Prototype
			t = f
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			var inner *sitter.Node
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c.Kind() != "attribute_declaration" {
					inner = c
					break
				}
			}
			n = inner
			continue
		case "init_declarator":
		default:
			l.log.Warnf("%v: unsupported declarator %s", l.loc(n), n.Kind())
			n = nil
			continue
		}
		if !res.loc.Valid() {
			res.loc = l.loc(n)
		}
		n = n.ChildByFieldName("declarator")
	}
	res.typ = t
	return res
}

// parameters lowers a parameter list. Array and function parameters are
// adjusted to pointers.
func (l *lowerer) parameters(n *sitter.Node) (params []*ast.ParamDecl, variadic, proto bool) {
	if n == nil {
		return nil, false, false
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "variadic_parameter":
			variadic = true
		case "parameter_declaration":
			base, _, _ := l.specifiers(c)
			d := c.ChildByFieldName("declarator")
			if d == nil && ast.IsVoid(base) {
				continue
			}
			dc := l.declarator(d, base)
			if d == nil || dc.name == "" {
				dc.loc = l.loc(c)
			}
			params = append(params, &ast.ParamDecl{
				Name:  dc.name,
				Type:  adjustParam(dc.typ),
				Index: len(params),
				Loc:   dc.loc,
			})
		case "identifier":
			// K&R parameter name; its type comes later, default int
			params = append(params, &ast.ParamDecl{
				Name: l.text(c), Type: ast.IntType, Index: len(params), Loc: l.loc(c),
			})
		}
	}
	// `f()` declares no prototype, `f(void)` an empty one.
	proto = len(params) > 0 || variadic || n.NamedChildCount() > 0
	return params, variadic, proto
}

func adjustParam(t ast.Type) ast.Type {
	switch u := ast.Underlying(t).(type) {
	case *ast.Array:
		return &ast.Pointer{Elem: u.Elem, Checked: u.Checked}
	case *ast.Func:
		return ast.PointerTo(t)
	}
	return t
}

// typeName lowers a type_descriptor, as written in casts and sizeof.
func (l *lowerer) typeName(n *sitter.Node) ast.Type {
	base, _, _ := l.specifiers(n)
	return l.declarator(n.ChildByFieldName("declarator"), base).typ
}
