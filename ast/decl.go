package ast

import "fmt"

// Loc identifies a position in a C source file. Two declarations are the
// same declaration iff their locations are equal.
type Loc struct {
	File string
	Line int
	Col  int
	// Macro is set for nodes produced by a macro expansion.
	Macro bool
}

func (l Loc) Valid() bool { return l.File != "" && l.Line > 0 }

func (l Loc) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Less orders locations by file, line and column.
func (l Loc) Less(o Loc) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Line != o.Line {
		return l.Line < o.Line
	}
	return l.Col < o.Col
}

type Node interface {
	Pos() Loc
}

type Decl interface {
	Node
	declNode()
	DeclName() string
	DeclType() Type
}

type StorageClass int

const (
	NoStorage StorageClass = iota
	Static
	Extern
)

func (s StorageClass) String() string {
	switch s {
	case Static:
		return "static"
	case Extern:
		return "extern"
	default:
		return ""
	}
}

// Annotations carries Checked C annotations already present in the input.
type Annotations struct {
	// Itype is the bounds-safe interface type, if any.
	Itype Type
	// Bounds is the text of an existing bounds expression, if any.
	Bounds string
}

type VarDecl struct {
	Name string
	Type Type
	Annotations
	Init    Expr
	Storage StorageClass
	// Func is the enclosing function; nil at file scope.
	Func *FuncDecl
	Loc  Loc
}

// Global reports whether the variable is declared at file scope.
func (d *VarDecl) Global() bool { return d.Func == nil }

type ParamDecl struct {
	Name string
	Type Type
	Annotations
	Index int
	Func  *FuncDecl
	Loc   Loc
}

type FieldDecl struct {
	Name string
	Type Type
	Annotations
	Record *RecordDecl
	Loc    Loc
}

type FuncDecl struct {
	Name   string
	Type   *Func
	Params []*ParamDecl
	// Body is nil for declarations without a definition.
	Body    *BlockStmt
	Storage StorageClass
	// Annotations of the return value.
	Annotations
	// TypeParams names the type variables of an _Itype_for_any function.
	TypeParams []string
	Loc        Loc
}

func (f *FuncDecl) HasBody() bool { return f.Body != nil }

func (f *FuncDecl) IsStatic() bool { return f.Storage == Static }

func (f *FuncDecl) IsGeneric() bool { return len(f.TypeParams) > 0 }

type RecordDecl struct {
	Name   string
	Union  bool
	Fields []*FieldDecl
	Loc    Loc
}

// Type returns the record type declared by d.
func (d *RecordDecl) Type() *Record {
	return &Record{Name: d.Name, Union: d.Union, Decl: d}
}

// Field looks up a field by name.
func (d *RecordDecl) Field(name string) *FieldDecl {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type TypedefDecl struct {
	Name string
	Type Type
	Loc  Loc
}

func (d *VarDecl) Pos() Loc     { return d.Loc }
func (d *ParamDecl) Pos() Loc   { return d.Loc }
func (d *FieldDecl) Pos() Loc   { return d.Loc }
func (d *FuncDecl) Pos() Loc    { return d.Loc }
func (d *RecordDecl) Pos() Loc  { return d.Loc }
func (d *TypedefDecl) Pos() Loc { return d.Loc }

func (*VarDecl) declNode()     {}
func (*ParamDecl) declNode()   {}
func (*FieldDecl) declNode()   {}
func (*FuncDecl) declNode()    {}
func (*RecordDecl) declNode()  {}
func (*TypedefDecl) declNode() {}

func (d *VarDecl) DeclName() string     { return d.Name }
func (d *ParamDecl) DeclName() string   { return d.Name }
func (d *FieldDecl) DeclName() string   { return d.Name }
func (d *FuncDecl) DeclName() string    { return d.Name }
func (d *RecordDecl) DeclName() string  { return d.Name }
func (d *TypedefDecl) DeclName() string { return d.Name }

func (d *VarDecl) DeclType() Type     { return d.Type }
func (d *ParamDecl) DeclType() Type   { return d.Type }
func (d *FieldDecl) DeclType() Type   { return d.Type }
func (d *FuncDecl) DeclType() Type    { return d.Type }
func (d *RecordDecl) DeclType() Type  { return d.Type() }
func (d *TypedefDecl) DeclType() Type { return d.Type }

// TranslationUnit is the lowered contents of one C source file.
type TranslationUnit struct {
	File  string
	Decls []Decl
}
