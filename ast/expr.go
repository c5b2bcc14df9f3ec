package ast

type Expr interface {
	Node
	exprNode()
	Type() Type
}

type exprBase struct {
	Ty  Type
	Loc Loc
}

func (e *exprBase) Type() Type { return e.Ty }
func (e *exprBase) Pos() Loc   { return e.Loc }
func (*exprBase) exprNode()    {}

// DeclRef names a variable, parameter or function.
type DeclRef struct {
	exprBase
	Name string
	// Decl is nil for references to undeclared names.
	Decl Decl
}

type Member struct {
	exprBase
	X     Expr
	Field *FieldDecl
	Arrow bool
}

type IntLit struct {
	exprBase
	Value int64
}

type FloatLit struct {
	exprBase
	Value float64
}

type CharLit struct {
	exprBase
	Value int64
}

// StringLit holds the decoded contents of a string literal.
type StringLit struct {
	exprBase
	Value string
}

// ByteLength is the size of the literal including its terminator.
func (s *StringLit) ByteLength() int64 { return int64(len(s.Value)) + 1 }

type Paren struct {
	exprBase
	X Expr
}

// Cast is an explicit `(T)x` cast or a conversion inserted by the frontend.
type Cast struct {
	exprBase
	X        Expr
	Implicit bool
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Rem
	Shl
	Shr
	And
	Or
	Xor
	LAnd
	LOr
	EQ
	NE
	LT
	GT
	LE
	GE
	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	RemAssign
	ShlAssign
	ShrAssign
	AndAssign
	OrAssign
	XorAssign
	Comma
	// PtrMemD and PtrMemI are the C++ `.*` and `->*` operators.
	PtrMemD
	PtrMemI
)

var binaryOpNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%", Shl: "<<", Shr: ">>",
	And: "&", Or: "|", Xor: "^", LAnd: "&&", LOr: "||",
	EQ: "==", NE: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	Assign: "=", AddAssign: "+=", SubAssign: "-=", MulAssign: "*=",
	DivAssign: "/=", RemAssign: "%=", ShlAssign: "<<=", ShrAssign: ">>=",
	AndAssign: "&=", OrAssign: "|=", XorAssign: "^=",
	Comma: ",", PtrMemD: ".*", PtrMemI: "->*",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

func (op BinaryOp) IsAssign() bool { return op >= Assign && op <= XorAssign }

func (op BinaryOp) IsCompoundAssign() bool { return op > Assign && op <= XorAssign }

func (op BinaryOp) IsAdditive() bool { return op == Add || op == Sub }

func (op BinaryOp) IsEquality() bool { return op == EQ || op == NE }

func (op BinaryOp) IsComparison() bool { return op >= EQ && op <= GE }

// BinaryOpFromString maps a C operator token to a BinaryOp.
func BinaryOpFromString(s string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == s {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

type Binary struct {
	exprBase
	Op   BinaryOp
	X, Y Expr
}

type UnaryOp int

const (
	AddrOf UnaryOp = iota
	Deref
	Plus
	Minus
	Not
	LNot
	PreInc
	PreDec
	PostInc
	PostDec
	Real
	Imag
	Extension
	Coawait
)

var unaryOpNames = [...]string{
	AddrOf: "&", Deref: "*", Plus: "+", Minus: "-", Not: "~", LNot: "!",
	PreInc: "++", PreDec: "--", PostInc: "++", PostDec: "--",
	Real: "__real", Imag: "__imag", Extension: "__extension__", Coawait: "co_await",
}

func (op UnaryOp) String() string { return unaryOpNames[op] }

func (op UnaryOp) IsIncDec() bool { return op >= PreInc && op <= PostDec }

type Unary struct {
	exprBase
	Op UnaryOp
	X  Expr
}

// Index is an array subscript `X[Index]`.
type Index struct {
	exprBase
	X     Expr
	Index Expr
}

type Call struct {
	exprBase
	Fun  Expr
	Args []Expr
}

// Callee returns the function declaration called directly by c, or nil
// when the call goes through a function pointer or an unknown name.
func (c *Call) Callee() *FuncDecl {
	if ref, ok := StripImplicit(c.Fun).(*DeclRef); ok {
		if f, ok := ref.Decl.(*FuncDecl); ok {
			return f
		}
	}
	return nil
}

// CalleeName returns the name a call is made through, if it is a plain
// identifier.
func (c *Call) CalleeName() string {
	if ref, ok := StripImplicit(c.Fun).(*DeclRef); ok {
		return ref.Name
	}
	return ""
}

type Conditional struct {
	exprBase
	Cond, Then, Else Expr
}

type InitList struct {
	exprBase
	Elts []Expr
}

type CompoundLit struct {
	exprBase
	Init *InitList
}

// Sizeof is `sizeof(T)` when Arg is set and `sizeof x` otherwise.
type Sizeof struct {
	exprBase
	Arg Type
	X   Expr
}

// OperandType returns the type whose size is taken.
func (s *Sizeof) OperandType() Type {
	if s.Arg != nil {
		return s.Arg
	}
	return s.X.Type()
}

// StmtExpr is a GNU statement expression `({ ... })`.
type StmtExpr struct {
	exprBase
	Body *BlockStmt
}

// Unsupported stands in for constructs the frontend does not model.
type Unsupported struct {
	exprBase
	What string
	Subs []Expr
}
