package ast

// Constructors computing the C type of each expression. Frontends and tests
// build trees through these so that every Expr carries a type.

func Ref(d Decl, loc Loc) *DeclRef {
	return &DeclRef{exprBase{d.DeclType(), loc}, d.DeclName(), d}
}

// UnresolvedRef names an identifier without a visible declaration.
func UnresolvedRef(name string, loc Loc) *DeclRef {
	return &DeclRef{exprBase{IntType, loc}, name, nil}
}

func NewInt(v int64, loc Loc) *IntLit { return &IntLit{exprBase{IntType, loc}, v} }

func NewFloat(v float64, loc Loc) *FloatLit {
	return &FloatLit{exprBase{DoubleType, loc}, v}
}

func NewChar(v int64, loc Loc) *CharLit { return &CharLit{exprBase{CharType, loc}, v} }

func NewString(s string, loc Loc) *StringLit {
	lit := &StringLit{exprBase{nil, loc}, s}
	lit.Ty = ArrayOf(CharType, lit.ByteLength())
	return lit
}

func NewParen(x Expr) *Paren { return &Paren{exprBase{x.Type(), x.Pos()}, x} }

func NewCast(x Expr, t Type, loc Loc) *Cast {
	return &Cast{exprBase{t, loc}, x, false}
}

func NewImplicitCast(x Expr, t Type) *Cast {
	return &Cast{exprBase{t, x.Pos()}, x, true}
}

// Convert wraps x in the implicit conversions C applies when x is used as
// a value of type to: array and function decay, then a conversion when the
// types still differ.
func Convert(x Expr, to Type) Expr {
	if IsArray(x.Type()) || IsFunc(x.Type()) {
		x = NewImplicitCast(x, Decay(x.Type()))
	}
	if to == nil || Identical(x.Type(), to) {
		return x
	}
	return NewImplicitCast(x, to)
}

// RValue applies decay only.
func RValue(x Expr) Expr { return Convert(x, nil) }

func NewBinary(op BinaryOp, x, y Expr, loc Loc) *Binary {
	return &Binary{exprBase{binaryType(op, x.Type(), y.Type()), loc}, op, x, y}
}

func binaryType(op BinaryOp, x, y Type) Type {
	switch {
	case op.IsAssign():
		return x
	case op == Comma:
		return y
	case op.IsComparison(), op == LAnd, op == LOr:
		return IntType
	case op.IsAdditive():
		dx, dy := Decay(x), Decay(y)
		switch {
		case IsPointer(dx) && IsPointer(dy) && op == Sub:
			return LongType
		case IsPointer(dx):
			return dx
		case IsPointer(dy) && op == Add:
			return dy
		}
	}
	return arithmetic(x, y)
}

// arithmetic approximates the usual arithmetic conversions.
func arithmetic(x, y Type) Type {
	switch {
	case IsFloating(x):
		return x
	case IsFloating(y):
		return y
	case IsInteger(x) && !IsChar(x) && !IsEnum(x):
		return x
	case IsInteger(y) && !IsChar(y) && !IsEnum(y):
		return y
	default:
		return IntType
	}
}

func NewUnary(op UnaryOp, x Expr, loc Loc) *Unary {
	var t Type
	switch op {
	case AddrOf:
		t = PointerTo(x.Type())
	case Deref:
		t = Elem(Decay(x.Type()))
		if t == nil {
			t = IntType
		}
	case LNot:
		t = IntType
	default:
		t = x.Type()
	}
	return &Unary{exprBase{t, loc}, op, x}
}

func NewIndex(x, index Expr, loc Loc) *Index {
	t := Elem(Decay(x.Type()))
	if t == nil {
		// i[a]
		t = Elem(Decay(index.Type()))
	}
	if t == nil {
		t = IntType
	}
	return &Index{exprBase{t, loc}, x, index}
}

func NewMember(x Expr, field *FieldDecl, arrow bool, loc Loc) *Member {
	return &Member{exprBase{field.Type, loc}, x, field, arrow}
}

// NewCall types a call by its callee. Calls of undeclared functions get
// type void *, which converts to anything without a diagnostic.
func NewCall(fun Expr, args []Expr, loc Loc) *Call {
	var t Type = IntType
	if ref, ok := StripImplicit(fun).(*DeclRef); ok && ref.Decl == nil {
		t = PointerTo(VoidType)
	}
	if f := FuncOf(fun.Type()); f != nil {
		t = f.Result
		for i, a := range args {
			if i < len(f.Params) {
				args[i] = Convert(a, f.Params[i])
			} else {
				args[i] = RValue(a)
			}
		}
	} else {
		for i, a := range args {
			args[i] = RValue(a)
		}
	}
	return &Call{exprBase{t, loc}, fun, args}
}

func NewConditional(cond, then, els Expr, loc Loc) *Conditional {
	t := Decay(then.Type())
	if IsNullPointerConstant(then) {
		t = Decay(els.Type())
	}
	return &Conditional{exprBase{t, loc}, cond, then, els}
}

func NewInitList(elts []Expr, t Type, loc Loc) *InitList {
	return &InitList{exprBase{t, loc}, elts}
}

func NewCompoundLit(t Type, init *InitList, loc Loc) *CompoundLit {
	return &CompoundLit{exprBase{t, loc}, init}
}

func NewSizeofType(t Type, loc Loc) *Sizeof {
	return &Sizeof{exprBase{SizeType, loc}, t, nil}
}

func NewSizeofExpr(x Expr, loc Loc) *Sizeof {
	return &Sizeof{exprBase{SizeType, loc}, nil, x}
}

func NewStmtExpr(body *BlockStmt, loc Loc) *StmtExpr {
	var t Type = VoidType
	if n := len(body.List); n > 0 {
		if es, ok := body.List[n-1].(*ExprStmt); ok {
			t = es.X.Type()
		}
	}
	return &StmtExpr{exprBase{t, loc}, body}
}

func NewUnsupported(what string, t Type, loc Loc, subs ...Expr) *Unsupported {
	if t == nil {
		t = IntType
	}
	return &Unsupported{exprBase{t, loc}, what, subs}
}

// IgnoreParens strips parentheses.
func IgnoreParens(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}

// StripImplicit strips parentheses and implicit conversions.
func StripImplicit(e Expr) Expr {
	for {
		switch x := e.(type) {
		case *Paren:
			e = x.X
		case *Cast:
			if !x.Implicit {
				return e
			}
			e = x.X
		default:
			return e
		}
	}
}

// IsNullPointerConstant recognizes `0` and `(void *)0` under any
// parentheses and implicit conversions.
func IsNullPointerConstant(e Expr) bool {
	switch x := StripImplicit(e).(type) {
	case *IntLit:
		return x.Value == 0
	case *Cast:
		return IsVoidPointer(x.Ty) && IsNullPointerConstant(x.X)
	default:
		return false
	}
}

// EvaluateInt folds integer constant expressions made of literals, sizeof
// of basic types and the arithmetic operators.
func EvaluateInt(e Expr) (int64, bool) {
	switch x := StripImplicit(e).(type) {
	case *IntLit:
		return x.Value, true
	case *CharLit:
		return x.Value, true
	case *Cast:
		if IsInteger(x.Ty) {
			return EvaluateInt(x.X)
		}
	case *Unary:
		v, ok := EvaluateInt(x.X)
		if !ok {
			return 0, false
		}
		switch x.Op {
		case Minus:
			return -v, true
		case Plus:
			return v, true
		case Not:
			return ^v, true
		}
	case *Binary:
		a, ok1 := EvaluateInt(x.X)
		b, ok2 := EvaluateInt(x.Y)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch x.Op {
		case Add:
			return a + b, true
		case Sub:
			return a - b, true
		case Mul:
			return a * b, true
		case Div:
			if b != 0 {
				return a / b, true
			}
		case Shl:
			return a << uint64(b), true
		}
	}
	return 0, false
}
