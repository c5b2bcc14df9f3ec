package ast

type Stmt interface {
	Node
	stmtNode()
}

type BlockStmt struct {
	List []Stmt
	Loc  Loc
}

// DeclStmt introduces local variables (or local record types).
type DeclStmt struct {
	Decls []Decl
	Loc   Loc
}

type ExprStmt struct {
	X Expr
}

type ReturnStmt struct {
	Result Expr
	Loc    Loc
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Loc  Loc
}

type WhileStmt struct {
	Cond Expr
	Body Stmt
	Loc  Loc
}

type DoStmt struct {
	Body Stmt
	Cond Expr
	Loc  Loc
}

type ForStmt struct {
	Init Stmt
	Cond Expr
	Post Expr
	Body Stmt
	Loc  Loc
}

type SwitchStmt struct {
	Cond Expr
	Body Stmt
	Loc  Loc
}

// CaseStmt is a `case v:` or (with a nil Value) `default:` label.
type CaseStmt struct {
	Value Expr
	Body  Stmt
	Loc   Loc
}

type LabeledStmt struct {
	Label string
	Body  Stmt
	Loc   Loc
}

// BranchStmt is break, continue or goto.
type BranchStmt struct {
	Keyword string
	Label   string
	Loc     Loc
}

func (s *BlockStmt) Pos() Loc   { return s.Loc }
func (s *DeclStmt) Pos() Loc    { return s.Loc }
func (s *ExprStmt) Pos() Loc    { return s.X.Pos() }
func (s *ReturnStmt) Pos() Loc  { return s.Loc }
func (s *IfStmt) Pos() Loc      { return s.Loc }
func (s *WhileStmt) Pos() Loc   { return s.Loc }
func (s *DoStmt) Pos() Loc      { return s.Loc }
func (s *ForStmt) Pos() Loc     { return s.Loc }
func (s *SwitchStmt) Pos() Loc  { return s.Loc }
func (s *CaseStmt) Pos() Loc    { return s.Loc }
func (s *LabeledStmt) Pos() Loc { return s.Loc }
func (s *BranchStmt) Pos() Loc  { return s.Loc }

func (*BlockStmt) stmtNode()   {}
func (*DeclStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()  {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*DoStmt) stmtNode()      {}
func (*ForStmt) stmtNode()     {}
func (*SwitchStmt) stmtNode()  {}
func (*CaseStmt) stmtNode()    {}
func (*LabeledStmt) stmtNode() {}
func (*BranchStmt) stmtNode()  {}
