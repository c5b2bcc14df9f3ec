package ast

import "log"

// Inspect traverses n in depth-first order, calling f for every node. If f
// returns false the children of that node are skipped. Declarations inside
// statements are visited along with their initializers and, for function
// declarations at file scope, their bodies.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	inspectExprs := func(xs ...Expr) {
		for _, x := range xs {
			if x != nil {
				Inspect(x, f)
			}
		}
	}
	inspectStmts := func(ss ...Stmt) {
		for _, s := range ss {
			if s != nil {
				Inspect(s, f)
			}
		}
	}

	switch n := n.(type) {
	case *VarDecl:
		inspectExprs(n.Init)
	case *FuncDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *RecordDecl:
		for _, fd := range n.Fields {
			Inspect(fd, f)
		}
	case *ParamDecl, *FieldDecl, *TypedefDecl:

	case *BlockStmt:
		inspectStmts(n.List...)
	case *DeclStmt:
		for _, d := range n.Decls {
			Inspect(d, f)
		}
	case *ExprStmt:
		inspectExprs(n.X)
	case *ReturnStmt:
		inspectExprs(n.Result)
	case *IfStmt:
		inspectExprs(n.Cond)
		inspectStmts(n.Then, n.Else)
	case *WhileStmt:
		inspectExprs(n.Cond)
		inspectStmts(n.Body)
	case *DoStmt:
		inspectStmts(n.Body)
		inspectExprs(n.Cond)
	case *ForStmt:
		inspectStmts(n.Init)
		inspectExprs(n.Cond, n.Post)
		inspectStmts(n.Body)
	case *SwitchStmt:
		inspectExprs(n.Cond)
		inspectStmts(n.Body)
	case *CaseStmt:
		inspectExprs(n.Value)
		inspectStmts(n.Body)
	case *LabeledStmt:
		inspectStmts(n.Body)
	case *BranchStmt:

	case *DeclRef, *IntLit, *FloatLit, *CharLit, *StringLit:

	case *Member:
		inspectExprs(n.X)
	case *Paren:
		inspectExprs(n.X)
	case *Cast:
		inspectExprs(n.X)
	case *Binary:
		inspectExprs(n.X, n.Y)
	case *Unary:
		inspectExprs(n.X)
	case *Index:
		inspectExprs(n.X, n.Index)
	case *Call:
		inspectExprs(n.Fun)
		inspectExprs(n.Args...)
	case *Conditional:
		inspectExprs(n.Cond, n.Then, n.Else)
	case *InitList:
		inspectExprs(n.Elts...)
	case *CompoundLit:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
	case *Sizeof:
		// The operand of sizeof is not evaluated.
	case *StmtExpr:
		Inspect(n.Body, f)
	case *Unsupported:
		inspectExprs(n.Subs...)
	default:
		log.Panicf("Inspect: unexpected node %T", n)
	}
}
