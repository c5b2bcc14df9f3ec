package cfront_test

import (
	"errors"
	"testing"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/cfront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	tu, err := cfront.ParseString("t.c", src)
	require.NoError(t, err)
	return tu
}

func TestDeclarators(t *testing.T) {
	tu := parse(t, `
int *a[3];
int (*b)[3];
char **c;
int *const d = 0;
void (*fp)(int, char *);
`)
	require.Len(t, tu.Decls, 5)
	types := map[string]string{}
	for _, d := range tu.Decls {
		types[d.DeclName()] = ast.Format(d.DeclType(), d.DeclName())
	}
	assert.Equal(t, "int *a[3]", types["a"])
	assert.Equal(t, "int (*b)[3]", types["b"])
	assert.Equal(t, "char **c", types["c"])
	assert.Equal(t, "void (*fp)(int, char *)", types["fp"])

	d := tu.Decls[3].(*ast.VarDecl)
	assert.Equal(t, ast.Const, d.Type.(*ast.Pointer).Quals)
	assert.True(t, ast.IsNullPointerConstant(d.Init))
}

func TestFunctionDefinition(t *testing.T) {
	tu := parse(t, `
static int sum(int *a, int n) {
	int s = 0;
	for (int i = 0; i < n; i++)
		s += a[i];
	return s;
}
int proto();
int none(void);
`)
	require.Len(t, tu.Decls, 3)
	fd := tu.Decls[0].(*ast.FuncDecl)
	assert.Equal(t, "sum", fd.Name)
	assert.True(t, fd.IsStatic())
	require.Len(t, fd.Params, 2)
	assert.Same(t, fd, fd.Params[1].Func)
	assert.Equal(t, 1, fd.Params[1].Index)
	assert.Equal(t, ast.Loc{File: "t.c", Line: 2, Col: 21}, fd.Params[0].Loc)
	require.True(t, fd.HasBody())
	require.Len(t, fd.Body.List, 3)

	var indexes []*ast.Index
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if ix, ok := n.(*ast.Index); ok {
			indexes = append(indexes, ix)
		}
		return true
	})
	require.Len(t, indexes, 1)
	ref, ok := ast.StripImplicit(indexes[0].X).(*ast.DeclRef)
	require.True(t, ok)
	assert.Same(t, fd.Params[0], ref.Decl)

	assert.False(t, tu.Decls[1].(*ast.FuncDecl).Type.Prototype)
	none := tu.Decls[2].(*ast.FuncDecl)
	assert.True(t, none.Type.Prototype)
	assert.Empty(t, none.Params)
}

func TestRecords(t *testing.T) {
	tu := parse(t, `
struct list;
struct list { int *data; unsigned len; struct list *next; };
typedef struct list list_t;
int first(list_t *l) { return l->data[0]; }
`)
	require.Len(t, tu.Decls, 2)
	rd := tu.Decls[0].(*ast.RecordDecl)
	require.Len(t, rd.Fields, 3)
	assert.Equal(t, "len", rd.Fields[1].Name)
	next := rd.Fields[2].Type.(*ast.Pointer).Elem.(*ast.Record)
	assert.Same(t, rd, next.Decl)

	fd := tu.Decls[1].(*ast.FuncDecl)
	var member *ast.Member
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if m, ok := n.(*ast.Member); ok {
			member = m
		}
		return true
	})
	require.NotNil(t, member)
	assert.Same(t, rd.Fields[0], member.Field)
	assert.True(t, member.Arrow)
}

func TestExpressions(t *testing.T) {
	tu := parse(t, `
enum color { RED, GREEN = 5, BLUE };
void f(void) {
	char *s = "hi\n";
	int *p = malloc(sizeof(int) * BLUE);
	int x = (int)'a';
	p = p == NULL ? 0 : p;
}
`)
	fd := tu.Decls[0].(*ast.FuncDecl)
	var (
		str   *ast.StringLit
		call  *ast.Call
		casts []*ast.Cast
	)
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.StringLit:
			str = n
		case *ast.Call:
			call = n
		case *ast.Cast:
			if !n.Implicit {
				casts = append(casts, n)
			}
		}
		return true
	})
	require.NotNil(t, str)
	assert.Equal(t, "hi\n", str.Value)
	assert.EqualValues(t, 4, str.ByteLength())

	require.NotNil(t, call)
	assert.Equal(t, "malloc", call.CalleeName())
	assert.Nil(t, call.Callee())
	assert.True(t, ast.IsVoidPointer(call.Type()), "undeclared calls return void *")
	v, ok := ast.EvaluateInt(ast.StripImplicit(call.Args[0]).(*ast.Binary).Y)
	require.True(t, ok)
	assert.EqualValues(t, 6, v)

	require.Len(t, casts, 1)
	assert.True(t, ast.IsInteger(casts[0].Type()))
}

func TestStatementExpression(t *testing.T) {
	tu := parse(t, `
int *get(void) {
	return ({ struct pair { int *a; }; int *q = 0; q; });
}
`)
	fd := tu.Decls[0].(*ast.FuncDecl)
	var (
		se *ast.StmtExpr
		rd *ast.RecordDecl
		vd *ast.VarDecl
	)
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.StmtExpr:
			se = n
		case *ast.RecordDecl:
			rd = n
		case *ast.VarDecl:
			vd = n
		}
		return true
	})
	require.NotNil(t, se)
	assert.True(t, ast.IsPointer(se.Type()), "the value is that of the last expression")
	require.NotNil(t, rd)
	assert.Equal(t, "pair", rd.Name)
	require.Len(t, rd.Fields, 1)
	require.NotNil(t, vd)
	assert.Equal(t, "q", vd.Name)
}

func TestSyntaxError(t *testing.T) {
	_, err := cfront.ParseString("bad.c", "int f( {")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfront.ErrSyntax))
	assert.Contains(t, err.Error(), "bad.c:1:")
}
