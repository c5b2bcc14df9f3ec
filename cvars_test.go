package cconv

import (
	"testing"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEnv solves every variable atom to the same kind.
type fixedEnv ConstKind

func (e fixedEnv) Assignment(a Atom) ConstKind {
	if k, ok := a.Const(); ok {
		return k
	}
	return ConstKind(e)
}

// mapEnv solves listed atoms and leaves the rest at Ptr.
type mapEnv map[Atom]ConstKind

func (e mapEnv) Assignment(a Atom) ConstKind {
	if k, ok := a.Const(); ok {
		return k
	}
	return e[a]
}

func TestPVConstraintShape(t *testing.T) {
	cs := NewConstraints()

	scalar := newPVConstraint(cs, ast.IntType, "x")
	assert.True(t, scalar.IsNonPtr())
	assert.Zero(t, cs.NumVars())

	pp := newPVConstraint(cs, ast.PointerTo(ast.PointerTo(ast.CharType)), "argv")
	assert.Len(t, pp.Atoms(), 2)
	assert.False(t, pp.OriginallyChecked())
	assert.False(t, pp.ArrPresent())

	mixed := newPVConstraint(cs, ast.CheckedPointerTo(ast.PointerTo(ast.IntType), ast.CheckedPtr), "m")
	require.Len(t, mixed.Atoms(), 2)
	assert.Equal(t, ConstAtom(Ptr), mixed.Atoms()[0])
	assert.False(t, mixed.Atoms()[1].IsConst())
	assert.True(t, mixed.OriginallyChecked())

	arr := newPVConstraint(cs, ast.ArrayOf(ast.IntType, 10), "a")
	assert.True(t, arr.ArrPresent())

	fp := newPVConstraint(cs, ast.PointerTo(&ast.Func{Result: ast.PointerTo(ast.IntType), Params: []ast.Type{ast.IntType}, Prototype: true}), "fp")
	require.NotNil(t, fp.FV())
	assert.Equal(t, 1, fp.FV().NumParams())
}

func TestMkString(t *testing.T) {
	cs := NewConstraints()
	intp := newPVConstraint(cs, ast.PointerTo(ast.IntType), "p")
	cstr := newPVConstraint(cs, ast.PointerTo(&ast.Qualified{Quals: ast.Const, Type: ast.CharType}), "s")
	pp := newPVConstraint(cs, ast.PointerTo(ast.PointerTo(ast.IntType)), "pp")
	arr := newPVConstraint(cs, ast.ArrayOf(ast.IntType, 10), "a")
	ptrArr := newPVConstraint(cs, ast.ArrayOf(ast.PointerTo(ast.IntType), 4), "ps")
	fn := &ast.Func{Result: ast.PointerTo(ast.IntType), Params: []ast.Type{ast.PointerTo(ast.CharType)}, Prototype: true}
	fp := newPVConstraint(cs, ast.PointerTo(fn), "fp")
	void := &ast.Func{Result: ast.VoidType, Prototype: true}
	vfp := newPVConstraint(cs, ast.PointerTo(void), "cb")

	for _, tc := range []struct {
		name string
		pv   *PVConstraint
		env  Env
		want string
	}{
		{"unchecked", intp, Unchecked, "int *p"},
		{"ptr", intp, fixedEnv(Ptr), "_Ptr<int> p"},
		{"arr", intp, fixedEnv(Arr), "_Array_ptr<int> p"},
		{"const nt", cstr, fixedEnv(NTArr), "_Nt_array_ptr<const char> s"},
		{"nested", pp, fixedEnv(Ptr), "_Ptr<_Ptr<int>> pp"},
		{"outer wild", pp, mapEnv{pp.Atoms()[0]: Wild}, "_Ptr<int> *pp"},
		{"inner wild", pp, mapEnv{pp.Atoms()[1]: Wild}, "_Ptr<int *> pp"},
		{"array", arr, fixedEnv(Ptr), "int a _Checked[10]"},
		{"nt array", arr, fixedEnv(NTArr), "int a _Nt_checked[10]"},
		{"wild array", arr, Unchecked, "int a[10]"},
		{"array of ptr", ptrArr, fixedEnv(Ptr), "_Ptr<int> ps _Checked[4]"},
		{"array of wild", ptrArr, Unchecked, "int *ps[4]"},
		{"fnptr", fp, fixedEnv(Ptr), "_Ptr<_Ptr<int> (_Ptr<char>)> fp"},
		{"fnptr wild", fp, Unchecked, "int *(*fp)(char *)"},
		{"void fnptr", vfp, fixedEnv(Ptr), "_Ptr<void (void)> cb"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pv.MkString(tc.env, true, false, false))
		})
	}

	assert.Equal(t, "_Ptr<int>", intp.MkString(fixedEnv(Ptr), true, true, false), "itype renderings carry no name")
	assert.Equal(t, "_Array_ptr<int>", arr.MkString(fixedEnv(Arr), true, true, false))
	assert.Equal(t, "_Ptr<int>", pp.MkString(fixedEnv(Ptr), false, false, true))
}

func TestFVConstraintMkString(t *testing.T) {
	cs := NewConstraints()
	d := &ast.FuncDecl{
		Name: "f",
		Type: &ast.Func{Result: ast.PointerTo(ast.IntType), Params: []ast.Type{ast.PointerTo(ast.IntType), ast.IntType}, Prototype: true},
	}
	d.Params = []*ast.ParamDecl{
		{Name: "x", Type: d.Type.Params[0], Func: d},
		{Name: "n", Type: d.Type.Params[1], Index: 1, Func: d},
	}
	fv := newFVConstraint(cs, d)
	assert.Equal(t, "int *f(int *, int)", fv.MkString(Unchecked, true))
	assert.Equal(t, "_Ptr<int> f(_Ptr<int>, int)", fv.MkString(fixedEnv(Ptr), true))
	assert.Equal(t, "x", fv.ParamVar(0).Name())
	assert.True(t, fv.ParamVar(0).PartOfFuncPrototype())

	empty := newFVConstraint(cs, &ast.FuncDecl{Name: "g", Type: &ast.Func{Result: ast.VoidType, Prototype: true}})
	assert.Equal(t, "void g(void)", empty.MkString(Unchecked, true))
	variadic := newFVConstraint(cs, &ast.FuncDecl{Name: "h", Type: &ast.Func{Result: ast.IntType, Variadic: true, Prototype: true}})
	assert.Equal(t, "int h(...)", variadic.MkString(Unchecked, true))
}

func TestConstrainToWildAndChanges(t *testing.T) {
	cs := NewConstraints()
	fn := &ast.Func{Result: ast.PointerTo(ast.IntType), Params: []ast.Type{ast.PointerTo(ast.CharType)}, Prototype: true}
	fp := newPVConstraint(cs, ast.PointerTo(fn), "fp")
	q := newPVConstraint(cs, ast.PointerTo(ast.IntType), "q")

	cs.Solve()
	assert.True(t, fp.AnyChanges(cs))
	assert.True(t, fp.IsChecked(cs))

	fp.ConstrainToWild(cs, "first", noLoc)
	fp.ConstrainToWild(cs, "second", noLoc)
	cs.Solve()
	assert.False(t, fp.AnyChanges(cs))
	assert.True(t, fp.HasWild(cs))
	for _, a := range fp.FV().ReturnVar().Atoms() {
		g, ok := cs.WildReason(a)
		require.True(t, ok)
		assert.Equal(t, "first", g.Reason)
	}

	q.ConstrainOuterTo(cs, Arr, true, "subscript", noLoc)
	cs.Solve()
	assert.True(t, q.HasArr(cs))
	k, ok := q.OuterKind(cs)
	assert.True(t, ok)
	assert.Equal(t, Arr, k)
}

func TestCopy(t *testing.T) {
	cs := NewConstraints()
	orig := newPVConstraint(cs, ast.CheckedPointerTo(ast.PointerTo(ast.IntType), ast.CheckedArray), "r")
	orig.SetBoundsKey(7)
	c := orig.Copy(cs)

	assert.Equal(t, orig.Atoms()[0], c.Atoms()[0], "constants are shared")
	assert.NotEqual(t, orig.Atoms()[1], c.Atoms()[1], "variables are fresh")
	k, ok := c.BoundsKey()
	assert.True(t, ok)
	assert.EqualValues(t, 7, k)

	c.ConstrainToWild(cs, "call site", noLoc)
	cs.Solve()
	assert.False(t, orig.HasWild(cs), "wildness of a copy does not reach the original")
}

func TestAnyArgumentIsWild(t *testing.T) {
	cs := NewConstraints()
	param := newPVConstraint(cs, ast.PointerTo(ast.IntType), "x")
	a1 := newPVConstraint(cs, ast.PointerTo(ast.IntType), "a1")
	a2 := newPVConstraint(cs, ast.PointerTo(ast.IntType), "a2")
	param.AddArgumentConstraints(CVarSet{a1, a2})
	param.AddArgumentConstraints(CVarSet{a1})
	assert.Len(t, param.ArgumentConstraints(), 2)

	cs.Solve()
	assert.False(t, param.AnyArgumentIsWild(cs))
	a2.ConstrainToWild(cs, "cast", noLoc)
	cs.Solve()
	assert.True(t, param.AnyArgumentIsWild(cs))
}
