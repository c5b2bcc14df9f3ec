package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	fn := &Func{Result: PointerTo(IntType), Params: []Type{PointerTo(CharType)}, Prototype: true}

	for _, tc := range []struct {
		typ  Type
		name string
		want string
	}{
		{IntType, "x", "int x"},
		{PointerTo(IntType), "p", "int *p"},
		{PointerTo(PointerTo(IntType)), "", "int **"},
		{ArrayOf(IntType, 10), "a", "int a[10]"},
		{PointerTo(ArrayOf(IntType, 10)), "p", "int (*p)[10]"},
		{PointerTo(fn), "fp", "int *(*fp)(char *)"},
		{CheckedPointerTo(IntType, CheckedPtr), "p", "_Ptr<int> p"},
		{CheckedPointerTo(PointerTo(CharType), CheckedArray), "", "_Array_ptr<char *>"},
		{&Array{Elem: CharType, Size: 4, Checked: CheckedNTArray}, "s", "char s _Nt_checked[4]"},
		{PointerTo(&Qualified{Quals: Const, Type: CharType}), "s", "const char *s"},
		{&Pointer{Elem: IntType, Quals: Const}, "p", "int *const p"},
		{&Func{Result: VoidType, Prototype: true}, "", "void (void)"},
	} {
		assert.Equal(t, tc.want, Format(tc.typ, tc.name))
	}
}

func TestIdentical(t *testing.T) {
	s := &RecordDecl{Name: "s"}
	named := &Named{Name: "intptr", Underlying: PointerTo(IntType)}

	assert.True(t, Identical(PointerTo(IntType), PointerTo(IntType)))
	assert.True(t, Identical(named, PointerTo(IntType)))
	assert.True(t, Identical(s.Type(), &Record{Name: "s"}))
	assert.True(t, Identical(&Qualified{Quals: Const, Type: IntType}, IntType))
	assert.False(t, Identical(PointerTo(IntType), PointerTo(CharType)))
	assert.False(t, Identical(ArrayOf(IntType, 2), ArrayOf(IntType, 3)))
	assert.False(t, Identical(PointerTo(IntType), CheckedPointerTo(IntType, CheckedPtr)))
	assert.False(t, Identical(&Record{}, &Record{}), "anonymous records differ")
}

func TestExprTypes(t *testing.T) {
	loc := Loc{File: "t.c", Line: 1}
	p := &VarDecl{Name: "p", Type: PointerTo(IntType), Loc: loc}
	a := &VarDecl{Name: "a", Type: ArrayOf(CharType, 8), Loc: loc}
	i := &VarDecl{Name: "i", Type: IntType, Loc: loc}

	add := NewBinary(Add, Ref(p, loc), Ref(i, loc), loc)
	assert.True(t, Identical(add.Type(), PointerTo(IntType)))

	radd := NewBinary(Add, Ref(i, loc), Ref(a, loc), loc)
	assert.True(t, Identical(radd.Type(), PointerTo(CharType)))

	diff := NewBinary(Sub, Ref(p, loc), Ref(p, loc), loc)
	assert.True(t, IsInteger(diff.Type()))

	assert.True(t, Identical(NewIndex(Ref(a, loc), Ref(i, loc), loc).Type(), CharType))
	assert.True(t, Identical(NewUnary(AddrOf, Ref(i, loc), loc).Type(), PointerTo(IntType)))
	assert.True(t, Identical(NewUnary(Deref, Ref(p, loc), loc).Type(), IntType))
	assert.Equal(t, int64(6), NewString("hello", loc).ByteLength())
}

func TestConvertAndNull(t *testing.T) {
	loc := Loc{File: "t.c", Line: 1}
	a := &VarDecl{Name: "a", Type: ArrayOf(IntType, 4), Loc: loc}

	decayed := Convert(Ref(a, loc), PointerTo(IntType))
	cast, ok := decayed.(*Cast)
	if assert.True(t, ok) {
		assert.True(t, cast.Implicit)
		assert.IsType(t, &DeclRef{}, cast.X)
	}

	null := NewCast(NewInt(0, loc), PointerTo(VoidType), loc)
	assert.True(t, IsNullPointerConstant(NewParen(null)))
	assert.True(t, IsNullPointerConstant(Convert(NewInt(0, loc), PointerTo(IntType))))
	assert.False(t, IsNullPointerConstant(NewInt(1, loc)))

	v, ok := EvaluateInt(NewBinary(Mul, NewInt(5, loc), NewInt(3, loc), loc))
	assert.True(t, ok)
	assert.Equal(t, int64(15), v)
}
