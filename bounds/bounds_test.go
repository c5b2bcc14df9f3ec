package bounds

import (
	"bytes"
	"testing"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameHeuristics(t *testing.T) {
	assert.True(t, HasNameMatch("data", "data_len"))
	assert.False(t, HasNameMatch("data", "len"))

	assert.True(t, FieldNameMatch("len"))
	assert.True(t, FieldNameMatch("NumItems"))
	assert.True(t, FieldNameMatch("buf_length"))
	assert.False(t, FieldNameMatch("flags"))

	assert.True(t, HasLengthKeyword("buf_len"))
	assert.False(t, HasLengthKeyword("idx"))

	assert.Equal(t, 3, LongestCommonSubsequence("abcde", "ace"))
	assert.Equal(t, 0, LongestCommonSubsequence("", "ace"))

	assert.True(t, NameSubStringMatch("arr", "arr_sz"))
	assert.True(t, NameSubStringMatch("Buffer", "bufferN"))
	assert.False(t, NameSubStringMatch("values", "n"))
}

func TestMergeAndReplace(t *testing.T) {
	info := NewInfo()
	loc := ast.Loc{File: "a.c", Line: 1}
	p := &ast.VarDecl{Name: "p", Type: ast.PointerTo(ast.IntType), Loc: loc}
	n := &ast.VarDecl{Name: "n", Type: ast.IntType, Loc: ast.Loc{File: "a.c", Line: 2}}

	pk := info.DeclKey(p, Function("f"))
	assert.Equal(t, pk, info.DeclKey(p, Function("f")), "keys are stable per declaration")
	nk := info.DeclKey(n, Function("f"))

	assert.True(t, info.MergeBounds(pk, Count(nk), AllocatorMatch))
	assert.False(t, info.MergeBounds(pk, Bytes(info.ConstKey(4)), AllocatorMatch))

	b, ok := info.Bounds(pk)
	require.True(t, ok)
	assert.Equal(t, "count(n)", b.MkString(info))

	info.ReplaceBounds(pk, Bytes(info.ConstKey(16)), VariableNameMatch)
	b, _ = info.Bounds(pk)
	assert.Equal(t, "byte_count(16)", b.MkString(info))
	assert.Equal(t, 0, info.Stats.Count(AllocatorMatch))
	assert.Equal(t, 1, info.Stats.Count(VariableNameMatch))

	var buf bytes.Buffer
	info.Stats.Print(&buf)
	assert.Contains(t, buf.String(), "Variable Name Match:1")
}

func TestScopes(t *testing.T) {
	assert.True(t, Function("f").Sees(Params("f")))
	assert.False(t, Params("f").Sees(Function("f")))
	assert.False(t, Function("f").Sees(Function("g")))
	assert.True(t, Struct("s").Sees(Struct("s")))
}

func TestContextSensitiveKeys(t *testing.T) {
	info := NewInfo()
	loc := ast.Loc{File: "a.c", Line: 3}
	f := &ast.FuncDecl{Name: "mk", Type: &ast.Func{Result: ast.PointerTo(ast.IntType)}, Loc: loc}
	call := ast.NewCall(ast.Ref(f, loc), nil, loc)

	ret := info.NewTemporary("mk_ret", Global())
	c1 := info.ContextSensitiveKey(call, ret)
	assert.Equal(t, c1, info.ContextSensitiveKey(call, ret))
	assert.NotEqual(t, ret, c1)

	_, ok := info.Bounds(c1)
	assert.False(t, ok)
	info.MergeBounds(ret, Count(info.ConstKey(8)), AllocatorMatch)
	b, ok := info.Bounds(c1)
	require.True(t, ok, "context-sensitive keys see the callee's bounds")
	assert.Equal(t, "count(8)", b.MkString(info))
}

func TestPropagate(t *testing.T) {
	info := NewInfo()
	src := info.NewTemporary("src", Function("f"))
	dst := info.NewTemporary("dst", Function("f"))
	other := info.NewTemporary("other", Function("g"))
	n := info.NewTemporary("n", Params("f"))

	info.MergeBounds(src, Count(n), AllocatorMatch)
	info.AddFlow(dst, src)
	info.AddFlow(other, src)

	assert.Equal(t, 1, info.Propagate())
	b, ok := info.Bounds(dst)
	require.True(t, ok)
	assert.Equal(t, Count(n), b)

	_, ok = info.Bounds(other)
	assert.False(t, ok, "n is not visible in g")
}
