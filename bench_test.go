package cconv_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
	"github.com/BarrensZeppelin/cconv/loader"
)

var blackHole any

// synthesize returns a program of n functions that pass buffers down a
// chain of calls, with every tenth function casting its argument.
func synthesize(n int) string {
	var sb strings.Builder
	sb.WriteString("struct item { int *vals; int nvals; char *name; };\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "int *f%d(int *p, int len, struct item *it) {\n", i)
		sb.WriteString("\tint *q = p;\n")
		if i%3 == 0 {
			sb.WriteString("\tq[len - 1] = 0;\n")
		}
		if i%10 == 9 {
			sb.WriteString("\tchar *c = (char *)q;\n")
		}
		sb.WriteString("\tit->name = \"item\";\n")
		if i > 0 {
			fmt.Fprintf(&sb, "\treturn f%d(q, len, it);\n", i-1)
		} else {
			sb.WriteString("\treturn it->vals;\n")
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

// Benchmark constraint generation, solving and bounds inference on
// synthesized programs of increasing size.
func BenchmarkAnalysis(b *testing.B) {
	for _, n := range [...]int{100, 1000} {
		tu, err := loader.LoadSource("bench.c", synthesize(n))
		require.NoError(b, err)

		for _, allTypes := range [...]bool{false, true} {
			b.Run(fmt.Sprintf("Functions=%d/AllTypes=%v", n, allTypes), func(b *testing.B) {
				cfg := config.NewDefault()
				cfg.AllTypes = allTypes
				for i := 0; i < b.N; i++ {
					res, err := cconv.Analyze(cconv.AnalysisConfig{
						Units:  []*ast.TranslationUnit{tu},
						Config: cfg,
						Log:    config.Discard(),
					})
					require.NoError(b, err)
					blackHole = res
				}
			})
		}
	}
}

func BenchmarkParse(b *testing.B) {
	src := synthesize(1000)
	b.SetBytes(int64(len(src)))
	for i := 0; i < b.N; i++ {
		tu, err := loader.LoadSource("bench.c", src)
		require.NoError(b, err)
		blackHole = tu
	}
}
