package cconv_test

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
	"github.com/BarrensZeppelin/cconv/loader"
	"github.com/BarrensZeppelin/cconv/rewrite"
)

func init() {
	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func analyzeUnits(t *testing.T, cfg *config.Config, units ...*ast.TranslationUnit) *cconv.Result {
	t.Helper()
	res, err := cconv.Analyze(cconv.AnalysisConfig{
		Units:  units,
		Config: cfg,
		Log:    config.Discard(),
	})
	require.NoError(t, err)
	checkSoundness(t, res)
	return res
}

func analyzeSource(t *testing.T, src string) *cconv.Result {
	t.Helper()
	tu, err := loader.LoadSource("test.c", src)
	require.NoError(t, err)
	return analyzeUnits(t, nil, tu)
}

func analyzeArchive(t *testing.T, archive string) *cconv.Result {
	t.Helper()
	units, err := loader.LoadArchive([]byte(archive))
	require.NoError(t, err)
	return analyzeUnits(t, nil, units...)
}

// checkSoundness verifies that the solution satisfies every constraint that
// was not reported as a conflict.
func checkSoundness(t *testing.T, res *cconv.Result) {
	t.Helper()
	cs := res.Info.Constraints()
	conflicts := make(map[*cconv.Geq]bool, len(res.Conflicts))
	for _, g := range res.Conflicts {
		conflicts[g] = true
	}
	for _, gs := range [...][]*cconv.Geq{cs.Geqs(), cs.Derived()} {
		for _, g := range gs {
			if conflicts[g] {
				continue
			}
			assert.GreaterOrEqual(t, cs.Assignment(g.LHS), cs.Assignment(g.RHS),
				"unsatisfied: %s (%s) at %v", cs.GeqString(g), g.Reason, g.Loc)
		}
	}
}

// findDecl returns the only declaration named name in the program.
func findDecl(t *testing.T, res *cconv.Result, name string) ast.Decl {
	t.Helper()
	found := declsNamed(res, name)
	require.Len(t, found, 1, "declarations named %s", name)
	return found[0]
}

func declsNamed(res *cconv.Result, name string) []ast.Decl {
	var found []ast.Decl
	for _, tu := range res.Units {
		for _, d := range tu.Decls {
			ast.Inspect(d, func(n ast.Node) bool {
				switch d := n.(type) {
				case *ast.FuncDecl:
					if d.Name == name {
						found = append(found, d)
					}
					for _, p := range d.Params {
						if p.Name == name {
							found = append(found, p)
						}
					}
				case *ast.VarDecl:
					if d.Name == name {
						found = append(found, d)
					}
				case *ast.RecordDecl:
					for _, f := range d.Fields {
						if f.Name == name {
							found = append(found, f)
						}
					}
				}
				return true
			})
		}
	}
	return found
}

func kindOf(t *testing.T, res *cconv.Result, name string) cconv.ConstKind {
	t.Helper()
	p := res.Pointer(findDecl(t, res, name))
	require.NotNil(t, p, "%s is not a pointer", name)
	return p.Kind()
}

func TestAnalyze(t *testing.T) {
	t.Run("Identity", func(t *testing.T) {
		res := analyzeSource(t, `
int *id(int *p) { return p; }
void use(void) {
	int x = 1;
	int *q = id(&x);
}
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "p"))
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "q"))
		assert.Empty(t, res.Conflicts)

		sig, ok := rewrite.FunctionSignature(res, findDecl(t, res, "id").(*ast.FuncDecl))
		require.True(t, ok)
		assert.Equal(t, "_Ptr<int> id(_Ptr<int> p)", sig)
	})

	t.Run("Subscript", func(t *testing.T) {
		res := analyzeSource(t, `
int sum(int *a, int n) { return a[0]; }
`)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "a"))

		sig, ok := rewrite.FunctionSignature(res, findDecl(t, res, "sum").(*ast.FuncDecl))
		require.True(t, ok)
		assert.Equal(t, "int sum(_Array_ptr<int> a : count(n), int n)", sig)
	})

	t.Run("Arithmetic", func(t *testing.T) {
		res := analyzeSource(t, `
void walk(char *s) {
	char *e = s;
	e++;
}
`)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "e"))
		assert.Equal(t, cconv.Arr, kindOf(t, res, "s"), "assignment relates both sides")
	})

	t.Run("Allocation", func(t *testing.T) {
		res := analyzeSource(t, `
void f(int n) {
	int *one = malloc(sizeof(int));
	int *many = malloc(sizeof(int) * n);
	free(one);
}
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "one"))
		assert.Equal(t, cconv.Arr, kindOf(t, res, "many"))
	})

	t.Run("StringLiteral", func(t *testing.T) {
		res := analyzeSource(t, `
void f(void) {
	char *s = "abc";
}
`)
		assert.Equal(t, cconv.NTArr, kindOf(t, res, "s"))
	})

	t.Run("IndexedStringLiteral", func(t *testing.T) {
		res := analyzeSource(t, `
void f(void) {
	char *s = "abc";
	s[1];
}
`)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "s"))
		require.NotEmpty(t, res.Conflicts)
		assert.Equal(t, "String literal", res.Conflicts[0].Reason)
		assert.Equal(t, len(res.Conflicts), res.Stats.Conflicts)
	})

	t.Run("WildCast", func(t *testing.T) {
		res := analyzeSource(t, `
void f(void) {
	int *w = (int *)5;
	int *v = w;
}
`)
		assert.Equal(t, cconv.Wild, kindOf(t, res, "w"))
		assert.Equal(t, cconv.Wild, kindOf(t, res, "v"))

		_, loc, ok := res.Pointer(findDecl(t, res, "v")).WildReason()
		require.True(t, ok)
		assert.Equal(t, 3, loc.Line)

		rc := res.RootCauses()
		assert.NotEmpty(t, rc.Groups)
	})

	t.Run("VoidPointer", func(t *testing.T) {
		res := analyzeSource(t, `
void f(void *opaque) {
	int *p = opaque;
}
`)
		assert.Equal(t, cconv.Wild, kindOf(t, res, "opaque"))
		assert.Equal(t, cconv.Wild, kindOf(t, res, "p"), "wildness flows through the conversion")
	})

	t.Run("RecordField", func(t *testing.T) {
		res := analyzeSource(t, `
struct buf {
	char *data;
	int *cursor;
};
void put(struct buf *b, char c) {
	b->data[0] = c;
}
`)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "data"))
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "cursor"))
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "b"))
	})

	t.Run("UndefinedFunction", func(t *testing.T) {
		res := analyzeSource(t, `
void sink(int *q);
void f(void) {
	int x;
	int *p = &x;
	sink(p);
}
`)
		fv := res.Function(findDecl(t, res, "sink").(*ast.FuncDecl))
		require.NotNil(t, fv)
		require.Equal(t, 1, fv.NumParams())
		param := fv.ParamVar(0)
		assert.Equal(t, cconv.Wild, res.Env().Assignment(param.Atoms()[0]))
		assert.Equal(t, cconv.Wild, kindOf(t, res, "p"), "arguments to wild parameters are wild")
	})

	t.Run("ExternOkay", func(t *testing.T) {
		cfg := config.NewDefault()
		cfg.ExternOkay = append(cfg.ExternOkay, "sink")
		tu, err := loader.LoadSource("test.c", `
void sink(int *q);
`)
		require.NoError(t, err)
		res := analyzeUnits(t, cfg, tu)
		fv := res.Function(tu.Decls[0].(*ast.FuncDecl))
		require.NotNil(t, fv)
		assert.Equal(t, cconv.Ptr, res.Env().Assignment(fv.ParamVar(0).Atoms()[0]))
	})

	t.Run("FileScopeRecord", func(t *testing.T) {
		res := analyzeSource(t, `
struct node { struct node *next; };
int length(struct node *l) {
	int c = 0;
	while (l) {
		c++;
		l = l->next;
	}
	return c;
}
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "next"))
		assert.Contains(t, replacementTexts(res), "_Ptr<struct node> next")
	})

	t.Run("NestedPointerLevels", func(t *testing.T) {
		res := analyzeSource(t, `
void swap(int **a, int **b) {
	int *t = *a;
	*a = *b;
	*b = t;
}
void use(void) {
	int x, y;
	int *p = &x;
	int *q = &y;
	q[1] = 0;
	swap(&p, &q);
}
`)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "q"))
		assert.Equal(t, cconv.Arr, kindOf(t, res, "p"), "pointees of swapped pointers agree")
		assert.Equal(t, []cconv.ConstKind{cconv.Ptr, cconv.Arr}, res.Pointer(findDecl(t, res, "a")).Kinds())
		assert.Equal(t, []cconv.ConstKind{cconv.Ptr, cconv.Arr}, res.Pointer(findDecl(t, res, "b")).Kinds())
	})

	t.Run("UnprototypedDeclaration", func(t *testing.T) {
		res := analyzeSource(t, `
int f();
int f(int *a) { return *a; }
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "a"))

		var defn *ast.FuncDecl
		for _, d := range declsNamed(res, "f") {
			if fd := d.(*ast.FuncDecl); fd.HasBody() {
				defn = fd
			}
		}
		require.NotNil(t, defn)
		sig, ok := rewrite.FunctionSignature(res, defn)
		require.True(t, ok)
		assert.Equal(t, "int f(_Ptr<int> a)", sig)
	})

	t.Run("StatementExpression", func(t *testing.T) {
		res := analyzeSource(t, `
int *get(void) {
	return ({ int *q = 0; q; });
}
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "q"))
		assert.Contains(t, replacementTexts(res), "_Ptr<int> q")
	})

	t.Run("NoInput", func(t *testing.T) {
		_, err := cconv.Analyze(cconv.AnalysisConfig{})
		assert.ErrorIs(t, err, cconv.ErrNoInput)
	})
}

func replacementTexts(res *cconv.Result) []string {
	var texts []string
	for _, r := range rewrite.DeclReplacements(res) {
		texts = append(texts, r.Text)
	}
	return texts
}

func boundsOf(t *testing.T, res *cconv.Result, d ast.Decl) string {
	t.Helper()
	p := res.Pointer(d)
	require.NotNil(t, p)
	b, ok := p.Bounds()
	require.True(t, ok, "no bounds for %s", d.DeclName())
	return b.MkString(res.Info.Bounds())
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name    string
		archive string
		check   func(t *testing.T, res *cconv.Result)
	}{
		{
			name: "ConstantAllocation",
			archive: `
-- test.c --
void f(void) {
	int *p = malloc(5 * sizeof(int));
	p[3] = 1;
}
`,
			check: func(t *testing.T, res *cconv.Result) {
				assert.Equal(t, cconv.Arr, kindOf(t, res, "p"))
				assert.Equal(t, "count(5)", boundsOf(t, res, findDecl(t, res, "p")))
			},
		},
		{
			name: "ExternGlobal",
			archive: `
-- a.c --
extern int *global;
void a(void) { global[1] = 0; }
-- b.c --
extern int *global;
void b(void) { int x = *global; }
`,
			check: func(t *testing.T, res *cconv.Result) {
				globals := declsNamed(res, "global")
				require.Len(t, globals, 2)
				for _, g := range globals {
					assert.Equal(t, cconv.Arr, res.Pointer(g).Kind(), "%v", g.Pos())
				}
			},
		},
		{
			name: "RecordLengthField",
			archive: `
-- test.c --
struct vec { int *data; int len; };
int sum(struct vec *v) {
	int s = 0;
	for (int i = 0; i < v->len; i++)
		s += v->data[i];
	return s;
}
`,
			check: func(t *testing.T, res *cconv.Result) {
				assert.Equal(t, cconv.Arr, kindOf(t, res, "data"))
				assert.Equal(t, cconv.Ptr, kindOf(t, res, "v"))
				assert.Equal(t, "count(len)", boundsOf(t, res, findDecl(t, res, "data")))
				assert.Contains(t, replacementTexts(res), "_Array_ptr<int> data : count(len)")
			},
		},
		{
			name: "CallSiteCopies",
			archive: `
-- test.c --
int *id(int *x) { return x; }
void a(void) {
	int v;
	int *r1 = id(&v);
}
void b(void) {
	int w;
	int *r2 = id(&w);
	char *c = (char *)r2;
}
`,
			check: func(t *testing.T, res *cconv.Result) {
				assert.Equal(t, cconv.Wild, kindOf(t, res, "r2"))
				assert.Equal(t, cconv.Ptr, kindOf(t, res, "r1"), "other call sites are unaffected")
				assert.Equal(t, cconv.Ptr, kindOf(t, res, "x"), "the callee is unaffected")
				fv := res.Function(findDecl(t, res, "id").(*ast.FuncDecl))
				assert.Equal(t, cconv.Ptr, res.Env().Assignment(fv.ReturnVar().Atoms()[0]))
			},
		},
		{
			name: "MainArguments",
			archive: `
-- test.c --
int main(int argc, char **argv) {
	char *first = argv[1];
	return 0;
}
`,
			check: func(t *testing.T, res *cconv.Result) {
				assert.Equal(t, cconv.Arr, kindOf(t, res, "argv"))
				assert.Equal(t, "count(argc)", boundsOf(t, res, findDecl(t, res, "argv")))
			},
		},
		{
			name: "RedeclaredFunction",
			archive: `
-- a.c --
int *next(int *p);
void a(void) { int v; int *r = next(&v); }
-- b.c --
int *next(int *q);
-- c.c --
int *next(int *s) { s++; return s; }
`,
			check: func(t *testing.T, res *cconv.Result) {
				var rets []cconv.ConstKind
				for _, d := range declsNamed(res, "next") {
					if fd := d.(*ast.FuncDecl); !fd.HasBody() {
						fv := res.Info.FuncDeclConstraint(fd)
						require.NotNil(t, fv)
						rets = append(rets, res.Env().Assignment(fv.ReturnVar().Atoms()[0]))
					}
				}
				require.Len(t, rets, 2)
				assert.Equal(t, rets[0], rets[1])
				assert.Equal(t, cconv.Arr, rets[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, analyzeArchive(t, tt.archive))
		})
	}
}

func TestExplicitCastSafety(t *testing.T) {
	intp := ast.PointerTo(ast.IntType)
	charp := ast.PointerTo(ast.CharType)
	for _, ty := range []ast.Type{ast.IntType, intp, charp, ast.PointerTo(intp)} {
		assert.True(t, cconv.IsExplicitCastSafe(ty, ty), "%s to itself", ty)
	}
	assert.False(t, cconv.IsExplicitCastSafe(intp, ast.IntType))
	assert.False(t, cconv.IsExplicitCastSafe(ast.IntType, intp))
	assert.False(t, cconv.IsExplicitCastSafe(charp, intp))
	assert.True(t, cconv.IsExplicitCastSafe(ast.LongType, ast.IntType))
}

const linkedProgram = `
Files that only declare get see the definition in lib.c.
-- main.c --
int *get(void);
void use(void) {
	int *p = get();
	p[2] = 0;
}
-- lib.c --
int table[10];
int *get(void) { return table; }
`

func TestLink(t *testing.T) {
	t.Run("Linked", func(t *testing.T) {
		res := analyzeArchive(t, linkedProgram)
		assert.Equal(t, cconv.Arr, kindOf(t, res, "p"))
		assert.Len(t, res.Stats.Files, 2)
	})

	t.Run("Unlinked", func(t *testing.T) {
		mainOnly, _, _ := strings.Cut(linkedProgram, "-- lib.c --")
		res := analyzeArchive(t, mainOnly)
		assert.Equal(t, cconv.Wild, kindOf(t, res, "p"), "get has no definition")
	})

	t.Run("Static", func(t *testing.T) {
		res := analyzeArchive(t, `
-- a.c --
static int *pick(int *x) { return x; }
void a(void) { int v; int *r = pick(&v); }
-- b.c --
static int *pick(int *y) { y++; return y; }
`)
		assert.Equal(t, cconv.Ptr, kindOf(t, res, "x"), "static functions are not linked across files")
		assert.Equal(t, cconv.Arr, kindOf(t, res, "y"))
	})
}

func TestTestdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			units, err := loader.LoadArchiveFile(path)
			require.NoError(t, err)
			res := analyzeUnits(t, nil, units...)

			src, err := os.ReadFile(path)
			require.NoError(t, err)
			// Every declaration commented with a kind must solve to it.
			for _, tu := range units {
				for _, want := range expectations(string(src), tu.File) {
					assert.Equal(t, want.kind, kindOf(t, res, want.name).String(),
						"%s:%d: %s", tu.File, want.line, want.name)
				}
			}
		})
	}
}

type expectation struct {
	name, kind string
	line       int
}

// expectations collects the "// name: kind" comments of one archive file.
func expectations(archive, file string) []expectation {
	var res []expectation
	inFile := false
	line := 0
	for _, l := range strings.Split(archive, "\n") {
		if strings.HasPrefix(l, "-- ") && strings.HasSuffix(l, " --") {
			inFile = strings.TrimSpace(strings.Trim(l, "-")) == file
			line = 0
			continue
		}
		line++
		if !inFile {
			continue
		}
		_, comment, ok := strings.Cut(l, "// ")
		if !ok {
			continue
		}
		name, kind, ok := strings.Cut(comment, ": ")
		if !ok {
			continue
		}
		res = append(res, expectation{strings.TrimSpace(name), strings.TrimSpace(kind), line})
	}
	return res
}

func TestDump(t *testing.T) {
	res := analyzeSource(t, `
int *id(int *p) { return p; }
`)

	var text bytes.Buffer
	require.NoError(t, res.Info.Dump(&text, config.FormatText))
	assert.True(t, strings.HasPrefix(text.String(), "CONSTRAINTS:\n"))

	var js bytes.Buffer
	require.NoError(t, res.Info.Dump(&js, config.FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Contains(t, decoded, "Setup")
	assert.Contains(t, decoded, "ExternalFunctionDefinitions")

	var mp bytes.Buffer
	require.NoError(t, res.Info.Dump(&mp, config.FormatMsgpack))
	var fromMsgpack map[string]any
	require.NoError(t, msgpack.Unmarshal(mp.Bytes(), &fromMsgpack))
	assert.Contains(t, fromMsgpack, "setup")

	err := res.Info.Dump(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, config.ErrUnknownFormat)
}

func TestConstraintGraph(t *testing.T) {
	res := analyzeSource(t, `
void f(int *a) {
	int *b = a;
	a = b;
}
`)
	g := res.Info.ConstraintGraph()
	assert.Positive(t, g.Nodes().Len())

	b, err := res.Info.DumpDOT()
	require.NoError(t, err)
	assert.Contains(t, string(b), "digraph constraints {")

	a := res.Pointer(findDecl(t, res, "a")).Var().Atoms()[0]
	bb := res.Pointer(findDecl(t, res, "b")).Var().Atoms()[0]
	var class []cconv.Atom
	for _, c := range res.Info.EquivalenceClasses() {
		for _, x := range c {
			if x == a {
				class = c
			}
		}
	}
	assert.Contains(t, class, bb)
}

func TestStats(t *testing.T) {
	res := analyzeSource(t, `
void f(int *a, char *s) {
	int *w = (int *)3;
	a[1] = 0;
	s = "x";
}
`)
	require.Len(t, res.Stats.Files, 1)
	fs := res.Stats.Files[0]
	assert.Equal(t, "test.c", fs.File)
	assert.Equal(t, fs.Ptr+fs.NTArr+fs.Arr+fs.Wild, fs.Constraints)
	assert.Positive(t, fs.Arr)
	assert.Positive(t, fs.Wild)
	total := res.Stats.Total
	assert.Equal(t, fs.Constraints, total.Constraints)
	assert.Equal(t, fs.Wild, total.Wild)

	var out bytes.Buffer
	res.Stats.Print(&out)
	assert.Contains(t, out.String(), "file|#constraints|#ptr|#ntarr|#arr|#wild\ntest.c|")
}
