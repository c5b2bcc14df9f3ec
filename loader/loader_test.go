package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BarrensZeppelin/cconv/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArchive(t *testing.T) {
	units, err := loader.LoadArchive([]byte(`
two files
-- a.c --
int *g;
-- notes.txt --
ignored
-- b.c --
extern int *g;
void f(void) { *g = 1; }
`))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "a.c", units[0].File)
	assert.Equal(t, "b.c", units[1].File)
	assert.Len(t, units[1].Decls, 2)
}

func TestLoadArchiveWithoutC(t *testing.T) {
	_, err := loader.LoadArchive([]byte("-- x.h --\nint x;\n"))
	assert.ErrorIs(t, err, loader.ErrNoFiles)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
		return p
	}
	main := write("main.c", "int main(void) { return 0; }\n")
	write("lib/a.c", "int a;\n")
	write("lib/b.c", "int b;\n")
	write("lib/b.h", "int b;\n")

	units, err := loader.LoadFiles(context.Background(), loader.Config{Jobs: 2}, main, filepath.Join(dir, "lib"))
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, main, units[0].File)
	assert.Equal(t, "a", units[1].Decls[0].DeclName())
	assert.Equal(t, "b", units[2].Decls[0].DeclName())

	_, err = loader.LoadFiles(context.Background(), loader.Config{}, filepath.Join(dir, "missing.c"))
	assert.Error(t, err)
}
