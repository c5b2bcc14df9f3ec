// Package loader reads C files and lowers them into translation units.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/cfront"
	"github.com/BarrensZeppelin/cconv/config"
)

var ErrNoFiles = errors.New("no C files to load")

type Config struct {
	// Jobs bounds the number of files parsed at once. Defaults to
	// GOMAXPROCS.
	Jobs int
	Log  *config.LogGroup
}

// LoadSource lowers a single in-memory file.
func LoadSource(name, source string) (*ast.TranslationUnit, error) {
	return cfront.ParseString(name, source)
}

// LoadFiles parses the given files in parallel. Directories are searched
// for .c files. Translation units are returned in the order of the paths.
func LoadFiles(ctx context.Context, cfg Config, paths ...string) ([]*ast.TranslationUnit, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if cfg.Log == nil {
		cfg.Log = config.Discard()
	}
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	units := make([]*ast.TranslationUnit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("could not read %s: %w", path, err)
			}
			fe, err := cfront.New(cfg.Log)
			if err != nil {
				return err
			}
			defer fe.Close()
			tu, err := fe.Parse(path, src)
			if err != nil {
				return err
			}
			units[i] = tu
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cfg.Log.Infof("Loaded %d translation units", len(units))
	return units, nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".c") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// LoadArchive lowers every .c file of a txtar archive. The archive comment
// is ignored, as are files with other extensions.
func LoadArchive(data []byte) ([]*ast.TranslationUnit, error) {
	ar := txtar.Parse(data)
	fe, err := cfront.New(nil)
	if err != nil {
		return nil, err
	}
	defer fe.Close()

	var units []*ast.TranslationUnit
	for _, f := range ar.Files {
		if !strings.HasSuffix(f.Name, ".c") {
			continue
		}
		tu, err := fe.Parse(f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		units = append(units, tu)
	}
	if len(units) == 0 {
		return nil, ErrNoFiles
	}
	return units, nil
}

func LoadArchiveFile(path string) ([]*ast.TranslationUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read archive: %w", err)
	}
	return LoadArchive(data)
}
