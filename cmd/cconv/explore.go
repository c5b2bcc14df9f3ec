package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/rewrite"
)

const exploreHelp = `commands:
  kind NAME   solved type of every declaration named NAME
  why NAME    reason a wild declaration is wild
  sig FUNC    rewritten signature of a function
  stats       per-file statistics
  quit`

const historyFile = ".cconv_history"

// declIndex finds declarations by name, including locals and parameters.
type declIndex map[string][]ast.Decl

func indexDecls(units []*ast.TranslationUnit) declIndex {
	idx := declIndex{}
	for _, tu := range units {
		for _, d := range tu.Decls {
			ast.Inspect(d, func(n ast.Node) bool {
				switch d := n.(type) {
				case *ast.FuncDecl:
					idx[d.Name] = append(idx[d.Name], d)
					for _, p := range d.Params {
						idx[p.Name] = append(idx[p.Name], p)
					}
				case *ast.VarDecl:
					idx[d.Name] = append(idx[d.Name], d)
				case *ast.RecordDecl:
					for _, f := range d.Fields {
						idx[f.Name] = append(idx[f.Name], f)
					}
				}
				return true
			})
		}
	}
	return idx
}

func explore(res *cconv.Result, out io.Writer) error {
	idx := indexDecls(res.Units)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		cmd, prefix, ok := strings.Cut(line, " ")
		if !ok {
			return nil
		}
		var cs []string
		for name := range idx {
			if strings.HasPrefix(name, prefix) {
				cs = append(cs, cmd+" "+name)
			}
		}
		return cs
	})

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("cconv> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if !query(res, idx, out, line) {
			return nil
		}
	}
}

// query runs one explore command and reports whether to continue.
func query(res *cconv.Result, idx declIndex, out io.Writer, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(out, exploreHelp)
	case "stats":
		res.Stats.Print(out)
	case "kind":
		for _, d := range lookup(idx, out, arg) {
			p := res.Pointer(d)
			if p == nil {
				fmt.Fprintf(out, "%s not a pointer\n", locColor.Sprint(d.Pos().String()+":"))
				continue
			}
			text := p.String()
			if b, ok := p.Bounds(); ok {
				text += " : " + b.MkString(res.Info.Bounds())
			}
			c := textColor
			if p.Kind() == cconv.Wild {
				c = wildColor
			}
			fmt.Fprintf(out, "%s %s %v\n", locColor.Sprint(d.Pos().String()+":"), c.Sprint(text), p.Kinds())
		}
	case "why":
		for _, d := range lookup(idx, out, arg) {
			p := res.Pointer(d)
			if p == nil {
				continue
			}
			reason, loc, ok := p.WildReason()
			if !ok {
				fmt.Fprintf(out, "%s %s is %v\n", locColor.Sprint(d.Pos().String()+":"), arg, p.Kind())
				continue
			}
			fmt.Fprintf(out, "%s %s: %s at %v\n",
				locColor.Sprint(d.Pos().String()+":"), arg, wildColor.Sprint(reason), loc)
		}
	case "sig":
		for _, d := range lookup(idx, out, arg) {
			fd, ok := d.(*ast.FuncDecl)
			if !ok {
				continue
			}
			sig, changed := rewrite.FunctionSignature(res, fd)
			if !changed {
				sig = ast.Format(fd.Type, fd.Name) + " (unchanged)"
			}
			fmt.Fprintf(out, "%s %s\n", locColor.Sprint(fd.Loc.String()+":"), sig)
		}
	default:
		fmt.Fprintf(out, "unknown command %q, try help\n", cmd)
	}
	return true
}

func lookup(idx declIndex, out io.Writer, name string) []ast.Decl {
	ds := idx[name]
	if len(ds) == 0 {
		fmt.Fprintf(out, "no declaration named %q\n", name)
	}
	return ds
}
