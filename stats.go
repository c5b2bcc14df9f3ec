package cconv

import (
	"fmt"
	"io"

	"github.com/BarrensZeppelin/cconv/internal/maps"
	"golang.org/x/tools/container/intsets"
)

// FileStats counts the pointer atoms declared in one file by solution.
type FileStats struct {
	File string
	// Constraints is the number of distinct pointer atoms.
	Constraints            int
	Ptr, NTArr, Arr, Wild int
}

func (fs *FileStats) add(o FileStats) {
	fs.Constraints += o.Constraints
	fs.Ptr += o.Ptr
	fs.NTArr += o.NTArr
	fs.Arr += o.Arr
	fs.Wild += o.Wild
}

type Stats struct {
	Files     []FileStats
	Total     FileStats
	Conflicts int
}

func countAtom(fs *FileStats, k ConstKind) {
	fs.Constraints++
	switch k {
	case Ptr:
		fs.Ptr++
	case NTArr:
		fs.NTArr++
	case Arr:
		fs.Arr++
	case Wild:
		fs.Wild++
	}
}

// ComputeStats summarizes the solution per file. It must run after Solve.
func (info *ProgramInfo) ComputeStats() *Stats {
	files := make(map[string]*FileStats)
	seen := make(map[string]*intsets.Sparse)
	for loc, cvs := range info.variables {
		fs, ok := files[loc.File]
		if !ok {
			fs = &FileStats{File: loc.File}
			files[loc.File] = fs
			seen[loc.File] = new(intsets.Sparse)
		}
		var visit func(cv ConstraintVariable)
		visit = func(cv ConstraintVariable) {
			switch cv := cv.(type) {
			case *PVConstraint:
				for _, a := range cv.atoms {
					if !a.IsConst() && seen[loc.File].Insert(int(a)) {
						countAtom(fs, info.cs.Assignment(a))
					}
				}
				if cv.fv != nil {
					visit(cv.fv)
				}
			case *FVConstraint:
				cv.forEachVar(func(pv *PVConstraint) { visit(pv) })
			}
		}
		for _, cv := range cvs {
			visit(cv)
		}
	}

	s := &Stats{Conflicts: len(info.cs.Conflicts())}
	for _, f := range maps.SortedKeys(files) {
		s.Files = append(s.Files, *files[f])
		s.Total.add(*files[f])
	}
	return s
}

func (s *Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "file|#constraints|#ptr|#ntarr|#arr|#wild")
	for _, f := range s.Files {
		fmt.Fprintf(w, "%s|%d|%d|%d|%d|%d\n", f.File, f.Constraints, f.Ptr, f.NTArr, f.Arr, f.Wild)
	}
	t := s.Total
	fmt.Fprintf(w, "Summary\nTotalConstraints|TotalPtrs|TotalNTArr|TotalArr|TotalWild\n%d|%d|%d|%d|%d\n",
		t.Constraints, t.Ptr, t.NTArr, t.Arr, t.Wild)
	if s.Conflicts > 0 {
		fmt.Fprintf(w, "Conflicts:%d\n", s.Conflicts)
	}
}
