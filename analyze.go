package cconv

import (
	"errors"
	"log"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
)

func init() {
	log.SetFlags(log.Ltime | log.Lshortfile)
}

var ErrNoInput = errors.New("no translation units to analyze")

type AnalysisConfig struct {
	Units []*ast.TranslationUnit

	// Config defaults to config.NewDefault().
	Config *config.Config
	// Log defaults to a log group built from Config.
	Log *config.LogGroup
}

// Analyze infers the kind of every pointer in the given translation units.
// Problems in the input program never make it fail; they make pointers
// wild instead.
func Analyze(cfg AnalysisConfig) (*Result, error) {
	if len(cfg.Units) == 0 {
		return nil, ErrNoInput
	}
	info := NewProgramInfo(cfg.Config, cfg.Log)

	for _, tu := range cfg.Units {
		info.AddTranslationUnit(tu)
	}
	info.Link()
	info.AddFunctionDefDeclConstraints()
	info.finalizeTypeVars()

	info.log.Infof("Solving %d constraints over %d variables",
		len(info.cs.Geqs())+len(info.cs.Implications()), info.cs.NumVars())
	conflicts := info.cs.Solve()
	for _, g := range conflicts {
		info.log.Warnf("Unsatisfiable constraint %s (%s) at %v", info.cs.GeqString(g), g.Reason, g.Loc)
	}

	if info.config.AllTypes {
		info.InferBounds(cfg.Units)
		if n := info.bounds.Propagate(); n > 0 {
			info.log.Debugf("Propagated bounds to %d pointers", n)
		}
	}

	return info.result(cfg.Units, conflicts), nil
}
