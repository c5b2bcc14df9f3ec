package cconv

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
	"github.com/BarrensZeppelin/cconv/internal/maps"
	"github.com/vmihailenco/msgpack/v5"
)

type cvRecord struct {
	Name     string   `json:"Name" msgpack:"name"`
	Atoms    []string `json:"Atoms" msgpack:"atoms"`
	Solution string   `json:"Solution,omitempty" msgpack:"solution,omitempty"`
}

type varsRecord struct {
	Line      string     `json:"line" msgpack:"line"`
	Variables []cvRecord `json:"Variables" msgpack:"variables"`
}

type funcRecord struct {
	FuncName    string     `json:"FuncName" msgpack:"func_name"`
	Constraints []cvRecord `json:"Constraints" msgpack:"constraints"`
}

type fileFuncsRecord struct {
	FileName      string     `json:"FileName" msgpack:"file_name"`
	FVConstraints []cvRecord `json:"FVConstraints" msgpack:"fv_constraints"`
}

type staticFuncRecord struct {
	FuncName    string            `json:"FuncName" msgpack:"func_name"`
	Constraints []fileFuncsRecord `json:"Constraints" msgpack:"constraints"`
}

type setupRecord struct {
	Constraints  []string `json:"Constraints" msgpack:"constraints"`
	Implications []string `json:"Implications" msgpack:"implications"`
}

type dumpRecord struct {
	Setup                        setupRecord        `json:"Setup" msgpack:"setup"`
	ConstraintVariables          []varsRecord       `json:"ConstraintVariables" msgpack:"constraint_variables"`
	ExternalFunctionDefinitions  []funcRecord       `json:"ExternalFunctionDefinitions" msgpack:"external_function_definitions"`
	ExternalFunctionDeclarations []funcRecord       `json:"ExternalFunctionDeclarations" msgpack:"external_function_declarations"`
	StaticFunctionDefinitions    []staticFuncRecord `json:"StaticFunctionDefinitions" msgpack:"static_function_definitions"`
	StaticFunctionDeclarations   []staticFuncRecord `json:"StaticFunctionDeclarations" msgpack:"static_function_declarations"`
}

func (info *ProgramInfo) cvRecord(cv ConstraintVariable) cvRecord {
	rec := cvRecord{}
	var atoms []Atom
	switch cv := cv.(type) {
	case *PVConstraint:
		rec.Name = cv.name
		atoms = cv.atoms
		if info.cs.Solved() {
			rec.Solution = cv.MkString(info.cs, true, false, false)
		}
	case *FVConstraint:
		rec.Name = cv.name
		cv.forEachVar(func(pv *PVConstraint) { atoms = append(atoms, pv.atoms...) })
		if info.cs.Solved() {
			rec.Solution = cv.MkString(info.cs, true)
		}
	default:
		panic(fmt.Errorf("unexpected constraint variable %T", cv))
	}
	for _, a := range atoms {
		rec.Atoms = append(rec.Atoms, a.String())
	}
	return rec
}

func (info *ProgramInfo) fvRecords(fvs []*FVConstraint) []cvRecord {
	res := make([]cvRecord, len(fvs))
	for i, fv := range fvs {
		res[i] = info.cvRecord(fv)
	}
	return res
}

func (info *ProgramInfo) funcRecords(m funcMap) []funcRecord {
	var res []funcRecord
	for _, name := range maps.SortedKeys(m) {
		res = append(res, funcRecord{name, info.fvRecords(m[name])})
	}
	return res
}

func (info *ProgramInfo) staticFuncRecords(m staticFuncMap) []staticFuncRecord {
	var res []staticFuncRecord
	for _, name := range maps.SortedKeys(m) {
		rec := staticFuncRecord{FuncName: name}
		for _, file := range maps.SortedKeys(m[name]) {
			rec.Constraints = append(rec.Constraints, fileFuncsRecord{file, info.fvRecords(m[name][file])})
		}
		res = append(res, rec)
	}
	return res
}

func (info *ProgramInfo) dumpRecord() *dumpRecord {
	cs := info.cs
	rec := &dumpRecord{
		ExternalFunctionDefinitions:  info.funcRecords(info.externFuncDefns),
		ExternalFunctionDeclarations: info.funcRecords(info.externFuncDecls),
		StaticFunctionDefinitions:    info.staticFuncRecords(info.staticFuncDefns),
		StaticFunctionDeclarations:   info.staticFuncRecords(info.staticFuncDecls),
	}
	for _, g := range cs.Geqs() {
		rec.Setup.Constraints = append(rec.Setup.Constraints, cs.GeqString(g))
	}
	for _, imp := range cs.Implications() {
		rec.Setup.Implications = append(rec.Setup.Implications,
			fmt.Sprintf("%s => %s", cs.GeqString(&imp.Premise), cs.GeqString(&imp.Conclusion)))
	}
	locs := maps.SortedKeysFunc(info.variables, func(a, b ast.Loc) bool { return a.Less(b) })
	for _, loc := range locs {
		vr := varsRecord{Line: loc.String()}
		for _, cv := range info.variables[loc] {
			vr.Variables = append(vr.Variables, info.cvRecord(cv))
		}
		rec.ConstraintVariables = append(rec.ConstraintVariables, vr)
	}
	return rec
}

// Dump writes the constraints and constraint variables in the given
// format: text, json or msgpack.
func (info *ProgramInfo) Dump(w io.Writer, format string) error {
	switch format {
	case "", config.FormatText:
		return info.dumpText(w)
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info.dumpRecord()); err != nil {
			return fmt.Errorf("encoding json dump: %w", err)
		}
		return nil
	case config.FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(info.dumpRecord()); err != nil {
			return fmt.Errorf("encoding msgpack dump: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}

func (info *ProgramInfo) dumpText(w io.Writer) error {
	rec := info.dumpRecord()
	var sb strings.Builder
	sb.WriteString("CONSTRAINTS:\n")
	for _, c := range rec.Setup.Constraints {
		fmt.Fprintf(&sb, "%s\n", c)
	}
	for _, c := range rec.Setup.Implications {
		fmt.Fprintf(&sb, "%s\n", c)
	}

	sb.WriteString("\nConstraint Variables\n")
	for _, vr := range rec.ConstraintVariables {
		fmt.Fprintf(&sb, "%s=>%s\n", vr.Line, formatCVRecords(vr.Variables))
	}

	for _, sec := range [...]struct {
		title string
		funcs []funcRecord
	}{
		{"External Function Definitions", rec.ExternalFunctionDefinitions},
		{"External Function Declarations", rec.ExternalFunctionDeclarations},
	} {
		fmt.Fprintf(&sb, "\n%s\n", sec.title)
		for _, f := range sec.funcs {
			fmt.Fprintf(&sb, "%s=>%s\n", f.FuncName, formatCVRecords(f.Constraints))
		}
	}
	for _, sec := range [...]struct {
		title string
		funcs []staticFuncRecord
	}{
		{"Static Function Definitions", rec.StaticFunctionDefinitions},
		{"Static Function Declarations", rec.StaticFunctionDeclarations},
	} {
		fmt.Fprintf(&sb, "\n%s\n", sec.title)
		for _, f := range sec.funcs {
			for _, file := range f.Constraints {
				fmt.Fprintf(&sb, "%s:%s=>%s\n", file.FileName, f.FuncName, formatCVRecords(file.FVConstraints))
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatCVRecords(recs []cvRecord) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = fmt.Sprintf("%s [%s]", r.Name, strings.Join(r.Atoms, ", "))
		if r.Solution != "" {
			parts[i] += " : " + r.Solution
		}
	}
	return "[ " + strings.Join(parts, ", ") + " ]"
}
