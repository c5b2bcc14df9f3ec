package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/BarrensZeppelin/cconv"
	"github.com/BarrensZeppelin/cconv/ast"
	"github.com/BarrensZeppelin/cconv/config"
	"github.com/BarrensZeppelin/cconv/loader"
	"github.com/BarrensZeppelin/cconv/rewrite"
)

var (
	configFile string
	cpuprofile string
	colorMode  string
	archive    bool
	jobs       int
	verbose    bool
	allTypes   bool
	format     string
)

var rootCmd = &cobra.Command{
	Use:   "cconv [files or directories]",
	Short: "Infer Checked C pointer kinds for C programs",
	Long: `cconv infers which pointers of a C program can be declared as checked
pointers (_Ptr, _Array_ptr, _Nt_array_ptr) and prints the rewritten
declarations.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInfer,
}

var statsCmd = &cobra.Command{
	Use:   "stats [files]",
	Short: "Print per-file pointer kind statistics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _, err := analyze(cmd, args)
		if err != nil {
			return err
		}
		res.Stats.Print(cmd.OutOrStdout())
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump [files]",
	Short: "Dump constraints and constraint variables",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, cfg, err := analyze(cmd, args)
		if err != nil {
			return err
		}
		return res.Info.Dump(cmd.OutOrStdout(), cfg.OutputFormat)
	},
}

var dotCmd = &cobra.Command{
	Use:   "dot [files]",
	Short: "Print the constraint graph in Graphviz format",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _, err := analyze(cmd, args)
		if err != nil {
			return err
		}
		b, err := res.Info.DumpDOT()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(b, '\n'))
		return err
	},
}

var wildCmd = &cobra.Command{
	Use:   "wild [files]",
	Short: "Explain which constraints made pointers wild",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _, err := analyze(cmd, args)
		if err != nil {
			return err
		}
		printRootCauses(cmd.OutOrStdout(), res)
		return nil
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore [files]",
	Short: "Interactively query the solved pointer kinds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _, err := analyze(cmd, args)
		if err != nil {
			return err
		}
		return explore(res, os.Stdout)
	},
}

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "load options from a yaml or toml `file`")
	pf.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	pf.StringVar(&colorMode, "color", "auto", "colorize output (auto|on|off)")
	pf.BoolVar(&archive, "txtar", false, "read inputs as txtar archives of C files")
	pf.IntVarP(&jobs, "jobs", "j", 0, "number of files parsed in parallel")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&allTypes, "all-types", true, "infer array kinds and bounds")
	pf.StringVar(&format, "format", "", "dump format (text|json|msgpack)")

	rootCmd.AddCommand(statsCmd, dumpCmd, dotCmd, wildCmd, exploreCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch colorMode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		default:
			color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
		}
		if cpuprofile != "" {
			return startProfile(cpuprofile)
		}
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) { stopProfile() }

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		stopProfile()
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

var stopProfile = func() {}

func startProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	stopProfile = func() {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			log.Fatal("Failed to close", f)
		}
		stopProfile = func() {}
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefault()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("all-types") {
		cfg.AllTypes = allTypes
	}
	if verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if format != "" {
		cfg.OutputFormat = format
	}
	return cfg, cfg.Validate()
}

func analyze(cmd *cobra.Command, args []string) (*cconv.Result, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogGroup(cfg)

	var units []*ast.TranslationUnit
	if archive {
		for _, a := range args {
			us, err := loader.LoadArchiveFile(a)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", a, err)
			}
			units = append(units, us...)
		}
	} else {
		units, err = loader.LoadFiles(cmd.Context(), loader.Config{Jobs: jobs, Log: logger}, args...)
		if err != nil {
			return nil, nil, err
		}
	}

	res, err := cconv.Analyze(cconv.AnalysisConfig{Units: units, Config: cfg, Log: logger})
	if err != nil {
		return nil, nil, err
	}
	if cfg.DumpStats {
		res.Stats.Print(os.Stderr)
	}
	if cfg.DumpIntermediate {
		if err := res.Info.Dump(os.Stderr, cfg.OutputFormat); err != nil {
			return nil, nil, err
		}
	}
	return res, cfg, nil
}

var (
	locColor  = color.New(color.Bold)
	textColor = color.New(color.FgGreen)
	wildColor = color.New(color.FgRed)
)

func runInfer(cmd *cobra.Command, args []string) error {
	res, _, err := analyze(cmd, args)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	reps := rewrite.DeclReplacements(res)
	slices.SortStableFunc(reps, func(a, b rewrite.Replacement) bool { return a.Loc.Less(b.Loc) })
	for _, r := range reps {
		fmt.Fprintf(w, "%s %s\n", locColor.Sprint(r.Loc.String()+":"), textColor.Sprint(r.Text))
	}
	if len(res.Conflicts) > 0 {
		fmt.Fprintln(w, wildColor.Sprintf("%d unsatisfiable constraints", len(res.Conflicts)))
	}
	return nil
}

func printRootCauses(w io.Writer, res *cconv.Result) {
	rc := res.RootCauses()
	for _, g := range rc.Groups {
		fmt.Fprintf(w, "%s %s: %d pointers\n",
			locColor.Sprint(g.Loc.String()+":"), wildColor.Sprint(g.Reason), len(g.Roots)+len(g.Members))
		for _, a := range append(append([]cconv.Atom(nil), g.Roots...), g.Members...) {
			if loc, ok := rc.DeclLocs[a]; ok {
				fmt.Fprintf(w, "\t%v (%v)\n", loc, a)
			}
		}
	}
}
