// Package config holds the options of the pointer-kind inference and the
// leveled loggers the analysis reports through.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Output formats of the intermediate dumps.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Options that can be set from a config file or the command line. Fields that
// are not set in the file keep their default value.
type Options struct {
	// LogLevel is one of the LogLevel constants (1 = errors only, 5 = trace).
	LogLevel int `yaml:"log-level" toml:"log-level"`

	// AllTypes enables array and null-terminated array inference together
	// with bounds inference. When false, array kinds are still solved but
	// bounds heuristics are skipped.
	AllTypes bool `yaml:"all-types" toml:"all-types"`

	// HandleVarargs makes extra arguments of variadic calls wild.
	HandleVarargs bool `yaml:"handle-varargs" toml:"handle-varargs"`

	// ExternOkay lists external functions whose missing definition does not
	// make their signature wild.
	ExternOkay []string `yaml:"extern-okay" toml:"extern-okay"`

	// Allocators lists additional functions that behave like malloc.
	Allocators []string `yaml:"allocators" toml:"allocators"`

	DumpStats        bool   `yaml:"dump-stats" toml:"dump-stats"`
	DumpIntermediate bool   `yaml:"dump-intermediate" toml:"dump-intermediate"`
	OutputFormat     string `yaml:"output-format" toml:"output-format"`

	// DisableBoundsHeuristics names bounds heuristics that must not run
	// (e.g. "struct", "params", "main", "alloc", "string").
	DisableBoundsHeuristics []string `yaml:"disable-bounds-heuristics" toml:"disable-bounds-heuristics"`
}

type Config struct {
	Options `yaml:",inline"`

	sourceFile string
}

// NewDefault returns the configuration used when no file is given.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel:     int(InfoLevel),
			AllTypes:     true,
			ExternOkay:   []string{"malloc", "free"},
			OutputFormat: FormatText,
		},
	}
}

// Load reads a config file. Files ending in .toml are decoded as TOML,
// anything else as YAML.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		if _, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg.Options); err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", filename, err)
		}
	} else if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%s: could not unmarshal config file: %w", filename, err)
	}

	cfg.sourceFile = filename
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = FormatText
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatText, FormatJSON, FormatMsgpack:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.OutputFormat)
	}
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level %d out of range", c.LogLevel)
	}
	return nil
}

// SourceFile is the file the config was loaded from, if any.
func (c *Config) SourceFile() string { return c.sourceFile }

// Verbose reports whether debug output is enabled.
func (c *Config) Verbose() bool { return c.LogLevel >= int(DebugLevel) }

func (c *Config) IsExternOkay(name string) bool {
	for _, n := range c.ExternOkay {
		if n == name {
			return true
		}
	}
	return false
}

var builtinAllocators = [...]string{"malloc", "calloc", "realloc"}

// IsAllocator reports whether calls to name allocate fresh memory.
func (c *Config) IsAllocator(name string) bool {
	for _, n := range builtinAllocators {
		if n == name {
			return true
		}
	}
	for _, n := range c.Allocators {
		if n == name {
			return true
		}
	}
	return false
}

// HeuristicEnabled reports whether the bounds heuristic called name may run.
func (c *Config) HeuristicEnabled(name string) bool {
	if !c.AllTypes {
		return false
	}
	for _, n := range c.DisableBoundsHeuristics {
		if n == name {
			return false
		}
	}
	return true
}
