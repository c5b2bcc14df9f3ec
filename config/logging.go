package config

import (
	"io"
	"log"
	"os"
)

type LogLevel int

const (
	// ErrLevel=1 - only errors.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - warnings about constructs the analysis cannot model.
	WarnLevel

	// InfoLevel=3 - progress and results.
	InfoLevel

	// DebugLevel=4 - per-declaration decisions (bounds misses, copies).
	DebugLevel

	// TraceLevel=5 - every constraint. Only usable on small inputs.
	TraceLevel
)

type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup returns a log group writing to stderr at the level of config.
func NewLogGroup(config *Config) *LogGroup {
	flags := log.Ltime
	return &LogGroup{
		level: LogLevel(config.LogLevel),
		trace: log.New(os.Stderr, "[TRACE] ", flags),
		debug: log.New(os.Stderr, "[DEBUG] ", flags),
		info:  log.New(os.Stderr, "[INFO] ", flags),
		warn:  log.New(os.Stderr, "[WARN] ", flags),
		err:   log.New(os.Stderr, "[ERROR] ", flags),
	}
}

// SetAllOutput sets all the output writers to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for _, lg := range l.loggers() {
		lg.SetOutput(w)
	}
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided
func (l *LogGroup) SetAllFlags(x int) {
	for _, lg := range l.loggers() {
		lg.SetFlags(x)
	}
}

func (l *LogGroup) loggers() [5]*log.Logger {
	return [...]*log.Logger{l.trace, l.debug, l.info, l.warn, l.err}
}

func (l *LogGroup) Level() LogLevel { return l.level }

func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}

// Discard returns a log group that drops everything. Tests use it to keep
// output quiet.
func Discard() *LogGroup {
	l := NewLogGroup(&Config{Options: Options{LogLevel: int(ErrLevel)}})
	l.SetAllOutput(io.Discard)
	return l
}
