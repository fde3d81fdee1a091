// Package logger provides verbose logging for sercha-rag.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to trace the ingest and retrieval pipelines.
// Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu       sync.RWMutex
	verbose  bool
	colorize bool
	output   io.Writer = os.Stderr
)

// Prefix colours, used only when colour output is enabled.
var prefixColors = map[string]*color.Color{
	"[DEBUG] ": color.New(color.FgHiBlack),
	"[INFO] ":  color.New(color.FgCyan),
	"[WARN] ":  color.New(color.FgYellow),
	"[ERROR] ": color.New(color.FgRed, color.Bold),
	"\n=== ":   color.New(color.Bold),
}

func init() {
	for _, c := range prefixColors {
		c.EnableColor()
	}
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetColor enables coloured level prefixes. Callers enable it only when
// the output is a terminal.
func SetColor(on bool) {
	mu.Lock()
	defer mu.Unlock()
	colorize = on
}

// write holds the write lock so concurrent callers never interleave on output.
func write(always bool, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose && !always {
		return
	}
	if c, ok := prefixColors[prefix]; ok && colorize {
		prefix = c.Sprint(prefix)
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, "[DEBUG] ", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write(false, "[WARN] ", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	write(true, "[ERROR] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	write(false, "\n=== ", "%s ===", name)
}

// Timed logs how long a step took when the returned func is called.
//
//	defer logger.Timed("embed batch")()
func Timed(step string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", step, time.Since(start).Round(time.Millisecond))
	}
}
