// Package logger provides process-wide logging for the htp service.
// Debug, Info and Warn lines are printed to stderr only when verbose mode is
// enabled via the --verbose flag, so a run can be followed node by node.
// Error lines are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

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

func printf(always bool, level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose || always {
		fmt.Fprintf(output, level+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "[DEBUG] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "[WARN] ", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf(true, "[ERROR] ", format, args...)
}

// Run is a logger whose lines carry a run identifier.
type Run string

// ForRun returns a logger that prefixes each line with the short form of id.
func ForRun(id string) Run {
	if len(id) > 8 {
		id = id[:8]
	}
	return Run(id)
}

// Debug prints a run-scoped message if verbose mode is enabled.
func (r Run) Debug(format string, args ...any) {
	Debug("[%s] "+format, append([]any{string(r)}, args...)...)
}

// Info prints a run-scoped message if verbose mode is enabled.
func (r Run) Info(format string, args ...any) {
	Info("[%s] "+format, append([]any{string(r)}, args...)...)
}

// Warn prints a run-scoped warning if verbose mode is enabled.
func (r Run) Warn(format string, args ...any) {
	Warn("[%s] "+format, append([]any{string(r)}, args...)...)
}
