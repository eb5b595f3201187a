// internal/logutil/logutil.go
package logutil

import (
	"fmt"
	"io"
	"sync"
)

// Logger serializes diagnostic output from concurrently-running workers.
// Pipeline output lines are tagged with their sample ID before they reach
// the shared writer, so interleaving at the byte level cannot misattribute
// a line.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	quiet   bool
}

func New(w io.Writer, verbose, quiet bool) *Logger {
	return &Logger{w: w, verbose: verbose, quiet: quiet}
}

func (l *Logger) Warnf(format string, a ...any) {
	if l.quiet {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, "WARN: "+format+"\n", a...)
}

func (l *Logger) Verbosef(format string, a ...any) {
	if !l.verbose || l.quiet {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, format+"\n", a...)
}

// Line surfaces one captured pipeline output line attributed to sample.
func (l *Logger) Line(sample, line string) {
	if !l.verbose || l.quiet {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, "[%s] %s\n", sample, line)
}
