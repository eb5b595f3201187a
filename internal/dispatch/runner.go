// internal/dispatch/runner.go
package dispatch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"varbatch/internal/logutil"
	"varbatch/internal/natsort"
)

// Runner executes one planned invocation and reports its exit code. A
// nonzero code is not an error at this boundary; err is reserved for
// failures to invoke at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (exitCode int, diag string, err error)
}

// ExecRunner invokes the external pipeline with exec. Each invocation gets
// its own working directory and environment; stdout/stderr are captured
// line-wise and surfaced tagged with the sample ID.
type ExecRunner struct {
	Grace time.Duration // termination grace before hard kill
	Log   *logutil.Logger
}

const diagCap = 8 * 1024

func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (int, string, error) {
	if err := os.MkdirAll(inv.WorkDir, 0o755); err != nil {
		return -1, "", err
	}
	if err := os.MkdirAll(filepath.Dir(inv.Entry.OutputStem), 0o755); err != nil {
		return -1, "", err
	}
	if err := os.WriteFile(inv.LineFile, []byte(inv.Entry.Line()+"\n"), 0o644); err != nil {
		return -1, "", err
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.WorkDir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.WaitDelay = r.Grace
	cmd.Cancel = func() error {
		// Ask politely first; WaitDelay escalates to SIGKILL.
		return cmd.Process.Signal(os.Interrupt)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, "", err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, "", err
	}
	if err := cmd.Start(); err != nil {
		return -1, "", err
	}

	var (
		diag strings.Builder
		mu   sync.Mutex
		wg   sync.WaitGroup
	)
	capture := func(rd io.Reader, keep bool) {
		defer wg.Done()
		sc := bufio.NewScanner(rd)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := sc.Text()
			r.Log.Line(inv.Entry.SampleID, line)
			if keep {
				mu.Lock()
				if diag.Len() < diagCap {
					diag.WriteString(line)
					diag.WriteByte('\n')
				}
				mu.Unlock()
			}
		}
	}
	wg.Add(2)
	go capture(stdout, false)
	go capture(stderr, true)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return ee.ExitCode(), strings.TrimRight(diag.String(), "\n"), nil
		}
		return -1, strings.TrimRight(diag.String(), "\n"), err
	}
	return 0, "", nil
}

// outputsOf lists the per-unit artifacts the pipeline left under the
// unit's output stem, in natural path order.
func outputsOf(inv Invocation) []string {
	matches, err := filepath.Glob(inv.Entry.OutputStem + "_*")
	if err != nil {
		return nil
	}
	var out []string
	for _, m := range matches {
		if m == inv.WorkDir {
			continue
		}
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			out = append(out, m)
		}
	}
	natsort.Strings(out)
	return out
}
