// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"varbatch/internal/appshell"
	"varbatch/internal/batcherr"
	"varbatch/internal/cli"
	"varbatch/internal/dispatch"
	"varbatch/internal/logutil"
	"varbatch/internal/manifest"
	"varbatch/internal/merge"
	"varbatch/internal/report"
	"varbatch/internal/resource"
	"varbatch/internal/runcfg"
	"varbatch/internal/runtmp"
	"varbatch/internal/track"
	"varbatch/internal/version"
)

// resolved is the effective run configuration after defaults, config file,
// and explicit flags have been layered, in that order.
type resolved struct {
	Image       string
	OutDir      string
	Jobs        int
	CoresPerJob int
	Categories  []string
	Grace       time.Duration
}

func resolve(opts cli.Options) (resolved, error) {
	cfg := runcfg.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = runcfg.Load(opts.ConfigPath); err != nil {
			return resolved{}, err
		}
	}
	r := resolved{
		Image:       cfg.Image,
		OutDir:      cfg.OutDir,
		Jobs:        cfg.Jobs,
		CoresPerJob: cfg.CoresPerJob,
		Categories:  cfg.Categories,
		Grace:       cfg.Grace(),
	}
	if opts.Set["image"] {
		r.Image = opts.Image
	}
	if opts.Set["outdir"] {
		r.OutDir = opts.OutDir
	}
	if opts.Set["jobs"] {
		r.Jobs = opts.Jobs
	}
	if opts.Set["cores-per-job"] {
		r.CoresPerJob = opts.CoresPerJob
	}
	if opts.Set["categories"] {
		r.Categories = opts.Categories
	}
	if opts.Set["grace"] {
		r.Grace = opts.Grace
	}
	if r.OutDir == "" {
		r.OutDir = filepath.Join(opts.Root, "batch_output")
	}
	return r, nil
}

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("varbatch")
	fs.SetOutput(io.Discard)

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.SetOutput(outw)
		fs.Usage()
		return 1
	}
	if opts.Version {
		_, _ = fmt.Fprintf(outw, "varbatch version %s\n", version.Version)
		return 0
	}

	run, err := resolve(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	log := logutil.New(stderr, opts.Verbose, opts.Quiet)

	m, err := manifest.Build(opts.Root, run.OutDir, log.Warnf)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	budget, warns := resource.Partition(resource.TotalCores(), run.Jobs, run.CoresPerJob)
	for _, w := range warns {
		log.Warnf("%s", w)
	}
	log.Verbosef("units=%d jobs=%d per-job=%d cores / %d GB", len(m.Entries), budget.Concurrency, budget.PerJobCores, budget.PerJobMemGB)
	log.Verbosef("scheduler request: %s", resource.SchedulerLine(budget))

	scratch, err := runtmp.New("")
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = scratch.Remove() }()

	planner := dispatch.Planner{Budget: budget, Executable: run.Image, ScratchDir: scratch.Path}

	if opts.DryRun {
		for i, e := range m.Entries {
			if _, err := fmt.Fprintln(outw, planner.Plan(i, e).CommandLine()); err != nil {
				return flushCode(outw, stderr)
			}
		}
		return flushCode(outw, stderr)
	}

	if _, err := exec.LookPath(run.Image); err != nil {
		_, _ = fmt.Fprintf(stderr, "%v: pipeline executable %q: %v\n", batcherr.ErrConfig, run.Image, err)
		return 1
	}

	if err := os.MkdirAll(run.OutDir, 0o755); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	if err := m.WriteFile(filepath.Join(run.OutDir, "manifest.tsv")); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	if err := writeCommandList(scratch, planner, m); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}

	start := time.Now()
	tr := track.New(m)
	pool := &dispatch.Pool{
		Planner: planner,
		Runner:  &dispatch.ExecRunner{Grace: run.Grace, Log: log},
	}
	runErr := pool.Run(parent, m, tr)
	cancelled := errors.Is(runErr, context.Canceled) || parent.Err() != nil
	if runErr != nil && !cancelled {
		_, _ = fmt.Fprintln(stderr, runErr)
		return 3
	}

	rep := tr.Report(m, time.Since(start), cancelled)

	var mergeErr error
	if !cancelled {
		succeeded := make(map[string]bool, len(rep.Results))
		for _, r := range rep.Results {
			succeeded[r.OutputStem] = r.OK()
		}
		var sums []merge.Summary
		sums, mergeErr = merge.All(m, succeeded, run.OutDir, run.Categories)
		if mergeErr != nil {
			_, _ = fmt.Fprintln(stderr, mergeErr)
		}
		for _, s := range sums {
			if len(s.MissingFailed) > 0 {
				log.Warnf("category %s: no contribution from failed units %v", s.Category, s.MissingFailed)
			}
			log.Verbosef("merged %s: %d records from %d units -> %s", s.Category, s.Records, s.Units, s.OutPath)
		}
	}

	if code := emitReport(outw, stderr, run.OutDir, opts.Report, rep, cancelled); code != 0 {
		return code
	}

	switch {
	case cancelled:
		return appshell.ExitCancelled
	case mergeErr != nil:
		return 3
	case rep.Failed > 0, rep.Succeeded < rep.Total:
		return 1
	default:
		return 0
	}
}

// writeCommandList records every planned invocation in the run scratch dir,
// one line per unit, for operator inspection while the batch runs.
func writeCommandList(scratch *runtmp.Dir, p dispatch.Planner, m *manifest.Manifest) error {
	f, err := os.Create(scratch.CommandListPath())
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i, e := range m.Entries {
		if _, err := fmt.Fprintln(w, p.Plan(i, e).CommandLine()); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// emitReport writes the persistent text report next to the merged artifacts
// (not when cancelled mid-run: the final names stay absent) and the
// requested format to stdout.
func emitReport(outw *bufio.Writer, stderr io.Writer, outDir, format string, rep track.BatchReport, cancelled bool) int {
	if !cancelled {
		f, err := os.Create(filepath.Join(outDir, "batch_report.tsv"))
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		werr := report.WriteText(f, rep)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			_, _ = fmt.Fprintln(stderr, werr)
			return 3
		}
	}

	var err error
	if format == cli.ReportJSON {
		err = report.WriteJSON(outw, rep)
	} else {
		err = report.WriteText(outw, rep)
	}
	if report.IsBrokenPipe(err) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	return flushCode(outw, stderr)
}

func flushCode(outw *bufio.Writer, stderr io.Writer) int {
	if err := outw.Flush(); report.IsBrokenPipe(err) {
		return 0
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
