// internal/mergeapp/app.go
package mergeapp

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"varbatch/internal/logutil"
	"varbatch/internal/manifest"
	"varbatch/internal/merge"
	"varbatch/internal/mergecli"
	"varbatch/internal/version"
)

// RunContext re-merges intermediates under an existing output tree using
// the batch run's frozen manifest, so merged artifacts can be rebuilt after
// failed units were re-run by hand.
func RunContext(_ context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := mergecli.NewFlagSet("varbatch-merge")
	fs.SetOutput(io.Discard)

	opts, err := mergecli.ParseArgs(fs, argv)
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
		_, _ = fmt.Fprintf(outw, "varbatch-merge version %s\n", version.Version)
		return 0
	}

	m, err := manifest.ReadFile(opts.ManifestPath)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(opts.ManifestPath)
	}

	log := logutil.New(stderr, opts.Verbose, opts.Quiet)

	failed := false
	for _, cat := range opts.Categories {
		succeeded := contributing(m, cat, opts.AllowMissing)
		sum, err := merge.Category(m, succeeded, outDir, cat)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			failed = true
			continue
		}
		if len(sum.MissingFailed) > 0 {
			log.Warnf("category %s: no contribution from units %v", cat, sum.MissingFailed)
		}
		_, _ = fmt.Fprintf(outw, "merged %s: %d records from %d units -> %s\n", cat, sum.Records, sum.Units, sum.OutPath)
	}
	if failed {
		return 3
	}
	return 0
}

// contributing marks every unit as a contributor; with allowMissing, units
// whose intermediate is absent are excluded instead of failing the merge.
func contributing(m *manifest.Manifest, category string, allowMissing bool) map[string]bool {
	ok := make(map[string]bool, len(m.Entries))
	for _, e := range m.Entries {
		ok[e.OutputStem] = true
		if allowMissing {
			if _, err := os.Stat(merge.IntermediatePath(e, category)); err != nil {
				ok[e.OutputStem] = false
			}
		}
	}
	return ok
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
