// internal/mergecli/options.go
package mergecli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"varbatch/internal/version"
)

// Options for the standalone re-merge tool.
type Options struct {
	ManifestPath string
	OutDir       string
	Categories   []string
	AllowMissing bool
	Quiet        bool
	Verbose      bool
	Version      bool
}

func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: re-run the merge step over an existing batch output tree

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.ManifestPath, "manifest", "", "frozen manifest file from the batch run [*]")
	fs.StringVar(&opt.OutDir, "outdir", "", "directory for merged artifacts [manifest's directory]")
	var cats stringSlice
	fs.Var(&cats, "categories", "merge category (repeatable) [0.05, 0.25]")
	fs.BoolVar(&opt.AllowMissing, "allow-missing", false, "tolerate units without intermediates [false]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress warnings [false]")
	fs.BoolVar(&opt.Verbose, "verbose", false, "report per-category record counts [false]")
	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Categories = cats
	if len(opt.Categories) == 0 {
		opt.Categories = []string{"0.05", "0.25"}
	}

	if opt.ManifestPath == "" {
		return opt, errors.New("--manifest is required")
	}
	for _, c := range opt.Categories {
		if c == "" || strings.ContainsAny(c, "/\\") {
			return opt, fmt.Errorf("invalid --categories value %q", c)
		}
	}
	return opt, nil
}

type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }
