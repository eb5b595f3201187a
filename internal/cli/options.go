// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// Report formats
const (
	ReportText = "text"
	ReportJSON = "json"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Discovery
	Root   string
	OutDir string // default: <root>/batch_output

	// Execution
	Jobs        int
	Image       string
	CoresPerJob int // 0 = derive from host cores / jobs
	Grace       time.Duration

	// Merge
	Categories []string

	// Output / behavior
	ConfigPath string
	Report     string
	Verbose    bool
	Quiet      bool
	DryRun     bool
	Version    bool

	// Set records which flags were given explicitly, so config-file values
	// only fill the gaps.
	Set map[string]bool
}

// Parse is the top-level call for CLI parsing.
func Parse() (Options, error) { return ParseArgs(flag.CommandLine, nil) }

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.Root, "root", "", "root directory to scan for sample units [*]")
	fs.StringVar(&opt.OutDir, "outdir", "", "output base directory [<root>/batch_output]")

	fs.IntVar(&opt.Jobs, "jobs", 0, "number of units processed concurrently [1]")
	fs.StringVar(&opt.Image, "image", "", "pipeline container image or executable [baked-in default]")
	fs.IntVar(&opt.CoresPerJob, "cores-per-job", 0, "per-job core override (0 = total cores / jobs) [0]")
	fs.DurationVar(&opt.Grace, "grace", 0, "termination grace period on interrupt [30s]")

	var cats stringSlice
	fs.Var(&cats, "categories", "merge category (repeatable) [0.05, 0.25]")

	fs.StringVar(&opt.ConfigPath, "config", "", "YAML run configuration file []")
	fs.StringVar(&opt.Report, "report", ReportText, "report format: text | json ["+ReportText+"]")
	fs.BoolVar(&opt.Verbose, "verbose", false, "echo tagged pipeline output [false]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress warnings [false]")
	fs.BoolVar(&opt.DryRun, "dry-run", false, "print planned invocations without executing [false]")

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
	opt.Categories = cats
	opt.Set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opt.Set[f.Name] = true })
	if opt.Version {
		return opt, nil
	}

	// Validation
	if opt.Root == "" {
		return opt, errors.New("--root is required")
	}
	if opt.Set["jobs"] && opt.Jobs < 1 {
		return opt, errors.New("--jobs must be a positive integer")
	}
	if opt.CoresPerJob < 0 {
		return opt, errors.New("--cores-per-job must be ≥ 0")
	}
	if opt.Grace < 0 {
		return opt, errors.New("--grace must be ≥ 0")
	}
	if opt.Report != ReportText && opt.Report != ReportJSON {
		return opt, fmt.Errorf("invalid --report %q", opt.Report)
	}
	for _, c := range opt.Categories {
		if c == "" || strings.ContainsAny(c, "/\\") {
			return opt, fmt.Errorf("invalid --categories value %q", c)
		}
	}
	return opt, nil
}

// stringSlice allows repeatable string flags.
type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }
