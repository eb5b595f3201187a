// internal/dispatch/plan.go
package dispatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"varbatch/internal/manifest"
	"varbatch/internal/resource"
)

// Invocation is one fully planned external pipeline call: an isolated
// working directory under the unit's output stem and an environment
// carrying the budget and the unit's paths.
type Invocation struct {
	Entry    manifest.Entry
	Index    int    // position in the manifest
	WorkDir  string
	LineFile string // generated manifest-line file handed to the pipeline
	Env      []string
	Argv     []string
}

// Planner turns manifest entries into invocations. Planning is pure; all
// filesystem effects happen at run time.
type Planner struct {
	Budget     resource.Budget
	Executable string // container image or plain executable reference
	ScratchDir string // run-scoped scratch for generated manifest-line files
}

func (p Planner) Plan(idx int, e manifest.Entry) Invocation {
	lineFile := filepath.Join(p.ScratchDir, fmt.Sprintf("unit_%04d.tsv", idx))
	return Invocation{
		Entry:    e,
		Index:    idx,
		WorkDir:  e.OutputStem + "_work",
		LineFile: lineFile,
		Env: []string{
			"VARBATCH_KIND=" + e.Kind,
			"VARBATCH_INPUT=" + e.InputPath,
			"VARBATCH_STEM=" + e.OutputStem,
			"VARBATCH_OUTDIR=" + filepath.Dir(e.OutputStem),
			"VARBATCH_MANIFEST_LINE=" + lineFile,
			fmt.Sprintf("VARBATCH_THREADS=%d", p.Budget.PerJobCores),
			fmt.Sprintf("VARBATCH_MEM_GB=%d", p.Budget.PerJobMemGB),
			fmt.Sprintf("JAVA_TOOL_OPTIONS=-Xmx%dg", p.Budget.PerJobMemGB),
		},
		Argv: []string{p.Executable},
	}
}

// CommandLine renders the invocation the way the dry-run prints it and the
// generated command list records it.
func (inv Invocation) CommandLine() string {
	return fmt.Sprintf("%s\t%s\t%s", inv.Entry.SampleID, strings.Join(inv.Env, " "), strings.Join(inv.Argv, " "))
}
