// internal/resource/resource.go
package resource

import (
	"fmt"
	"runtime"
)

// Budget is the immutable per-run resource allocation. Computed once by
// Partition, read-only everywhere else.
type Budget struct {
	TotalCores  int
	Concurrency int
	PerJobCores int
	PerJobMemGB int
}

// TotalCores probes the host core count, defaulting to 4 when the probe
// yields nothing usable.
func TotalCores() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// Partition computes the per-job allocation. Pure and deterministic.
// Without an override, per-job cores is max(1, totalCores/concurrency).
// An override (>0) is used verbatim; when concurrency*override exceeds
// twice the host, the run proceeds but a warning is returned.
// Memory follows the fixed domain ratio of 2 GB per core.
func Partition(totalCores, concurrency, overridePerJobCores int) (Budget, []string) {
	var warns []string

	perJob := overridePerJobCores
	if perJob <= 0 {
		perJob = totalCores / concurrency
		if perJob < 1 {
			perJob = 1
		}
	} else if effective := concurrency * perJob; effective > 2*totalCores {
		warns = append(warns, fmt.Sprintf(
			"warning: %d jobs x %d cores = %d cores requested, host has %d; oversubscribed",
			concurrency, perJob, effective, totalCores))
	}

	return Budget{
		TotalCores:  totalCores,
		Concurrency: concurrency,
		PerJobCores: perJob,
		PerJobMemGB: 2 * perJob,
	}, warns
}

// SchedulerLine renders the batch-queue request for one job under b, in the
// SGE form downstream submission tooling consumes.
func SchedulerLine(b Budget) string {
	return fmt.Sprintf("#$ -pe smp %d -l h_vmem=%dG", b.PerJobCores, b.PerJobMemGB)
}
