// internal/dispatch/pool.go
package dispatch

import (
	"context"
	"sync"
	"time"

	"varbatch/internal/manifest"
	"varbatch/internal/track"
)

// Pool runs one external invocation per manifest entry across a fixed set
// of workers. Submission follows manifest order; completion order is
// unconstrained and nothing downstream may depend on it. A unit's failure
// never aborts its siblings: nonzero exits become JobResults and the run
// carries on in partial-failure mode.
type Pool struct {
	Planner Planner
	Runner  Runner
}

// Run feeds every manifest entry through the pool and records a terminal
// JobResult with tr for each unit that was admitted. On cancellation it
// stops admitting new units, lets in-flight invocations drain under the
// runner's grace policy, and returns ctx.Err().
func (p *Pool) Run(ctx context.Context, m *manifest.Manifest, tr *track.Tracker) error {
	workers := p.Planner.Budget.Concurrency
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan Invocation)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	record := func(err error) {
		if err != nil {
			errOnce.Do(func() { firstErr = err })
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for inv := range jobs {
				// Cancellation check between admission and invocation.
				if ctx.Err() != nil {
					return
				}
				started := time.Now()
				code, diag, err := p.Runner.Run(ctx, inv)
				res := track.JobResult{
					SampleID:   inv.Entry.SampleID,
					OutputStem: inv.Entry.OutputStem,
					ExitCode:   code,
					StartedAt:  started,
					FinishedAt: time.Now(),
					Diag:       diag,
				}
				if err != nil {
					// Failure to invoke at all is still a per-unit failure,
					// contained here as data.
					if res.ExitCode == 0 {
						res.ExitCode = -1
					}
					res.Diag = err.Error()
				}
				if res.OK() {
					res.OutputPaths = outputsOf(inv)
				}
				record(tr.Add(res))
			}
		}()
	}

feed:
	for i, e := range m.Entries {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p.Planner.Plan(i, e):
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return firstErr
}
