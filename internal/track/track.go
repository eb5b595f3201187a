// internal/track/track.go
package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"varbatch/internal/manifest"
)

// JobResult is the terminal record for one unit. Created by a dispatcher
// worker, handed to the Tracker, never mutated afterward.
type JobResult struct {
	SampleID    string
	OutputStem  string
	ExitCode    int // 0 = success
	StartedAt   time.Time
	FinishedAt  time.Time
	OutputPaths []string
	Diag        string // tail of captured stderr for failed units
}

func (r JobResult) OK() bool { return r.ExitCode == 0 }

// Tracker is the single sink for results from concurrently-running workers.
// Results are keyed by output stem, the one identifier guaranteed unique per
// manifest entry.
type Tracker struct {
	mu      sync.Mutex
	want    map[string]struct{}
	results map[string]JobResult
	done    chan struct{}
}

func New(m *manifest.Manifest) *Tracker {
	want := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		want[e.OutputStem] = struct{}{}
	}
	t := &Tracker{
		want:    want,
		results: make(map[string]JobResult, len(want)),
		done:    make(chan struct{}),
	}
	if len(want) == 0 {
		close(t.done)
	}
	return t
}

// Add records one terminal result. Exactly one result per manifest entry:
// an unknown stem or a duplicate is rejected.
func (t *Tracker) Add(r JobResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, known := t.want[r.OutputStem]; !known {
		return fmt.Errorf("result for unknown unit %s (%s)", r.SampleID, r.OutputStem)
	}
	if _, dup := t.results[r.OutputStem]; dup {
		return fmt.Errorf("duplicate result for unit %s (%s)", r.SampleID, r.OutputStem)
	}
	t.results[r.OutputStem] = r
	if len(t.results) == len(t.want) {
		close(t.done)
	}
	return nil
}

// AwaitAll blocks until every manifest entry has a terminal result or ctx
// is done, returning ctx.Err() in the latter case.
func (t *Tracker) AwaitAll(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the recorded result for a manifest entry, if any.
func (t *Tracker) Result(e manifest.Entry) (JobResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.results[e.OutputStem]
	return r, ok
}

// BatchReport summarizes a run. Results are in manifest order regardless of
// the order units completed in; cancelled runs may have fewer results than
// Total.
type BatchReport struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled bool
	Elapsed   time.Duration
	Results   []JobResult
}

// Status is the operator-facing terminal state line for the run.
func (r BatchReport) Status() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Failed > 0 && r.Succeeded > 0:
		return "completed with errors"
	case r.Failed > 0:
		return "failed"
	default:
		return "ok"
	}
}

// Report finalizes the batch report by walking the manifest and looking up
// each entry's result; arrival order plays no part.
func (t *Tracker) Report(m *manifest.Manifest, elapsed time.Duration, cancelled bool) BatchReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	rep := BatchReport{Total: len(m.Entries), Cancelled: cancelled, Elapsed: elapsed}
	for _, e := range m.Entries {
		r, ok := t.results[e.OutputStem]
		if !ok {
			continue
		}
		if r.OK() {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
		rep.Results = append(rep.Results, r)
	}
	return rep
}
