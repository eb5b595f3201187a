package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"varbatch/internal/manifest"
	"varbatch/internal/resource"
	"varbatch/internal/track"
)

type stubRunner struct {
	inFlight int32
	peak     int32
	failFor  map[string]int // sample -> exit code
	delay    time.Duration
	block    chan struct{} // when set, Run blocks until closed
}

func (s *stubRunner) Run(ctx context.Context, inv Invocation) (int, string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return -1, "", ctx.Err()
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if code, ok := s.failFor[inv.Entry.SampleID]; ok {
		return code, "simulated pipeline failure", nil
	}
	return 0, "", nil
}

func testManifest(n int) *manifest.Manifest {
	var m manifest.Manifest
	for i := 0; i < n; i++ {
		m.Entries = append(m.Entries, manifest.Entry{
			SampleID:   fmt.Sprintf("s%02d", i),
			InputPath:  fmt.Sprintf("/in/u%02d/fastq_pass", i),
			OutputStem: fmt.Sprintf("/out/u%02d/s%02d", i, i),
			Kind:       "fastq_pass",
		})
	}
	return &m
}

func pool(runner Runner, jobs int) *Pool {
	budget, _ := resource.Partition(8, jobs, 0)
	return &Pool{
		Planner: Planner{Budget: budget, Executable: "pipeline", ScratchDir: "/tmp/scratch"},
		Runner:  runner,
	}
}

func TestBoundedConcurrency(t *testing.T) {
	r := &stubRunner{delay: 5 * time.Millisecond}
	m := testManifest(20)
	tr := track.New(m)

	require.NoError(t, pool(r, 3).Run(context.Background(), m, tr))
	require.NoError(t, tr.AwaitAll(context.Background()))
	require.LessOrEqual(t, r.peak, int32(3), "more than 3 units in flight")

	rep := tr.Report(m, 0, false)
	require.Equal(t, 20, rep.Succeeded)
}

func TestPartialFailureContinues(t *testing.T) {
	r := &stubRunner{failFor: map[string]int{"s01": 9}}
	m := testManifest(3)
	tr := track.New(m)

	require.NoError(t, pool(r, 2).Run(context.Background(), m, tr))
	rep := tr.Report(m, 0, false)
	require.Equal(t, 3, rep.Total)
	require.Equal(t, 2, rep.Succeeded)
	require.Equal(t, 1, rep.Failed)
	require.Equal(t, 9, rep.Results[1].ExitCode)
	require.Equal(t, "simulated pipeline failure", rep.Results[1].Diag)
}

func TestCancellationStopsAdmission(t *testing.T) {
	r := &stubRunner{block: make(chan struct{})}
	m := testManifest(10)
	tr := track.New(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool(r, 2).Run(ctx, m, tr) }()

	time.Sleep(20 * time.Millisecond) // two units in flight, feed blocked
	cancel()
	close(r.block)

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	rep := tr.Report(m, 0, true)
	require.Less(t, rep.Succeeded+rep.Failed, 10, "cancellation must stop admitting units")
	require.True(t, rep.Cancelled)
}

func TestPlanEnvironment(t *testing.T) {
	budget, _ := resource.Partition(8, 2, 0)
	p := Planner{Budget: budget, Executable: "ghcr.io/varbatch/pipeline:latest", ScratchDir: "/scratch/run"}
	inv := p.Plan(3, manifest.Entry{
		SampleID: "bc07", InputPath: "/in/u3/fastq_pass", OutputStem: "/out/u3/bc07", Kind: "fastq_pass",
	})
	require.Equal(t, "/out/u3/bc07_work", inv.WorkDir)
	require.Equal(t, "/scratch/run/unit_0003.tsv", inv.LineFile)
	require.Contains(t, inv.Env, "VARBATCH_KIND=fastq_pass")
	require.Contains(t, inv.Env, "VARBATCH_THREADS=4")
	require.Contains(t, inv.Env, "VARBATCH_MEM_GB=8")
	require.Contains(t, inv.Env, "JAVA_TOOL_OPTIONS=-Xmx8g")
	require.Contains(t, inv.Env, "VARBATCH_MANIFEST_LINE=/scratch/run/unit_0003.tsv")
	require.Equal(t, []string{"ghcr.io/varbatch/pipeline:latest"}, inv.Argv)
}
