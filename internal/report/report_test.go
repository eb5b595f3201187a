package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"varbatch/internal/track"
)

func sampleReport() track.BatchReport {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return track.BatchReport{
		Total: 3, Succeeded: 2, Failed: 1,
		Elapsed: 1500 * time.Millisecond,
		Results: []track.JobResult{
			{SampleID: "a", ExitCode: 0, StartedAt: t0, FinishedAt: t0.Add(time.Second), OutputPaths: []string{"a_0.05.tsv"}},
			{SampleID: "b", ExitCode: 3, StartedAt: t0, FinishedAt: t0.Add(time.Second), Diag: "boom"},
			{SampleID: "c", ExitCode: 0, StartedAt: t0, FinishedAt: t0.Add(time.Second)},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, TSVHeader, lines[0])
	require.True(t, strings.HasPrefix(lines[1], "a\tok\t0\t"))
	require.True(t, strings.HasPrefix(lines[2], "b\tfailed\t3\t"))
	require.Equal(t, "# status=completed with errors total=3 succeeded=2 failed=1 elapsed=1.5s", lines[4])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "completed with errors", got["status"])
	require.Equal(t, float64(3), got["total"])
	units := got["units"].([]any)
	require.Len(t, units, 3)
	b := units[1].(map[string]any)
	require.Equal(t, float64(3), b["exit_code"])
	require.Equal(t, "boom", b["diagnostics"])
}
