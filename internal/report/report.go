// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"time"

	"varbatch/internal/track"
)

// TSVHeader is the canonical header row for the line-oriented run report.
// Single source of truth; keep writers in sync with it.
const TSVHeader = "sample_id\tstatus\texit_code\tstarted\tfinished\toutputs"

// WriteText emits the run report: a header, one line per unit in manifest
// order, and a trailing summary line.
func WriteText(w io.Writer, rep track.BatchReport) error {
	if _, err := fmt.Fprintln(w, TSVHeader); err != nil {
		return err
	}
	for _, r := range rep.Results {
		status := "ok"
		if !r.OK() {
			status = "failed"
		}
		_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\n",
			r.SampleID, status, r.ExitCode,
			r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			r.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
			len(r.OutputPaths),
		)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "# status=%s total=%d succeeded=%d failed=%d elapsed=%s\n",
		rep.Status(), rep.Total, rep.Succeeded, rep.Failed, rep.Elapsed.Round(time.Millisecond))
	return err
}
