// internal/report/json.go
package report

import (
	"encoding/json"
	"io"
	"time"

	"varbatch/internal/track"
)

type jsonUnit struct {
	SampleID   string    `json:"sample_id"`
	Status     string    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outputs    []string  `json:"outputs,omitempty"`
	Diag       string    `json:"diagnostics,omitempty"`
}

type jsonReport struct {
	Status    string     `json:"status"`
	Total     int        `json:"total"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Cancelled bool       `json:"cancelled"`
	ElapsedMS int64      `json:"elapsed_ms"`
	Units     []jsonUnit `json:"units"`
}

// WriteJSON emits the run report as indented JSON, units in manifest order.
func WriteJSON(w io.Writer, rep track.BatchReport) error {
	out := jsonReport{
		Status:    rep.Status(),
		Total:     rep.Total,
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
		Cancelled: rep.Cancelled,
		ElapsedMS: rep.Elapsed.Milliseconds(),
		Units:     make([]jsonUnit, 0, len(rep.Results)),
	}
	for _, r := range rep.Results {
		status := "ok"
		if !r.OK() {
			status = "failed"
		}
		out.Units = append(out.Units, jsonUnit{
			SampleID:   r.SampleID,
			Status:     status,
			ExitCode:   r.ExitCode,
			StartedAt:  r.StartedAt.UTC(),
			FinishedAt: r.FinishedAt.UTC(),
			Outputs:    r.OutputPaths,
			Diag:       r.Diag,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
