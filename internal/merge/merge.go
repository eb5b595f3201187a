// internal/merge/merge.go
package merge

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"varbatch/internal/batcherr"
	"varbatch/internal/manifest"
	"varbatch/internal/natsort"
)

// record is one data line of a per-unit intermediate, keyed for the final
// coordinate sort. Reference names compare naturally (chr2 < chr10).
type record struct {
	ref  string
	pos  int
	line string
}

// Summary describes one category's merge.
type Summary struct {
	Category      string
	OutPath       string
	Units         int      // units contributing records
	Records       int
	MissingFailed []string // failed units whose intermediates were absent (tolerated)
}

// IntermediatePath is the naming convention joining a unit's output stem
// and a merge category.
func IntermediatePath(e manifest.Entry, category string) string {
	return e.OutputStem + "_" + category + ".tsv"
}

// OutPath is the final merged artifact name for a category.
func OutPath(outDir, category string) string {
	return filepath.Join(outDir, "merged_"+category+".tsv")
}

// Category merges one category. It walks the manifest in canonical order,
// reads each contributing unit's intermediate, concatenates the records and
// stable-sorts them by (reference, position), so the result is byte-identical
// for a fixed manifest and fixed intermediates no matter how the units were
// scheduled. The merged artifact is written to a staging path and renamed
// into place only on full success; a failed or cancelled merge never leaves
// a partial file under the final name.
//
// succeeded maps output stems of units that finished with exit 0. A missing
// intermediate for a succeeded unit is fatal for the category; failed units
// simply contribute nothing, and that absence is reported in the Summary.
func Category(m *manifest.Manifest, succeeded map[string]bool, outDir, category string) (Summary, error) {
	sum := Summary{Category: category, OutPath: OutPath(outDir, category)}

	var (
		header  string
		records []record
	)
	for _, e := range m.Entries {
		path := IntermediatePath(e, category)
		if !succeeded[e.OutputStem] {
			// Failed units contribute nothing, even if they left a partial
			// table behind. Reported, not silently ignored.
			sum.MissingFailed = append(sum.MissingFailed, e.SampleID)
			continue
		}
		h, recs, err := readIntermediate(path)
		if err != nil {
			return sum, fmt.Errorf("%w: category %s unit %s: %v", batcherr.ErrMerge, category, e.SampleID, err)
		}
		if header == "" {
			header = h
		}
		records = append(records, recs...)
		sum.Units++
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ref != records[j].ref {
			return natsort.Less(records[i].ref, records[j].ref)
		}
		return records[i].pos < records[j].pos
	})
	sum.Records = len(records)

	if err := writeStaged(sum.OutPath, header, records); err != nil {
		return sum, fmt.Errorf("%w: category %s: %v", batcherr.ErrMerge, category, err)
	}
	return sum, nil
}

// All merges every category, attempting each even after one fails.
func All(m *manifest.Manifest, succeeded map[string]bool, outDir string, categories []string) ([]Summary, error) {
	var (
		sums []Summary
		errs []error
	)
	for _, cat := range categories {
		sum, err := Category(m, succeeded, outDir, cat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sums = append(sums, sum)
	}
	return sums, errors.Join(errs...)
}

// readIntermediate parses one per-unit table: optional header lines (leading
// '#' or a non-numeric position column in the first line), then TSV records
// whose first two fields are reference and position.
func readIntermediate(path string) (header string, recs []record, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if header == "" {
				header = line
			}
			continue
		}
		ref, pos, perr := parseKey(line)
		if perr != nil {
			// A single leading column-name row counts as the header; any
			// later unparsable line is a malformed record.
			if first && header == "" {
				header = line
				first = false
				continue
			}
			return "", nil, fmt.Errorf("%s: %v", path, perr)
		}
		first = false
		recs = append(recs, record{ref: ref, pos: pos, line: line})
	}
	return header, recs, sc.Err()
}

func parseKey(line string) (string, int, error) {
	f1 := strings.IndexByte(line, '\t')
	if f1 < 0 {
		return "", 0, fmt.Errorf("record %q has no tab-separated fields", truncate(line))
	}
	rest := line[f1+1:]
	f2 := strings.IndexByte(rest, '\t')
	posField := rest
	if f2 >= 0 {
		posField = rest[:f2]
	}
	pos := 0
	for i := 0; i < len(posField); i++ {
		c := posField[i]
		if c < '0' || c > '9' {
			return "", 0, fmt.Errorf("record %q has non-numeric position %q", truncate(line), posField)
		}
		pos = pos*10 + int(c-'0')
	}
	if posField == "" {
		return "", 0, fmt.Errorf("record %q has empty position field", truncate(line))
	}
	return line[:f1], pos, nil
}

func truncate(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// writeStaged writes the merged table to <final>.partial, fsyncs, and
// atomically promotes it.
func writeStaged(final, header string, recs []record) error {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	staging := final + ".partial"
	f, err := os.Create(staging)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
			_ = os.Remove(staging)
		}
	}()
	if header != "" {
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
	}
	for _, r := range recs {
		if _, err := fmt.Fprintln(w, r.line); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(staging, final); err != nil {
		return err
	}
	ok = true
	return nil
}
