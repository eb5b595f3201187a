// internal/manifest/manifest.go
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"varbatch/internal/batcherr"
	"varbatch/internal/natsort"
)

// Entry is one unit of work: a sample's input set and where its outputs go.
type Entry struct {
	SampleID   string
	InputPath  string // the recognized input-kind directory
	OutputStem string // path prefix for everything this unit writes
	Kind       string
}

// Manifest is the frozen, canonically ordered unit list for one batch run.
// It is built once, shared by pointer, and never mutated afterward; every
// order-sensitive step (reporting, merging) derives its order from here.
type Manifest struct {
	Entries []Entry
}

// Recognized input-kind subdirectory names, in probe order.
var kinds = []string{"fastq_pass", "fastq", "fast5_pass", "pod5"}

var kindExts = map[string][]string{
	"fastq_pass": {".fastq", ".fastq.gz"},
	"fastq":      {".fastq", ".fastq.gz"},
	"fast5_pass": {".fast5"},
	"pod5":       {".pod5"},
}

// Build scans root for unit directories and returns the frozen manifest.
// A unit directory contains at least one recognized input-kind subdirectory
// holding at least one matching file. Units are ordered by natural sort on
// InputPath. An empty result is fatal (batcherr.ErrNoWorkFound); unreadable
// candidates are skipped with a warning through warnf.
func Build(root, outBase string, warnf func(format string, a ...any)) (*Manifest, error) {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root %s: %v", batcherr.ErrConfig, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", batcherr.ErrConfig, root)
	}

	var entries []Entry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnf("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		kind, input, ok := probeUnit(path, warnf)
		if !ok {
			return nil
		}
		e, err := buildEntry(root, outBase, path, kind, input, warnf)
		if err != nil {
			warnf("skipping %s: %v", path, err)
			return filepath.SkipDir
		}
		entries = append(entries, e)
		// A unit directory is a leaf as far as discovery is concerned.
		return filepath.SkipDir
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w under %s", batcherr.ErrNoWorkFound, root)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return natsort.Less(entries[i].InputPath, entries[j].InputPath)
	})

	// Output stems must be pairwise disjoint: they are derived from the unit
	// directory path, so a collision means the scan is broken, not the data.
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if prev, dup := seen[e.OutputStem]; dup {
			return nil, fmt.Errorf("output stem %s claimed by both %s and %s", e.OutputStem, prev, e.InputPath)
		}
		seen[e.OutputStem] = e.InputPath
	}
	return &Manifest{Entries: entries}, nil
}

// probeUnit reports whether dir is a unit directory, returning the first
// recognized kind subdirectory that holds a matching file.
func probeUnit(dir string, warnf func(string, ...any)) (kind, input string, ok bool) {
	for _, k := range kinds {
		sub := filepath.Join(dir, k)
		fi, err := os.Stat(sub)
		if err != nil || !fi.IsDir() {
			continue
		}
		files, err := matchingFiles(sub, k)
		if err != nil {
			warnf("unreadable input dir %s: %v", sub, err)
			continue
		}
		if len(files) > 0 {
			return k, sub, true
		}
	}
	return "", "", false
}

// matchingFiles lists files under dir with one of kind's extensions, in
// natural order.
func matchingFiles(dir, kind string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		for _, ext := range kindExts[kind] {
			if strings.HasSuffix(name, ext) {
				out = append(out, filepath.Join(dir, name))
				break
			}
		}
	}
	natsort.Strings(out)
	return out, nil
}

func buildEntry(root, outBase, unitDir, kind, input string, warnf func(string, ...any)) (Entry, error) {
	files, err := matchingFiles(input, kind)
	if err != nil {
		return Entry{}, err
	}
	id := sampleID(files, warnf)
	if id == "" {
		return Entry{}, fmt.Errorf("no sample identifier derivable from %s", input)
	}
	rel, err := filepath.Rel(root, unitDir)
	if err != nil {
		rel = filepath.Base(unitDir)
	}
	stem := filepath.Join(outBase, rel, id)
	return Entry{SampleID: id, InputPath: input, OutputStem: stem, Kind: kind}, nil
}
