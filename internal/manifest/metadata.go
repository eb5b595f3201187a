// internal/manifest/metadata.go
package manifest

import (
	"bufio"
	"path/filepath"
	"strings"
)

// Suffixes stripped before a filename-derived identifier is taken.
var knownSuffixes = []string{".fastq.gz", ".fastq", ".fast5", ".pod5"}

// sampleID derives the unit's sample identifier, preferring metadata
// embedded in the first input file's header over the filename. When both
// resolve but disagree, the metadata value wins and the mismatch is warned
// about; a mislabeled directory is something the operator should see.
func sampleID(files []string, warnf func(string, ...any)) string {
	if len(files) == 0 {
		return ""
	}
	meta := headerSampleID(files[0])
	file := filenameSampleID(files[0])
	switch {
	case meta != "" && file != "" && meta != file:
		warnf("sample id mismatch in %s: header says %q, filename says %q; using header", files[0], meta, file)
		return meta
	case meta != "":
		return meta
	default:
		return file
	}
}

// headerSampleID reads the first header line of a FASTQ file (gzip
// transparent) and extracts a sampleid= or barcode= tag if present.
// Non-FASTQ kinds and unreadable files yield "".
func headerSampleID(path string) string {
	if !strings.HasSuffix(path, ".fastq") && !strings.HasSuffix(path, ".fastq.gz") {
		return ""
	}
	rc, err := openReader(path)
	if err != nil {
		return ""
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	if !sc.Scan() {
		return ""
	}
	line := sc.Text()
	if !strings.HasPrefix(line, "@") {
		return ""
	}
	for _, tok := range strings.Fields(line[1:]) {
		for _, key := range []string{"sampleid=", "sample_id=", "barcode="} {
			if strings.HasPrefix(tok, key) {
				if v := tok[len(key):]; v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// filenameSampleID strips known suffixes and takes the leading token before
// the first underscore.
func filenameSampleID(path string) string {
	name := filepath.Base(path)
	for _, s := range knownSuffixes {
		if strings.HasSuffix(name, s) {
			name = name[:len(name)-len(s)]
			break
		}
	}
	if i := strings.IndexByte(name, '_'); i > 0 {
		name = name[:i]
	}
	return name
}
