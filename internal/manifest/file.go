// internal/manifest/file.go
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Line renders one manifest entry in the on-disk TSV form.
func (e Entry) Line() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s", e.SampleID, e.InputPath, e.OutputStem, e.Kind)
}

// WriteFile writes the ordered manifest, one TSV line per unit.
func (m *Manifest) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, e := range m.Entries {
		if _, err := fmt.Fprintln(w, e.Line()); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a previously written manifest file, preserving its order.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var m Manifest
	sc := bufio.NewScanner(f)
	for ln := 1; sc.Scan(); ln++ {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			return nil, fmt.Errorf("%s:%d: expected 4 tab-separated fields, got %d", path, ln, len(parts))
		}
		m.Entries = append(m.Entries, Entry{
			SampleID:   parts[0],
			InputPath:  parts[1],
			OutputStem: parts[2],
			Kind:       parts[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}
