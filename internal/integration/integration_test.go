package integration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"varbatch/internal/app"
)

// fakePipeline is a stand-in for the containerized variant caller: it reads
// the generated manifest-line file, fails for sample "b", and writes fixed
// per-sample intermediates at both default thresholds.
const fakePipeline = `#!/bin/sh
sample=$(cut -f1 "$VARBATCH_MANIFEST_LINE")
echo "processing $sample with $VARBATCH_THREADS threads"
case "$sample" in
b)
  echo "pipeline exploded" >&2
  exit 3
  ;;
a)
  printf 'chr2\t100\tsnp_a\n' > "${VARBATCH_STEM}_0.05.tsv"
  printf 'chr10\t4\tsnp_a\n' > "${VARBATCH_STEM}_0.25.tsv"
  ;;
c)
  printf 'chr2\t7\tsnp_c\n' > "${VARBATCH_STEM}_0.05.tsv"
  printf 'chr2\t9\tsnp_c\n' > "${VARBATCH_STEM}_0.25.tsv"
  ;;
esac
exit 0
`

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("integration scripts need /bin/sh")
	}
	path := filepath.Join(dir, "pipeline.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writeUnit(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name, "fastq_pass")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data := "@r1 ch=1\nACGT\n+\n!!!!\n"
	if err := os.WriteFile(filepath.Join(dir, name+"_0.fastq"), []byte(data), 0o644); err != nil {
		t.Fatalf("write unit %s: %v", name, err)
	}
}

func TestEndToEndWithOneFailingUnit(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, t.TempDir(), fakePipeline)
	for _, n := range []string{"a", "b", "c"} {
		writeUnit(t, root, n)
	}
	outDir := filepath.Join(root, "batch_output")

	var out, errBuf bytes.Buffer
	code := app.Run([]string{
		"--root", root,
		"--jobs", "2",
		"--image", script,
		"--outdir", outDir,
	}, &out, &errBuf)

	if code != 1 {
		t.Fatalf("exit %d, want 1 (completed with errors); stderr=%s", code, errBuf.String())
	}
	if !strings.Contains(out.String(), "status=completed with errors total=3 succeeded=2 failed=1") {
		t.Fatalf("report summary missing, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "b\tfailed\t3\t") {
		t.Fatalf("failing unit with its exit code missing from report:\n%s", out.String())
	}

	mf, err := os.ReadFile(filepath.Join(outDir, "manifest.tsv"))
	if err != nil {
		t.Fatalf("manifest file: %v", err)
	}
	var samples []string
	for _, line := range strings.Split(strings.TrimSpace(string(mf)), "\n") {
		samples = append(samples, strings.SplitN(line, "\t", 2)[0])
	}
	if got := strings.Join(samples, ","); got != "a,b,c" {
		t.Fatalf("manifest order = %s, want a,b,c", got)
	}

	merged, err := os.ReadFile(filepath.Join(outDir, "merged_0.05.tsv"))
	if err != nil {
		t.Fatalf("merged artifact: %v", err)
	}
	want := "chr2\t7\tsnp_c\nchr2\t100\tsnp_a\n"
	if string(merged) != want {
		t.Fatalf("merged_0.05 = %q, want %q", merged, want)
	}
	if strings.Contains(string(merged), "snp_b") {
		t.Fatal("failed unit leaked into merge")
	}
}

func TestMergeIdenticalAcrossConcurrency(t *testing.T) {
	script := writeScript(t, t.TempDir(), fakePipeline)

	runOnce := func(jobs int) (string, string) {
		root := t.TempDir()
		for _, n := range []string{"a", "c"} {
			writeUnit(t, root, n)
		}
		outDir := filepath.Join(root, "batch_output")
		var out, errBuf bytes.Buffer
		code := app.Run([]string{
			"--root", root,
			"--jobs", fmt.Sprint(jobs),
			"--image", script,
			"--outdir", outDir,
		}, &out, &errBuf)
		if code != 0 {
			t.Fatalf("jobs=%d exit %d stderr=%s", jobs, code, errBuf.String())
		}
		m1, err := os.ReadFile(filepath.Join(outDir, "merged_0.05.tsv"))
		if err != nil {
			t.Fatalf("jobs=%d merged_0.05: %v", jobs, err)
		}
		m2, err := os.ReadFile(filepath.Join(outDir, "merged_0.25.tsv"))
		if err != nil {
			t.Fatalf("jobs=%d merged_0.25: %v", jobs, err)
		}
		return string(m1), string(m2)
	}

	s1a, s1b := runOnce(1)
	s4a, s4b := runOnce(4)
	if s1a != s4a || s1b != s4b {
		t.Fatalf("merged artifacts differ across concurrency:\njobs=1: %q %q\njobs=4: %q %q", s1a, s1b, s4a, s4b)
	}
}

func TestDryRunExecutesNothing(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, t.TempDir(), fakePipeline)
	for _, n := range []string{"a", "c"} {
		writeUnit(t, root, n)
	}
	outDir := filepath.Join(root, "batch_output")

	var out, errBuf bytes.Buffer
	code := app.Run([]string{
		"--root", root,
		"--image", script,
		"--outdir", outDir,
		"--dry-run",
	}, &out, &errBuf)
	if code != 0 {
		t.Fatalf("exit %d stderr=%s", code, errBuf.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 planned invocations, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "VARBATCH_KIND=fastq_pass") || !strings.Contains(lines[0], script) {
		t.Fatalf("planned invocation malformed: %s", lines[0])
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatal("dry-run must not create the output directory")
	}
}

func TestConfigurationErrors(t *testing.T) {
	var out, errBuf bytes.Buffer
	if code := app.Run([]string{"--jobs", "2"}, &out, &errBuf); code != 1 {
		t.Fatalf("missing --root: exit %d, want 1", code)
	}
	out.Reset()
	errBuf.Reset()
	if code := app.Run([]string{"--root", t.TempDir(), "--jobs", "0"}, &out, &errBuf); code != 1 {
		t.Fatalf("bad --jobs: exit %d, want 1", code)
	}
	out.Reset()
	errBuf.Reset()
	// Empty root: discovery finds nothing, which is fatal.
	if code := app.Run([]string{"--root", t.TempDir()}, &out, &errBuf); code != 1 {
		t.Fatalf("no work found: exit %d, want 1", code)
	}
	if !strings.Contains(errBuf.String(), "no work found") {
		t.Fatalf("stderr should name the no-work condition: %s", errBuf.String())
	}
}
