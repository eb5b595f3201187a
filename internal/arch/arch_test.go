// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	// Leaves must not reach up into coordination or CLI layers.
	bans := map[string][]string{
		"varbatch/internal/manifest": {
			"varbatch/internal/dispatch", "varbatch/internal/track", "varbatch/internal/merge",
			"varbatch/internal/cli", "varbatch/internal/mergecli",
			"varbatch/internal/app", "varbatch/internal/mergeapp", "varbatch/cmd/",
		},
		"varbatch/internal/resource": {
			"varbatch/internal/manifest", "varbatch/internal/dispatch", "varbatch/internal/track",
			"varbatch/internal/cli", "varbatch/internal/app", "varbatch/cmd/",
		},
		"varbatch/internal/track": {
			"varbatch/internal/dispatch", "varbatch/internal/merge",
			"varbatch/internal/cli", "varbatch/internal/app", "varbatch/cmd/",
		},
		"varbatch/internal/dispatch": {
			"varbatch/internal/merge", "varbatch/internal/report",
			"varbatch/internal/cli", "varbatch/internal/app", "varbatch/cmd/",
		},
		"varbatch/internal/merge": {
			"varbatch/internal/dispatch", "varbatch/internal/track",
			"varbatch/internal/cli", "varbatch/internal/app", "varbatch/cmd/",
		},
		"varbatch/internal/report": {
			"varbatch/internal/dispatch", "varbatch/internal/merge",
			"varbatch/internal/cli", "varbatch/internal/app", "varbatch/cmd/",
		},
	}

	for {
		var p pkg
		if err := dec.Decode(&p); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decode: %v", err)
		}
		if p.Standard {
			continue
		}
		banned, ok := bans[p.ImportPath]
		if !ok {
			continue
		}
		for _, imp := range p.Imports {
			for _, b := range banned {
				if imp == b || (strings.HasSuffix(b, "/") && strings.HasPrefix(imp, b)) {
					t.Errorf("%s must not import %s", p.ImportPath, imp)
				}
			}
		}
	}
}
