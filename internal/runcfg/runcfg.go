// internal/runcfg/runcfg.go - optional per-project run configuration.
package runcfg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"varbatch/internal/batcherr"
)

// Config is the YAML-settable subset of run options. Flags override
// anything set here; this file exists so a project can pin its image and
// categories without repeating them on every invocation.
type Config struct {
	Image        string   `yaml:"image"`
	OutDir       string   `yaml:"outdir"`
	Jobs         int      `yaml:"jobs"`
	CoresPerJob  int      `yaml:"cores_per_job"`
	Categories   []string `yaml:"categories"`
	GraceSeconds int      `yaml:"grace_seconds"`
}

// DefaultImage is the baked-in pipeline reference.
const DefaultImage = "ghcr.io/varbatch/pipeline:latest"

func Default() Config {
	return Config{
		Image:        DefaultImage,
		Jobs:         1,
		Categories:   []string{"0.05", "0.25"},
		GraceSeconds: 30,
	}
}

// Load reads path over the defaults. An unreadable or malformed file at an
// explicitly given path is a configuration error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", batcherr.ErrConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", batcherr.ErrConfig, path, err)
	}
	if cfg.Jobs < 1 {
		return cfg, fmt.Errorf("%w: %s: jobs must be >= 1", batcherr.ErrConfig, path)
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = Default().Categories
	}
	return cfg, nil
}

func (c Config) Grace() time.Duration { return time.Duration(c.GraceSeconds) * time.Second }
