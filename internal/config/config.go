// Package config loads pipeline configuration (relevant-function table and
// path limits) from an optional YAML file layered over the built-in
// defaults; no CLI flag overrides these values. The file format exists
// because spec.md §6 explicitly
// allows deployments to replace or extend the relevant-function table.
package config

import (
	"fmt"
	"os"

	"github.com/monowaranjum/rpe-llvm-impl/internal/path"
	"github.com/monowaranjum/rpe-llvm-impl/internal/provenance"
	"gopkg.in/yaml.v3"
)

// RelevantFunction is one YAML-facing row of the provenance table.
type RelevantFunction struct {
	Name     string `yaml:"name"`
	Artifact string `yaml:"artifact"`
	ArgIndex int    `yaml:"arg_index"`
}

// File is the on-disk shape of a config file.
type File struct {
	MaxPaths          int                `yaml:"max_paths"`
	MaxDepth          int                `yaml:"max_depth"`
	RelevantFunctions []RelevantFunction `yaml:"relevant_functions"`
}

// Config is the resolved, in-memory pipeline configuration.
type Config struct {
	Limits path.Limits
	Table  provenance.Table
}

// Default returns the built-in configuration: unlimited paths/depth and the
// spec's default relevant-function table.
func Default() Config {
	return Config{
		Limits: path.Limits{},
		Table:  provenance.DefaultTable(),
	}
}

// Load reads a YAML config file and layers it over the built-in default.
// An empty relevant_functions list in the file means "keep the default
// table"; a non-empty one replaces it entirely, matching spec §6's "MAY
// replace or extend it" — extension is left to the file author, who can
// list the built-in rows alongside their own.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if f.MaxPaths > 0 {
		cfg.Limits.MaxPaths = f.MaxPaths
	}
	if f.MaxDepth > 0 {
		cfg.Limits.MaxDepth = f.MaxDepth
	}
	if len(f.RelevantFunctions) > 0 {
		table := make(provenance.Table, len(f.RelevantFunctions))
		for _, rf := range f.RelevantFunctions {
			table[rf.Name] = provenance.Entry{Artifact: rf.Artifact, ArgIndex: rf.ArgIndex}
		}
		cfg.Table = table
	}
	return cfg, nil
}
