package toolchain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes how the go toolchain is invoked.
type Config struct {
	Go          string            `yaml:"go" json:"go"`
	Flags       []string          `yaml:"flags" json:"flags"`
	Environment map[string]string `yaml:"env" json:"env"`
	KeepScratch bool              `yaml:"keep_scratch" json:"keep_scratch"`
	ScratchRoot string            `yaml:"scratch_root" json:"scratch_root"`
}

// ConfigFile is the structure of a toolchain configuration file.
type ConfigFile struct {
	Toolchain Config `yaml:"toolchain" json:"toolchain"`
}

// LoadConfig reads a YAML or JSON configuration file. A missing file yields the
// zero configuration.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read toolchain config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return cfg.Toolchain, nil
}

// WithConfig applies every non-empty setting of cfg.
func WithConfig(cfg Config) Option {
	return func(t *GoPlugin) {
		if cfg.Go != "" {
			t.goBin = cfg.Go
		}
		if len(cfg.Flags) > 0 {
			t.flags = append([]string(nil), cfg.Flags...)
		}
		keys := make([]string, 0, len(cfg.Environment))
		for k := range cfg.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.env = append(t.env, k+"="+cfg.Environment[k])
		}
		if cfg.KeepScratch {
			t.keep = true
		}
		if cfg.ScratchRoot != "" {
			t.scratchRoot = cfg.ScratchRoot
		}
	}
}
