package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	// project_root is relative to the config file, not the working directory.
	root := strings.TrimSpace(cfg.ProjectRoot)
	switch {
	case root == "":
		cfg.ProjectRoot = filepath.Dir(path)
	case !filepath.IsAbs(root):
		cfg.ProjectRoot = filepath.Join(filepath.Dir(path), root)
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist. Any other failure is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	slog.Debug("config file not found, using defaults", "path", path)
	cfg = Default()
	ApplyEnvOverrides(cfg)
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.ProjectRoot) == "" {
		cfg.ProjectRoot = "."
	}
	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}

	if strings.TrimSpace(cfg.Parser.Codegen) == "" {
		cfg.Parser.Codegen = "source"
	}
	if strings.TrimSpace(cfg.Parser.SourceType) == "" {
		cfg.Parser.SourceType = "module"
	}
	if len(cfg.Parser.Rules) == 0 {
		cfg.Parser.Rules = DefaultParserRules()
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "dist", "build", ".umi", ".umi-production"}
	}
	if len(cfg.Exclude.Files) == 0 {
		cfg.Exclude.Files = []string{"*.d.ts", "*.min.js"}
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}

	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = 8
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = filepath.Join(".dvamodel", "models.db")
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = 2 * time.Second
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "dvamodel"
	}
}

func normalize(cfg *Config) {
	cfg.ProjectRoot = filepath.Clean(strings.TrimSpace(cfg.ProjectRoot))
	cfg.Parser.Codegen = strings.ToLower(strings.TrimSpace(cfg.Parser.Codegen))
	cfg.Parser.SourceType = strings.ToLower(strings.TrimSpace(cfg.Parser.SourceType))
	for i := range cfg.Parser.Rules {
		rule := &cfg.Parser.Rules[i]
		rule.Pattern = strings.TrimSpace(rule.Pattern)
		rule.SourceType = strings.ToLower(strings.TrimSpace(rule.SourceType))
		plugins := make([]string, 0, len(rule.Plugins))
		for _, p := range rule.Plugins {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				plugins = append(plugins, p)
			}
		}
		rule.Plugins = plugins
	}
	cfg.Store.Path = strings.TrimSpace(cfg.Store.Path)
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(cfg.ProjectRoot, cfg.Store.Path)
	}
}

// ResolveWatchPaths returns WatchPaths resolved against the project root.
func (c *Config) ResolveWatchPaths() []string {
	out := make([]string, 0, len(c.WatchPaths))
	for _, p := range c.WatchPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.ProjectRoot, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
