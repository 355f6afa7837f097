package config

import (
	"time"
)

const DefaultConfigFile = "dvamodel.toml"

type Config struct {
	Version       int           `toml:"version"`
	ProjectRoot   string        `toml:"project_root"`
	WatchPaths    []string      `toml:"watch_paths"`
	Parser        Parser        `toml:"parser"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	Scan          Scan          `toml:"scan"`
	Store         Store         `toml:"store"`
	Observability Observability `toml:"observability"`
}

// Parser holds the options applied to every file plus the per-path rules
// that select plugins. A path no rule matches has no parser configuration.
type Parser struct {
	Codegen       string       `toml:"codegen"`
	ErrorRecovery bool         `toml:"error_recovery"`
	SourceType    string       `toml:"source_type"`
	Rules         []ParserRule `toml:"rules"`
}

type ParserRule struct {
	Pattern       string   `toml:"pattern"`
	Plugins       []string `toml:"plugins"`
	SourceType    string   `toml:"source_type"`
	ErrorRecovery *bool    `toml:"error_recovery"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Scan struct {
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"` // files per second, 0 = unlimited
}

type Store struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	ServiceName   string `toml:"service_name"`
}

// DefaultParserRules apply when the config file declares no rules. Patterns
// are matched against the slash-separated path relative to the project root.
func DefaultParserRules() []ParserRule {
	return []ParserRule{
		{Pattern: "**.{js,jsx,mjs,cjs}", Plugins: []string{"jsx"}},
		{Pattern: "**.tsx", Plugins: []string{"typescript", "jsx"}},
		{Pattern: "**.{ts,mts,cts}", Plugins: []string{"typescript"}},
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
