package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dvamodel/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1
watch_paths = ["src"]

[parser]
codegen = "esbuild"
error_recovery = true

[[parser.rules]]
pattern = "src/models/**.ts"
plugins = ["TypeScript", " decorators "]

[exclude]
dirs = ["node_modules"]
files = ["*.spec.ts"]

[watch]
debounce = "1s"

[scan]
workers = 2
rate_limit = 50

[store]
enabled = true
path = "index.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	root := filepath.Dir(path)
	assert.Equal(t, filepath.Clean(root), cfg.ProjectRoot)
	assert.Equal(t, "esbuild", cfg.Parser.Codegen)
	assert.True(t, cfg.Parser.ErrorRecovery)
	require.Len(t, cfg.Parser.Rules, 1)
	assert.Equal(t, []string{"typescript", "decorators"}, cfg.Parser.Rules[0].Plugins)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, 50.0, cfg.Scan.RateLimit)
	assert.Equal(t, filepath.Join(root, "index.db"), cfg.Store.Path)
	assert.Equal(t, []string{filepath.Join(root, "src")}, cfg.ResolveWatchPaths())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "source", cfg.Parser.Codegen)
	assert.Equal(t, "module", cfg.Parser.SourceType)
	assert.Equal(t, DefaultParserRules(), cfg.Parser.Rules)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.True(t, strings.HasSuffix(cfg.Store.Path, filepath.Join(".dvamodel", "models.db")))
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "source", cfg.Parser.Codegen)
}

func TestLoadOrDefault_InvalidFile(t *testing.T) {
	path := writeConfig(t, "version = [")
	_, err := LoadOrDefault(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DVAMODEL_SCAN_WORKERS", "3")
	t.Setenv("DVAMODEL_PARSER_CODEGEN", "ESBUILD")
	t.Setenv("DVAMODEL_WATCH_DEBOUNCE", "2s")
	t.Setenv("DVAMODEL_STORE_ENABLED", "true")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "esbuild", cfg.Parser.Codegen)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.Store.Enabled)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"version", "version = 2", "unsupported config version"},
		{"codegen", "[parser]\ncodegen = \"babel\"", "parser.codegen"},
		{"source type", "[parser]\nsource_type = \"esm\"", "parser.source_type"},
		{"empty pattern", "[[parser.rules]]\npattern = \"\"", "pattern must not be empty"},
		{"bad pattern", "[[parser.rules]]\npattern = \"src/[\"", "is invalid"},
		{"workers", "[scan]\nworkers = -1\nrate_limit = -1", "scan.rate_limit"},
		{"address", "[observability]\nenabled = true\naddress = \"nope\"", "observability.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRuleProvider(t *testing.T) {
	root := t.TempDir()
	enabled := true
	cfg := Default()
	cfg.ProjectRoot = root
	cfg.Parser.Rules = append([]ParserRule{{
		Pattern:       "legacy/**.js",
		Plugins:       []string{"flow"},
		SourceType:    "script",
		ErrorRecovery: &enabled,
	}}, DefaultParserRules()...)

	p, err := NewRuleProvider(cfg)
	require.NoError(t, err)

	t.Run("TypeScript", func(t *testing.T) {
		opts, ok := p.ParserConfig(filepath.Join(root, "src", "models", "app.ts"))
		require.True(t, ok)
		assert.Equal(t, parser.DialectTypeScript, opts.Dialect())
		assert.Equal(t, "module", opts.SourceType)
		assert.False(t, opts.ErrorRecovery)
	})

	t.Run("TSX", func(t *testing.T) {
		opts, ok := p.ParserConfig(filepath.Join(root, "page.tsx"))
		require.True(t, ok)
		assert.Equal(t, parser.DialectTSX, opts.Dialect())
	})

	t.Run("FirstRuleWins", func(t *testing.T) {
		opts, ok := p.ParserConfig(filepath.Join(root, "legacy", "old", "model.js"))
		require.True(t, ok)
		assert.Equal(t, []string{"flow"}, opts.Plugins)
		assert.Equal(t, "script", opts.SourceType)
		assert.True(t, opts.ErrorRecovery)
	})

	t.Run("NoMatchingRule", func(t *testing.T) {
		_, ok := p.ParserConfig(filepath.Join(root, "README.md"))
		assert.False(t, ok)
	})

	t.Run("OutsideRoot", func(t *testing.T) {
		_, ok := p.ParserConfig(filepath.Join(filepath.Dir(root), "other.ts"))
		assert.False(t, ok)
	})

	t.Run("Update", func(t *testing.T) {
		next := Default()
		next.ProjectRoot = root
		next.Parser.Rules = []ParserRule{{Pattern: "**.vue", Plugins: []string{"typescript"}}}
		require.NoError(t, p.Update(next))

		_, ok := p.ParserConfig(filepath.Join(root, "a.ts"))
		assert.False(t, ok)
		opts, ok := p.ParserConfig(filepath.Join(root, "a.vue"))
		require.True(t, ok)
		assert.Equal(t, parser.DialectTypeScript, opts.Dialect())
	})
}
