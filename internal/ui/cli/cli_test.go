package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dvamodel/internal/core/config"
	"dvamodel/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliModel = `export default {
  namespace: 'todo',
  reducers: {
    add(state, { payload }) { return [...state, payload]; },
  },
  effects: {
    *sync(_, { call }) { yield call(fetch, '/todos'); },
  },
};
`

func writeProject(t *testing.T, storeEnabled bool) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "models", "todo.ts"), []byte(cliModel), 0o644))

	content := "version = 1\nwatch_paths = [\"src\"]\n"
	if storeEnabled {
		content += "[store]\nenabled = true\n"
	}
	cfgPath := filepath.Join(dir, config.DefaultConfigFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dvamodel v"+versionString+"\n", out)
}

func TestParseCommand_JSON(t *testing.T) {
	dir, cfgPath := writeProject(t, false)

	out, err := execute(t, "--config", cfgPath, "--format", "json", "parse", filepath.Join(dir, "src", "models", "todo.ts"))
	require.NoError(t, err)

	var decoded []struct {
		File   string `json:"file"`
		Models []struct {
			Namespace string                     `json:"namespace"`
			Reducers  map[string]json.RawMessage `json:"reducers"`
			Effects   map[string]json.RawMessage `json:"effects"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	require.Len(t, decoded[0].Models, 1)
	assert.Equal(t, "todo", decoded[0].Models[0].Namespace)
	assert.Contains(t, decoded[0].Models[0].Reducers, "add")
	assert.Contains(t, decoded[0].Models[0].Effects, "sync")
}

func TestParseCommand_MissingFile(t *testing.T) {
	dir, cfgPath := writeProject(t, false)

	_, err := execute(t, "--config", cfgPath, "parse", filepath.Join(dir, "absent.ts"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIO))
}

func TestScanCommand(t *testing.T) {
	dir, cfgPath := writeProject(t, true)

	out, err := execute(t, "--config", cfgPath, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "1 models")
	_, statErr := os.Stat(filepath.Join(dir, ".dvamodel", "models.db"))
	assert.NoError(t, statErr)

	out, err = execute(t, "--config", cfgPath, "--format", "json", "scan")
	require.NoError(t, err)
	var res struct {
		FilesSkipped int `json:"files_skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.FilesSkipped)
}

func TestScanCommand_List(t *testing.T) {
	_, cfgPath := writeProject(t, false)

	out, err := execute(t, "--config", cfgPath, "scan", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "todo/add")
	assert.Contains(t, out, "src/models/todo.ts")
}

func TestLookupCommand(t *testing.T) {
	_, cfgPath := writeProject(t, false)

	out, err := execute(t, "--config", cfgPath, "lookup", "todo/sync")
	require.NoError(t, err)
	assert.Contains(t, out, "todo/sync effect")
	assert.Contains(t, out, "*sync(_, { call })")

	_, err = execute(t, "--config", cfgPath, "lookup", "todo/missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestTypesCommand(t *testing.T) {
	_, cfgPath := writeProject(t, false)

	out, err := execute(t, "--config", cfgPath, "types", "todo/")
	require.NoError(t, err)
	assert.Equal(t, "todo/add\ntodo/sync\n", out)
}

func TestInvalidFormat(t *testing.T) {
	_, cfgPath := writeProject(t, false)

	_, err := execute(t, "--config", cfgPath, "--format", "yaml", "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestLoadConfig_DiscoversFileInCwd(t *testing.T) {
	dir, cfgPath := writeProject(t, false)

	cfg, used, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, used)
	assert.Equal(t, []string{filepath.Join(dir, "src")}, cfg.ResolveWatchPaths())
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	cfg, used, err := loadConfig("", dir)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, ".dvamodel", "models.db"), cfg.Store.Path)
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), t.TempDir())
	assert.Error(t, err)
}

func TestOpenStoreIfEnabled(t *testing.T) {
	cfg := config.Default()
	s, err := openStoreIfEnabled(cfg)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(t.TempDir(), "db", "models.db")
	s, err = openStoreIfEnabled(cfg)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
}
