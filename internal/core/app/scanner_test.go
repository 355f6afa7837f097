package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dvamodel/internal/core/config"
	"dvamodel/internal/core/ports"
	"dvamodel/internal/data/store"
	"dvamodel/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userModel = `import { query } from '@/services/user';

export default {
  namespace: 'user',
  state: {},
  reducers: {
    save(state, { payload }) {
      return { ...state, ...payload };
    },
  },
  effects: {
    *fetch({ payload }, { call, put }) {
      const data = yield call(query, payload);
      yield put({ type: 'save', payload: data });
    },
  },
};
`

const orderModel = `app.model({
  namespace: 'order',
  reducers: {
    add(state) { return state; },
    save: (state) => state,
  },
});
`

const brokenModel = `export default { namespace: 'broken', reducers: { a( } `

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "models", "user.ts"), userModel)
	writeFile(t, filepath.Join(root, "src", "models", "order.js"), orderModel)
	writeFile(t, filepath.Join(root, "src", "models", "broken.ts"), brokenModel)
	writeFile(t, filepath.Join(root, "src", "types.d.ts"), "declare const x: number;")
	writeFile(t, filepath.Join(root, "node_modules", "dva", "index.js"), "export default { namespace: 'dep', reducers: { a() {} } }")
	writeFile(t, filepath.Join(root, "README.md"), "# project")

	cfg := config.Default()
	cfg.ProjectRoot = root
	cfg.Scan.Workers = 2
	return root, cfg
}

func TestScan_IndexesModels(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)

	res, err := a.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.FilesScanned)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 2, res.Models)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "broken.ts")
	assert.NotEmpty(t, res.ScanID)

	matches := a.Lookup("user/save")
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(root, "src", "models", "user.ts"), matches[0].File)
	assert.Contains(t, matches[0].Method.Code, "save(state, { payload })")

	assert.Equal(t, []string{"order/add", "order/save"}, a.ActionTypes("order/"))
}

func TestScan_SkipsUnchangedFiles(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)

	res, err := a.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesSkipped)
	assert.Equal(t, 1, res.FilesFailed)

	res, err = a.Scan(ctx, ports.ScanRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesSkipped)

	writeFile(t, filepath.Join(root, "src", "models", "user.ts"), userModel+"\n// touched\n")
	res, err = a.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesSkipped)
}

func TestScan_PrunesRemovedFiles(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, a.Lookup("order/add"))

	require.NoError(t, os.Remove(filepath.Join(root, "src", "models", "order.js")))
	res, err := a.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Models)
	assert.Empty(t, a.Lookup("order/add"))
}

func TestScan_SingleFileRoot(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)

	res, err := a.Scan(context.Background(), ports.ScanRequest{
		Paths: []string{filepath.Join(root, "src", "models", "order.js")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, 1, res.Models)
}

func TestScan_MissingRoot(t *testing.T) {
	_, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)

	_, err = a.Scan(context.Background(), ports.ScanRequest{Paths: []string{filepath.Join(cfg.ProjectRoot, "absent")}})
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	_, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Scan(ctx, ports.ScanRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_WithStoreHydratesNextRun(t *testing.T) {
	_, cfg := newProject(t)
	ctx := context.Background()

	s, err := store.Open(filepath.Join(t.TempDir(), "models.db"), 0)
	require.NoError(t, err)
	defer s.Close()

	first, err := NewWithDependencies(cfg, Dependencies{Index: s})
	require.NoError(t, err)
	res, err := first.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Models)

	second, err := NewWithDependencies(cfg, Dependencies{Index: s})
	require.NoError(t, err)
	res, err = second.Scan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesSkipped)
	assert.Equal(t, 2, res.Models)
	assert.Len(t, second.Lookup("user/fetch"), 1)

	scans, err := s.Scans(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, scans, 2)
	assert.Equal(t, res.ScanID, scans[0].ID)
}

func TestHandleChanges(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	var updates []ports.WatchUpdate
	a.SetUpdateHandler(func(u ports.WatchUpdate) { updates = append(updates, u) })

	userPath := filepath.Join(root, "src", "models", "user.ts")
	orderPath := filepath.Join(root, "src", "models", "order.js")
	writeFile(t, userPath, `export default { namespace: 'user', reducers: { clear() { return {}; } } };`)
	require.NoError(t, os.Remove(orderPath))

	a.HandleChanges([]string{userPath, orderPath, filepath.Join(root, "README.md")})

	require.Len(t, updates, 1)
	assert.Equal(t, []string{userPath}, updates[0].Changed)
	assert.Equal(t, []string{orderPath}, updates[0].Removed)
	assert.Equal(t, 1, updates[0].Models)
	assert.Empty(t, a.Lookup("user/save"))
	assert.Len(t, a.Lookup("user/clear"), 1)
}

func TestHandleChanges_SyntaxErrorKeepsLastGoodModels(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	userPath := filepath.Join(root, "src", "models", "user.ts")
	writeFile(t, userPath, brokenModel)
	a.HandleChanges([]string{userPath})

	assert.Len(t, a.Lookup("user/save"), 1)
}

func TestUpdateConfig_AppliesNewRules(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	next := config.Default()
	next.ProjectRoot = root
	next.Parser.Rules = []config.ParserRule{{Pattern: "**.ts", Plugins: []string{"typescript"}}}
	require.NoError(t, a.UpdateConfig(next))

	res, err := a.Scan(ctx, ports.ScanRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Models)
	assert.Empty(t, a.Lookup("order/add"))
}

func TestParseFile_UsesConfiguredRules(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)

	models, err := a.ParseFile(context.Background(), filepath.Join(root, "src", "models", "user.ts"))
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "user", models[0].Namespace)

	models, err = a.ParseFile(context.Background(), filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, []parser.Model{}, models)
}

func TestHealthService_Check(t *testing.T) {
	_, cfg := newProject(t)
	cfg.Store.Enabled = true
	a, err := New(cfg)
	require.NoError(t, err)

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Contains(t, status.Components["registry"], "0 files")
	assert.Contains(t, status.Components["parser"], "codegen=source")
}

func TestCollectFiles(t *testing.T) {
	root, cfg := newProject(t)
	a, err := New(cfg)
	require.NoError(t, err)
	_, _, filter, _ := a.current()

	files, err := CollectFiles([]string{root}, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "models", "broken.ts"),
		filepath.Join(root, "src", "models", "order.js"),
		filepath.Join(root, "src", "models", "user.ts"),
	}, files)
}
