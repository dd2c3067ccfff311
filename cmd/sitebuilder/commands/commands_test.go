package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func testProject(t *testing.T, files map[string]string) *project {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	cfg := config.Default()
	cfg.Paths.Root = root
	p, err := newProject(cfg, true)
	require.NoError(t, err)
	return p
}

func TestListTasks(t *testing.T) {
	p := testProject(t, nil)
	var buf bytes.Buffer
	require.NoError(t, listTasks(&buf, p))

	out := buf.String()
	assert.Contains(t, out, "compile-styles")
	assert.Contains(t, out, "stylesheet")
	assert.Contains(t, out, "Build order: clean-output -> copy-static-assets -> copy-vendor-scripts -> render-pages -> compile-styles")
}

func TestRunBuild_Succeeds(t *testing.T) {
	p := testProject(t, map[string]string{
		"src/templates/index.html": "<html><body>{{.root_path}}</body></html>",
		"src/assets/css/app.css":   "body { color: blue; }",
	})
	require.NoError(t, runBuild(context.Background(), p))
	assert.FileExists(t, filepath.Join(p.builder.OutputDir(), "index.html"))
	assert.FileExists(t, filepath.Join(p.builder.OutputDir(), "css", "app.css"))
}

func TestRunBuild_FailureNamesTaskAndExitCode(t *testing.T) {
	p := testProject(t, map[string]string{
		"src/templates/index.html": "{{ if }}",
		"src/assets/css/app.css":   "body { color: blue; }",
	})
	err := runBuild(context.Background(), p)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPipeline))

	adapter := ferrors.NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 11, adapter.ExitCodeFor(err))
	assert.Contains(t, adapter.FormatError(err), "task=render-pages")
	assert.NoFileExists(t, filepath.Join(p.builder.OutputDir(), "css", "app.css"))
}

func TestRunBuild_StyleFailureNamesTask(t *testing.T) {
	p := testProject(t, map[string]string{
		"src/templates/index.html": "<html><body></body></html>",
		"src/assets/css/app.css":   "@import \"missing.css\";\nbody { color: blue; }",
	})
	err := runBuild(context.Background(), p)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryPipeline))

	adapter := ferrors.NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 11, adapter.ExitCodeFor(err))
	msg := adapter.FormatError(err)
	assert.Contains(t, msg, "task=compile-styles")
	assert.Contains(t, msg, "stylesheet compile failed")
	assert.FileExists(t, filepath.Join(p.builder.OutputDir(), "index.html"))
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)
	root := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(nil, root))
	assert.FileExists(t, path)
	require.Error(t, (&InitCmd{}).Run(nil, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(nil, root))
}
