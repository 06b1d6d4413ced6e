package sync

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlvector/cv-engine/internal/config"
)

func initRepoWithFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, exec.Command("git", "init", "-q", dir).Run())

	for path, content := range files {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	add := exec.Command("git", "add", "-A")
	add.Dir = dir
	require.NoError(t, add.Run())

	commit := exec.Command("git", "-c", "user.email=test@example.com", "-c", "user.name=test",
		"commit", "-q", "-m", "initial")
	commit.Dir = dir
	require.NoError(t, commit.Run())

	return dir
}

func TestEnumerateFiles_SkipsExcludedDirsAndUnsupportedExtensions(t *testing.T) {
	root := initRepoWithFiles(t, map[string]string{
		"main.go":                     "package main\n",
		"node_modules/pkg/index.js":   "module.exports = {}\n",
		"vendor/dep/dep.go":           "package dep\n",
		"README.md":                   "# hello\n",
		"app.min.js":                  "console.log(1)\n",
		"__tests__/fixtures/fake.go":  "package fixtures\n",
	})

	entries, err := enumerateFiles(root, config.SyncConfig{})
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}

	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "node_modules/pkg/index.js")
	assert.NotContains(t, paths, "vendor/dep/dep.go")
	assert.NotContains(t, paths, "README.md")
	assert.NotContains(t, paths, "app.min.js")
	assert.NotContains(t, paths, "__tests__/fixtures/fake.go")
}

func TestEnumerateFiles_HonorsExcludePatterns(t *testing.T) {
	root := initRepoWithFiles(t, map[string]string{
		"main.go":          "package main\n",
		"internal/gen.go":  "package internal\n",
	})

	entries, err := enumerateFiles(root, config.SyncConfig{ExcludePatterns: []string{"internal/*"}})
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "internal/gen.go")
}

func TestToFileInputs_ReadsContentAndDetectsLanguage(t *testing.T) {
	root := initRepoWithFiles(t, map[string]string{"main.go": "package main\n"})
	entries, err := enumerateFiles(root, config.SyncConfig{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	inputs, err := toFileInputs(entries, func(path string) ([]byte, error) {
		return os.ReadFile(filepath.Join(root, path))
	})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "main.go", inputs[0].Path)
	assert.Equal(t, "go", inputs[0].Language)
	assert.Contains(t, string(inputs[0].Content), "package main")
}
