package hooks

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q", dir)
	require.NoError(t, cmd.Run())
	return dir
}

func TestInstall_WritesSentinelBlock(t *testing.T) {
	root := initRepo(t)
	require.NoError(t, Install(root, PostCommit))

	installed, err := IsInstalled(root, PostCommit)
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestInstall_PreservesExistingScript(t *testing.T) {
	root := initRepo(t)
	hooksDir, err := gitHooksDir(root)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(hooksDir, 0o755))

	existing := "#!/bin/sh\necho custom-hook\n"
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "post-commit"), []byte(existing), 0o755))

	require.NoError(t, Install(root, PostCommit))

	data, err := os.ReadFile(filepath.Join(hooksDir, "post-commit"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo custom-hook")
	assert.Contains(t, string(data), beginSentinel)
}

func TestUninstall_RemovesBlockButKeepsOriginalScript(t *testing.T) {
	root := initRepo(t)
	hooksDir, err := gitHooksDir(root)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(hooksDir, 0o755))
	existing := "#!/bin/sh\necho custom-hook\n"
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "post-commit"), []byte(existing), 0o755))

	require.NoError(t, Install(root, PostCommit))
	require.NoError(t, Uninstall(root, PostCommit))

	installed, err := IsInstalled(root, PostCommit)
	require.NoError(t, err)
	assert.False(t, installed)

	data, err := os.ReadFile(filepath.Join(hooksDir, "post-commit"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo custom-hook")
}

func TestUninstall_DeletesHookWhenNothingRemains(t *testing.T) {
	root := initRepo(t)
	require.NoError(t, Install(root, PostMerge))
	require.NoError(t, Uninstall(root, PostMerge))

	hooksDir, err := gitHooksDir(root)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(hooksDir, "post-merge"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIsInstalled_FalseWhenHookMissing(t *testing.T) {
	root := initRepo(t)
	installed, err := IsInstalled(root, PostCommit)
	require.NoError(t, err)
	assert.False(t, installed)
}
