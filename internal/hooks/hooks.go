// Package hooks implements the git hook manager (spec.md §4.11 / §6):
// installing post-commit/post-merge hooks that trigger a background
// incremental sync, without clobbering whatever hook script is already
// there. Grounded on the untoldecay-BeadsLog repo's
// cmd/bd/init_git_hooks.go — the pack's clearest example of detecting,
// backing up, and chaining onto pre-existing git hooks — adapted from its
// rename-to-.old chaining strategy to this spec's sentinel-delimited block
// strategy, which allows clean re-install/uninstall without renaming files.
package hooks

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	beginSentinel    = "# cv-engine:begin"
	endSentinel      = "# cv-engine:end"
	preservedComment = "# Original hook preserved below"
)

// HookName enumerates the git hooks this engine installs into.
type HookName string

const (
	PostCommit HookName = "post-commit"
	PostMerge  HookName = "post-merge"
)

var managedHooks = []HookName{PostCommit, PostMerge}

// block is the sentinel-delimited script body installed for hook,
// invoking an incremental sync in the background, discarding its output so
// the enclosing git operation never blocks on or is cluttered by it.
func block(hook HookName) string {
	return fmt.Sprintf("%s\ncv-sync --incremental --background >/dev/null 2>&1 &\n%s\n", beginSentinel, endSentinel)
}

// gitHooksDir resolves root's .git/hooks directory, following a worktree's
// or submodule's gitdir redirection the same way git itself does.
func gitHooksDir(root string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--git-path", "hooks")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve git hooks directory: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return dir, nil
}

// Install writes or updates hook in root's .git/hooks directory, inserting
// this engine's sentinel-delimited block at the top and preserving any
// existing script content below it (per spec.md §6).
func Install(root string, hook HookName) error {
	hooksDir, err := gitHooksDir(root)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("create hooks directory: %w", err)
	}

	path := filepath.Join(hooksDir, string(hook))
	existing, err := readExistingScript(path)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString(block(hook))
	if existing != "" {
		sb.WriteString("\n")
		sb.WriteString(preservedComment)
		sb.WriteString("\n")
		sb.WriteString(existing)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o755); err != nil {
		return fmt.Errorf("write hook %s: %w", hook, err)
	}
	return nil
}

// InstallAll installs every managed hook.
func InstallAll(root string) error {
	for _, h := range managedHooks {
		if err := Install(root, h); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes this engine's sentinel block from hook, restoring
// whatever script was preserved beneath it. If nothing remains afterward,
// the hook file is deleted; if a pre-existing script remains, it is
// rewritten without the engine's block and sentinels.
func Uninstall(root string, hook HookName) error {
	hooksDir, err := gitHooksDir(root)
	if err != nil {
		return err
	}
	path := filepath.Join(hooksDir, string(hook))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read hook %s: %w", hook, err)
	}
	content := string(data)

	start := strings.Index(content, beginSentinel)
	end := strings.Index(content, endSentinel)
	if start < 0 || end < 0 {
		// Not our hook (or already uninstalled) — leave it untouched.
		return nil
	}

	remainder := content[end+len(endSentinel):]
	remainder = strings.TrimPrefix(remainder, "\n")
	remainder = strings.TrimPrefix(remainder, preservedComment+"\n")

	if strings.TrimSpace(remainder) == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove hook %s: %w", hook, err)
		}
		return nil
	}

	rewritten := "#!/bin/sh\n" + remainder
	if err := os.WriteFile(path, []byte(rewritten), 0o755); err != nil {
		return fmt.Errorf("rewrite hook %s: %w", hook, err)
	}
	return nil
}

// UninstallAll removes this engine's block from every managed hook.
func UninstallAll(root string) error {
	for _, h := range managedHooks {
		if err := Uninstall(root, h); err != nil {
			return err
		}
	}
	return nil
}

// IsInstalled reports whether hook currently carries this engine's
// sentinel block.
func IsInstalled(root string, hook HookName) (bool, error) {
	hooksDir, err := gitHooksDir(root)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(filepath.Join(hooksDir, string(hook)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read hook %s: %w", hook, err)
	}
	return strings.Contains(string(data), beginSentinel), nil
}

// readExistingScript returns path's content stripped of any prior engine
// block (so repeated Install calls don't nest blocks inside each other),
// or "" if no file exists yet.
func readExistingScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read existing hook %s: %w", path, err)
	}
	content := string(data)
	content = strings.TrimPrefix(content, "#!/bin/sh\n")

	start := strings.Index(content, beginSentinel)
	end := strings.Index(content, endSentinel)
	if start < 0 || end < 0 {
		return strings.TrimSpace(content) + "\n", nil
	}

	remainder := content[end+len(endSentinel):]
	remainder = strings.TrimPrefix(remainder, "\n")
	remainder = strings.TrimPrefix(remainder, preservedComment+"\n")
	return strings.TrimSpace(remainder), nil
}
