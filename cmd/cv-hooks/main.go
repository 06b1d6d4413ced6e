// Command cv-hooks installs or removes the git post-commit/post-merge hooks
// that trigger a background incremental sync, per spec.md §6. Grounded on
// the teacher's crisk root command shape (cobra root with subcommands).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/controlvector/cv-engine/internal/hooks"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var root string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cv-hooks",
	Short:   "Manage the engine's git hooks",
	Version: Version,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install post-commit and post-merge hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hooks.InstallAll(root); err != nil {
			return fmt.Errorf("install hooks: %w", err)
		}
		fmt.Println("installed post-commit and post-merge hooks")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove this engine's hooks, preserving any pre-existing script",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hooks.UninstallAll(root); err != nil {
			return fmt.Errorf("uninstall hooks: %w", err)
		}
		fmt.Println("uninstalled post-commit and post-merge hooks")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report which hooks are currently installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, h := range []hooks.HookName{hooks.PostCommit, hooks.PostMerge} {
			installed, err := hooks.IsInstalled(root, h)
			if err != nil {
				return fmt.Errorf("check %s: %w", h, err)
			}
			state := "not installed"
			if installed {
				state = "installed"
			}
			fmt.Printf("%-12s %s\n", h, state)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&root, "root", ".", "repository root")
	rootCmd.AddCommand(installCmd, uninstallCmd, statusCmd)

	rootCmd.SetVersionTemplate(`cv-hooks {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}
