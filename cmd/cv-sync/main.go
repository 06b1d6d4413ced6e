// Command cv-sync runs a full or incremental sync of a repository into the
// engine's graph and vector stores, then exports the result to the
// repo-local .cv/ on-disk format. Grounded on crisk-sync's cobra-rooted,
// numbered-step console style (fmt.Printf("[N/M] ...")), rebuilt around
// internal/sync.Driver instead of the teacher's Postgres/Neo4j consistency
// repair.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/controlvector/cv-engine/internal/app"
	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/git"
	"github.com/controlvector/cv-engine/internal/hooks"
	"github.com/controlvector/cv-engine/internal/storage"
	"github.com/controlvector/cv-engine/internal/sync"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile     string
	root        string
	incremental bool
	skipVectors bool
	skipExport  bool
	background  bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cv-sync",
	Short:   "Sync a repository's structural graph and semantic vectors",
	Version: Version,
	RunE:    runSync,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: cv.yaml)")
	rootCmd.Flags().StringVar(&root, "root", ".", "repository root to sync")
	rootCmd.Flags().BoolVar(&incremental, "incremental", false, "sync only files changed since the last sync")
	rootCmd.Flags().BoolVar(&skipVectors, "skip-vectors", false, "skip the vector-write stage")
	rootCmd.Flags().BoolVar(&skipExport, "skip-export", false, "skip exporting to .cv/ on disk")
	rootCmd.Flags().BoolVar(&background, "background", false, "suppress progress output, for hook-triggered runs")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.SetVersionTemplate(`cv-sync {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}

func runSync(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	logger := logrus.New()
	if background {
		logger.SetOutput(os.Stderr)
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	mode := "full"
	if incremental {
		mode = "incremental"
	}
	if !background {
		fmt.Printf("cv-sync: %s sync of %s\n", mode, root)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Warn("failed to load config, using defaults")
		cfg = config.Default()
	}

	backends, err := app.Open(ctx, root, cfg, logger)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer backends.Close()

	driver := sync.New(backends.GraphWriter, backends.VectorWriter, backends.Cache, backends.RepoID, cfg.Sync, logger)
	opts := sync.Options{Root: root, SkipVectors: skipVectors, SkipExport: skipExport}

	if cfg.Sync.InstallHooks {
		if alreadyInstalled, err := hooks.IsInstalled(root, hooks.PostCommit); err == nil && !alreadyInstalled {
			if err := hooks.InstallAll(root); err != nil {
				logger.WithError(err).Warn("failed to install git hooks")
			} else if !background {
				fmt.Println("  installed post-commit/post-merge hooks")
			}
		}
	}

	var state *storage.SyncState
	if incremental {
		prior, err := storage.ReadSyncState(root)
		if err != nil {
			return fmt.Errorf("read prior sync state: %w", err)
		}
		changed, err := git.ChangedFilesSince(root, prior.LastCommitSynced)
		if err != nil {
			return fmt.Errorf("determine changed files: %w", err)
		}
		if !background {
			fmt.Printf("  %d file(s) changed since %s\n", len(changed), prior.LastCommitSynced)
		}
		state, err = driver.IncrementalSync(ctx, changed, opts)
		if err != nil {
			return fmt.Errorf("incremental sync: %w", err)
		}
	} else {
		state, err = driver.FullSync(ctx, opts)
		if err != nil {
			return fmt.Errorf("full sync: %w", err)
		}
	}

	if !background {
		fmt.Printf("\nsynced %d files, %d symbols, %d relationships, %d vectors in %s\n",
			state.Counts.Files, state.Counts.Symbols, state.Counts.Relationships, state.Counts.Vectors,
			time.Since(start).Round(time.Millisecond))
		if len(state.Errors) > 0 {
			fmt.Printf("%d file(s) failed to parse and were skipped\n", len(state.Errors))
		}
	}
	return nil
}
