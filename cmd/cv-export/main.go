// Command cv-export snapshots a repository's live graph and vector stores
// into the portable on-disk .cv/ format, without running a sync first —
// useful for re-exporting after the live stores changed out-of-band, or for
// producing a snapshot to hand to another machine.
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
	"github.com/controlvector/cv-engine/internal/exporter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	root    string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cv-export",
	Short:   "Snapshot a repository's live graph/vector stores to .cv/",
	Version: Version,
	RunE:    runExport,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: cv.yaml)")
	rootCmd.Flags().StringVar(&root, "root", ".", "repository root to export into")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.SetVersionTemplate(`cv-export {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
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

	exp := exporter.New(backends.GraphWriter, backends.VectorWriter, backends.RepoID, logger)
	res, err := exp.Export(ctx, root)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Printf("exported %d files, %d symbols, %d import edges, %d call edges, %d defines edges, %d vector points in %s\n",
		res.Files, res.Symbols, res.ImportEdges, res.CallEdges, res.DefinesEdges, res.VectorPoints, res.Duration.Round(time.Millisecond))
	return nil
}
