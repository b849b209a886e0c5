package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/saworbit/zipatch/pkg/applier"
	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/spf13/cobra"

	"github.com/saworbit/zipatch/internal/metrics"
	"github.com/saworbit/zipatch/internal/platform"
)

func newApplyCmd() *cobra.Command {
	var oldPath, patchPath, outPath string

	cmd := &cobra.Command{
		Use:   "apply --old <archive> --patch <patch> --out <archive>",
		Short: "Apply a patch stream against an old archive to reconstruct the new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if oldPath == "" || patchPath == "" || outPath == "" {
				return fmt.Errorf("--old, --patch, and --out are all required")
			}
			return runApply(oldPath, patchPath, outPath)
		},
	}

	cmd.Flags().StringVar(&oldPath, "old", "", "Path to the old archive")
	cmd.Flags().StringVar(&patchPath, "patch", "", "Path to the patch stream")
	cmd.Flags().StringVar(&outPath, "out", "", "Path to write the reconstructed archive to")
	return cmd
}

func runApply(oldPath, patchPath, outPath string) error {
	oldPath = platform.LongPathname(oldPath)
	patchPath = platform.LongPathname(patchPath)
	outPath = platform.LongPathname(outPath)

	oldInfo, err := os.Stat(oldPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", oldPath, err)
	}
	if err := ensureReadable(oldPath, oldInfo); err != nil {
		return err
	}
	oldBytes, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", oldPath, err)
	}

	patchInfo, err := os.Stat(patchPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", patchPath, err)
	}
	if err := ensureReadable(patchPath, patchInfo); err != nil {
		return err
	}
	patchFile, err := os.Open(patchPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", patchPath, err)
	}
	defer patchFile.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	registry := engine.Defaults()

	start := time.Now()
	err = applier.Apply(out, oldBytes, patchFile, registry)
	metrics.ObservePatchOutcome("apply", err)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	metrics.ObserveApply(start)

	log.Printf("[Applier] wrote %s", outPath)
	return nil
}
