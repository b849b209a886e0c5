package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/saworbit/zipatch/pkg/config"
	"github.com/saworbit/zipatch/pkg/engine"
	"github.com/saworbit/zipatch/pkg/generator"
	"github.com/spf13/cobra"

	"github.com/saworbit/zipatch/internal/metrics"
	"github.com/saworbit/zipatch/internal/platform"
)

func newGenerateCmd() *cobra.Command {
	var oldPath, newPath, outPath string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "generate --old <archive> --new <archive> --out <patch>",
		Short: "Generate a patch stream that transforms an old archive into a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if oldPath == "" || newPath == "" || outPath == "" {
				return fmt.Errorf("--old, --new, and --out are all required")
			}
			return runGenerate(oldPath, newPath, outPath, noCache)
		},
	}

	cmd.Flags().StringVar(&oldPath, "old", "", "Path to the old archive")
	cmd.Flags().StringVar(&newPath, "new", "", "Path to the new archive")
	cmd.Flags().StringVar(&outPath, "out", "", "Path to write the patch stream to")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the on-disk delta cache for this run")
	return cmd
}

func runGenerate(oldPath, newPath, outPath string, noCache bool) error {
	cfg := config.LoadFromEnv()
	if noCache {
		cfg.EnableCache = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	old, err := loadArchiveFile(oldPath)
	if err != nil {
		return fmt.Errorf("load old archive: %w", err)
	}
	newArchive, err := loadArchiveFile(newPath)
	if err != nil {
		return fmt.Errorf("load new archive: %w", err)
	}

	cache, closeCache, err := openDeltaCache(cfg)
	if err != nil {
		return fmt.Errorf("open delta cache: %w", err)
	}
	defer closeCache()

	out, err := os.Create(platform.LongPathname(outPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	registry := engine.Defaults()
	opts := generator.Options{Cache: cache, Integrity: integrityManagerFor(cfg)}

	start := time.Now()
	report, err := generator.GenerateWithOptions(out, old, newArchive, registry, opts)
	metrics.ObservePatchOutcome("generate", err)
	if err != nil {
		return fmt.Errorf("generate patch: %w", err)
	}
	metrics.ObserveGenerate(start, report.CopyCount, report.RefreshCount, report.PatchCount, report.NewCount, report.BytesAvoided, report.BytesIntroduced)

	log.Printf("[Generate] wrote %s: copy=%d refresh=%d patch=%d new=%d avoided=%dB introduced=%dB cache(hit=%d miss=%d)",
		outPath, report.CopyCount, report.RefreshCount, report.PatchCount, report.NewCount,
		report.BytesAvoided, report.BytesIntroduced, report.CacheHits, report.CacheMisses)
	if len(report.IntegrityRoot) > 0 {
		log.Printf("[Generate] integrity root: %x", report.IntegrityRoot)
	}

	return nil
}
