package main

import (
	"fmt"
	"os"

	"github.com/saworbit/zipatch/internal/platform"
	"github.com/saworbit/zipatch/pkg/generator"
	"github.com/saworbit/zipatch/pkg/patch"
	"github.com/spf13/cobra"
)

func newExplainCmd() *cobra.Command {
	var patchPath string

	cmd := &cobra.Command{
		Use:   "explain --patch <patch>",
		Short: "Summarize a patch stream's directives without touching either archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if patchPath == "" {
				return fmt.Errorf("--patch is required")
			}
			return runExplain(patchPath)
		},
	}

	cmd.Flags().StringVar(&patchPath, "patch", "", "Path to the patch stream")
	return cmd
}

func runExplain(patchPath string) error {
	patchPath = platform.LongPathname(patchPath)

	info, err := os.Stat(patchPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", patchPath, err)
	}
	if err := ensureReadable(patchPath, info); err != nil {
		return err
	}

	f, err := os.Open(patchPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", patchPath, err)
	}
	defer f.Close()

	version, directives, err := patch.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read patch stream: %w", err)
	}

	report := generator.ReportFromDirectives(directives)

	fmt.Printf("patch version: %d\n", version)
	fmt.Printf("directives: %d (copy=%d refresh=%d patch=%d new=%d)\n",
		report.EntryCount(), report.CopyCount, report.RefreshCount, report.PatchCount, report.NewCount)
	fmt.Printf("directive bytes: %d\n", report.DirectiveBytes)
	fmt.Printf("bytes avoided (refresh/patch only): %d\n", report.BytesAvoided)
	fmt.Printf("bytes introduced: %d\n", report.BytesIntroduced)
	return nil
}
