package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var oldPath, watchPath, outPath string

	cmd := &cobra.Command{
		Use:   "watch --old <archive> --watch <new-archive> --out <patch>",
		Short: "Regenerate a patch stream every time the watched archive changes on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if oldPath == "" || watchPath == "" || outPath == "" {
				return fmt.Errorf("--old, --watch, and --out are all required")
			}
			return runWatch(cmd.Context(), oldPath, watchPath, outPath)
		},
	}

	cmd.Flags().StringVar(&oldPath, "old", "", "Path to the old archive")
	cmd.Flags().StringVar(&watchPath, "watch", "", "Path to the new archive, re-diffed on every write")
	cmd.Flags().StringVar(&outPath, "out", "", "Path to write the patch stream to")
	return cmd
}

func runWatch(ctx context.Context, oldPath, watchPath, outPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(watchPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[Watch] regenerating %s whenever %s changes", outPath, watchPath)
	if err := regenerateOnChange(oldPath, watchPath, outPath); err != nil {
		log.Printf("[Watch] initial generate failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != filepath.Clean(watchPath) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := regenerateOnChange(oldPath, watchPath, outPath); err != nil {
				log.Printf("[Watch] generate failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				log.Printf("[Watch] watcher error: %v", err)
			}
		}
	}
}

func regenerateOnChange(oldPath, watchPath, outPath string) error {
	return runGenerate(oldPath, watchPath, outPath, false)
}
