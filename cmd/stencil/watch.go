package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil"
)

// Word processors save by writing several times or by renaming a temporary
// file, so events are collected for a moment before rendering.
const watchDebounce = 300 * time.Millisecond

// watchAndRender renders once, then again after every change to the
// template or the data file, until ctx is done. Render failures are
// reported and watching continues.
func (ro *renderOptions) watchAndRender(ctx context.Context, cmd *cobra.Command, templatePath, dataPath string) error {
	if dataPath == "-" {
		return fmt.Errorf("--watch cannot read data from standard input")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := map[string]bool{}
	for _, path := range []string{templatePath, dataPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Watch the directory: a rename-on-save replaces the file's inode.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	log := stencil.GetLogger().WithField("template", templatePath)
	renderOnce := func() {
		if err := ro.render(ctx, cmd, templatePath, dataPath); err != nil {
			log.Error("render failed: %v", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	renderOnce()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("%s: %s", event.Op, event.Name)
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error: %v", err)
		case <-timer.C:
			renderOnce()
		}
	}
}
