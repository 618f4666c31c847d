package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	opts := &renderOpts{}
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-render a template whenever it or its data file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.file = args[0]
			return runWatch(opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataFile, "data", "", "YAML file whose top-level keys become template globals")
	cmd.Flags().StringVar(&opts.schemaFile, "schema", "", "JSON Schema file to validate --data against before rendering")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	return cmd
}

// runWatch re-renders opts.file on every change to it, its data file, or its
// schema file. It does not attempt to discover transitive #include targets
// ahead of time (those aren't known until a render happens) - only those
// watched paths are tracked, same limitation the teacher's fsnotify use in runtime/watch
// accepts for generated-file reloading.
func runWatch(opts *renderOpts) error {
	logger := newLogger(opts.logLevel)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	watched := []string{opts.file}
	if opts.schemaFile != "" {
		watched = append(watched, opts.schemaFile)
	}
	if opts.dataFile != "" {
		watched = append(watched, opts.dataFile)
	}
	for _, f := range watched {
		dir := filepath.Dir(f)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	render := func() {
		output, err := renderOnce(opts, logger)
		if err != nil {
			FormatError(os.Stderr, err, ShouldUseColor(false))
			return
		}
		if err := writeOutput(opts.out, output); err != nil {
			FormatError(os.Stderr, err, ShouldUseColor(false))
		}
	}
	render()

	isWatched := func(path string) bool {
		for _, f := range watched {
			if filepath.Clean(path) == filepath.Clean(f) {
				return true
			}
		}
		return false
	}

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWatched(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(50*time.Millisecond, render)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}
