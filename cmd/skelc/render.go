package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aledsdavies/skelc/pkgs/builtins"
	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/host"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/skeleton"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// renderOpts collects render's flags, shared with watch.
type renderOpts struct {
	file       string
	dataFile   string
	schemaFile string
	out        string
	logLevel   string
	golden     string
}

func newRenderCmd() *cobra.Command {
	opts := &renderOpts{}
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a skeleton template to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.file = args[0]
			logger := newLogger(opts.logLevel)
			output, err := renderOnce(opts, logger)
			if err != nil {
				return err
			}
			if opts.golden != "" {
				return checkGolden(opts.golden, output)
			}
			return writeOutput(opts.out, output)
		},
	}
	cmd.Flags().StringVar(&opts.dataFile, "data", "", "YAML file whose top-level keys become template globals")
	cmd.Flags().StringVar(&opts.schemaFile, "schema", "", "JSON Schema file to validate --data against before rendering")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.golden, "golden", "", "Compare output against a golden file instead of writing it; fails with a diff on mismatch")
	return cmd
}

// checkGolden compares got against the contents of goldenFile, returning an
// error with a readable diff on mismatch. Used by CI jobs that render fixed
// templates and assert the output hasn't drifted.
func checkGolden(goldenFile, got string) error {
	want, err := os.ReadFile(goldenFile)
	if err != nil {
		return &CLIError{Message: fmt.Sprintf("reading golden file %s: %v", goldenFile, err)}
	}
	if diff := cmp.Diff(string(want), got); diff != "" {
		return &CLIError{Message: "rendered output does not match golden file", Hint: fmt.Sprintf("--- want +++ got\n%s", diff)}
	}
	return nil
}

// newLogger builds the slog.Logger every long-lived component in this
// module falls back to, per SPEC_FULL.md §2's ambient-stack section.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

// renderOnce parses, post-processes, and renders a single template document,
// tagging the logger with a fresh trace id so nested #include renders can be
// correlated in the log stream (SPEC_FULL.md §3, google/uuid row).
func renderOnce(opts *renderOpts, logger *slog.Logger) (string, error) {
	traceID := uuid.New().String()
	logger = logger.With("trace_id", traceID, "file", opts.file)

	reader := host.OSFileReader{}
	src, err := reader.ReadFile(opts.file)
	if err != nil {
		return "", &CLIError{Message: fmt.Sprintf("reading %s: %v", opts.file, err)}
	}

	loader := skeleton.NewLoader()
	tree, err := skeleton.Parse(src, opts.file, loader, logger)
	if err != nil {
		return "", err
	}

	reg := registry.New()
	builtins.RegisterDefaults(reg)

	if err := skeleton.PostProcess(tree, reg, logger); err != nil {
		return "", err
	}

	ctx := evalctx.New()
	ctx.TraceID = traceID
	if opts.dataFile != "" {
		doc, err := loadDataFile(opts.dataFile, opts.schemaFile)
		if err != nil {
			return "", &CLIError{Message: err.Error()}
		}
		bindGlobals(ctx, doc)
	}

	if _, err := skeleton.Render(tree, ctx, reg, logger); err != nil {
		return "", err
	}
	return ctx.Output(), nil
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
