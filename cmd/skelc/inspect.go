package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aledsdavies/skelc/pkgs/formula"
	"github.com/aledsdavies/skelc/pkgs/host"
	"github.com/aledsdavies/skelc/pkgs/skeleton"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var format string
	var logLevel string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Dump a template's parsed tree for external tooling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			reader := host.OSFileReader{}
			src, err := reader.ReadFile(args[0])
			if err != nil {
				return &CLIError{Message: fmt.Sprintf("reading %s: %v", args[0], err)}
			}
			tree, err := skeleton.Parse(src, args[0], skeleton.NewLoader(), logger)
			if err != nil {
				return err
			}
			dump := describeTree(tree)

			var out []byte
			switch format {
			case "json":
				out, err = json.MarshalIndent(dump, "", "  ")
			case "cbor":
				out, err = cbor.Marshal(dump)
			default:
				return &CLIError{Message: fmt.Sprintf("unknown --format %q", format), Hint: "use json or cbor"}
			}
			if err != nil {
				return fmt.Errorf("encoding tree: %w", err)
			}
			_, err = os.Stdout.Write(out)
			if format == "json" {
				fmt.Println()
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or cbor")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	return cmd
}

// describeTree renders a skeleton.Tree into a plain map/slice shape that
// both encoding/json and cbor/v2 can serialize directly - the registered
// Stmt.SelfFn/SuperFn closures and formula.Node.BoundFunction et al. aren't
// representable that way, so inspect only ever runs on a parsed-not-yet-
// post-processed tree and describes source structure, not bindings.
func describeTree(t *skeleton.Tree) map[string]any {
	return map[string]any{
		"file": t.File,
		"body": describeStmts(t.Root.Body),
	}
}

func describeStmts(stmts []*skeleton.Stmt) []map[string]any {
	out := make([]map[string]any, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, describeStmt(s))
	}
	return out
}

func describeStmt(s *skeleton.Stmt) map[string]any {
	m := map[string]any{
		"kind": s.Kind.String(),
		"loc":  s.Loc.String(),
	}
	switch s.Kind {
	case skeleton.SKText:
		m["text"] = s.Text
	case skeleton.SKExpr, skeleton.SKPlaceholder, skeleton.SKReturn:
		if s.Expr != nil {
			m["expr"] = describeNode(s.Expr)
		}
	case skeleton.SKIf:
		branches := make([]map[string]any, 0, len(s.Branches))
		for _, b := range s.Branches {
			branches = append(branches, map[string]any{
				"cond": describeNode(b.Cond),
				"body": describeStmts(b.Body),
			})
		}
		m["branches"] = branches
		if s.ElseBody != nil {
			m["else"] = describeStmts(s.ElseBody)
		}
	case skeleton.SKFor:
		m["expr"] = describeNode(s.Expr)
		m["loop_var"] = s.LoopVar
		m["body"] = describeStmts(s.Body)
		if s.ElseBody != nil {
			m["else"] = describeStmts(s.ElseBody)
		}
	case skeleton.SKWhile, skeleton.SKDoWhile:
		m["expr"] = describeNode(s.Expr)
		m["body"] = describeStmts(s.Body)
	case skeleton.SKFunction, skeleton.SKBlock:
		m["name"] = s.Name
		if len(s.Params) > 0 {
			m["params"] = s.Params
		}
		m["body"] = describeStmts(s.Body)
	}
	return m
}

func describeNode(n *formula.Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}
