package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vango-dev/liveset/pkg/dom"
	"github.com/vango-dev/liveset/pkg/live"
	"github.com/vango-dev/liveset/pkg/source"
	"github.com/vango-dev/liveset/pkg/stream"
)

func queryCmd(a *app) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "query <source> <selector>",
		Short: "Print the elements a selector matches",
		Long: `Load a document once and print the elements that match a selector.

Sources may be a file path, "-" for stdin, an http(s):// URL or an
s3://bucket/key object.

Examples:
  liveset query page.html "li.active"
  liveset query https://example.com "a[href]" --scope "#nav"
  liveset query s3://docs/index.html "h2" -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, a, args[0], args[1], scope)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", `Restrict matches to descendants of a node ("#id", "body" or a path)`)
	cmd.Flags().StringP("output", "o", "text", "Output format: text or json")

	return cmd
}

func runQuery(cmd *cobra.Command, a *app, uri, selector, scope string) error {
	doc, err := source.Load(cmd.Context(), uri, a.sourceOptions()...)
	if err != nil {
		return err
	}

	reg := live.NewRegistry(doc, live.WithLogger(a.logger))
	defer reg.Close()

	sc := live.Document()
	if scope != "" {
		n, err := stream.Resolve(doc, scope)
		if err != nil {
			return err
		}
		sc = live.In(n)
	}

	set := reg.Select(sc, selector, nil)
	if err := set.Err(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if a.cfg.Output.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stream.TakeSnapshot(set, set.Nodes()))
	}
	printMembers(w, set)
	return nil
}

// printMembers lists the members of s, one per line.
func printMembers(w io.Writer, s *live.Set) {
	for _, line := range memberLines(s) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "%s %d match(es) for %q\n", headColor.Sprint("→"), s.Len(), s.Selector())
}

// memberLines renders each member as "path  description".
func memberLines(s *live.Set) []string {
	nodes := s.Nodes()
	lines := make([]string, len(nodes))
	for i, n := range nodes {
		lines[i] = fmt.Sprintf("%s  %s", dom.Describe(n), pathColor.Sprint(dom.Path(n)))
	}
	return lines
}
