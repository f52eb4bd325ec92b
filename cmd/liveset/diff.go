package main

import (
	"fmt"
	"io"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// lineChange is one added or removed line of a membership diff.
type lineChange struct {
	Added bool
	Line  string
}

// diffLines returns the lines added and removed between two listings, in
// listing order.
func diffLines(before, after []string) []lineChange {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(before), joinLines(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []lineChange
	for _, d := range diffs {
		if d.Type == diffpatch.DiffEqual {
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			line = strings.TrimSuffix(line, "\n")
			if line == "" {
				continue
			}
			out = append(out, lineChange{Added: d.Type == diffpatch.DiffInsert, Line: line})
		}
	}
	return out
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// printChanges writes changes in +/- form and reports whether there were
// any.
func printChanges(w io.Writer, changes []lineChange) bool {
	for _, c := range changes {
		if c.Added {
			fmt.Fprintf(w, "%s %s\n", addedColor.Sprint("+"), c.Line)
		} else {
			fmt.Fprintf(w, "%s %s\n", removedColor.Sprint("-"), c.Line)
		}
	}
	return len(changes) > 0
}
