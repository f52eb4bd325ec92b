package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/internal/watch"
	"github.com/vango-dev/liveset/pkg/dom"
	"github.com/vango-dev/liveset/pkg/live"
	"github.com/vango-dev/liveset/pkg/source"
	"golang.org/x/sync/errgroup"
)

func watchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file> <selector>...",
		Short: "Print membership changes as a file is edited",
		Long: `Watch an HTML file and keep one live set per selector over it.

Every time the file is saved its body is swapped into the live document
and the elements that joined or left each set are printed.

Examples:
  liveset watch page.html "li.active"
  liveset watch page.html ".error" "input:not([value])" --debounce 250ms`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), a, args[0], args[1:])
		},
	}

	cmd.Flags().Duration("debounce", 0, "Delay between a save and the reload (default from config)")

	return cmd
}

// session is a live document whose sets are printed as it reloads.
type session struct {
	w    io.Writer
	doc  *dom.Document
	reg  *live.Registry
	sets []*live.Set
	last [][]string
}

func newSession(w io.Writer, doc *dom.Document, reg *live.Registry, selectors []string) *session {
	s := &session{w: w, doc: doc, reg: reg}
	for _, sel := range selectors {
		set := reg.Select(live.Document(), sel, nil)
		s.sets = append(s.sets, set)
		s.last = append(s.last, memberLines(set))
	}
	return s
}

// printAll prints the current members of every set.
func (s *session) printAll() {
	for _, set := range s.sets {
		fmt.Fprintf(s.w, "%s\n", headColor.Sprint(set.Selector()))
		printMembers(s.w, set)
	}
}

// swap replaces the document body with next's and prints what changed. It
// must run on the loop goroutine.
func (s *session) swap(next *dom.Document) (changed bool) {
	s.doc.ReplaceBody(next)
	s.reg.Flush()
	for i, set := range s.sets {
		now := memberLines(set)
		changes := diffLines(s.last[i], now)
		s.last[i] = now
		if len(changes) == 0 {
			continue
		}
		fmt.Fprintf(s.w, "%s (%d)\n", headColor.Sprint(set.Selector()), set.Len())
		printChanges(s.w, changes)
		changed = true
	}
	return changed
}

func runWatch(ctx context.Context, w io.Writer, a *app, uri string, selectors []string) error {
	if !source.Watchable(uri) {
		return errors.New("L011").WithDetailf("%s cannot be watched; use a local file", uri)
	}

	doc, err := source.Load(ctx, uri, a.sourceOptions()...)
	if err != nil {
		return err
	}

	loop := a.newLoop()
	reg := live.NewRegistry(doc, live.WithLoop(loop), live.WithLogger(a.logger))
	defer reg.Close()

	sess := newSession(w, doc, reg, selectors)
	for _, set := range sess.sets {
		if err := set.Err(); err != nil {
			return err
		}
	}
	sess.printAll()

	watcher := watch.New(watch.Config{
		Path:     source.FilePath(uri),
		Debounce: a.cfg.Watch.Debounce,
		Logger:   a.logger,
	})
	watcher.OnChange(func(watch.Change) {
		next, err := source.Load(ctx, uri, a.sourceOptions()...)
		if err != nil {
			a.logger.Error("reload failed", "source", uri, "error", err)
			return
		}
		loop.Post(func() {
			if !sess.swap(next) {
				a.logger.Debug("reloaded without membership changes", "source", uri)
			}
		})
	})

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return loop.Run(egctx) })
	eg.Go(func() error { return watcher.Run(egctx) })

	success(w, "watching %s", uri)
	return eg.Wait()
}
