package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/liveset/internal/watch"
	"github.com/vango-dev/liveset/pkg/live"
	"github.com/vango-dev/liveset/pkg/source"
	"github.com/vango-dev/liveset/pkg/stream"
	"github.com/vango-dev/liveset/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

func serveCmd(a *app) *cobra.Command {
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "serve <source> [selector]...",
		Short: "Serve live sets over HTTP and WebSocket",
		Long: `Load a document and serve its live sets.

Sets named on the command line are created before the server starts;
clients can create more with POST /sets.

Endpoints:
  GET    /sets              list open sets
  POST   /sets              create a set
  GET    /sets/{id}         snapshot of a set
  DELETE /sets/{id}         dispose a set
  GET    /sets/{id}/stream  WebSocket stream of snapshots
  POST   /mutations         change the document
  GET    /metrics           Prometheus metrics
  GET    /healthz           health check

Examples:
  liveset serve page.html "li.active"
  liveset serve page.html --addr :9000 --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.OutOrStdout(), a, args[0], args[1:], watchFile)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "Reload the document when the source file changes")
	cmd.Flags().Duration("debounce", 0, "Delay between a save and the reload (default from config)")

	return cmd
}

func runServe(ctx context.Context, w io.Writer, a *app, uri string, selectors []string, watchFile bool) error {
	doc, err := source.Load(ctx, uri, a.sourceOptions()...)
	if err != nil {
		return err
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	monitor := telemetry.New(
		telemetry.WithNamespace(a.cfg.Serve.Namespace),
		telemetry.WithRegistry(metrics),
	)

	loop := a.newLoop()
	reg := live.NewRegistry(doc,
		live.WithLoop(loop),
		live.WithLogger(a.logger),
		live.WithMonitor(monitor),
	)
	defer reg.Close()

	for _, sel := range selectors {
		set := reg.Select(live.Document(), sel, nil)
		if err := set.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s %s (%d)\n", pathColor.Sprint(set.ID()), set.Selector(), set.Len())
	}

	srv := stream.New(reg, &stream.Config{
		Address:           a.cfg.Serve.Address,
		ReadHeaderTimeout: a.cfg.Serve.ReadHeaderTimeout,
		WriteTimeout:      a.cfg.Serve.WriteTimeout,
		PingInterval:      a.cfg.Serve.PingInterval,
		ShutdownTimeout:   a.cfg.Serve.ShutdownTimeout,
		MaxBodyBytes:      a.cfg.Serve.MaxBodyBytes,
	}, stream.WithLogger(a.logger), stream.WithGatherer(metrics))

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Serve(egctx) })

	if watchFile {
		if !source.Watchable(uri) {
			a.logger.Warn("source cannot be watched", "source", uri)
		} else {
			watcher := watch.New(watch.Config{
				Path:     source.FilePath(uri),
				Debounce: a.cfg.Watch.Debounce,
				Logger:   a.logger,
			})
			watcher.OnChange(func(watch.Change) {
				next, err := source.Load(egctx, uri, a.sourceOptions()...)
				if err != nil {
					a.logger.Error("reload failed", "source", uri, "error", err)
					return
				}
				loop.Post(func() {
					doc.ReplaceBody(next)
					a.logger.Info("document reloaded", "source", uri, "changes", reg.Flush())
				})
			})
			eg.Go(func() error { return watcher.Run(egctx) })
		}
	}

	success(w, "serving %s on %s", uri, a.cfg.Serve.Address)
	return eg.Wait()
}
