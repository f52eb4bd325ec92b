package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/liveset/internal/config"
	"github.com/vango-dev/liveset/pkg/live"
)

func versionCmd(a *app) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and configuration information",
		Long: `Print the liveset version together with the configuration it would
run with: the config file found, the environment prefix and the frame
interval of the control loop.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, version)
				return
			}

			file := a.cfgUsed
			if file == "" {
				file = "none (searched " + strings.Join(config.FileNames, ", ") + ")"
			}
			var env []string
			for _, kv := range os.Environ() {
				if strings.HasPrefix(kv, config.EnvPrefix) {
					env = append(env, kv[:strings.IndexByte(kv, '=')])
				}
			}

			printBanner(w)
			fmt.Fprintf(w, "  liveset %s (%s, built %s)\n", version, commit, date)
			fmt.Fprintf(w, "  %s %s/%s\n\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "  Config file:  %s\n", file)
			fmt.Fprintf(w, "  Env prefix:   %s (%d set)\n", config.EnvPrefix, len(env))
			fmt.Fprintf(w, "  Log:          %s/%s\n", a.cfg.Log.Level, a.cfg.Log.Format)
			fmt.Fprintf(w, "  Frame:        %s (default %s)\n", a.cfg.Loop.FrameInterval, live.DefaultFrameInterval)
			fmt.Fprintf(w, "  Serve addr:   %s\n", a.cfg.Serve.Address)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}
