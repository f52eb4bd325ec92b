package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/vango-dev/liveset/internal/config"
	"github.com/vango-dev/liveset/internal/errors"
	"github.com/vango-dev/liveset/pkg/live"
	"github.com/vango-dev/liveset/pkg/source"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬  ┬┬  ┬┌─┐┌─┐┌─┐┌┬┐
  │  │└┐┌┘├┤ └─┐├┤  │
  ┴─┘┴ └┘ └─┘└─┘└─┘ ┴
`

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	pathColor    = color.New(color.FgHiBlack)
	headColor    = color.New(color.Bold)
)

// app carries state shared by every command once flags are parsed.
type app struct {
	cfgFile string
	cfgUsed string // file actually loaded, empty when none was found
	cfg     *config.Config
	logger  *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			fmt.Fprint(os.Stderr, e.Format())
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", removedColor.Sprint("Error:"), err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "liveset",
		Short: "Live CSS selector sets over HTML documents",
		Long: `liveset keeps selector matches over an HTML document up to date
as the document changes.

  • Query a document once from a file, URL or S3 object
  • Watch a file and print membership changes as it is edited
  • Serve sets over HTTP and stream them over WebSocket`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default: liveset.yaml)")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", config.DefaultLogFormat, "Log format: text or json")
	flags.String("color", "auto", "Color output: auto, always or never")

	rootCmd.AddCommand(
		queryCmd(a),
		watchCmd(a),
		serveCmd(a),
		versionCmd(a),
	)
	return rootCmd
}

// init loads configuration and sets up logging and color.
func (a *app) init(cmd *cobra.Command) error {
	res, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = res.Config
	a.cfgUsed = res.File

	level, _ := config.ParseLevel(a.cfg.Log.Level)
	a.logger = newLogger(cmd.ErrOrStderr(), a.cfg.Log.Format, level)
	if res.File != "" {
		a.logger.Debug("loaded config", "file", res.File)
	}

	switch a.cfg.Output.Color {
	case "always":
		errors.EnableColors()
	case "never":
		errors.DisableColors()
	default:
		f, ok := cmd.OutOrStdout().(*os.File)
		if !ok || !isatty.IsTerminal(f.Fd()) {
			errors.DisableColors()
		}
	}
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// sourceOptions builds document loading options from configuration.
func (a *app) sourceOptions() []source.Option {
	return []source.Option{
		source.WithLogger(a.logger),
		source.WithMaxBytes(a.cfg.Source.MaxBytes),
		source.WithHTTPClient(&http.Client{Timeout: a.cfg.Source.Timeout}),
		source.WithS3Region(a.cfg.Source.S3Region),
		source.WithS3Endpoint(a.cfg.Source.S3Endpoint),
	}
}

func (a *app) newLoop() *live.Loop {
	return live.NewLoop(
		live.WithFrameInterval(a.cfg.Loop.FrameInterval),
		live.WithLoopLogger(a.logger.With("component", "loop")),
	)
}

// printBanner prints the liveset ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", addedColor.Sprint("✓"), fmt.Sprintf(format, args...))
}
