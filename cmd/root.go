package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"viki/vikigraph/internal/config"
	"viki/vikigraph/internal/db"
	"viki/vikigraph/internal/engine"
	"viki/vikigraph/internal/mediawiki"
	"viki/vikigraph/internal/telemetry"
	"viki/vikigraph/internal/wiki"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	traceFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "viki",
	Short: "Build and explore link graphs of wiki pages",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to .viki.yaml configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&traceFlag, "trace", "", "Trace exporter: none, stdout or otlp (overrides trace_exporter)")
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
}

// LoadConfig discovers and loads the configuration.
func LoadConfig() (config.Config, error) {
	path, err := config.Discover(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		slog.Debug("loading config", "path", path)
	}
	return config.Load(path)
}

// startTracing installs the tracer provider named by --trace or the
// configuration. Stdout spans go to stderr so they never mix with command
// output. The returned function flushes pending spans.
func startTracing(ctx context.Context, cfg config.Config) (func(), error) {
	tc := telemetry.Config{
		Exporter: cfg.TraceExporter,
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
		Writer:   os.Stderr,
		Version:  "1.0",
	}
	if traceFlag != "" {
		tc.Exporter = traceFlag
	}
	shutdown, err := telemetry.Init(ctx, tc)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}, nil
}

// OpenClient returns the content service named by the configuration: the
// SQLite snapshot when offline_db is set, the MediaWiki API otherwise. The
// returned function releases it.
func OpenClient(cfg config.Config) (wiki.Client, func(), error) {
	if cfg.OfflineDB != "" {
		d, err := db.OpenDB(cfg.OfflineDB)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { d.Close() }, nil
	}
	c := mediawiki.New(
		mediawiki.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		mediawiki.WithUserAgent(cfg.UserAgent),
		mediawiki.WithTimeout(cfg.RequestTimeout),
	)
	return c, func() {}, nil
}

// sessionOptions maps the configuration onto engine options.
func sessionOptions(cfg config.Config) engine.Options {
	return engine.Options{
		Logger:           slog.Default(),
		SecondOrderLinks: cfg.SecondOrderLinks,
		HiddenCategories: cfg.HiddenCategories,
		Threshold:        cfg.ElaborationThreshold,
		NamespaceTimeout: cfg.NamespaceTimeout,
		TitleLimit:       cfg.TitleTruncate,
		URLLimit:         cfg.URLTruncate,
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "[viki] %v\n", err)
		},
	}
}
