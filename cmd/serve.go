package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"viki/vikigraph/internal/config"
	"viki/vikigraph/internal/engine"
	"viki/vikigraph/internal/server"
)

var (
	serveAddr        string
	servePages       string
	serveDelimiter   string
	serveCategories  string
	serveSecondOrder bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the graph and serve it over HTTP",
	Long: "Populates the graph from the seed pages, then serves the graph, the hide/show and " +
		"elaborate actions, a websocket redraw stream on /ws and Prometheus metrics on /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		stopTracing, err := startTracing(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stopTracing()
		client, closeClient, err := OpenClient(cfg)
		if err != nil {
			return err
		}
		defer closeClient()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := server.NewHub(nil)
		opts := sessionOptions(cfg)
		opts.SecondOrderLinks = opts.SecondOrderLinks || serveSecondOrder
		opts.Renderer = hub
		opts.Confirmer = engine.ContextConfirmer

		sess := engine.New(client, cfg.Registry(), opts)
		seeds := engine.Seeds{
			Titles:     config.SplitTitles(servePages, serveDelimiter),
			Categories: config.SplitTitles(serveCategories, serveDelimiter),
		}
		// Seed elaborations over the threshold are accepted; only
		// interactive ones need confirm=true.
		if err := sess.Initialize(engine.WithConfirmed(ctx, true), seeds); err != nil {
			return err
		}

		return server.New(sess, hub, nil).Run(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&servePages, "pages", "", "Seed page titles")
	serveCmd.Flags().StringVar(&serveDelimiter, "delimiter", ",", "Separator between titles in --pages and --categories")
	serveCmd.Flags().StringVar(&serveCategories, "categories", "", "Categories whose member pages are added as seeds")
	serveCmd.Flags().BoolVar(&serveSecondOrder, "second-order", false, "Also find links between discovered pages")
	rootCmd.AddCommand(serveCmd)
}
