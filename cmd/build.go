package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"viki/vikigraph/internal/config"
	"viki/vikigraph/internal/engine"
	"viki/vikigraph/internal/graph"
)

var (
	buildPages        string
	buildDelimiter    string
	buildCategories   string
	buildSecondOrder  bool
	buildYes          bool
	buildJSON         bool
	buildTopN         int
	buildHubThreshold int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the graph around seed pages and print its structure",
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

		opts := sessionOptions(cfg)
		opts.SecondOrderLinks = opts.SecondOrderLinks || buildSecondOrder
		switch {
		case buildYes, buildJSON:
			opts.Confirmer = nil
		default:
			opts.Confirmer = engine.ConfirmFunc(confirmPrompt)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sess := engine.New(client, cfg.Registry(), opts)
		seeds := engine.Seeds{
			Titles:     config.SplitTitles(buildPages, buildDelimiter),
			Categories: config.SplitTitles(buildCategories, buildDelimiter),
		}
		if err := sess.Initialize(ctx, seeds); err != nil {
			return err
		}

		sum := sess.Summary(buildHubThreshold, buildTopN)
		if buildJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				engine.View
				Summary *graph.Summary `json:"summary"`
				Errors  int            `json:"errors"`
			}{sess.View(), sum, len(sess.Errors())})
		}

		printSummary(os.Stdout, sum)
		if n := len(sess.Errors()); n > 0 {
			fmt.Printf("  %d lookups failed; the graph may be incomplete.\n\n", n)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildPages, "pages", "", "Seed page titles")
	buildCmd.Flags().StringVar(&buildDelimiter, "delimiter", ",", "Separator between titles in --pages and --categories")
	buildCmd.Flags().StringVar(&buildCategories, "categories", "", "Categories whose member pages are added as seeds")
	buildCmd.Flags().BoolVar(&buildSecondOrder, "second-order", false, "Also find links between discovered pages")
	buildCmd.Flags().BoolVarP(&buildYes, "yes", "y", false, "Never ask before large elaborations")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Output the graph as JSON")
	buildCmd.Flags().IntVar(&buildTopN, "top-n", 10, "Number of hubs to show")
	buildCmd.Flags().IntVar(&buildHubThreshold, "hub-threshold", 5, "Minimum degree to consider a page a hub")
	rootCmd.AddCommand(buildCmd)
}

func confirmPrompt(_ context.Context, n *graph.Node, count int) bool {
	ok := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("About to add %d pages linked from %q.", count, n.FullDisplayName)).
			Description("This may take a very long time and result in a sluggish graph. Are you sure you want to?").
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).Run()
	return err == nil && ok
}

func printSummary(w io.Writer, t *graph.Summary) {
	fmt.Fprintln(w, "\n  GRAPH")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Pages: %d (wiki %d, external %d)  Links: %d (%d bidirectional)\n",
		t.TotalNodes, t.WikiPages, t.ExternalPages, t.TotalLinks, t.Bidirectional)
	fmt.Fprintf(w, "  Components: %d  Largest: %d  Smallest: %d\n",
		t.NumComponents, t.LargestComponent, t.SmallestComponent)
	fmt.Fprintf(w, "  Leaves: %d  Orphans: %d\n", t.LeafCount, t.OrphanCount)
	if t.HiddenNodes > 0 || t.HiddenLinks > 0 {
		fmt.Fprintf(w, "  Hidden: %d pages, %d links", t.HiddenNodes, t.HiddenLinks)
		if len(t.HiddenCategories) > 0 {
			fmt.Fprintf(w, " (categories: %s)", strings.Join(t.HiddenCategories, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Fprintf(w, "    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Hubs:")
		for _, hub := range t.Hubs {
			mark := " "
			if hub.Elaborated {
				mark = "*"
			}
			fmt.Fprintf(w, "   %s#%-4d degree=%d (in=%d, out=%d)  %s\n",
				mark, hub.ID, hub.Degree, hub.InDegree, hub.OutDegree, truncTitle(hub.Title, 40))
		}
	}

	if c := t.Cuts; c != nil && (len(c.Pages) > 0 || len(c.Links) > 0) {
		fmt.Fprintln(w, "\n  CUT POINTS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if len(c.Pages) > 0 {
			fmt.Fprintf(w, "  %d pages whose hiding splits the graph:\n", len(c.Pages))
			for _, p := range c.Pages[:min(len(c.Pages), 10)] {
				fmt.Fprintf(w, "    #%-4d %d neighbors  %s\n", p.ID, p.Neighbors, truncTitle(p.Title, 40))
			}
		}
		if len(c.Links) > 0 {
			fmt.Fprintf(w, "  %d links whose hiding splits the graph:\n", len(c.Links))
			for _, l := range c.Links[:min(len(c.Links), 10)] {
				fmt.Fprintf(w, "    %s -> %s\n", truncTitle(l.SourceTitle, 30), truncTitle(l.TargetTitle, 30))
			}
		}
	}
	fmt.Fprintln(w)
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
