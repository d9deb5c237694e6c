package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-embed/analysis"
	"github.com/RyanBlaney/sonido-embed/catalog"
	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

var (
	analyzeExhaustiveLimit int
	analyzeOutliers        int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate how well the stored embeddings capture artist, album and genre",
	Long: `Load every track with an embedding from the catalog and report the
overall similarity distribution, same-artist/album/genre separation, k-means
clustering quality, nearest-neighbor genre agreement and the least typical
tracks of each genre category.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	addCatalogFlags(flags)
	flags.Int64("seed", 42, "seed for every sampling step")
	flags.Int("samples", 50000, "pairs sampled for the similarity distribution")
	flags.IntSlice("clusters", []int{5, 8, 10, 15}, "k values for the k-means sweep")
	flags.IntSlice("neighbors", []int{1, 3, 5, 10}, "k values for nearest-neighbor agreement")
	flags.IntVar(&analyzeExhaustiveLimit, "exhaustive-limit", 5000, "largest collection for which every pair is visited (0 = never)")
	flags.IntVar(&analyzeOutliers, "outliers", 3, "outliers listed per genre category in table output")

	bindKey(flags, "seed", "analysis.seed")
	bindKey(flags, "samples", "analysis.distribution_samples")
	bindKey(flags, "clusters", "analysis.cluster_counts")
	bindKey(flags, "neighbors", "analysis.neighbor_counts")
}

func addCatalogFlags(flags *pflag.FlagSet) {
	flags.String("catalog", "sqlite", "catalog backend (sqlite, badger)")
	flags.String("catalog-path", "library.db", "sqlite file or badger directory")
	bindKey(flags, "catalog", "catalog.backend")
	bindKey(flags, "catalog-path", "catalog.path")
}

// openCatalog opens the configured backend. The returned closer releases it.
func openCatalog(cfg config.CatalogConfig) (catalog.Catalog, io.Closer, error) {
	switch cfg.Backend {
	case "sqlite":
		c, err := catalog.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "badger":
		c, err := catalog.OpenBadger(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, &config.ConfigError{Field: "catalog.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.WithFields(logging.Fields{"command": "analyze"})

	cat, closer, err := openCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	defer closer.Close()

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis, cat)
	if err != nil {
		return err
	}
	analyzer.ExhaustiveLimit = analyzeExhaustiveLimit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := analyzer.Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Report ready", logging.Fields{"run_id": report.RunID})

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, viper.GetString("output_format"), report); ok {
		return err
	}
	renderReport(out, report, analyzeOutliers)
	return nil
}

func renderReport(w io.Writer, r *analysis.Report, outliers int) {
	fmt.Fprintf(w, "Run %s: %d tracks analyzed, %d without embeddings\n\n", r.RunID, r.Tracks, r.MissingEmbeddings)

	tw := newTable("Genre categories", "Category", "Tracks")
	for _, c := range r.Categories {
		tw.AppendRow([]any{c.Category, c.Count})
	}
	printTable(w, tw)

	d := r.Distribution
	tw = newTable(fmt.Sprintf("Similarity distribution (%d sampled pairs)", d.Summary.Count), "Range", "Pairs", "Share")
	for _, b := range d.Histogram.Buckets {
		tw.AppendRow([]any{fmt.Sprintf("[%.2f, %.2f)", b.Low, b.High), b.Count, pct(share(b.Count, d.Summary.Count))})
	}
	tw.AppendRow([]any{"other", d.Histogram.Outside, pct(share(d.Histogram.Outside, d.Summary.Count))})
	tw.AppendFooter([]any{"mean / median", f4(d.Summary.Mean), f4(d.Summary.Median)})
	printTable(w, tw)

	tw = newTable("Facet separation", "Facet", "Groups", "Skipped", "Intra", "Inter", "Separation")
	for _, f := range r.Facets {
		tw.AppendRow([]any{f.Facet, f.Groups, f.SkippedGroups, f4(f.Intra.Mean), f4(f.Inter.Mean), fmt.Sprintf("%+.4f", f.Separation)})
	}
	printTable(w, tw)

	if len(r.Separation) > 0 {
		tw = newTable("Genre separation", "Pair", "Same genre", "Cross genre", "Separation")
		for _, s := range r.Separation {
			tw.AppendRow([]any{s.A + " vs " + s.B, f4(s.Within), f4(s.Between), fmt.Sprintf("%+.4f", s.Separation)})
		}
		printTable(w, tw)
	}

	tw = newTable("k-means", "k", "Inertia", "Silhouette", "Largest cluster")
	for _, c := range r.Clusters {
		tw.AppendRow([]any{c.K, fmt.Sprintf("%.1f", c.Inertia), f4(c.Silhouette), largestCluster(c)})
	}
	printTable(w, tw)

	tw = newTable("Nearest-neighbor genre agreement", "k", "Accuracy")
	for _, n := range r.Neighbors {
		tw.AppendRow([]any{n.K, pct(n.Accuracy)})
	}
	printTable(w, tw)

	if r.Extremes != nil {
		tw = newTable("Most different pairs", "A", "B", "Similarity")
		for _, p := range r.Extremes.LeastSimilar {
			tw.AppendRow([]any{p.A, p.B, f4(p.Similarity)})
		}
		printTable(w, tw)

		tw = newTable("Most similar pairs across artists", "A", "B", "Similarity")
		for _, p := range r.Extremes.MostSimilar {
			tw.AppendRow([]any{p.A, p.B, f4(p.Similarity)})
		}
		printTable(w, tw)
	}

	tw = newTable("Least typical tracks per genre", "Track", "Artist", "Genre", "Fit")
	for _, group := range r.Outliers {
		for _, o := range group[:max(0, min(outliers, len(group)))] {
			tw.AppendRow([]any{truncate(o.Title, 32), truncate(o.Artist, 24), o.Group, f4(o.Score)})
		}
	}
	printTable(w, tw)
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func largestCluster(c analysis.ClusterRun) string {
	best := -1
	for i, comp := range c.Composition {
		if best < 0 || comp.Size > c.Composition[best].Size {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	comp := c.Composition[best]
	label := fmt.Sprintf("%d tracks", comp.Size)
	if len(comp.Top) > 0 {
		label += fmt.Sprintf(", mostly %s", comp.Top[0].Category)
	}
	return label
}
