package cmd

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-embed/analysis"
)

var (
	compareReference  []string
	compareCandidates []string
	compareWorst      int
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Score candidate tracks against a set of reference tracks",
	Long: `For each candidate track id, report its highest and mean similarity to
the reference track ids and which reference it is closest to. The summary
counts candidates whose best match falls below each configured threshold.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

// CompareReport is the structured output of the compare command
type CompareReport struct {
	analysis.CrossSetResult `yaml:",inline"`
	Unknown                 []string `json:"unknown" yaml:"unknown"`
}

func init() {
	rootCmd.AddCommand(compareCmd)

	flags := compareCmd.Flags()
	addCatalogFlags(flags)
	flags.StringSliceVarP(&compareReference, "reference", "r", nil, "reference track ids")
	flags.StringSliceVarP(&compareCandidates, "candidates", "c", nil, "candidate track ids")
	flags.IntVar(&compareWorst, "worst", 25, "lowest-scoring candidates listed in table output")
	flags.Float64Slice("thresholds", []float64{0.85, 0.90, 0.95, 0.98}, "count candidates whose best match is below each value")
	_ = compareCmd.MarkFlagRequired("reference")
	_ = compareCmd.MarkFlagRequired("candidates")

	bindKey(flags, "thresholds", "analysis.thresholds")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, closer, err := openCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	defer closer.Close()

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis, cat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracks, _, err := analyzer.Load(ctx)
	if err != nil {
		return err
	}
	result, unknown, err := analyzer.CrossSet(ctx, tracks, compareReference, compareCandidates)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, viper.GetString("output_format"), CompareReport{*result, unknown}); ok {
		return err
	}

	worst := slices.Clone(result.Matches)
	slices.SortStableFunc(worst, func(a, b analysis.CrossMatch) int {
		return cmp.Compare(a.Max, b.Max)
	})

	tw := newTable("Worst fitting candidates", "Candidate", "Max", "Mean", "Closest reference")
	for _, m := range worst[:max(0, min(compareWorst, len(worst)))] {
		tw.AppendRow([]any{m.ID, f4(m.Max), f4(m.Mean), m.Closest})
	}
	printTable(out, tw)

	tw = newTable("Similarity to references", summaryHeaders...)
	tw.AppendRow(summaryRow("max", result.Maxima))
	tw.AppendRow(summaryRow("mean", result.Means))
	printTable(out, tw)

	tw = newTable("Candidates by threshold", "Best match below", "Candidates", "Share")
	for _, b := range result.Below {
		tw.AppendRow([]any{fmt.Sprintf("%.2f", b.Threshold), b.Count, pct(b.Fraction)})
	}
	printTable(out, tw)

	if len(unknown) > 0 {
		fmt.Fprintf(out, "%d ids not found or without embeddings: %v\n", len(unknown), unknown)
	}
	return nil
}
