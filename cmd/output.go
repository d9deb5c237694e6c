package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
)

// writeStructured writes v as JSON or YAML. ok is false for other formats.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// newTable starts a rounded table with a title and header row. Columns
// after the first are right aligned.
func newTable(title string, headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row(headers))

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

func printTable(w io.Writer, tw table.Writer) {
	fmt.Fprintln(w, tw.Render())
	fmt.Fprintln(w)
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

func pct(v float64) string { return fmt.Sprintf("%.1f%%", 100*v) }

func summaryRow(name string, s stats.Summary) table.Row {
	return table.Row{name, s.Count, f4(s.Mean), f4(s.StdDev), f4(s.Min), f4(s.Median), f4(s.Max)}
}

var summaryHeaders = []any{"", "Count", "Mean", "Std", "Min", "Median", "Max"}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
