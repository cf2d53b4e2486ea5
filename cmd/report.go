package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/conformance/core/report"
	"github.com/kilianp07/conformance/infra/store"
	"github.com/kilianp07/conformance/infra/visualizer"
	"github.com/kilianp07/conformance/pkg/export"
)

var (
	reportFormat string
	reportChart  string
)

var reportCmd = &cobra.Command{
	Use:   "report <results file>...",
	Short: "Aggregate result files by department and by week",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: text, json or csv")
	reportCmd.Flags().StringVar(&reportChart, "chart", "", "also write an HTML bar chart to this file")
	rootCmd.AddCommand(reportCmd)
}

// caseOf derives a case name from a results file name, e.g. results_e.json.
func caseOf(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimPrefix(base, "results_")
}

func runReport(cmd *cobra.Command, args []string) error {
	reports := make([]report.Report, 0, len(args))
	for _, path := range args {
		r, err := store.Open(path)
		if err != nil {
			return err
		}
		res, err := r.Query(context.Background(), store.Query{})
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		reports = append(reports, report.Build(caseOf(path), res))
	}
	if err := writeReports(cmd.OutOrStdout(), reportFormat, reports); err != nil {
		return err
	}
	if reportChart == "" {
		return nil
	}
	f, err := os.Create(reportChart)
	if err != nil {
		return err
	}
	if err := visualizer.WriteReport(f, reports); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeReports(w io.Writer, format string, reports []report.Report) error {
	switch format {
	case "json":
		return export.WriteJSON(w, reports)
	case "csv":
		for _, r := range reports {
			if err := export.WriteRowsCSV(w, r.ByDepartment); err != nil {
				return err
			}
			if err := export.WriteRowsCSV(w, r.ByWeek); err != nil {
				return err
			}
		}
		return nil
	case "text":
		for _, r := range reports {
			fmt.Fprintf(w, "Case %s\nBy department:\n", r.Case)
			for _, row := range r.ByDepartment {
				fmt.Fprintln(w, "  "+row.String())
			}
			fmt.Fprintln(w, "By week:")
			for _, row := range r.ByWeek {
				fmt.Fprintln(w, "  "+row.String())
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
