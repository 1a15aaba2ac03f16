package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alphapile/pilesched/core/durationfit"
)

var fitOpts struct {
	input     string
	rangeCol  int
	startCol  int
	endCol    int
	noHeader  bool
	delimiter string
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the log-normal duration model to a construction log CSV",
	Long: `Reads start/end timestamps from a CSV construction log, cleans them and
prints the fitted duration_mu and duration_sigma as JSON. Columns are
zero-based; use --range-col for cells holding "start/end" ranges or
--start-col with --end-col for separate columns.`,
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVarP(&fitOpts.input, "input", "i", "", "CSV construction log")
	f.IntVar(&fitOpts.rangeCol, "range-col", -1, "column holding start/end ranges")
	f.IntVar(&fitOpts.startCol, "start-col", -1, "column holding start times")
	f.IntVar(&fitOpts.endCol, "end-col", -1, "column holding end times")
	f.BoolVar(&fitOpts.noHeader, "no-header", false, "the first row is data")
	f.StringVar(&fitOpts.delimiter, "delimiter", ",", "field delimiter")
	_ = fitCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(fitCmd)
}

type fitOutput struct {
	DurationMu    float64            `json:"duration_mu"`
	DurationSigma float64            `json:"duration_sigma"`
	Fit           durationfit.Fit    `json:"fit"`
	Report        durationfit.Report `json:"report"`
}

func runFit(cmd *cobra.Command, args []string) error {
	var cols durationfit.Columns
	switch {
	case fitOpts.rangeCol >= 0:
		cols = durationfit.RangeColumn(fitOpts.rangeCol)
	case fitOpts.startCol >= 0 && fitOpts.endCol >= 0:
		cols = durationfit.PairColumns(fitOpts.startCol, fitOpts.endCol)
	default:
		return fmt.Errorf("set --range-col or both --start-col and --end-col")
	}
	delim := []rune(fitOpts.delimiter)
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character")
	}

	f, err := os.Open(fitOpts.input)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	r.Comma = delim[0]
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", fitOpts.input, err)
	}
	if !fitOpts.noHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	hours, rep, err := durationfit.Durations(rows, cols)
	if err != nil {
		return err
	}
	fit, err := durationfit.LogNormal(hours)
	if err != nil {
		return fmt.Errorf("%d of %d rows readable: %w", rep.Parsed, rep.Rows, err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fitOutput{DurationMu: fit.Mu, DurationSigma: fit.Sigma, Fit: fit, Report: rep})
}
