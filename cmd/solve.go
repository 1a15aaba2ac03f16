package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alphapile/pilesched/app"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/planner"
	"github.com/alphapile/pilesched/infra/logger"
	"github.com/alphapile/pilesched/pkg/export"
)

var solveOpts struct {
	input  string
	output string
	csv    string
	chart  string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a scheduling request synchronously",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.input, "input", "i", "", "request file (json or yaml)")
	f.StringVarP(&solveOpts.output, "output", "o", "", "result file; stdout when empty")
	f.StringVar(&solveOpts.csv, "csv", "", "also write the schedule as CSV")
	f.StringVar(&solveOpts.chart, "chart", "", "also write an HTML chart of the schedule")
	_ = solveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(solveCmd)
}

func readRequest(path string) (planner.Request, error) {
	var req planner.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	case ".json":
		err = json.Unmarshal(data, &req)
	default:
		return req, fmt.Errorf("unsupported request format: %s", filepath.Ext(path))
	}
	if err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := logger.Setup(cfg.Logging); err != nil {
		return err
	}
	req, err := readRequest(solveOpts.input)
	if err != nil {
		return err
	}
	p, err := app.NewPlanner(cfg, nil, logger.New("solve"))
	if err != nil {
		return err
	}
	res, err := p.Plan(ctx, req)
	if err != nil {
		return err
	}

	writeResult := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	summary := cmd.ErrOrStderr()
	if solveOpts.output == "" {
		if err := writeResult(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		if err := writeFile(solveOpts.output, writeResult); err != nil {
			return err
		}
		summary = cmd.OutOrStdout()
	}
	if solveOpts.csv != "" {
		if err := writeFile(solveOpts.csv, func(w io.Writer) error { return export.WriteCSV(w, res.Schedule) }); err != nil {
			return err
		}
	}
	if solveOpts.chart != "" {
		if err := writeFile(solveOpts.chart, func(w io.Writer) error {
			return export.WriteChart(w, filepath.Base(solveOpts.input), res.Schedule)
		}); err != nil {
			return err
		}
	}
	return printSummary(summary, res)
}

func printSummary(w io.Writer, res *model.Result) error {
	if res.MakespanHours == nil {
		_, err := fmt.Fprintf(w, "status %s: no schedule found\n", res.Status)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "status\t%s\n", res.Status)
	fmt.Fprintf(tw, "makespan\t%.1f h\n", *res.MakespanHours)
	if res.EstimatedMakespanWithBuffer != nil {
		fmt.Fprintf(tw, "with buffer\t%.1f h\n", *res.EstimatedMakespanWithBuffer)
	}
	if res.CompletionProbability != nil {
		fmt.Fprintf(tw, "on-time probability\t%.1f%%\n", *res.CompletionProbability*100)
	}
	if res.RobustnessError != nil {
		fmt.Fprintf(tw, "robustness\t%s\n", *res.RobustnessError)
	}
	fmt.Fprintln(tw, "\nmachine\tpiles\tbusy (h)\tfinish (h)")
	n := model.MachineCount(res.Schedule)
	for m := 1; m <= n; m++ {
		var count int
		var busy, finish float64
		for _, e := range res.Schedule {
			if e.Machine != m {
				continue
			}
			count++
			busy += e.DurationHour
			finish = max(finish, e.EndHour)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.1f\n", m, count, busy, finish)
	}
	return tw.Flush()
}
