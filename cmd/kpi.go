package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphapile/pilesched/infra/kpi"
)

var kpiOpts struct {
	db   string
	days int
}

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Print daily solver KPIs recorded by the sqlite metrics sink",
	RunE:  runKPI,
}

func init() {
	kpiCmd.Flags().StringVar(&kpiOpts.db, "db", "kpi.db", "KPI database")
	kpiCmd.Flags().IntVar(&kpiOpts.days, "days", 7, "number of days to show")
	rootCmd.AddCommand(kpiCmd)
}

func runKPI(cmd *cobra.Command, args []string) error {
	store, err := kpi.NewSQLiteStore(kpiOpts.db)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	end := time.Now()
	recs, err := store.Query(end.AddDate(0, 0, -max(kpiOpts.days-1, 0)), end)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "day\tbackend\tsolves\tsolved\tmean makespan (h)\twall (s)")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%.2f\n",
			r.Day.Format("2006-01-02"), r.Backend, r.Solves, r.Solved, r.MeanMakespan(), r.WallSeconds)
	}
	return tw.Flush()
}
