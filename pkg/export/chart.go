package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/alphapile/pilesched/core/model"
)

// WriteChart renders a self-contained HTML page with the site plan
// colored by machine and the cumulative number of finished piles per
// machine over time.
func WriteChart(w io.Writer, title string, entries []model.ScheduleEntry) error {
	if title == "" {
		title = "Pile schedule"
	}
	byMachine := make(map[int][]model.ScheduleEntry)
	for _, e := range entries {
		byMachine[e.Machine] = append(byMachine[e.Machine], e)
	}
	machines := make([]int, 0, len(byMachine))
	for m := range byMachine {
		machines = append(machines, m)
	}
	sort.Ints(machines)

	site := charts.NewScatter()
	site.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Site plan", Subtitle: fmt.Sprintf("%d piles on %d machines", len(entries), len(machines))}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (m)", Type: "value"}),
	)
	progress := charts.NewLine()
	progress.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Finished piles"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "hours", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "piles", Type: "value"}),
	)

	for _, m := range machines {
		es := byMachine[m]
		name := fmt.Sprintf("machine %d", m)

		points := make([]opts.ScatterData, 0, len(es))
		for _, e := range es {
			points = append(points, opts.ScatterData{Name: fmt.Sprintf("pile %d", e.PileID), Value: []any{e.X, e.Y}})
		}
		site.AddSeries(name, points)

		sort.SliceStable(es, func(i, j int) bool { return es[i].EndHour < es[j].EndHour })
		line := make([]opts.LineData, 0, len(es)+1)
		line = append(line, opts.LineData{Value: []any{0.0, 0}})
		for i, e := range es {
			line = append(line, opts.LineData{Name: fmt.Sprintf("pile %d", e.PileID), Value: []any{e.EndHour, i + 1}})
		}
		progress.AddSeries(name, line)
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(site, progress)
	return page.Render(w)
}
