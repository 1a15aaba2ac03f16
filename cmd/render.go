package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alphapile/pilesched/pkg/export"
)

var renderOpts struct {
	input  string
	output string
	title  string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an HTML chart from a schedule or result file",
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.input, "input", "i", "", "schedule or result JSON")
	f.StringVarP(&renderOpts.output, "output", "o", "schedule.html", "HTML output file")
	f.StringVar(&renderOpts.title, "title", "", "page title")
	_ = renderCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	in, err := os.Open(renderOpts.input)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	entries, err := export.ReadSchedule(in)
	if err != nil {
		return err
	}
	title := renderOpts.title
	if title == "" {
		title = filepath.Base(renderOpts.input)
	}
	return writeFile(renderOpts.output, func(w io.Writer) error {
		return export.WriteChart(w, title, entries)
	})
}
