package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders a bar chart of request outcomes (admitted plus one bar
// per reject reason) as a standalone HTML page.
func WriteHTML(w io.Writer, s Summary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Charge request outcomes",
			Subtitle: fmt.Sprintf("%d suspected cloned identities", len(s.Suspects)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Outcome"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Requests"}),
	)

	labels := []string{"admitted"}
	data := []opts.BarData{{Value: s.Admitted}}
	for _, reason := range sortedKeys(s.Rejected) {
		labels = append(labels, reason)
		data = append(data, opts.BarData{Value: s.Rejected[reason]})
	}
	bar.SetXAxis(labels).AddSeries("requests", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
