package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/network"
)

// Charts 交互式图表页面：幅值（dB）与相位两张折线图
type Charts struct {
	Title string
	Block *network.Block
	Pairs [][2]int
}

// Render 渲染HTML页面
func (c *Charts) Render(w io.Writer) error {
	traces, err := Traces(c.Block, c.Pairs)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, err, "preparing chart traces")
	}
	lineDB := newLine(c.Title, "|S| (dB)")
	linePhase := newLine(c.Title, "∠S (deg)")
	if len(traces) > 0 {
		lineDB.SetXAxis(traces[0].GHz)
		linePhase.SetXAxis(traces[0].GHz)
	}
	for _, t := range traces {
		lineDB.AddSeries(t.Name, lineData(t.DB))
		linePhase.AddSeries(t.Name, lineData(t.Phase))
	}
	page := components.NewPage()
	page.PageTitle = c.Title
	page.AddCharts(lineDB, linePhase)
	if err := page.Render(w); err != nil {
		return errs.Wrap(errs.Io, err, "rendering chart page")
	}
	return nil
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "GHz",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	return line
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
