package report

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/network"
)

// Plot 静态幅值图（|S| dB 随频率）
type Plot struct {
	Title  string
	Block  *network.Block
	Pairs  [][2]int
	Width  vg.Length
	Height vg.Length
}

// Build 生成 gonum/plot 图
func (p *Plot) Build() (*plot.Plot, error) {
	traces, err := Traces(p.Block, p.Pairs)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "preparing plot traces")
	}
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "Frequency (GHz)"
	pl.Y.Label.Text = "|S| (dB)"
	pl.Add(plotter.NewGrid())
	for i, t := range traces {
		xys := make(plotter.XYs, len(t.GHz))
		for k := range t.GHz {
			xys[k].X = t.GHz[k]
			xys[k].Y = t.DB[k]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidInput, err, "plotting %s", t.Name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		pl.Add(line)
		pl.Legend.Add(t.Name, line)
	}
	pl.Legend.Top = true
	return pl, nil
}

// Save 按扩展名（.png/.svg/.pdf 等）保存
func (p *Plot) Save(path string) error {
	pl, err := p.Build()
	if err != nil {
		return err
	}
	w, h := p.Width, p.Height
	if w == 0 {
		w = 8 * vg.Inch
	}
	if h == 0 {
		h = 5 * vg.Inch
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.Io, err, "creating directory for %s", path)
	}
	if err := pl.Save(w, h, path); err != nil {
		return errs.Wrap(errs.Io, err, "saving plot %s", path)
	}
	return nil
}
