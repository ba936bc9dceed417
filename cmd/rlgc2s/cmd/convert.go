package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	elementbuilder "github.com/1lj4s/HowToElementBuilder"
	"github.com/1lj4s/HowToElementBuilder/convert"
	"github.com/1lj4s/HowToElementBuilder/internal/config"
	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/network"
	"github.com/1lj4s/HowToElementBuilder/rlgc"
	"github.com/1lj4s/HowToElementBuilder/touchstone"
)

var convertFlags struct {
	length    float64
	z0        float64
	lossFreqs []float64
	start     float64
	stop      float64
	step      float64
	noLoss    bool
	segments  int
	workers   int
	ports     []string
	output    string
	format    string
}

var convertCmd = &cobra.Command{
	Use:   "convert raw.json [raw.json...]",
	Short: "Convert saved solver results into an S-parameter file",
	Long: `Convert one saved solver result (keys mL, mC, mR, mG) into the S-parameters
of a uniform line of the given length. With several results the line is
treated as a taper: the results are interpolated along the length into
--segments sections and cascaded.

Frequencies are given in GHz.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.Float64VarP(&convertFlags.length, "length", "l", 0, "line length in meters")
	f.Float64Var(&convertFlags.z0, "z0", 50, "reference impedance in ohms")
	f.Float64SliceVar(&convertFlags.lossFreqs, "loss-freqs", config.DefaultLossFrequencies, "frequencies of the R and G samples (GHz)")
	f.Float64Var(&convertFlags.start, "start", 0.1, "sweep start (GHz)")
	f.Float64Var(&convertFlags.stop, "stop", 40, "sweep stop, exclusive (GHz)")
	f.Float64Var(&convertFlags.step, "step", 0.1, "sweep step (GHz)")
	f.BoolVar(&convertFlags.noLoss, "no-loss", false, "ignore R and G")
	f.IntVar(&convertFlags.segments, "segments", 10, "taper sections when several results are given")
	f.IntVar(&convertFlags.workers, "workers", 0, "frequency points converted in parallel")
	f.StringSliceVar(&convertFlags.ports, "ports", nil, "port terminations (port, r, i, s, load:Z)")
	f.StringVarP(&convertFlags.output, "output", "o", "", "output .sNp file (default next to the first input)")
	f.StringVar(&convertFlags.format, "format", "RI", "touchstone format (RI, MA, DB)")
	_ = convertCmd.MarkFlagRequired("length")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cf := convertFlags
	raws := make([]*rlgc.RawResult, len(args))
	for i, path := range args {
		raw, err := elementbuilder.LoadRaw(path)
		if err != nil {
			return err
		}
		raws[i] = raw
	}

	lossHz := make([]float64, len(cf.lossFreqs))
	for i, f := range cf.lossFreqs {
		lossHz[i] = f * 1e9
	}
	sweep, err := rlgc.LinearSweep(cf.start*1e9, cf.stop*1e9, cf.step*1e9)
	if err != nil {
		return err
	}

	sections := raws
	n := 1
	if len(raws) > 1 {
		n = cf.segments
		if sections, err = rlgc.Interpolate(raws, n); err != nil {
			return err
		}
	}

	blocks := make([]*network.Block, len(sections))
	for i, raw := range sections {
		t, err := rlgc.Assemble(raw, lossHz, sweep, !cf.noLoss)
		if err != nil {
			return err
		}
		seg, err := rlgc.NewSegment(t, cf.length/float64(n), cf.z0)
		if err != nil {
			return err
		}
		if blocks[i], _, err = convert.Convert(contextOf(cmd), seg, convert.Options{Workers: cf.workers}); err != nil {
			return err
		}
	}
	out, err := network.Cascade(blocks...)
	if err != nil {
		return err
	}
	if len(cf.ports) > 0 {
		if out, err = terminate(out, cf.ports); err != nil {
			return err
		}
	}

	path := cf.output
	if path == "" {
		path = touchstone.FileName(strings.TrimSuffix(args[0], ".json"), out.Ports())
	}
	return writeBlock(cmd, path, out, cf.format)
}

func terminate(b *network.Block, codes []string) (*network.Block, error) {
	terms, err := network.ParsePorts(codes)
	if err != nil {
		return nil, err
	}
	return network.Terminate(b, terms)
}

func writeBlock(cmd *cobra.Command, path string, b *network.Block, format string) error {
	f, err := touchstone.ParseFormat(format)
	if err != nil {
		return err
	}
	if err := touchstone.WriteFile(path, b, touchstone.Options{Format: f, Unit: touchstone.GHz}); err != nil {
		return err
	}
	cmd.Printf("wrote %s (%d ports, %d frequencies)\n", path, b.Ports(), b.Len())
	return nil
}

// contextOf 命令未设置上下文时使用 Background
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func readBlocks(paths []string) ([]*network.Block, error) {
	blocks := make([]*network.Block, len(paths))
	for i, p := range paths {
		b, err := touchstone.ReadFile(p)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), err, "input %d", i+1)
		}
		blocks[i] = b
	}
	return blocks, nil
}
