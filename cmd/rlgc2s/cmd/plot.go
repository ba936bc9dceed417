package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/report"
)

var plotOutput string

var plotCmd = &cobra.Command{
	Use:   "plot in.sNp",
	Short: "Plot |S| in dB",
	Long: `Plot the magnitude of the S-parameters of a Touchstone file. The output
extension selects the renderer: .html writes an interactive chart page,
.png, .svg or .pdf a static plot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, err := readBlocks(args)
		if err != nil {
			return err
		}
		b := blocks[0]
		title := filepath.Base(args[0])
		out := plotOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".html"
		}
		pairs := report.DefaultPairs(b.Ports())

		if strings.EqualFold(filepath.Ext(out), ".html") {
			f, err := os.Create(out)
			if err != nil {
				return errs.Wrap(errs.Io, err, "creating %s", out)
			}
			defer f.Close()
			c := &report.Charts{Title: title, Block: b, Pairs: pairs}
			if err := c.Render(f); err != nil {
				return err
			}
		} else {
			p := &report.Plot{Title: title, Block: b, Pairs: pairs}
			if err := p.Save(out); err != nil {
				return err
			}
		}
		cmd.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "output file (.html, .png, .svg, .pdf)")
}
