package cmd

import (
	"github.com/spf13/cobra"

	"github.com/1lj4s/HowToElementBuilder/network"
)

var (
	netOutput string
	netFormat string
	netPorts  []string
)

var cascadeCmd = &cobra.Command{
	Use:   "cascade a.sNp b.sNp [c.sNp...]",
	Short: "Cascade networks in the given order",
	Long: `Cascade 2N-port networks: the far ports of each network are connected to the
near ports of the next. All inputs must share the port count and frequencies.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, err := readBlocks(args)
		if err != nil {
			return err
		}
		out, err := network.Cascade(blocks...)
		if err != nil {
			return err
		}
		return writeBlock(cmd, netOutput, out, netFormat)
	},
}

var terminateCmd = &cobra.Command{
	Use:   "terminate in.sNp --ports port,r,i,s",
	Short: "Terminate ports of a network",
	Long: `Terminate ports of a network. Each port takes one code:
  port      keep the port
  r, match  matched load
  i, open   open circuit
  s, short  short circuit
  load:Z    resistive load of Z ohms
Kept ports are renumbered in order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, err := readBlocks(args)
		if err != nil {
			return err
		}
		out, err := terminate(blocks[0], netPorts)
		if err != nil {
			return err
		}
		return writeBlock(cmd, netOutput, out, netFormat)
	},
}

func init() {
	for _, c := range []*cobra.Command{cascadeCmd, terminateCmd} {
		c.Flags().StringVarP(&netOutput, "output", "o", "", "output .sNp file")
		c.Flags().StringVar(&netFormat, "format", "RI", "touchstone format (RI, MA, DB)")
		_ = c.MarkFlagRequired("output")
	}
	terminateCmd.Flags().StringSliceVar(&netPorts, "ports", nil, "termination code per port")
	_ = terminateCmd.MarkFlagRequired("ports")
}
