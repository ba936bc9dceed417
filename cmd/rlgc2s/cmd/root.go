// Package cmd 提供 rlgc2s 的子命令。
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1lj4s/HowToElementBuilder/internal/logging"
)

// Version 版本号（构建时可用 -ldflags 覆盖）
var Version = "0.1.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "rlgc2s",
	Short: "Convert solver RLGC matrices into S-parameter networks",
	Long: `rlgc2s drives an external field solver over a set of transmission-line
cross-sections, converts the per-unit-length RLGC matrices into multiport
S-parameters and writes Touchstone files.

Examples:
  rlgc2s run --config sweep.yaml
  rlgc2s run --config sweep.hcl --analytic
  rlgc2s convert line.json --length 0.01 -o line.s2p
  rlgc2s cascade a.s4p b.s4p -o ab.s4p
  rlgc2s terminate ab.s4p --ports port,port,r,i -o ab.s2p
  rlgc2s plot ab.s2p -o ab.html`,
	SilenceUsage: true,
}

// Execute 执行命令行
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(cascadeCmd)
	rootCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	cfg := logging.DefaultConfig()
	if verbose {
		cfg.Level = "debug"
	}
	if err := logging.Initialize(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rlgc2s version %s\n", Version)
	},
}
