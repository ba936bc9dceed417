package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	elementbuilder "github.com/1lj4s/HowToElementBuilder"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
)

var (
	cfgFile     string
	analytic    bool
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve every configured structure and write Touchstone files",
	Long: `Load a YAML or HCL sweep configuration, solve each cross-section with the
external field solver (or the closed-form microstrip model with --analytic),
convert and compose the networks and write the results to the output directory.

A failed structure is reported and skipped; the command exits non-zero if any
structure failed.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "sweep configuration (.yaml, .yml or .hcl)")
	runCmd.Flags().BoolVar(&analytic, "analytic", false, "use the closed-form microstrip model instead of the solver")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	b, err := elementbuilder.NewBuilder(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg := *b.Config.Logging
		cfg.Level = "debug"
		if err := logging.Initialize(cfg); err != nil {
			return err
		}
	}
	defer logging.Sync()
	b.Analytic = analytic

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		logging.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, fatal := b.Build(ctx)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRUCTURE\tPORTS\tRESULT")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t%v\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.Name, r.Block.Ports(), r.Files[0])
	}
	w.Flush()

	if fatal != nil {
		return fatal
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d structures failed", failed, len(results))
	}
	return nil
}
