package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/adapters/llm"
	"github.com/rairaimanish/kidsGPT/internal/chattemplate"
	"github.com/rairaimanish/kidsGPT/internal/procmem"
	"github.com/rairaimanish/kidsGPT/internal/report"
	"github.com/rairaimanish/kidsGPT/usecase"
)

func newBenchCommand(configPath *string) *cobra.Command {
	var (
		prompt     string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure load, tokenize, generate and decode times of the benchmark model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if seconds := a.cfg.Bench.TimeoutSeconds; seconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
				defer cancel()
			}

			modelConfig := a.cfg.LLM.VLLM
			modelConfig.Model = a.cfg.Bench.Model
			model, err := llm.NewVLLMBenchmarkModel(modelConfig, a.cfg.Bench.Sampling, a.logger)
			if err != nil {
				return err
			}

			probe, err := procmem.NewProbe()
			if err != nil {
				return err
			}

			bench, err := usecase.NewBenchmarkService(
				model,
				chattemplate.New(),
				probe,
				clock.New(),
				a.metrics,
				a.cfg.Bench.BenchmarkConfig(),
				cmd.OutOrStdout(),
				a.logger,
			)
			if err != nil {
				return err
			}

			result, err := bench.Run(ctx, prompt)
			if err != nil {
				a.logger.Error("Benchmark failed", zap.Error(err))
				return err
			}

			if reportPath != "" {
				if err := report.WriteBenchmark(reportPath, result); err != nil {
					return err
				}
				a.logger.Info("Benchmark report written", zap.String("path", reportPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "user prompt, defaults to bench.prompt")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the measurements as YAML to this path")
	return cmd
}
