package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/internal/report"
	"github.com/rairaimanish/kidsGPT/usecase"
)

func newAssistCommand(configPath *string) *cobra.Command {
	var (
		audioPath     string
		outputPattern string
		reportPath    string
	)

	cmd := &cobra.Command{
		Use:   "assist",
		Short: "Answer the question spoken in an audio file",
		Long: "Transcribes the audio, asks the language model for a child-friendly reply, " +
			"synthesizes it and writes numbered WAV files.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			assistant, _, _, err := a.newAssistant(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			run, err := assistant.Run(ctx, usecase.Params{
				AudioPath:     audioPath,
				OutputPattern: outputPattern,
			})

			if reportPath != "" && run != nil {
				if werr := report.WriteRun(reportPath, run); werr != nil {
					a.logger.Error("Failed to write run report", zap.String("path", reportPath), zap.Error(werr))
				}
			}

			if err != nil {
				a.logger.Error("Assist failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "prompt.wav", "input audio file")
	cmd.Flags().StringVar(&outputPattern, "output-pattern", "", "output file pattern with one integer verb, e.g. basic_output%d.wav")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the run record as YAML to this path")
	return cmd
}
