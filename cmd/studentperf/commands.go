package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/studentperf/config"
	"github.com/YuminosukeSato/studentperf/pipeline"
	"github.com/YuminosukeSato/studentperf/pipeline/inference"
	"github.com/YuminosukeSato/studentperf/pipeline/search"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/preprocessing"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "studentperf",
		Short:         "Student performance model selection pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Pipeline configuration file (YAML). Defaults are used when empty")

	root.AddCommand(newRunCmd(&configPath), newPredictCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest the source CSV, transform it, and train the best model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Shutdown()

			res, err := pipeline.Run(cmd.Context(), cfg)
			if err != nil {
				log.GetLoggerWithName("main").Error("Pipeline failed", err)
				return err
			}
			printReport(cmd.OutOrStdout(), res.Report.Entries(), res.BestName)
			fmt.Fprintf(cmd.OutOrStdout(), "best model: %s (test R2 %.4f), saved to %s\n", res.BestName, res.Score, res.ModelPath)
			return nil
		},
	}
}

func newPredictCmd(configPath *string) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the target for every row of a CSV with the saved artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Shutdown()

			var frame *preprocessing.Frame
			err = errors.Guard("prediction input", errors.KindIO, func() error {
				var rerr error
				frame, rerr = preprocessing.ReadCSVFile(input)
				return rerr
			})
			if err != nil {
				return err
			}

			p := inference.NewPredictPipeline(cfg.Transformation.PreprocessorPath, cfg.Trainer.ModelPath)
			pred, err := p.Predict(frame)
			if err != nil {
				return err
			}
			for _, v := range pred {
				fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file with the feature columns")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// setup loads the configuration and initializes the process logger once.
func setup(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if _, err := log.Initialize(cfg.Log); err != nil {
		return nil, errors.Enrich("logging setup", errors.KindIO, err)
	}
	return cfg, nil
}

// printReport lists the candidates in declaration order and marks the best.
func printReport(w io.Writer, entries []search.Evaluation, best string) {
	for _, ev := range entries {
		mark := " "
		if ev.Name == best {
			mark = "*"
		}
		note := ""
		if ev.Fallback {
			note = "  (default params)"
		}
		fmt.Fprintf(w, "%s %-24s %8.4f%s\n", mark, ev.Name, ev.Score, note)
	}
}
