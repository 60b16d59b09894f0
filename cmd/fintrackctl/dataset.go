package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/boddenberg/fintrack-go/internal/dataset"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func datasetCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Mine a labelled fraud dataset",
		Long:  `Read a labelled transaction dataset (.csv, .csv.gz or .zip) and print the statistics the fraud engine is seeded with.`,
	}

	cmd.AddCommand(mineCmd(v))
	cmd.AddCommand(insightsCmd(v))

	return cmd
}

func mineCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mine <file>",
		Short: "Print the pattern snapshot mined from a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			defer logger.Sync()

			rc, err := dataset.Open(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			start := time.Now()
			stats, err := dataset.ProcessDataset(rc)
			if err != nil {
				return fmt.Errorf("process dataset: %w", err)
			}
			logger.Info("dataset mined",
				zap.String("file", filepath.Base(args[0])),
				zap.Int("records", stats.TotalTransactions),
				zap.Duration("took", time.Since(start)),
			)

			return printJSON(cmd.OutOrStdout(), v, dataset.FromStats(stats, filepath.Base(args[0]), time.Now().UTC()))
		},
	}
}

func insightsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "insights <file>",
		Short: "Print summary insights for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := dataset.Open(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			ins, err := dataset.FullDatasetInsights(rc)
			if err != nil {
				return fmt.Errorf("dataset insights: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), v, ins)
		},
	}
}
