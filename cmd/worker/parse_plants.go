package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airaware/airaware/internal/worker"
)

var (
	plantsInput  string
	plantsHTML   bool
	plantsDryRun bool
)

var parsePlantsCmd = &cobra.Command{
	Use:   "parse-plants",
	Short: "Parse the thermal station table and publish coal-plants.json",
	Long: "Reads the embedded station table, a TSV file or a saved HTML page, computes emissions " +
		"per plant and publishes coal-plants.json.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		src := worker.PlantsSource{Path: plantsInput, HTML: plantsHTML}

		if plantsHTML && plantsInput == "" {
			return errors.New("--html needs --input")
		}

		if plantsDryRun {
			report, err := worker.NewPlantsJob(worker.PlantsJobConfig{Logger: logger}).Parse(src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parsed %d stations from %s\n", report.Metadata.TotalStations, src)
			return nil
		}

		snapshots, closeFn, err := openSnapshots(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := worker.NewPlantsJob(worker.PlantsJobConfig{
			Publisher: snapshots,
			Logger:    logger,
		}).Run(ctx, src)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d stations from %s\n", report.Metadata.TotalStations, src)
		return nil
	},
}

func init() {
	parsePlantsCmd.Flags().StringVar(&plantsInput, "input", "", "TSV or HTML file (default: embedded table)")
	parsePlantsCmd.Flags().BoolVar(&plantsHTML, "html", false, "parse --input as an HTML page")
	parsePlantsCmd.Flags().BoolVar(&plantsDryRun, "dry-run", false, "parse without publishing")
	rootCmd.AddCommand(parsePlantsCmd)
}
