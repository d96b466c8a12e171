package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/airaware/airaware/internal/worker"
)

var (
	fetchCities    []string
	fetchCheckOnly bool
)

var fetchAQICmd = &cobra.Command{
	Use:   "fetch-aqi",
	Short: "Fetch every city and publish air-data.json and air-table.json",
	Long: "Fetches the WAQI feed of each configured city, spacing requests by the configured interval, " +
		"then publishes the air data and the derived ranking table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snapshots, closeFn, err := openSnapshots(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		job := worker.NewRefreshJob(worker.RefreshJobConfig{
			Config:    refreshConfig(fetchCities),
			Logger:    logger,
			Fetcher:   newWAQIClient(nil),
			Publisher: snapshots,
		})

		result := job.Run(ctx)
		for _, e := range result.Errors {
			logger.Warn().Str("city", e.City).Str("error", e.Error).Msg("city skipped")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d/%d cities in %s\n",
			result.Successful, result.TotalCities, result.Duration.Round(time.Millisecond))

		if fetchCheckOnly {
			return nil
		}
		if err := job.Publish(ctx, result); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "published air-data.json and air-table.json")
		return nil
	},
}

func init() {
	fetchAQICmd.Flags().StringSliceVar(&fetchCities, "cities", nil, "city keys to fetch (default: built-in list)")
	fetchAQICmd.Flags().BoolVar(&fetchCheckOnly, "check-only", false, "fetch without publishing")
	rootCmd.AddCommand(fetchAQICmd)
}
