package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/analytics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

func newAnalyticsCmd(a *app) *cobra.Command {
	var (
		local  bool
		report string
	)
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Build the cost trend, spike and effectiveness report",
		Long: `analytics builds a report from stored usage and recommendations and
uploads it to the artifacts bucket. With --local the report is only printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ac := a.cfg.Artifacts
			st, err := a.store(ctx)
			if err != nil {
				return err
			}

			var client common.S3Client
			if !local {
				if err := requireBucket("artifacts", ac.Bucket); err != nil {
					return err
				}
				if client, err = a.s3Client(ctx); err != nil {
					return err
				}
			}
			runner := analytics.NewRunner(st, st, client, analytics.Options{
				Bucket:      ac.Bucket,
				Prefix:      ac.AnalyticsPrefix,
				TrendDays:   ac.TrendDays,
				HistoryDays: ac.HistoryDays,
			}, a.logger)

			var (
				rep *analytics.Report
				key string
			)
			if local {
				rep, err = runner.Build(ctx)
			} else {
				rep, key, err = runner.Run(ctx)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if report == "json" {
				return printJSON(w, rep)
			}
			printAnalytics(w, rep)
			if key != "" {
				fmt.Fprintf(w, "\nSaved to s3://%s/%s\n", ac.Bucket, key)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Print the report without uploading it")
	cmd.Flags().StringVar(&report, "report", "table", "Output format: json or table")
	return cmd
}

func printAnalytics(w io.Writer, rep *analytics.Report) {
	ws := rep.WeeklySummary
	fmt.Fprintf(w, "Period %s to %s (%d days)\n", ws.Period.StartDate, ws.Period.EndDate, ws.Period.DaysAnalyzed)
	fmt.Fprintf(w, "  Total cost:         $%.2f\n", ws.CostMetrics.TotalCost)
	fmt.Fprintf(w, "  Resources:          %d across %d services\n", ws.ResourceMetrics.UniqueResources, ws.ResourceMetrics.UniqueServices)
	fmt.Fprintf(w, "  Active recs:        %d (%d High)\n", ws.Recommendations.ActiveCount, ws.Recommendations.HighPriorityCount)
	fmt.Fprintf(w, "  Potential savings:  $%.2f/month\n", ws.Recommendations.TotalPotentialSavings)

	stats := rep.CostTrends.Statistics
	fmt.Fprintf(w, "\nCost trend: %s (average $%.2f/day over %d days)\n",
		stats.TrendDirection, stats.AverageDailyCost, stats.TotalDaysAnalyzed)

	if rep.Anomalies.TotalAnomalies > 0 {
		fmt.Fprintf(w, "\nCost spikes: %d (%d High)\n", rep.Anomalies.TotalAnomalies, rep.Anomalies.HighSeverity)
		for _, s := range rep.Anomalies.Anomalies {
			fmt.Fprintf(w, "  %-30s  spike $%.2f  average $%.2f  %s\n", s.ResourceID, s.SpikeCost, s.AverageCost, s.Severity)
		}
	}
}
