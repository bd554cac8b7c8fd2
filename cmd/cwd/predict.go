package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/forecast"
)

func newPredictCmd(a *app) *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Combine the latest Prophet and ARIMA results into a daily prediction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fc := a.cfg.Forecast
			opts := forecast.Options{
				Bucket:            firstNonEmpty(bucket, fc.Bucket, a.cfg.Artifacts.Bucket),
				ProphetPrefix:     fc.ProphetPrefix,
				ARIMAPrefix:       fc.ARIMAPrefix,
				PredictionsPrefix: fc.PredictionsPrefix,
				TrendThreshold:    fc.TrendThreshold,
				AlertThreshold:    fc.AlertThreshold,
			}
			if err := requireBucket("forecast", opts.Bucket); err != nil {
				return err
			}

			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			client, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			notifier, closeNotifier, err := a.notifier(ctx)
			if err != nil {
				return err
			}
			defer closeNotifier()

			res, err := forecast.NewRunner(client, st, notifier, opts, a.logger).Run(ctx)
			if err != nil {
				return err
			}
			p := res.Prediction
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Prediction %s: $%.3f (confidence %.1f%%, trend %s, %s)\n",
				p.PredictionDate, p.EnsemblePrediction, p.ConfidenceScore, p.Trend, p.Recommendation)
			fmt.Fprintf(w, "Range: $%.2f to $%.2f  Weights: prophet %.4f, arima %.4f\n",
				p.ForecastRange.Min, p.ForecastRange.Max, p.ProphetWeight, p.ARIMAWeight)
			fmt.Fprintf(w, "Saved to s3://%s/%s\n", opts.Bucket, res.ArtifactKey)
			if res.Alerted {
				fmt.Fprintln(w, "Alert sent.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding model results (default from config)")
	return cmd
}

// notifier builds the configured alert channels. The returned func
// releases broker connections.
func (a *app) notifier(ctx context.Context) (forecast.Notifier, func(), error) {
	nc := a.cfg.Notify
	var (
		notifiers forecast.MultiNotifier
		closers   []func()
	)
	if nc.SNSTopicARN != "" {
		p, err := a.awsConfig(ctx)
		if err != nil {
			return nil, func() {}, err
		}
		notifiers = append(notifiers, forecast.NewSNSNotifier(p.Clients.SNS, nc.SNSTopicARN))
	}
	if nc.MQTT.Enabled {
		n, err := forecast.NewMQTTNotifier(forecast.MQTTConfig{
			Broker:   nc.MQTT.Broker,
			Topic:    nc.MQTT.Topic,
			ClientID: nc.MQTT.ClientID,
			Username: nc.MQTT.Username,
			Password: nc.MQTT.Password,
		})
		if err != nil {
			return nil, func() {}, err
		}
		notifiers = append(notifiers, n)
		closers = append(closers, n.Close)
	}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(notifiers) == 0 {
		return nil, closeAll, nil
	}
	return notifiers, closeAll, nil
}
