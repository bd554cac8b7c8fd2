package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/api"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/terraform"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations, predictions and Terraform files over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gin.SetMode(gin.ReleaseMode)

			st, err := a.store(ctx)
			if err != nil {
				return err
			}

			var m *metrics.Metrics
			if a.cfg.API.Metrics {
				m = metrics.New()
			}

			deps := api.Deps{
				Recommendations: st,
				Predictions:     st,
				Rescorer:        a.pipeline(st, m),
				Metrics:         m,
			}
			if bucket := a.cfg.Artifacts.Bucket; bucket != "" {
				client, err := a.s3Client(ctx)
				if err != nil {
					return fmt.Errorf("terraform listing needs AWS access: %w", err)
				}
				deps.Terraform = terraform.NewGenerator(st, client, terraform.Options{
					Bucket:        bucket,
					Prefix:        a.cfg.Artifacts.TerraformPrefix,
					DefaultRegion: a.cfg.AWS.Region,
				}, a.logger)
			}

			cfg := api.Config{
				Addr:           a.cfg.API.Addr,
				RatePerSecond:  a.cfg.API.RatePerSecond,
				Burst:          a.cfg.API.Burst,
				AllowedOrigins: a.cfg.API.AllowedOrigins,
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return api.NewServer(cfg, deps, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}
