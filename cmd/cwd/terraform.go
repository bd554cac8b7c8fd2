package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/terraform"
)

func newTerraformCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terraform",
		Short: "Generate and list Terraform files for terminated resources",
	}
	cmd.AddCommand(newTerraformGenerateCmd(a), newTerraformListCmd(a))
	return cmd
}

func newTerraformGenerateCmd(a *app) *cobra.Command {
	var print bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render Terminated recommendations into a .tf file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if print {
				recs, err := st.ListByStatus(ctx, models.StatusTerminated)
				if err != nil {
					return fmt.Errorf("list terminated recommendations: %w", err)
				}
				if len(recs) == 0 {
					fmt.Fprintln(w, "No terminated resources.")
					return nil
				}
				fmt.Fprint(w, terraform.Render(recs, a.cfg.AWS.Region))
				return nil
			}

			if err := requireBucket("artifacts", a.cfg.Artifacts.Bucket); err != nil {
				return err
			}
			client, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			res, err := terraform.NewGenerator(st, client, terraform.Options{
				Bucket:        a.cfg.Artifacts.Bucket,
				Prefix:        a.cfg.Artifacts.TerraformPrefix,
				DefaultRegion: a.cfg.AWS.Region,
			}, a.logger).Generate(ctx)
			if err != nil {
				return err
			}
			if res.Key == "" {
				fmt.Fprintln(w, "No terminated resources.")
				return nil
			}
			fmt.Fprintf(w, "Wrote %d resources to s3://%s/%s\n", res.Resources, a.cfg.Artifacts.Bucket, res.Key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&print, "print", false, "Print the file instead of uploading it")
	return cmd
}

func newTerraformListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generated .tf files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireBucket("artifacts", a.cfg.Artifacts.Bucket); err != nil {
				return err
			}
			client, err := a.s3Client(ctx)
			if err != nil {
				return err
			}
			files, err := terraform.NewGenerator(nil, client, terraform.Options{
				Bucket: a.cfg.Artifacts.Bucket,
				Prefix: a.cfg.Artifacts.TerraformPrefix,
			}, a.logger).ListFiles(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(w, "No Terraform files.")
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(w, "%-45s  %8d  %s\n", f.Filename, f.Size, f.LastModified.UTC().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
