package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/output"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
	awscost "github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/cost"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/cur"
)

const (
	sourceS3           = "s3"
	sourceFile         = "file"
	sourceCostExplorer = "costexplorer"
)

type collectFlags struct {
	source     string
	files      []string
	format     string
	bucket     string
	prefix     string
	processAll bool
	days       int
	regions    []string
	report     string
	output     string
	colored    bool
}

func newCollectCmd(a *app) *cobra.Command {
	var f collectFlags

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Read billing rows, score them and store recommendations",
		Long: `collect reads billing rows from Cost and Usage Report files in S3, from
local CSV files, or from Cost Explorer, then normalizes, scores and stores
a recommendation for every resource showing waste.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rows, err := a.collectRows(ctx, f)
			if err != nil {
				return err
			}

			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			res, err := a.pipeline(st, nil).Run(ctx, rows)
			if err != nil {
				return fmt.Errorf("scoring interrupted: %w", err)
			}

			if f.output != "" {
				if err := writeJSONFile(f.output, res); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if f.report == "json" {
				if err := printJSON(w, res); err != nil {
					return err
				}
			} else {
				printBatch(w, res, f.colored)
			}

			if policy.ShouldFail(res.Recommendations, a.policy) {
				return fmt.Errorf("enforcement: recommendations at or above %s priority were produced", a.policy.Enforcement.FailOnPriority)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.source, "source", sourceS3, "Input source: s3, file or costexplorer")
	cmd.Flags().StringSliceVar(&f.files, "file", nil, "Local CSV file(s) for --source=file (.gz accepted)")
	cmd.Flags().StringVar(&f.format, "format", "", "Input format: auto, cur or simplified (default from config)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "CUR bucket (default from config)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "CUR key prefix (default from config)")
	cmd.Flags().BoolVar(&f.processAll, "process-all", false, "Read every CUR file, ignoring the lookback window")
	cmd.Flags().IntVar(&f.days, "days", 0, "Cost Explorer lookback in days (default from config, max 14)")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "Regions searched for Cost Explorer enrichment (default from config)")
	cmd.Flags().StringVar(&f.report, "report", "table", "Output format: json or table")
	cmd.Flags().StringVar(&f.output, "output", "", "Write the full JSON batch result to this file path")
	cmd.Flags().BoolVar(&f.colored, "color", false, "Colour priorities in table output")
	return cmd
}

func (a *app) collectRows(ctx context.Context, f collectFlags) ([]normalize.RawRow, error) {
	formatName := f.format
	if formatName == "" {
		formatName = a.cfg.CUR.Format
	}
	format, err := normalize.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	switch f.source {
	case sourceFile:
		if len(f.files) == 0 {
			return nil, fmt.Errorf("--source=file needs at least one --file")
		}
		var rows []normalize.RawRow
		for _, path := range f.files {
			r, err := readLocalFile(path, format)
			if err != nil {
				return nil, err
			}
			rows = append(rows, r...)
		}
		return rows, nil

	case sourceS3:
		opts := cur.Options{
			Bucket:      firstNonEmpty(f.bucket, a.cfg.CUR.Bucket),
			Prefix:      firstNonEmpty(f.prefix, a.cfg.CUR.Prefix),
			Format:      format,
			Lookback:    time.Duration(a.cfg.CUR.LookbackHours) * time.Hour,
			ProcessAll:  f.processAll || a.cfg.CUR.ProcessAll,
			Concurrency: a.cfg.CUR.Concurrency,
			Logger:      a.logger,
		}
		if err := requireBucket("CUR", opts.Bucket); err != nil {
			return nil, err
		}
		client, err := a.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		res, err := cur.NewSource(client, opts).Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(res.Failed) > 0 {
			a.logger.Warn("some report files could not be read", "failed", len(res.Failed), "read", len(res.Objects)-len(res.Failed))
		}
		return res.Rows, nil

	case sourceCostExplorer:
		profile, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		ce := a.cfg.CostExplorer
		opts := awscost.CollectOptions{
			Regions:        ce.Regions,
			DaysBack:       ce.DaysBack,
			Services:       ce.Services,
			SkipEnrichment: ce.SkipEnrichment,
			Logger:         a.logger,
		}
		if len(f.regions) > 0 {
			opts.Regions = f.regions
		}
		if f.days > 0 {
			opts.DaysBack = f.days
		}
		return awscost.NewDefaultCostCollector().CollectRows(ctx, profile, a.aws, opts)
	}
	return nil, fmt.Errorf("unknown source %q; valid values: s3, file, costexplorer", f.source)
}

func readLocalFile(path string, format normalize.Format) ([]normalize.RawRow, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	var r io.Reader = fh
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return normalize.ReadRows(r, format, path)
}

// printBatch renders the batch counters followed by the recommendations table.
func printBatch(w io.Writer, res *engine.BatchResult, colored bool) {
	fmt.Fprintf(w, "Rows: %d  Skipped: %d  Dropped: %d  Resources: %d  Unchanged: %d  Resolved: %d  Failures: %d\n\n",
		res.RowsRead, len(res.RowsSkipped), res.RowsDropped, res.Resources, len(res.Unchanged), len(res.Resolved), len(res.Failures))
	output.RenderTable(w, res.Recommendations, output.TableOptions{Colored: colored, IncludeRationale: true})
	if len(res.Recommendations) > 0 {
		output.RenderSummary(w, res.Recommendations)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "failed: %s: %s\n", f.ResourceID, f.Reason)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
