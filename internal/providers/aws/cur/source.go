// Package cur reads Cost and Usage Report CSV files from S3 and turns them
// into raw rows for the scoring pipeline.
package cur

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

const (
	// DefaultConcurrency bounds parallel object downloads.
	DefaultConcurrency = 4

	// DefaultLookback limits a run to recently delivered report files.
	DefaultLookback = 24 * time.Hour
)

// Options configures a Source.
type Options struct {
	Bucket string
	Prefix string

	// Format is the schema of the files; FormatAuto detects per file.
	Format normalize.Format

	// Lookback skips objects last modified before now-Lookback.
	// Ignored when ProcessAll is set. Zero means DefaultLookback.
	Lookback   time.Duration
	ProcessAll bool

	// Concurrency defaults to DefaultConcurrency.
	Concurrency int

	Logger *slog.Logger
}

// Object is one report file selected for download.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// FetchResult holds the rows of every downloaded file, concatenated in
// object-key order, plus per-file failures.
type FetchResult struct {
	Objects []Object
	Rows    []normalize.RawRow
	Failed  map[string]error
}

// Source lists and downloads report files. It never evaluates rules.
type Source struct {
	client common.S3Client
	opts   Options
	now    func() time.Time
}

// NewSource returns a Source reading through client.
func NewSource(client common.S3Client, opts Options) *Source {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Source{client: client, opts: opts, now: time.Now}
}

// isReportFile accepts CSV and gzipped CSV, and rejects manifests.
func isReportFile(key string) bool {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "manifest") {
		return false
	}
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".csv.gz")
}

// ListObjects returns the report files to process, sorted by key.
func (s *Source) ListObjects(ctx context.Context) ([]Object, error) {
	cutoff := s.now().Add(-s.opts.Lookback)

	var objects []Object
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
		Prefix: aws.String(s.opts.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.opts.Bucket, s.opts.Prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isReportFile(key) {
				continue
			}
			modified := aws.ToTime(obj.LastModified)
			if !s.opts.ProcessAll && modified.Before(cutoff) {
				continue
			}
			objects = append(objects, Object{Key: key, Size: aws.ToInt64(obj.Size), LastModified: modified})
		}
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Fetch downloads every selected object with bounded parallelism. A file
// that cannot be read is recorded in Failed and skipped; the error return
// is reserved for listing failures and cancellation.
func (s *Source) Fetch(ctx context.Context) (*FetchResult, error) {
	objects, err := s.ListObjects(ctx)
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("report files selected", "bucket", s.opts.Bucket, "prefix", s.opts.Prefix, "files", len(objects))

	// Each goroutine writes only its own slot, so key order survives.
	perFile := make([][]normalize.RawRow, len(objects))
	errs := make([]error, len(objects))

	sem := make(chan struct{}, s.opts.Concurrency)
	g, gctx := errgroup.WithContext(ctx)

OBJECTS:
	for i, obj := range objects {
		select {
		case sem <- struct{}{}: // acquire; blocks when at capacity
		case <-gctx.Done():
			break OBJECTS
		}

		g.Go(func() error {
			defer func() { <-sem }()

			rows, err := s.readObject(gctx, obj.Key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.opts.Logger.Warn("skipping report file", "key", obj.Key, "error", err)
				errs[i] = err
				return nil
			}
			perFile[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &FetchResult{Objects: objects, Failed: make(map[string]error)}
	for i, obj := range objects {
		if errs[i] != nil {
			res.Failed[obj.Key] = errs[i]
			continue
		}
		res.Rows = append(res.Rows, perFile[i]...)
	}
	return res, nil
}

func (s *Source) readObject(ctx context.Context, key string) ([]normalize.RawRow, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.opts.Bucket, key, err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if strings.HasSuffix(strings.ToLower(key), ".gz") {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", key, err)
		}
		defer gz.Close()
		r = gz
	}

	rows, err := normalize.ReadRows(r, s.opts.Format, key)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return rows, nil
}
