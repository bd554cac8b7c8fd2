// Package terraform renders import-and-destroy scaffolding for resources an
// operator has marked Terminated, and publishes it to S3.
package terraform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

// DefaultPrefix is where generated files are stored and listed.
const DefaultPrefix = "terraform-scripts/"

// resourceTypes maps services with a Terraform resource to its type name.
var resourceTypes = map[models.ServiceType]string{
	models.ServiceEC2: "aws_instance",
	models.ServiceEBS: "aws_ebs_volume",
}

// Render returns the .tf content for recs. Resources are emitted in
// resource ID order, each referring to an aliased provider for its region.
// Services without a Terraform mapping become a manual-review comment.
func Render(recs []models.WasteRecommendation, defaultRegion string) string {
	sorted := append([]models.WasteRecommendation(nil), recs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourceID < sorted[j].ResourceID })

	regions := make(map[string]bool)
	var blocks []string
	for _, rec := range sorted {
		region := rec.Region
		if region == "" {
			region = defaultRegion
		}
		tfType, ok := resourceTypes[rec.Service]
		if !ok {
			blocks = append(blocks, fmt.Sprintf(
				"# Unsupported service type: %s\n# Manual review required for resource: %s",
				rec.Service, rec.ResourceID))
			continue
		}
		regions[region] = true
		name := identifier(rec.ResourceID)
		blocks = append(blocks, fmt.Sprintf(`# %s terminated: %s
resource "%s" "%s" {
  # Placeholder block for import and destroy
  # Run: terraform import %s.%s %s
  # Then: terraform destroy -target=%s.%s
  provider = aws.%s
}`,
			strings.ToUpper(string(rec.Service)), rec.ResourceID,
			tfType, name,
			tfType, name, rec.ResourceID,
			tfType, name,
			identifier(region)))
	}

	var providers []string
	for region := range regions {
		providers = append(providers, region)
	}
	sort.Strings(providers)

	var b strings.Builder
	for _, region := range providers {
		fmt.Fprintf(&b, "provider \"aws\" {\n  alias  = %q\n  region = %q\n}\n\n", identifier(region), region)
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n")
	return b.String()
}

// identifier turns s into a valid Terraform name: letters, digits and
// underscores, never starting with a digit.
func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "r_" + out
	}
	return out
}

// Options configures a Generator.
type Options struct {
	Bucket        string
	Prefix        string
	DefaultRegion string
}

// GenerateResult describes one generated file. Key is empty when there
// was nothing to generate.
type GenerateResult struct {
	Key       string
	Resources int
	Content   string
}

// File is one stored .tf file.
type File struct {
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Generator builds .tf files from Terminated recommendations.
type Generator struct {
	recs   store.RecommendationStore
	s3     common.S3Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func NewGenerator(recs store.RecommendationStore, client common.S3Client, opts Options, logger *slog.Logger) *Generator {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = common.DefaultRegion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{recs: recs, s3: client, opts: opts, logger: logger, now: time.Now}
}

// Generate renders every Terminated recommendation into one file and
// uploads it as <prefix>terraform-delete-<YYYYMMDD-HHMMSS>.tf.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	recs, err := g.recs.ListByStatus(ctx, models.StatusTerminated)
	if err != nil {
		return nil, fmt.Errorf("list terminated recommendations: %w", err)
	}
	if len(recs) == 0 {
		g.logger.Info("no terminated resources found")
		return &GenerateResult{}, nil
	}

	content := Render(recs, g.opts.DefaultRegion)
	key := g.opts.Prefix + "terraform-delete-" + g.now().UTC().Format("20060102-150405") + ".tf"
	_, err = g.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", g.opts.Bucket, key, err)
	}

	g.logger.Info("terraform file uploaded", "key", key, "resources", len(recs))
	return &GenerateResult{Key: key, Resources: len(recs), Content: content}, nil
}

// ListFiles returns the stored .tf files, newest key last.
func (g *Generator) ListFiles(ctx context.Context) ([]File, error) {
	files := []File{}
	p := s3.NewListObjectsV2Paginator(g.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.opts.Bucket),
		Prefix: aws.String(g.opts.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", g.opts.Bucket, g.opts.Prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".tf") {
				continue
			}
			files = append(files, File{
				Filename:     key[strings.LastIndex(key, "/")+1:],
				Path:         key,
				URL:          fmt.Sprintf("https://%s.s3.amazonaws.com/%s", g.opts.Bucket, key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
