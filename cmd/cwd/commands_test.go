package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

// ── AWS mock ──────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	lastProfile   string
	lastRegion    string
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	m.lastRegion = region
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) ConfigForRegion(_ *common.ProfileConfig, region string) aws.Config {
	return aws.Config{Region: region}
}

func (m *mockAWSProvider) ClientsForRegion(*common.ProfileConfig, string) *common.ClientSet {
	return &common.ClientSet{}
}

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "us-east-1",
			Clients:     &common.ClientSet{},
		},
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

// newTestApp returns an app backed by an in-memory store and a mocked AWS
// provider, so no command touches the network or the filesystem store.
func newTestApp(t *testing.T) (*app, *store.Memory) {
	t.Helper()
	a := newApp()
	a.aws = goodMockAWS()
	mem := store.NewMemory()
	a.st = mem
	return a, mem
}

// execute runs the root command with args against a and returns stdout.
// Logs go to stderr and are discarded. The config path points at a missing
// file in a temp dir so defaults are used.
func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmdWith(a)
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "cwd.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func seedRec(t *testing.T, mem *store.Memory, id string, svc models.ServiceType, priority models.Priority, savings string, status models.Status) {
	t.Helper()
	now := time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC)
	err := mem.Put(context.Background(), models.WasteRecommendation{
		RecommendationID:        "rec-" + id,
		ResourceID:              id,
		Service:                 svc,
		Region:                  "us-east-1",
		CompositeScore:          30,
		Priority:                priority,
		EstimatedMonthlySavings: decimal.RequireFromString(savings),
		CurrentCost:             decimal.RequireFromString(savings),
		Confidence:              0.8,
		Heuristics:              []string{"LOW_COMPUTE_UTILIZATION"},
		Rationale:               "low utilization",
		Status:                  status,
		CreatedAt:               now,
		UpdatedAt:               now,
	})
	if err != nil {
		t.Fatal(err)
	}
}

const simplifiedCSV = `ResourceId,ProductName,UnblendedCost,UsageAmount,region,Utilization
i-1,ec2,50.00,24,us-east-1,3
i-2,ec2,0.001,24,us-east-1,90
`

// ── collect ──────────────────────────────────────────────────────────────────

func TestCollect_FileSourceTable(t *testing.T) {
	a, mem := newTestApp(t)
	path := writeFile(t, "usage.csv", simplifiedCSV)

	out, err := execute(t, a, "collect", "--source=file", "--file", path)
	if err != nil {
		t.Fatalf("collect: %v\n%s", err, out)
	}
	for _, want := range []string{"Rows: 2", "i-1", "High", "1 recommendations"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
	if _, err := mem.Get(context.Background(), "i-1"); err != nil {
		t.Errorf("i-1 not stored: %v", err)
	}
	if _, err := mem.Get(context.Background(), "i-2"); err == nil {
		t.Error("i-2 is below the minimum cost and should not be stored")
	}
}

func TestCollect_FileSourceJSONAndOutputFile(t *testing.T) {
	a, _ := newTestApp(t)
	path := writeFile(t, "usage.csv", simplifiedCSV)
	outFile := filepath.Join(t.TempDir(), "batch.json")

	out, err := execute(t, a, "collect", "--source=file", "--file", path, "--report=json", "--output", outFile)
	if err != nil {
		t.Fatalf("collect: %v\n%s", err, out)
	}

	var res struct {
		RowsRead        int                          `json:"rows_read"`
		Recommendations []models.WasteRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if res.RowsRead != 2 {
		t.Errorf("rows_read = %d, want 2", res.RowsRead)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].ResourceID != "i-1" {
		t.Errorf("recommendations = %+v", res.Recommendations)
	}
	if _, err := os.Stat(outFile); err != nil {
		t.Errorf("--output file not written: %v", err)
	}
}

func TestCollect_EnforcementFails(t *testing.T) {
	a, _ := newTestApp(t)
	csv := writeFile(t, "usage.csv", simplifiedCSV)
	pol := writeFile(t, "cwd-policy.yaml", "version: 1\nenforcement:\n  fail_on_priority: High\n")

	_, err := execute(t, a, "--policy", pol, "collect", "--source=file", "--file", csv)
	if err == nil || !strings.Contains(err.Error(), "enforcement") {
		t.Fatalf("expected enforcement error, got %v", err)
	}
}

func TestCollect_FileSourceNeedsFile(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := execute(t, a, "collect", "--source=file"); err == nil {
		t.Fatal("expected error without --file")
	}
}

func TestCollect_UnknownSource(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "collect", "--source=ftp")
	if err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}

func TestCollect_S3NeedsBucket(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "collect", "--source=s3")
	if err == nil || !strings.Contains(err.Error(), "bucket is not configured") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}

// ── recommendations ──────────────────────────────────────────────────────────

func TestRecommendationsList_SortedJSON(t *testing.T) {
	a, mem := newTestApp(t)
	seedRec(t, mem, "vol-low", models.ServiceEBS, models.PriorityLow, "5", models.StatusActive)
	seedRec(t, mem, "i-high", models.ServiceEC2, models.PriorityHigh, "400", models.StatusActive)
	seedRec(t, mem, "i-gone", models.ServiceEC2, models.PriorityHigh, "900", models.StatusTerminated)

	out, err := execute(t, a, "recommendations", "list", "--report=json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp struct {
		Count           int                          `json:"count"`
		Recommendations []models.WasteRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Recommendations[0].ResourceID != "i-high" {
		t.Errorf("first = %s, want i-high", resp.Recommendations[0].ResourceID)
	}
}

func TestRecommendationsList_EmptyTable(t *testing.T) {
	a, _ := newTestApp(t)
	out, err := execute(t, a, "recs", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No recommendations.") {
		t.Errorf("got:\n%s", out)
	}
}

func TestRecommendationsList_BadStatus(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := execute(t, a, "recs", "list", "--status=Paused"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRecommendationsSetStatus(t *testing.T) {
	a, mem := newTestApp(t)
	seedRec(t, mem, "i-1", models.ServiceEC2, models.PriorityHigh, "100", models.StatusActive)

	out, err := execute(t, a, "recs", "set-status", "i-1", "terminated")
	if err != nil {
		t.Fatalf("set-status: %v", err)
	}
	if strings.TrimSpace(out) != "i-1: Terminated" {
		t.Errorf("output = %q", out)
	}
	rec, _ := mem.Get(context.Background(), "i-1")
	if rec.Status != models.StatusTerminated {
		t.Errorf("stored status = %s", rec.Status)
	}

	if _, err := execute(t, a, "recs", "set-status", "i-missing", "Dismissed"); err == nil {
		t.Error("expected not found error for unknown resource")
	}
}

func TestRecommendationsExplain(t *testing.T) {
	a, mem := newTestApp(t)
	seedRec(t, mem, "i-1", models.ServiceEC2, models.PriorityHigh, "100", models.StatusActive)

	out, err := execute(t, a, "recs", "explain", "i-1")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	for _, want := range []string{"RECOMMENDATION i-1 (ec2, us-east-1)", "✓ LOW_COMPUTE_UTILIZATION", "- low utilization"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}

	out, err = execute(t, a, "recs", "explain", "i-missing", "--report=json")
	if err != errSilentExit {
		t.Fatalf("expected errSilentExit, got %v", err)
	}
	if !strings.Contains(out, "No recommendation found for resource i-missing") {
		t.Errorf("got:\n%s", out)
	}
}

// ── terraform ────────────────────────────────────────────────────────────────

func TestTerraformGeneratePrint(t *testing.T) {
	a, mem := newTestApp(t)
	seedRec(t, mem, "i-0abc", models.ServiceEC2, models.PriorityHigh, "100", models.StatusTerminated)
	seedRec(t, mem, "i-active", models.ServiceEC2, models.PriorityHigh, "100", models.StatusActive)

	out, err := execute(t, a, "terraform", "generate", "--print")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, `resource "aws_instance" "i_0abc"`) {
		t.Errorf("missing resource block;\ngot:\n%s", out)
	}
	if strings.Contains(out, "i-active") {
		t.Errorf("active resource rendered;\ngot:\n%s", out)
	}
}

func TestTerraformGeneratePrint_NoneTerminated(t *testing.T) {
	a, _ := newTestApp(t)
	out, err := execute(t, a, "terraform", "generate", "--print")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "No terminated resources.") {
		t.Errorf("got:\n%s", out)
	}
}

func TestTerraformList_NeedsBucket(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := execute(t, a, "terraform", "list"); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

// ── policy ───────────────────────────────────────────────────────────────────

func TestPolicyValidate_OK(t *testing.T) {
	a, _ := newTestApp(t)
	pol := writeFile(t, "p.yaml", "version: 1\nscoring:\n  high: 40\n  medium: 20\n")
	out, err := execute(t, a, "policy", "validate", pol)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "OK") {
		t.Errorf("got:\n%s", out)
	}
}

func TestPolicyValidate_UnsupportedVersion(t *testing.T) {
	a, _ := newTestApp(t)
	pol := writeFile(t, "p.yaml", "version: 2\n")
	if _, err := execute(t, a, "policy", "validate", pol); err == nil {
		t.Fatal("expected load error for version 2")
	}
}

func TestPolicyValidate_Errors(t *testing.T) {
	a, _ := newTestApp(t)
	pol := writeFile(t, "p.yaml", "version: 1\nscoring:\n  high: 10\n  medium: 30\nrules:\n  NOT_A_RULE:\n    enabled: true\n")
	out, err := execute(t, a, "policy", "validate", pol)
	if err != errSilentExit {
		t.Fatalf("expected errSilentExit, got %v", err)
	}
	for _, want := range []string{"scoring: high", "NOT_A_RULE"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestExplicitPolicyMustExist(t *testing.T) {
	a, _ := newTestApp(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := execute(t, a, "--policy", missing, "recs", "list"); err == nil {
		t.Fatal("expected error for missing explicit policy file")
	}
}

// ── analytics ────────────────────────────────────────────────────────────────

func TestAnalyticsLocal(t *testing.T) {
	a, mem := newTestApp(t)
	seedRec(t, mem, "i-1", models.ServiceEC2, models.PriorityHigh, "120", models.StatusActive)

	out, err := execute(t, a, "analytics", "--local")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	for _, want := range []string{"Period", "Active recs:        1 (1 High)", "Cost trend:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

// ── config ───────────────────────────────────────────────────────────────────

func TestInvalidConfigRejected(t *testing.T) {
	a, _ := newTestApp(t)
	cfg := writeFile(t, "cwd.yaml", "storage:\n  backend: cassandra\n")

	var buf bytes.Buffer
	root := newRootCmdWith(a)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"--config", cfg, "recs", "list"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Fatalf("expected storage.backend error, got %v", err)
	}
}

func TestProfileFlagOverridesConfig(t *testing.T) {
	a, _ := newTestApp(t)
	mock := goodMockAWS()
	a.aws = mock

	if _, err := execute(t, a, "--profile", "staging", "doctor"); err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if mock.lastProfile != "staging" {
		t.Errorf("LoadProfile got profile %q, want staging", mock.lastProfile)
	}
}
