package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cwd-policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPolicy_Success(t *testing.T) {
	path := writePolicy(t, `
version: 1
primary_region: us-east-1
regional_price_index:
  eu-west-1: 1.08
scoring:
  high: 40
  medium: 25
rules:
  LOW_COMPUTE_UTILIZATION:
    enabled: false
    params:
      utilization_threshold: 15
enforcement:
  fail_on_priority: High
`)

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1")
	}
	if cfg.PrimaryRegion != "us-east-1" {
		t.Errorf("PrimaryRegion = %q", cfg.PrimaryRegion)
	}
	if cfg.RegionalPriceIndex["eu-west-1"] != 1.08 {
		t.Errorf("eu-west-1 multiplier = %v", cfg.RegionalPriceIndex["eu-west-1"])
	}
	if cfg.Scoring.High != 40 || cfg.Scoring.Medium != 25 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	rc := cfg.Rules["LOW_COMPUTE_UTILIZATION"]
	if rc.Enabled == nil || *rc.Enabled {
		t.Fatalf("expected LOW_COMPUTE_UTILIZATION disabled")
	}
	if rc.Params["utilization_threshold"] != 15 {
		t.Errorf("utilization_threshold = %v", rc.Params["utilization_threshold"])
	}
	if cfg.Enforcement.FailOnPriority != "High" {
		t.Errorf("fail_on_priority = %q", cfg.Enforcement.FailOnPriority)
	}
}

func TestLoadPolicy_InitialisesMaps(t *testing.T) {
	cfg, err := LoadPolicy(writePolicy(t, "version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rules == nil || cfg.RegionalPriceIndex == nil {
		t.Fatal("expected nil maps to be initialised")
	}
}

func TestLoadPolicy_InvalidVersion(t *testing.T) {
	_, err := LoadPolicy(writePolicy(t, "version: 2\n"))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadPolicy_MalformedYAML(t *testing.T) {
	if _, err := LoadPolicy(writePolicy(t, "version: [1\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
