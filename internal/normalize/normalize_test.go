package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

func simplifiedRow(cols map[string]string) RawRow {
	return RawRow{Format: FormatSimplified, Columns: cols, Line: 2, Source: "test.csv"}
}

func TestNormalize_CURRow(t *testing.T) {
	row := RawRow{
		Format: FormatCUR,
		Columns: map[string]string{
			"lineItem/ResourceId":       "i-0abc",
			"lineItem/UnblendedCost":    "12.345",
			"lineItem/UsageAmount":      "24",
			"product/ProductName":       "Amazon Elastic Compute Cloud",
			"lineItem/UsageType":        "BoxUsage:t3.medium",
			"lineItem/UsageStartDate":   "2024-03-01T00:00:00Z",
			"lineItem/AvailabilityZone": "eu-west-1b",
			"product/instanceType":      "t3.medium",
			"lineItem/Operation":        "RunInstances",
			"bill/PayerAccountId":       "123456789012",
		},
	}

	rec, err := Normalize(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ResourceID != "i-0abc" || rec.Service != models.ServiceEC2 {
		t.Errorf("got id=%q service=%q", rec.ResourceID, rec.Service)
	}
	if rec.Cost.String() != "12.345" || rec.UsageQuantity.String() != "24" {
		t.Errorf("cost=%s usage=%s", rec.Cost, rec.UsageQuantity)
	}
	if rec.Region != "eu-west-1" {
		t.Errorf("region derived from AZ = %q, want eu-west-1", rec.Region)
	}
	if !rec.Timestamp.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", rec.Timestamp)
	}
	if rec.UtilizationKnown() {
		t.Error("CUR rows carry no utilization; must be unknown")
	}
	if rec.InstanceType != "t3.medium" {
		t.Errorf("instance type = %q", rec.InstanceType)
	}
}

func TestNormalize_ServiceMapping(t *testing.T) {
	tests := []struct {
		product, usageType string
		want               models.ServiceType
	}{
		{"Amazon Elastic Compute Cloud", "EBS:VolumeUsage.gp2", models.ServiceEBS},
		{"Amazon Elastic Compute Cloud", "BoxUsage:m5.large", models.ServiceEC2},
		{"Amazon Simple Storage Service", "TimedStorage-ByteHrs", models.ServiceS3},
		{"Amazon Relational Database Service", "InstanceUsage:db.t3.micro", models.ServiceRDS},
		{"AWS Lambda", "Lambda-GB-Second", models.ServiceLambda},
		{"ebs", "", models.ServiceEBS},
		{"Amazon CloudFront", "DataTransfer-Out-Bytes", models.ServiceOther},
	}
	for _, tt := range tests {
		t.Run(tt.product+"/"+tt.usageType, func(t *testing.T) {
			rec, err := Normalize(simplifiedRow(map[string]string{
				"ResourceId": "r-1", "UnblendedCost": "1", "ProductName": tt.product, "UsageType": tt.usageType,
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Service != tt.want {
				t.Errorf("service = %q, want %q", rec.Service, tt.want)
			}
		})
	}
}

func TestNormalize_Utilization(t *testing.T) {
	rec, err := Normalize(simplifiedRow(map[string]string{
		"ResourceId": "i-1", "UnblendedCost": "50.00", "ProductName": "ec2", "Utilization": "3",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, ok := rec.UtilizationValue(); !ok || u != 3 {
		t.Errorf("utilization = %v, %v", u, ok)
	}

	rec, err = Normalize(simplifiedRow(map[string]string{
		"ResourceId": "i-1", "UnblendedCost": "50.00", "Utilization": "  ",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.UtilizationKnown() {
		t.Error("blank utilization must be unknown, not zero")
	}
}

func TestNormalize_MissingUsageDefaultsToZero(t *testing.T) {
	rec, err := Normalize(simplifiedRow(map[string]string{"ResourceId": "vol-1", "UnblendedCost": "4"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.UsageQuantity.IsZero() {
		t.Errorf("usage = %s, want 0", rec.UsageQuantity)
	}
	if !rec.Timestamp.IsZero() {
		t.Errorf("absent timestamp must be zero, got %v", rec.Timestamp)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
		want error
	}{
		{"missing resource id", simplifiedRow(map[string]string{"UnblendedCost": "1"}), ErrMissingField},
		{"missing cost", simplifiedRow(map[string]string{"ResourceId": "i-1"}), ErrMissingField},
		{"non-numeric cost", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "abc"}), ErrInvalidNumber},
		{"negative cost", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "-1"}), ErrNegativeValue},
		{"negative usage", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "1", "UsageAmount": "-3"}), ErrNegativeValue},
		{"utilization over 100", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "1", "Utilization": "140"}), ErrInvalidNumber},
		{"utilization NaN", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "1", "Utilization": "NaN"}), ErrInvalidNumber},
		{"utilization infinite", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "1", "Utilization": "-Inf"}), ErrInvalidNumber},
		{"malformed csv line", RawRow{Format: FormatSimplified, Line: 7, Err: errors.New("bare quote")}, ErrMalformedLine},
		{"bad timestamp", simplifiedRow(map[string]string{"ResourceId": "i-1", "UnblendedCost": "1", "UsageStartDate": "yesterday"}), ErrInvalidTimestamp},
		{"auto format", RawRow{Format: FormatAuto, Columns: map[string]string{}}, ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.row)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalize_NonNegativeOutput(t *testing.T) {
	for _, cost := range []string{"0", "0.0001", "17.5", "1e3"} {
		rec, err := Normalize(simplifiedRow(map[string]string{"ResourceId": "x", "UnblendedCost": cost, "UsageAmount": cost}))
		if err != nil {
			t.Fatalf("cost %s: %v", cost, err)
		}
		if rec.Cost.IsNegative() || rec.UsageQuantity.IsNegative() {
			t.Errorf("cost %s produced negative values", cost)
		}
	}
}
