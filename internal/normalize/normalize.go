// Package normalize maps raw billing rows in either supported schema onto
// models.UsageRecord. It is the only producer of UsageRecord values.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrNegativeValue    = errors.New("negative value")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrUnknownFormat    = errors.New("unknown row format")
	ErrMalformedLine    = errors.New("malformed CSV line")
)

// RawRow is one input row tagged with the schema it was read with.
type RawRow struct {
	Format  Format
	Columns map[string]string
	Line    int
	Source  string
	// Err is set when the line could not be parsed as CSV. Columns is
	// empty and Normalize rejects the row.
	Err error
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts row into a UsageRecord. Resource id and cost are
// required; every other field is optional. Unknown columns are ignored.
func Normalize(row RawRow) (models.UsageRecord, error) {
	if row.Err != nil {
		return models.UsageRecord{}, fmt.Errorf("row %d: %w: %v", row.Line, ErrMalformedLine, row.Err)
	}
	s, ok := schemas[row.Format]
	if !ok {
		return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s", row.Line, ErrUnknownFormat, row.Format)
	}
	get := func(col string) string {
		if col == "" {
			return ""
		}
		return strings.TrimSpace(row.Columns[col])
	}

	rec := models.UsageRecord{
		ResourceID:       get(s.resourceID),
		UsageType:        get(s.usageType),
		InstanceType:     get(s.instanceType),
		AvailabilityZone: get(s.az),
		Operation:        get(s.operation),
		Source:           row.Source,
	}
	if rec.ResourceID == "" {
		return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s", row.Line, ErrMissingField, s.resourceID)
	}

	costStr := get(s.cost)
	if costStr == "" {
		return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s", row.Line, ErrMissingField, s.cost)
	}
	cost, err := parseAmount(s.cost, costStr)
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("row %d: %w", row.Line, err)
	}
	rec.Cost = cost

	rec.UsageQuantity = decimal.Zero
	if q := get(s.usage); q != "" {
		qty, err := parseAmount(s.usage, q)
		if err != nil {
			return models.UsageRecord{}, fmt.Errorf("row %d: %w", row.Line, err)
		}
		rec.UsageQuantity = qty
	}

	if u := get(s.utilization); u != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(u, "%"), 64)
		if err != nil {
			return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s=%q", row.Line, ErrInvalidNumber, s.utilization, u)
		}
		if !(v >= 0 && v <= 100) {
			return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s=%q out of range 0-100", row.Line, ErrInvalidNumber, s.utilization, u)
		}
		rec.Utilization = &v
	}

	if ts := get(s.startDate); ts != "" {
		t, err := parseTimestamp(ts)
		if err != nil {
			return models.UsageRecord{}, fmt.Errorf("row %d: %w: %s=%q", row.Line, ErrInvalidTimestamp, s.startDate, ts)
		}
		rec.Timestamp = t
	}

	rec.Region = get(s.region)
	if rec.Region == "" {
		rec.Region = regionFromAZ(rec.AvailabilityZone)
	}

	rec.Service = serviceFor(get(s.productName), get(s.productCode), rec.UsageType)
	return rec, nil
}

func parseAmount(col, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, col, v)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrNegativeValue, col, v)
	}
	return d, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matches %q", v)
}

// regionFromAZ turns "us-east-1a" into "us-east-1".
func regionFromAZ(az string) string {
	if len(az) < 2 {
		return ""
	}
	last := az[len(az)-1]
	if last < 'a' || last > 'z' {
		return ""
	}
	return az[:len(az)-1]
}

func serviceFor(productName, productCode, usageType string) models.ServiceType {
	if strings.Contains(usageType, "EBS:") {
		return models.ServiceEBS
	}
	for _, p := range []string{productName, productCode} {
		if st, ok := models.ParseServiceType(strings.ToLower(p)); ok {
			return st
		}
	}
	name := productName + " " + productCode
	switch {
	case strings.Contains(name, "Elastic Compute Cloud"), strings.Contains(name, "AmazonEC2"):
		return models.ServiceEC2
	case strings.Contains(name, "Simple Storage Service"), strings.Contains(name, "AmazonS3"):
		return models.ServiceS3
	case strings.Contains(name, "Relational Database"), strings.Contains(name, "AmazonRDS"):
		return models.ServiceRDS
	case strings.Contains(name, "Lambda"):
		return models.ServiceLambda
	}
	return models.ServiceOther
}
