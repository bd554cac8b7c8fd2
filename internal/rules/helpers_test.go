package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

func f64(v float64) *float64 { return &v }

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var day0 = time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

func ec2Record(id string, util *float64) models.UsageRecord {
	return models.UsageRecord{
		ResourceID:    id,
		Service:       models.ServiceEC2,
		Region:        "us-east-1",
		Cost:          usd("50.00"),
		UsageQuantity: usd("24"),
		Utilization:   util,
		Timestamp:     day0,
	}
}
