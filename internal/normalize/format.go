package normalize

import (
	"fmt"
	"strings"
)

// Format identifies which column schema a raw row uses.
type Format int

const (
	// FormatAuto asks ReadRows to pick the schema from the CSV header.
	FormatAuto Format = iota
	// FormatCUR is the full AWS Cost and Usage Report schema.
	FormatCUR
	// FormatSimplified is the flat, hand-exported CSV schema.
	FormatSimplified
)

func (f Format) String() string {
	switch f {
	case FormatCUR:
		return "cur"
	case FormatSimplified:
		return "simplified"
	default:
		return "auto"
	}
}

// ParseFormat accepts "auto", "cur" or "simplified" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "cur":
		return FormatCUR, nil
	case "simplified", "simple":
		return FormatSimplified, nil
	}
	return FormatAuto, fmt.Errorf("unknown input format %q; valid values: auto, cur, simplified", s)
}

// schema names the source column for every UsageRecord field. An empty
// name means the format does not carry that field.
type schema struct {
	resourceID   string
	cost         string
	usage        string
	productName  string
	productCode  string
	usageType    string
	startDate    string
	az           string
	instanceType string
	region       string
	operation    string
	utilization  string
}

var schemas = map[Format]schema{
	FormatCUR: {
		resourceID:   "lineItem/ResourceId",
		cost:         "lineItem/UnblendedCost",
		usage:        "lineItem/UsageAmount",
		productName:  "product/ProductName",
		productCode:  "lineItem/ProductCode",
		usageType:    "lineItem/UsageType",
		startDate:    "lineItem/UsageStartDate",
		az:           "lineItem/AvailabilityZone",
		instanceType: "product/instanceType",
		region:       "product/region",
		operation:    "lineItem/Operation",
	},
	FormatSimplified: {
		resourceID:   "ResourceId",
		cost:         "UnblendedCost",
		usage:        "UsageAmount",
		productName:  "ProductName",
		usageType:    "UsageType",
		startDate:    "UsageStartDate",
		az:           "AvailabilityZone",
		instanceType: "instanceType",
		region:       "region",
		operation:    "Operation",
		utilization:  "Utilization",
	},
}

// DetectFormat picks FormatCUR when the header carries the CUR resource id
// column and FormatSimplified otherwise.
func DetectFormat(header []string) Format {
	for _, h := range header {
		if strings.TrimSpace(h) == schemas[FormatCUR].resourceID {
			return FormatCUR
		}
	}
	return FormatSimplified
}
