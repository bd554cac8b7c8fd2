package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceType is the canonical, lower-case service family of a usage record.
type ServiceType string

const (
	ServiceEC2    ServiceType = "ec2"
	ServiceEBS    ServiceType = "ebs"
	ServiceS3     ServiceType = "s3"
	ServiceRDS    ServiceType = "rds"
	ServiceLambda ServiceType = "lambda"
	ServiceOther  ServiceType = "other"
)

// ParseServiceType maps a short service name to its ServiceType.
// The boolean is false when s is not one of the known short names.
func ParseServiceType(s string) (ServiceType, bool) {
	switch ServiceType(s) {
	case ServiceEC2, ServiceEBS, ServiceS3, ServiceRDS, ServiceLambda, ServiceOther:
		return ServiceType(s), true
	}
	return "", false
}

// IsCompute reports whether the service has a CPU utilisation metric.
func (s ServiceType) IsCompute() bool {
	return s == ServiceEC2 || s == ServiceRDS
}

// IsStorage reports whether the service bills by provisioned/stored size.
func (s ServiceType) IsStorage() bool {
	return s == ServiceEBS || s == ServiceS3
}

// UsageRecord is one normalized resource observation. It is produced only by
// the normalize package and treated as an immutable value afterwards.
type UsageRecord struct {
	ResourceID    string          `json:"resource_id"`
	Service       ServiceType     `json:"service_type"`
	Region        string          `json:"region"`
	Cost          decimal.Decimal `json:"unblended_cost"`
	UsageQuantity decimal.Decimal `json:"usage_amount"`

	// Utilization is the average utilisation percentage (0-100).
	// nil means unknown, which is not the same as 0.
	Utilization *float64  `json:"utilization,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	UsageType        string `json:"usage_type,omitempty"`
	InstanceType     string `json:"instance_type,omitempty"`
	AvailabilityZone string `json:"availability_zone,omitempty"`
	Operation        string `json:"operation,omitempty"`
	Source           string `json:"file_source,omitempty"`
}

// UtilizationKnown reports whether a utilisation value was observed.
func (r UsageRecord) UtilizationKnown() bool {
	return r.Utilization != nil
}

// UtilizationValue returns the utilisation and whether it is known.
func (r UsageRecord) UtilizationValue() (float64, bool) {
	if r.Utilization == nil {
		return 0, false
	}
	return *r.Utilization, true
}

// WasteSignal is the output of one heuristic for one resource.
// Weight is 0 whenever Triggered is false.
type WasteSignal struct {
	Heuristic string  `json:"heuristic"`
	Triggered bool    `json:"triggered"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale,omitempty"`
}

// NotTriggered returns a signal for heuristic that did not fire.
func NotTriggered(heuristic string) WasteSignal {
	return WasteSignal{Heuristic: heuristic}
}
