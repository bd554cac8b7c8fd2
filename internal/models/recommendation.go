package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Priority is the bucket derived from a composite waste score.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// PriorityRank maps priorities to sort keys (lower = more urgent).
var PriorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Status is the lifecycle state of a recommendation. Scoring only ever
// creates Active recommendations; the other states are set by an operator.
type Status string

const (
	StatusActive     Status = "Active"
	StatusTerminated Status = "Terminated"
	StatusDismissed  Status = "Dismissed"
)

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, nil
	case "terminated":
		return StatusTerminated, nil
	case "dismissed":
		return StatusDismissed, nil
	}
	return "", fmt.Errorf("unknown status %q; valid values: Active, Terminated, Dismissed", s)
}

// WasteRecommendation is the persisted output of the scoring pipeline.
type WasteRecommendation struct {
	RecommendationID        string          `json:"recommendation_id"`
	ResourceID              string          `json:"resource_id"`
	Service                 ServiceType     `json:"service_type"`
	Region                  string          `json:"region"`
	InstanceType            string          `json:"instance_type,omitempty"`
	CompositeScore          float64         `json:"wastage_score"`
	Priority                Priority        `json:"priority"`
	EstimatedMonthlySavings decimal.Decimal `json:"estimated_monthly_savings"`
	CurrentCost             decimal.Decimal `json:"current_cost"`
	Confidence              float64         `json:"confidence_score"`
	Heuristics              []string        `json:"heuristics"`
	Rationale               string          `json:"rationale"`
	Status                  Status          `json:"status"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// RecommendationSummary aggregates counts and savings across recommendations.
type RecommendationSummary struct {
	Total                        int             `json:"total"`
	High                         int             `json:"high"`
	Medium                       int             `json:"medium"`
	Low                          int             `json:"low"`
	TotalEstimatedMonthlySavings decimal.Decimal `json:"total_estimated_monthly_savings"`
}

// Summarize counts recs by priority and sums their estimated savings.
func Summarize(recs []WasteRecommendation) RecommendationSummary {
	s := RecommendationSummary{Total: len(recs), TotalEstimatedMonthlySavings: decimal.Zero}
	for _, r := range recs {
		s.TotalEstimatedMonthlySavings = s.TotalEstimatedMonthlySavings.Add(r.EstimatedMonthlySavings)
		switch r.Priority {
		case PriorityHigh:
			s.High++
		case PriorityMedium:
			s.Medium++
		case PriorityLow:
			s.Low++
		}
	}
	return s
}
