package cost

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// costRow is one (resource, usage type, day) cell of a Cost Explorer
// resource-level query. Amounts are kept as the decimal strings CE returns.
type costRow struct {
	ResourceID string
	Service    string
	UsageType  string
	Day        string
	Cost       string
	Usage      string
}

// collectResourceCosts calls GetCostAndUsageWithResources for one service
// over [start, end) at daily granularity, grouped by resource and usage
// type. All pages are read.
func collectResourceCosts(
	ctx context.Context,
	client common.CostExplorerClient,
	service string,
	start, end string,
) ([]costRow, error) {
	var rows []costRow

	var nextToken *string
	for {
		out, err := client.GetCostAndUsageWithResources(ctx, &ce.GetCostAndUsageWithResourcesInput{
			TimePeriod: &cetypes.DateInterval{
				Start: aws.String(start),
				End:   aws.String(end),
			},
			Granularity: cetypes.GranularityDaily,
			Metrics:     []string{"UnblendedCost", "UsageQuantity"},
			Filter: &cetypes.Expression{
				Dimensions: &cetypes.DimensionValues{
					Key:    cetypes.DimensionService,
					Values: []string{service},
				},
			},
			GroupBy: []cetypes.GroupDefinition{
				{Key: aws.String("RESOURCE_ID"), Type: cetypes.GroupDefinitionTypeDimension},
				{Key: aws.String("USAGE_TYPE"), Type: cetypes.GroupDefinitionTypeDimension},
			},
			NextPageToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("GetCostAndUsageWithResources (%s): %w", service, err)
		}

		for _, result := range out.ResultsByTime {
			var day string
			if result.TimePeriod != nil {
				day = aws.ToString(result.TimePeriod.Start)
			}
			for _, group := range result.Groups {
				if len(group.Keys) == 0 || group.Keys[0] == "" || group.Keys[0] == "NoResourceId" {
					continue
				}
				row := costRow{
					ResourceID: group.Keys[0],
					Service:    service,
					Day:        day,
					Cost:       metricAmount(group.Metrics, "UnblendedCost"),
					Usage:      metricAmount(group.Metrics, "UsageQuantity"),
				}
				if len(group.Keys) > 1 {
					row.UsageType = group.Keys[1]
				}
				rows = append(rows, row)
			}
		}

		if out.NextPageToken == nil {
			break
		}
		nextToken = out.NextPageToken
	}

	return rows, nil
}

// metricAmount returns the amount of the named metric, or "" when absent.
func metricAmount(metrics map[string]cetypes.MetricValue, name string) string {
	m, ok := metrics[name]
	if !ok {
		return ""
	}
	return aws.ToString(m.Amount)
}
