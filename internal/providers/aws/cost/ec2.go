package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// instanceMeta is what enrichment learns about a compute resource.
type instanceMeta struct {
	Region           string
	InstanceType     string
	AvailabilityZone string

	// metric identifies the CloudWatch CPUUtilization series.
	namespace string
	dimension string
	metricID  string
}

// describeFilterChunk bounds the number of values in one instance-id filter.
const describeFilterChunk = 200

// lookupInstances finds which of ids exist in the client's region. An
// instance-id filter is used instead of InstanceIds so that ids living in
// other regions are simply absent rather than failing the call.
func lookupInstances(
	ctx context.Context,
	client common.EC2Client,
	region string,
	ids []string,
) (map[string]instanceMeta, error) {
	found := make(map[string]instanceMeta)

	for start := 0; start < len(ids); start += describeFilterChunk {
		end := min(start+describeFilterChunk, len(ids))
		paginator := ec2svc.NewDescribeInstancesPaginator(client, &ec2svc.DescribeInstancesInput{
			Filters: []ec2types.Filter{
				{Name: aws.String("instance-id"), Values: ids[start:end]},
			},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("DescribeInstances page in %s: %w", region, err)
			}
			for _, reservation := range page.Reservations {
				for _, inst := range reservation.Instances {
					id := aws.ToString(inst.InstanceId)
					var az string
					if inst.Placement != nil {
						az = aws.ToString(inst.Placement.AvailabilityZone)
					}
					found[id] = instanceMeta{
						Region:           region,
						InstanceType:     string(inst.InstanceType),
						AvailabilityZone: az,
						namespace:        "AWS/EC2",
						dimension:        "InstanceId",
						metricID:         id,
					}
				}
			}
		}
	}

	return found, nil
}

// fetchDailyCPU returns the average CPUUtilization per UTC day
// ("2006-01-02") for one resource over [start, end). Days without a
// datapoint are absent, which downstream means "utilization unknown".
func fetchDailyCPU(
	ctx context.Context,
	cw common.CloudWatchClient,
	meta instanceMeta,
	start, end time.Time,
) (map[string]float64, error) {
	out, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(meta.namespace),
		MetricName: aws.String("CPUUtilization"),
		Dimensions: []cwtypes.Dimension{
			{
				Name:  aws.String(meta.dimension),
				Value: aws.String(meta.metricID),
			},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return nil, fmt.Errorf("GetMetricStatistics %s %s: %w", meta.namespace, meta.metricID, err)
	}

	daily := make(map[string]float64, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp.Average == nil || dp.Timestamp == nil {
			continue
		}
		daily[dp.Timestamp.UTC().Format(dayLayout)] = *dp.Average
	}
	return daily, nil
}
