package cost

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// lookupDBInstances pages through every RDS instance in region. The result
// is keyed by both ARN and identifier because Cost Explorer reports RDS
// resources by ARN.
func lookupDBInstances(
	ctx context.Context,
	client common.RDSClient,
	region string,
) (map[string]instanceMeta, error) {
	paginator := rdssvc.NewDescribeDBInstancesPaginator(client, &rdssvc.DescribeDBInstancesInput{})

	found := make(map[string]instanceMeta)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances page in %s: %w", region, err)
		}
		for _, db := range page.DBInstances {
			id := aws.ToString(db.DBInstanceIdentifier)
			meta := instanceMeta{
				Region:           region,
				InstanceType:     aws.ToString(db.DBInstanceClass),
				AvailabilityZone: aws.ToString(db.AvailabilityZone),
				namespace:        "AWS/RDS",
				dimension:        "DBInstanceIdentifier",
				metricID:         id,
			}
			found[id] = meta
			if arn := aws.ToString(db.DBInstanceArn); arn != "" {
				found[arn] = meta
			}
		}
	}
	return found, nil
}

// isRDSResource reports whether a Cost Explorer resource id names an RDS
// DB instance ("arn:aws:rds:<region>:<account>:db:<name>").
func isRDSResource(id string) bool {
	return strings.HasPrefix(id, "arn:") && strings.Contains(id, ":rds:") && strings.Contains(id, ":db:")
}

// isEC2Instance reports whether id looks like an EC2 instance id.
func isEC2Instance(id string) bool {
	return strings.HasPrefix(id, "i-")
}
