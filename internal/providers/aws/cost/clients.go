package cost

import (
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// costClients holds the service clients used by the collector for one
// region. The real SDK clients satisfy the common interfaces; tests replace
// any field with a stub.
type costClients struct {
	CE  common.CostExplorerClient
	EC2 common.EC2Client
	RDS common.RDSClient
	CW  common.CloudWatchClient
}

// costClientFactory creates a costClients from an aws.Config.
type costClientFactory func(cfg aws.Config) *costClients

// newDefaultCostClients is the production costClientFactory. Cost Explorer
// is pinned to us-east-1 by common.NewClientSet.
func newDefaultCostClients(cfg aws.Config) *costClients {
	set := common.NewClientSet(cfg)
	return &costClients{
		CE:  set.CostExplorer,
		EC2: set.EC2,
		RDS: set.RDS,
		CW:  set.CloudWatch,
	}
}
