package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// ---------------------------------------------------------------------------
// Per-service client interfaces
//
// Each interface covers only the operations used by this project. Using narrow
// interfaces instead of the full SDK clients makes mocking in unit tests
// trivial: create a struct that satisfies the interface and return canned data.
// ---------------------------------------------------------------------------

// STSClient is the subset of STS operations used by the loader.
type STSClient interface {
	GetCallerIdentity(
		ctx context.Context,
		params *sts.GetCallerIdentityInput,
		optFns ...func(*sts.Options),
	) (*sts.GetCallerIdentityOutput, error)
}

// S3Client covers object listing, download and upload. It also satisfies
// s3.ListObjectsV2APIClient so the SDK paginator can be used.
type S3Client interface {
	ListObjectsV2(
		ctx context.Context,
		params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)

	GetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)

	PutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
}

// CostExplorerClient covers the resource-level cost query used as an
// alternative input source.
type CostExplorerClient interface {
	GetCostAndUsageWithResources(
		ctx context.Context,
		params *ce.GetCostAndUsageWithResourcesInput,
		optFns ...func(*ce.Options),
	) (*ce.GetCostAndUsageWithResourcesOutput, error)
}

// CloudWatchClient covers the metric query used for utilization enrichment.
type CloudWatchClient interface {
	GetMetricStatistics(
		ctx context.Context,
		params *cloudwatch.GetMetricStatisticsInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// EC2Client covers instance metadata lookups. It also satisfies
// ec2.DescribeInstancesAPIClient for the SDK paginator.
type EC2Client interface {
	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)
}

// RDSClient covers DB instance metadata lookups.
type RDSClient interface {
	DescribeDBInstances(
		ctx context.Context,
		params *rds.DescribeDBInstancesInput,
		optFns ...func(*rds.Options),
	) (*rds.DescribeDBInstancesOutput, error)
}

// SNSClient covers alert publishing.
type SNSClient interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

// ---------------------------------------------------------------------------
// ClientSet and ClientFactory
// ---------------------------------------------------------------------------

// ClientSet holds initialised AWS service clients for a given profile and
// region. All fields are interfaces so they can be replaced with mocks in
// tests without importing the AWS SDK in test files.
type ClientSet struct {
	STS          STSClient
	S3           S3Client
	CostExplorer CostExplorerClient
	CloudWatch   CloudWatchClient
	EC2          EC2Client
	RDS          RDSClient
	SNS          SNSClient
}

// ClientFactory creates a ClientSet from an aws.Config.
// Swap this in tests to inject mock clients.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet is the production ClientFactory. It constructs real AWS SDK
// clients from cfg. Cost Explorer is always pointed at us-east-1 because it
// is a global service only reachable in that region.
func NewClientSet(cfg aws.Config) *ClientSet {
	ceCfg := cfg
	ceCfg.Region = "us-east-1"

	return &ClientSet{
		STS:          sts.NewFromConfig(cfg),
		S3:           s3.NewFromConfig(cfg),
		CostExplorer: ce.NewFromConfig(ceCfg),
		CloudWatch:   cloudwatch.NewFromConfig(cfg),
		EC2:          ec2.NewFromConfig(cfg),
		RDS:          rds.NewFromConfig(cfg),
		SNS:          sns.NewFromConfig(cfg),
	}
}
