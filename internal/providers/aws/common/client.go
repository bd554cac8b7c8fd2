package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients. It is the unit passed between provider
// functions and into the commands.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the home region for this profile configuration.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients scoped to Region. Use
	// ConfigForRegion + the factory to obtain clients for another region.
	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations. It is the sole entry point for
// AWS credential and region management across the provider layer.
//
// Implementations must use the AWS SDK v2 only. Never call the aws CLI.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile. Pass an
	// empty profile for the default chain and an empty region to keep the
	// profile's own region.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// ConfigForRegion clones cfg with the target region set.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config

	// ClientsForRegion returns a ClientSet scoped to region.
	ClientsForRegion(cfg *ProfileConfig, region string) *ClientSet
}
