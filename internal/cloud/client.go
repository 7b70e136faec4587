// Package cloud builds AWS service clients from shared configuration.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PriceListRegion is the region that serves the AWS Price List API.
const PriceListRegion = "us-east-1"

// Client wraps the AWS SDK configuration for creating service clients.
type Client struct {
	cfg aws.Config
}

// NewClient creates a new AWS client using the specified profile and region.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{cfg: cfg}, nil
}

// Config returns the underlying AWS config.
func (c *Client) Config() aws.Config {
	return c.cfg
}

// Region returns the configured region.
func (c *Client) Region() string {
	return c.cfg.Region
}

// NewPricingClient creates a Price List API client. The API is only served
// from us-east-1, whatever region the config names.
func (c *Client) NewPricingClient() *pricing.Client {
	return pricing.NewFromConfig(c.cfg, func(o *pricing.Options) {
		o.Region = PriceListRegion
	})
}

// NewS3Client creates an S3 client from the stored config.
func (c *Client) NewS3Client() *s3.Client {
	return s3.NewFromConfig(c.cfg)
}
