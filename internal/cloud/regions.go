package cloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// RegionsAPI is the subset of the EC2 client used to discover regions.
type RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// NewEC2Client creates an EC2 client from the stored config.
func (c *Client) NewEC2Client() RegionsAPI {
	return ec2.NewFromConfig(c.cfg)
}

// EnabledRegions returns the region codes enabled for the account, sorted.
func EnabledRegions(ctx context.Context, api RegionsAPI) ([]string, error) {
	out, err := api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(false)})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}
	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// FilterEnabled keeps the wanted regions that are also enabled, in wanted order.
func FilterEnabled(wanted, enabled []string) []string {
	set := make(map[string]bool, len(enabled))
	for _, r := range enabled {
		set[r] = true
	}
	var out []string
	for _, r := range wanted {
		if set[r] {
			out = append(out, r)
		}
	}
	return out
}
