package pricing

import (
	"fmt"
	"strings"
)

// S3Convention selects how the s3 field of a region is turned into a unit
// price. Published tables disagree on the unit, so the choice is explicit.
type S3Convention string

const (
	// S3Direct multiplies the published s3 price by the requested quantity.
	S3Direct S3Convention = "direct"
	// S3HourlyPerTB treats the published price as per GB-month and derives an
	// hourly price per TB from it.
	S3HourlyPerTB S3Convention = "hourly-per-tb"
)

const (
	// HoursPerMonth is the billing month used by AWS on-demand pricing.
	HoursPerMonth = 730.0
	// GBPerTB is the binary terabyte used for storage quantities.
	GBPerTB = 1024.0
)

// ParseS3Convention parses a convention name. An empty name selects S3Direct.
func ParseS3Convention(s string) (S3Convention, error) {
	switch S3Convention(strings.ToLower(strings.TrimSpace(s))) {
	case "", S3Direct:
		return S3Direct, nil
	case S3HourlyPerTB:
		return S3HourlyPerTB, nil
	default:
		return "", fmt.Errorf("unknown s3 convention %q (use %s or %s)", s, S3Direct, S3HourlyPerTB)
	}
}

// S3UnitPrice converts a published s3 price into the unit price used for one
// requested s3 unit.
func (c S3Convention) S3UnitPrice(published float64) float64 {
	if c == S3HourlyPerTB {
		return published / HoursPerMonth * GBPerTB
	}
	return published
}
