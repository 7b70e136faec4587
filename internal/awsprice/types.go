// Package awsprice builds pricing tables from the AWS Price List API.
package awsprice

import (
	"time"

	"github.com/ppiankov/regioncost/internal/pricing"
)

// Region describes how a region is named in the Price List API.
type Region struct {
	Code     string
	Location string
	// S3UsageType is the General Purpose storage usage type. Empty means S3
	// is not collected for the region.
	S3UsageType string
}

var knownRegions = []Region{
	{"us-east-1", "US East (N. Virginia)", "TimedStorage-ByteHrs"},
	{"us-east-2", "US East (Ohio)", "USE2-TimedStorage-ByteHrs"},
	{"us-west-1", "US West (N. California)", "USW1-TimedStorage-ByteHrs"},
	{"us-west-2", "US West (Oregon)", "USW2-TimedStorage-ByteHrs"},
	{"ap-south-1", "Asia Pacific (Mumbai)", "APS1-TimedStorage-ByteHrs"},
	{"ap-northeast-1", "Asia Pacific (Tokyo)", "APN1-TimedStorage-ByteHrs"},
	{"ap-northeast-2", "Asia Pacific (Seoul)", "APN2-TimedStorage-ByteHrs"},
	{"ap-northeast-3", "Asia Pacific (Osaka)", "APN3-TimedStorage-ByteHrs"},
	{"ap-southeast-1", "Asia Pacific (Singapore)", "APS3-TimedStorage-ByteHrs"},
	{"ap-southeast-2", "Asia Pacific (Sydney)", "APS2-TimedStorage-ByteHrs"},
	{"ca-central-1", "Canada (Central)", "CAN1-TimedStorage-ByteHrs"},
	{"sa-east-1", "South America (Sao Paulo)", "SAE1-TimedStorage-ByteHrs"},
}

// DefaultRegions returns the regions collected when none are configured.
func DefaultRegions() []Region {
	out := make([]Region, len(knownRegions))
	copy(out, knownRegions)
	return out
}

// LookupRegion returns the Price List naming for a region code.
func LookupRegion(code string) (Region, bool) {
	for _, r := range knownRegions {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// DefaultInstanceTypes are the EC2 instance types collected by default.
var DefaultInstanceTypes = []string{"t2.micro", "t2.small", "t2.medium", "t3.micro", "t3.small", "t3.medium"}

const (
	// RDSInstanceType is the database instance class collected for rds prices.
	RDSInstanceType = "db.t3.micro"
	// RDSEngine is the database engine collected for rds prices.
	RDSEngine = "MySQL"

	// PricePlaces is the number of fractional digits kept for unit prices.
	PricePlaces = 5

	DefaultConcurrency       = 4
	DefaultRequestsPerSecond = 5.0
)

// Progress reports collection progress to callers.
type Progress struct {
	Region    string
	Message   string
	Timestamp time.Time
}

// Result holds a collected table and any lookups that fell back to zero.
type Result struct {
	Table    *pricing.Table
	Warnings []string
	Lookups  int
}
