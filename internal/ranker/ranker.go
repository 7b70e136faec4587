// Package ranker orders regions by the total cost of a requested resource mix.
package ranker

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/regioncost/internal/pricing"
)

// TotalPlaces is the number of fractional digits kept in a region total.
const TotalPlaces = 4

// Request is the resource vector a ranking is computed for.
type Request struct {
	EC2Count int    `json:"ec2"`
	EC2Type  string `json:"ec2type"`
	S3Count  int    `json:"s3"`
	RDSCount int    `json:"rds"`
}

// IsZero reports whether no resources were requested.
func (r Request) IsZero() bool {
	return r.EC2Count <= 0 && r.S3Count <= 0 && r.RDSCount <= 0
}

func (r Request) normalized() Request {
	r.EC2Count = max(r.EC2Count, 0)
	r.S3Count = max(r.S3Count, 0)
	r.RDSCount = max(r.RDSCount, 0)
	return r
}

// RegionCost is the total cost of a request in one region.
type RegionCost struct {
	Region string          `json:"region"`
	Total  decimal.Decimal `json:"total"`
}

// Ranker computes per-region totals under one s3 pricing convention.
type Ranker struct {
	convention pricing.S3Convention
}

// New returns a Ranker. An empty convention selects pricing.S3Direct.
func New(convention pricing.S3Convention) *Ranker {
	if convention == "" {
		convention = pricing.S3Direct
	}
	return &Ranker{convention: convention}
}

// Convention returns the s3 convention the ranker applies.
func (r *Ranker) Convention() pricing.S3Convention {
	return r.convention
}

// Total returns the rounded cost of req against one region's prices.
func (r *Ranker) Total(p pricing.RegionPricing, req Request) decimal.Decimal {
	req = req.normalized()
	ec2, _ := p.EC2Price(req.EC2Type)
	total := ec2*float64(req.EC2Count) +
		r.convention.S3UnitPrice(p.S3)*float64(req.S3Count) +
		p.RDS*float64(req.RDSCount)
	return roundTotal(total)
}

// roundTotal rounds the exact binary value half away from zero, the same
// result fixed-point float formatting produces. Overflowed sums saturate.
func roundTotal(total float64) decimal.Decimal {
	switch {
	case math.IsNaN(total):
		return decimal.Zero
	case math.IsInf(total, 1):
		total = math.MaxFloat64
	case math.IsInf(total, -1):
		total = -math.MaxFloat64
	}
	return decimal.NewFromFloatWithExponent(total, -TotalPlaces)
}

// Rank returns one RegionCost per region in the table, cheapest first.
// Regions with equal totals keep table order. A nil or empty table yields an
// empty result.
func (r *Ranker) Rank(table *pricing.Table, req Request) []RegionCost {
	costs := make([]RegionCost, 0, table.Len())
	table.Range(func(region string, p pricing.RegionPricing) bool {
		costs = append(costs, RegionCost{Region: region, Total: r.Total(p, req)})
		return true
	})

	sort.SliceStable(costs, func(i, j int) bool {
		return costs[i].Total.LessThan(costs[j].Total)
	})
	return costs
}

// Top returns the n cheapest entries of a ranking, or all of them when the
// ranking is shorter.
func Top(ranked []RegionCost, n int) []RegionCost {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n:n]
}

// Cheapest returns the first entry of a ranking.
func Cheapest(ranked []RegionCost) (RegionCost, bool) {
	if len(ranked) == 0 {
		return RegionCost{}, false
	}
	return ranked[0], true
}

// Regions returns the region codes of a ranking in order.
func Regions(ranked []RegionCost) []string {
	out := make([]string, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.Region)
	}
	return out
}
