package analyzer

import (
	"fmt"

	"github.com/ppiankov/regioncost/internal/pricing"
	"github.com/ppiankov/regioncost/internal/ranker"
)

// Analyze ranks the table for req and computes summary statistics. Regions
// lacking a price for a requested resource are reported as warnings; their
// contribution is zero.
func Analyze(table *pricing.Table, req ranker.Request, rk *ranker.Ranker, cfg AnalyzerConfig) *AnalysisResult {
	top := cfg.Top
	if top <= 0 {
		top = DefaultTop
	}

	ranked := rk.Rank(table, req)
	warnings := missingPrices(table, req)

	summary := Summary{
		RegionsRanked: len(ranked),
		MissingPrices: len(warnings),
	}
	if len(ranked) > 0 {
		first, last := ranked[0], ranked[len(ranked)-1]
		summary.Cheapest = first.Region
		summary.CheapestTotal = first.Total
		summary.MostExpensive = last.Region
		summary.MostExpensiveTotal = last.Total
		summary.Spread = last.Total.Sub(first.Total)
	}

	return &AnalysisResult{
		Ranking:  ranked,
		Top:      ranker.Top(ranked, top),
		Summary:  summary,
		Warnings: warnings,
	}
}

func missingPrices(table *pricing.Table, req ranker.Request) []string {
	var warnings []string
	table.Range(func(region string, p pricing.RegionPricing) bool {
		if req.EC2Count > 0 {
			if _, ok := p.EC2Price(req.EC2Type); !ok {
				warnings = append(warnings, fmt.Sprintf("%s: no EC2 price for %s", region, req.EC2Type))
			}
		}
		if req.S3Count > 0 && p.S3 == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: no S3 price", region))
		}
		if req.RDSCount > 0 && p.RDS == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: no RDS price", region))
		}
		return true
	})
	return warnings
}
