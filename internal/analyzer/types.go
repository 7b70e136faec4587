package analyzer

import (
	"github.com/shopspring/decimal"

	"github.com/ppiankov/regioncost/internal/ranker"
)

// DefaultTop is the number of cheapest regions reported when no count is set.
const DefaultTop = 3

// Summary holds aggregated statistics about a ranking.
type Summary struct {
	RegionsRanked      int             `json:"regions_ranked"`
	Cheapest           string          `json:"cheapest,omitempty"`
	CheapestTotal      decimal.Decimal `json:"cheapest_total"`
	MostExpensive      string          `json:"most_expensive,omitempty"`
	MostExpensiveTotal decimal.Decimal `json:"most_expensive_total"`
	Spread             decimal.Decimal `json:"spread"`
	MissingPrices      int             `json:"missing_prices"`
}

// AnalysisResult holds the full ranking, its top entries and a summary.
type AnalysisResult struct {
	Ranking  []ranker.RegionCost `json:"ranking"`
	Top      []ranker.RegionCost `json:"top"`
	Summary  Summary             `json:"summary"`
	Warnings []string            `json:"warnings,omitempty"`
}

// AnalyzerConfig controls analysis behavior.
type AnalyzerConfig struct {
	Top int
}
