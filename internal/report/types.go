package report

import (
	"io"
	"time"

	"github.com/ppiankov/regioncost/internal/analyzer"
	"github.com/ppiankov/regioncost/internal/pricing"
	"github.com/ppiankov/regioncost/internal/ranker"
)

// Reporter is the interface for output formatters.
type Reporter interface {
	Generate(data Data) error
}

// Data holds all information needed to generate a report.
type Data struct {
	Tool       string               `json:"tool"`
	Version    string               `json:"version"`
	Timestamp  time.Time            `json:"timestamp"`
	Source     string               `json:"source"`
	Convention pricing.S3Convention `json:"s3_convention"`
	Request    ranker.Request       `json:"request"`
	Ranking    []ranker.RegionCost  `json:"ranking"`
	Top        []ranker.RegionCost  `json:"top"`
	Summary    analyzer.Summary     `json:"summary"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// NewData assembles report data from an analysis result.
func NewData(tool, version, source string, convention pricing.S3Convention, req ranker.Request, result *analyzer.AnalysisResult) Data {
	return Data{
		Tool:       tool,
		Version:    version,
		Timestamp:  time.Now().UTC(),
		Source:     source,
		Convention: convention,
		Request:    req,
		Ranking:    result.Ranking,
		Top:        result.Top,
		Summary:    result.Summary,
		Warnings:   result.Warnings,
	}
}

// TextReporter generates human-readable terminal output.
type TextReporter struct {
	Writer io.Writer
}

// JSONReporter generates a JSON document of the ranking.
type JSONReporter struct {
	Writer io.Writer
}
