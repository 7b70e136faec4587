package report

import (
	"encoding/json"
	"fmt"
)

type jsonRegion struct {
	Rank   int     `json:"rank"`
	Region string  `json:"region"`
	Total  float64 `json:"total"`
}

type jsonReport struct {
	Schema     string       `json:"$schema"`
	Tool       string       `json:"tool"`
	Version    string       `json:"version"`
	Timestamp  string       `json:"timestamp"`
	Source     string       `json:"source,omitempty"`
	Convention string       `json:"s3_convention"`
	Request    any          `json:"request"`
	Cheapest   *jsonRegion  `json:"cheapest,omitempty"`
	TopRegions []string     `json:"top_regions"`
	Regions    []jsonRegion `json:"regions"`
	Summary    any          `json:"summary"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// Generate writes the ranking as indented JSON. Totals are plain numbers.
func (r *JSONReporter) Generate(data Data) error {
	regions := make([]jsonRegion, 0, len(data.Ranking))
	for i, c := range data.Ranking {
		regions = append(regions, jsonRegion{Rank: i + 1, Region: c.Region, Total: c.Total.InexactFloat64()})
	}

	top := make([]string, 0, len(data.Top))
	for _, c := range data.Top {
		top = append(top, c.Region)
	}

	out := jsonReport{
		Schema:     "regioncost/v1",
		Tool:       data.Tool,
		Version:    data.Version,
		Timestamp:  data.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Source:     data.Source,
		Convention: string(data.Convention),
		Request:    data.Request,
		TopRegions: top,
		Regions:    regions,
		Summary:    data.Summary,
		Warnings:   data.Warnings,
	}
	if len(regions) > 0 {
		out.Cheapest = &regions[0]
	}

	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}
