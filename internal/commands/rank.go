package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/analyzer"
	"github.com/ppiankov/regioncost/internal/config"
	"github.com/ppiankov/regioncost/internal/pricing"
	"github.com/ppiankov/regioncost/internal/ranker"
	"github.com/ppiankov/regioncost/internal/report"
	"github.com/ppiankov/regioncost/internal/source"
	"github.com/ppiankov/regioncost/internal/store"
)

const sampleSource = "built-in sample"

var rankFlags struct {
	source     string
	sample     bool
	ec2        int
	ec2Type    string
	s3         int
	rds        int
	convention string
	top        int
	format     string
	outputFile string
	timeout    time.Duration
	profile    string
	region     string
	save       bool
	id         string
	store      storeFlags
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank regions by the cost of a resource mix",
	Long: `Compute the total hourly cost of the requested EC2, S3 and RDS counts in every
region of the pricing table and list regions from cheapest to most expensive.

The pricing source may be a local file, an http(s) URL, or an s3://bucket/key URI.`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVar(&rankFlags.source, "source", defaultPricingFile, "Pricing table: file path, http(s) URL, or s3:// URI")
	rankCmd.Flags().BoolVar(&rankFlags.sample, "sample", false, "Use the built-in sample pricing table")
	rankCmd.Flags().IntVar(&rankFlags.ec2, "ec2", 0, "Number of EC2 instances")
	rankCmd.Flags().StringVar(&rankFlags.ec2Type, "ec2-type", "t2.micro", "EC2 instance type")
	rankCmd.Flags().IntVar(&rankFlags.s3, "s3", 0, "Number of S3 storage units")
	rankCmd.Flags().IntVar(&rankFlags.rds, "rds", 0, "Number of RDS instances")
	rankCmd.Flags().StringVar(&rankFlags.convention, "s3-convention", string(pricing.S3Direct), "S3 price convention: direct or hourly-per-tb")
	rankCmd.Flags().IntVar(&rankFlags.top, "top", analyzer.DefaultTop, "Number of cheapest regions to highlight")
	rankCmd.Flags().StringVar(&rankFlags.format, "format", "text", "Output format: text or json")
	rankCmd.Flags().StringVarP(&rankFlags.outputFile, "output", "o", "", "Output file path (default: stdout)")
	rankCmd.Flags().DurationVar(&rankFlags.timeout, "timeout", 30*time.Second, "Pricing fetch timeout")
	rankCmd.Flags().StringVar(&rankFlags.profile, "profile", "", "AWS profile for s3:// sources")
	rankCmd.Flags().StringVar(&rankFlags.region, "region", "", "AWS region for s3:// sources")
	rankCmd.Flags().BoolVar(&rankFlags.save, "save", false, "Persist the request and its top regions to the store")
	rankCmd.Flags().StringVar(&rankFlags.id, "id", "", "User id recorded with --save (default: anonymous)")
	rankCmd.Flags().StringVar(&rankFlags.store.driver, "store", "", "Store driver: file or sqlite")
	rankCmd.Flags().StringSliceVar(&rankFlags.store.paths, "store-path", nil, "Store directories (file) or database path (sqlite)")
}

func runRank(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	applyRankConfigDefaults(cfg)

	conv, err := pricing.ParseS3Convention(rankFlags.convention)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), rankFlags.timeout)
	defer cancel()

	var (
		table    *pricing.Table
		location = rankFlags.source
	)
	if rankFlags.sample {
		table = pricing.SampleTable()
		location = sampleSource
	} else {
		opts, err := sourceOptions(ctx, location, rankFlags.profile, rankFlags.region, rankFlags.timeout)
		if err != nil {
			return err
		}
		src, err := source.New(location, opts)
		if err != nil {
			return err
		}
		table, err = src.Fetch(ctx)
		if err != nil {
			return enhanceError("fetch pricing", err)
		}
	}
	slog.Debug("Loaded pricing table", "source", location, "regions", table.Len())

	req := ranker.Request{
		EC2Count: rankFlags.ec2,
		EC2Type:  rankFlags.ec2Type,
		S3Count:  rankFlags.s3,
		RDSCount: rankFlags.rds,
	}
	rk := ranker.New(conv)
	result := analyzer.Analyze(table, req, rk, analyzer.AnalyzerConfig{Top: rankFlags.top})

	if rankFlags.save {
		if err := saveRankInput(ctx, cfg, req, result); err != nil {
			return err
		}
	}

	reporter, closeOutput, err := selectReporter(rankFlags.format, rankFlags.outputFile)
	if err != nil {
		return err
	}
	if err := reporter.Generate(report.NewData("regioncost", version, location, conv, req, result)); err != nil {
		_ = closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

func saveRankInput(ctx context.Context, cfg config.Config, req ranker.Request, result *analyzer.AnalysisResult) error {
	s, err := rankFlags.store.open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ref, err := s.SaveInput(ctx, store.InputRecord{
		ID:         rankFlags.id,
		EC2:        max(req.EC2Count, 0),
		EC2Type:    req.EC2Type,
		S3:         max(req.S3Count, 0),
		RDS:        max(req.RDSCount, 0),
		Top3Region: ranker.Regions(ranker.Top(result.Ranking, analyzer.DefaultTop)),
	})
	if err != nil {
		return fmt.Errorf("save input: %w", err)
	}
	slog.Info("Saved ranking input", "ref", ref)
	return nil
}

func applyRankConfigDefaults(cfg config.Config) {
	if rankFlags.source == defaultPricingFile && cfg.PricingSource != "" {
		rankFlags.source = cfg.PricingSource
	}
	if rankFlags.convention == string(pricing.S3Direct) && cfg.S3Convention != "" {
		rankFlags.convention = cfg.S3Convention
	}
	if rankFlags.top == analyzer.DefaultTop && cfg.Top > 0 {
		rankFlags.top = cfg.Top
	}
	if rankFlags.format == "text" && cfg.Format != "" {
		rankFlags.format = cfg.Format
	}
	if rankFlags.timeout == 30*time.Second && cfg.TimeoutDuration() > 0 {
		rankFlags.timeout = cfg.TimeoutDuration()
	}
	if rankFlags.profile == "" {
		rankFlags.profile = cfg.Profile
	}
	if rankFlags.region == "" {
		rankFlags.region = cfg.Region
	}
}
