package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/awsprice"
	"github.com/ppiankov/regioncost/internal/cloud"
	"github.com/ppiankov/regioncost/internal/config"
	"github.com/ppiankov/regioncost/internal/source"
)

var refreshFlags struct {
	output        string
	profile       string
	region        string
	regions       []string
	instanceTypes []string
	concurrency   int
	rps           float64
	enabledOnly   bool
	noProgress    bool
	timeout       time.Duration
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Collect a pricing table from the AWS Price List API",
	Long: `Query the AWS Price List API for on-demand EC2 (Linux, shared tenancy), RDS
db.t3.micro MySQL Single-AZ and S3 General Purpose storage prices in each
region, and write the pricing table to a file or an s3:// URI.

Lookups that fail are recorded as 0 and reported as warnings.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVarP(&refreshFlags.output, "output", "o", defaultPricingFile, "Destination: file path or s3:// URI")
	refreshCmd.Flags().StringVar(&refreshFlags.profile, "profile", "", "AWS profile name")
	refreshCmd.Flags().StringVar(&refreshFlags.region, "region", "", "AWS region for S3 output (default: from AWS config)")
	refreshCmd.Flags().StringSliceVar(&refreshFlags.regions, "regions", nil, "Regions to collect (default: all known regions)")
	refreshCmd.Flags().StringSliceVar(&refreshFlags.instanceTypes, "instance-types", nil, "EC2 instance types (default: t2/t3 micro, small, medium)")
	refreshCmd.Flags().IntVar(&refreshFlags.concurrency, "concurrency", awsprice.DefaultConcurrency, "Regions collected in parallel")
	refreshCmd.Flags().Float64Var(&refreshFlags.rps, "rps", awsprice.DefaultRequestsPerSecond, "Price List API requests per second")
	refreshCmd.Flags().BoolVar(&refreshFlags.enabledOnly, "enabled-only", false, "Skip regions not enabled for the account (ec2:DescribeRegions)")
	refreshCmd.Flags().BoolVar(&refreshFlags.noProgress, "no-progress", false, "Disable progress output")
	refreshCmd.Flags().DurationVar(&refreshFlags.timeout, "timeout", 10*time.Minute, "Collection timeout")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	applyRefreshConfigDefaults(cfg)

	ctx, cancel := withTimeout(cmd.Context(), refreshFlags.timeout)
	defer cancel()

	client, err := cloud.NewClient(ctx, refreshFlags.profile, refreshFlags.region)
	if err != nil {
		return enhanceError("initialize AWS client", err)
	}

	regions := refreshFlags.regions
	if refreshFlags.enabledOnly {
		regions, err = enabledRegions(ctx, client, regions)
		if err != nil {
			return err
		}
	}

	collector, err := awsprice.NewCollector(client.NewPricingClient(), awsprice.Options{
		Regions:           regions,
		InstanceTypes:     refreshFlags.instanceTypes,
		Concurrency:       refreshFlags.concurrency,
		RequestsPerSecond: refreshFlags.rps,
	})
	if err != nil {
		return err
	}
	slog.Info("Collecting prices", "regions", len(collector.Regions()))

	var progressFn func(awsprice.Progress)
	if !refreshFlags.noProgress {
		progressFn = func(p awsprice.Progress) {
			_, _ = fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Region, p.Message)
		}
	}

	result, err := collector.Collect(ctx, progressFn)
	if err != nil {
		return enhanceError("collect prices", err)
	}
	for _, w := range result.Warnings {
		slog.Warn("Price missing", "detail", w)
	}

	opts := source.Options{}
	if source.IsS3(refreshFlags.output) {
		opts.S3 = client.NewS3Client()
	}
	if err := source.Publish(ctx, refreshFlags.output, result.Table, opts); err != nil {
		return enhanceError("publish pricing table", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d regions to %s (%d lookups, %d warnings)\n",
		result.Table.Len(), refreshFlags.output, result.Lookups, len(result.Warnings))
	return nil
}

func enabledRegions(ctx context.Context, client *cloud.Client, wanted []string) ([]string, error) {
	enabled, err := cloud.EnabledRegions(ctx, client.NewEC2Client())
	if err != nil {
		return nil, enhanceError("list enabled regions", err)
	}
	if len(wanted) == 0 {
		for _, r := range awsprice.DefaultRegions() {
			wanted = append(wanted, r.Code)
		}
	}
	kept := cloud.FilterEnabled(wanted, enabled)
	if len(kept) == 0 {
		return nil, fmt.Errorf("none of the requested regions are enabled for this account")
	}
	slog.Debug("Filtered regions to enabled", "requested", len(wanted), "enabled", len(kept))
	return kept, nil
}

func applyRefreshConfigDefaults(cfg config.Config) {
	if refreshFlags.output == defaultPricingFile && cfg.Collector.Output != "" {
		refreshFlags.output = cfg.Collector.Output
	}
	if refreshFlags.profile == "" {
		refreshFlags.profile = cfg.Profile
	}
	if refreshFlags.region == "" {
		refreshFlags.region = cfg.Region
	}
	if len(refreshFlags.regions) == 0 {
		refreshFlags.regions = cfg.Collector.Regions
	}
	if len(refreshFlags.instanceTypes) == 0 {
		refreshFlags.instanceTypes = cfg.Collector.InstanceTypes
	}
	if refreshFlags.concurrency == awsprice.DefaultConcurrency && cfg.Collector.Concurrency > 0 {
		refreshFlags.concurrency = cfg.Collector.Concurrency
	}
	if refreshFlags.rps == awsprice.DefaultRequestsPerSecond && cfg.Collector.RequestsPerSecond > 0 {
		refreshFlags.rps = cfg.Collector.RequestsPerSecond
	}
}
