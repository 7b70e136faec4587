package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/analyzer"
	"github.com/ppiankov/regioncost/internal/config"
	"github.com/ppiankov/regioncost/internal/pricing"
	"github.com/ppiankov/regioncost/internal/ranker"
	"github.com/ppiankov/regioncost/internal/server"
	"github.com/ppiankov/regioncost/internal/source"
)

const defaultAddr = ":8080"

var serveFlags struct {
	addr           string
	source         string
	convention     string
	top            int
	timeout        time.Duration
	profile        string
	region         string
	webhookURL     string
	webhookRetries int
	store          storeFlags
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking and persistence API over HTTP",
	Long: `Start an HTTP server exposing:

  POST /rank     rank regions for {id, ec2, ec2type, s3, rds} and save the input
  POST /save     save a ranking input, or a final selection when selectedRegion is set
  POST /final    save a final selection {id, selectedRegion, githubUrl, accessKey}
  GET  /health   liveness
  GET  /metrics  Prometheus metrics

The pricing table is fetched from the source on every ranking request.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", defaultAddr, "Listen address")
	serveCmd.Flags().StringVar(&serveFlags.source, "source", defaultPricingFile, "Pricing table: file path, http(s) URL, or s3:// URI")
	serveCmd.Flags().StringVar(&serveFlags.convention, "s3-convention", string(pricing.S3Direct), "S3 price convention: direct or hourly-per-tb")
	serveCmd.Flags().IntVar(&serveFlags.top, "top", analyzer.DefaultTop, "Number of cheapest regions returned as top")
	serveCmd.Flags().DurationVar(&serveFlags.timeout, "timeout", 30*time.Second, "Pricing fetch timeout")
	serveCmd.Flags().StringVar(&serveFlags.profile, "profile", "", "AWS profile for s3:// sources")
	serveCmd.Flags().StringVar(&serveFlags.region, "region", "", "AWS region for s3:// sources")
	serveCmd.Flags().StringVar(&serveFlags.webhookURL, "webhook-url", "", "Forward final selections to this URL")
	serveCmd.Flags().IntVar(&serveFlags.webhookRetries, "webhook-retries", 0, "Webhook retry attempts (default 3, negative disables)")
	serveCmd.Flags().StringVar(&serveFlags.store.driver, "store", "", "Store driver: file or sqlite")
	serveCmd.Flags().StringSliceVar(&serveFlags.store.paths, "store-path", nil, "Store directories (file) or database path (sqlite)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	applyServeConfigDefaults(cfg)

	conv, err := pricing.ParseS3Convention(serveFlags.convention)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := sourceOptions(ctx, serveFlags.source, serveFlags.profile, serveFlags.region, serveFlags.timeout)
	if err != nil {
		return err
	}
	src, err := source.New(serveFlags.source, opts)
	if err != nil {
		return err
	}

	st, err := serveFlags.store.open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	srvCfg := server.Config{
		Source:  src,
		Ranker:  ranker.New(conv),
		Store:   st,
		Top:     serveFlags.top,
		Version: version,
	}
	wh, err := newNotifier(serveFlags.webhookURL, serveFlags.webhookRetries)
	if err != nil {
		return err
	}
	if wh != nil {
		srvCfg.Notifier = wh
		slog.Info("Forwarding selections", "webhook", wh.URL())
	}

	if err := server.New(srvCfg).Run(ctx, serveFlags.addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func applyServeConfigDefaults(cfg config.Config) {
	if serveFlags.addr == defaultAddr && cfg.Server.Addr != "" {
		serveFlags.addr = cfg.Server.Addr
	}
	if serveFlags.source == defaultPricingFile && cfg.PricingSource != "" {
		serveFlags.source = cfg.PricingSource
	}
	if serveFlags.convention == string(pricing.S3Direct) && cfg.S3Convention != "" {
		serveFlags.convention = cfg.S3Convention
	}
	if serveFlags.top == analyzer.DefaultTop && cfg.Top > 0 {
		serveFlags.top = cfg.Top
	}
	if serveFlags.timeout == 30*time.Second && cfg.TimeoutDuration() > 0 {
		serveFlags.timeout = cfg.TimeoutDuration()
	}
	if serveFlags.profile == "" {
		serveFlags.profile = cfg.Profile
	}
	if serveFlags.region == "" {
		serveFlags.region = cfg.Region
	}
	if serveFlags.webhookURL == "" {
		serveFlags.webhookURL = cfg.Webhook.URL
	}
	if serveFlags.webhookRetries == 0 && cfg.Webhook.Retries != 0 {
		serveFlags.webhookRetries = cfg.Webhook.Retries
	}
}
