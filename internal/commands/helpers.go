package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/regioncost/internal/cloud"
	"github.com/ppiankov/regioncost/internal/config"
	"github.com/ppiankov/regioncost/internal/notify"
	"github.com/ppiankov/regioncost/internal/report"
	"github.com/ppiankov/regioncost/internal/source"
	"github.com/ppiankov/regioncost/internal/store"
)

const defaultPricingFile = "aws_price_data.json"

// enhanceError wraps an error with context and suggestions for common issues.
func enhanceError(action string, err error) error {
	msg := err.Error()

	var hint string
	switch {
	case strings.Contains(msg, "NoCredentialProviders") || strings.Contains(msg, "failed to retrieve credentials"):
		hint = "Configure AWS credentials: set AWS_PROFILE, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or run 'aws configure'"
	case strings.Contains(msg, "ExpiredToken"):
		hint = "AWS session token expired. Refresh credentials or run 'aws sso login'"
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnauthorizedAccess"):
		hint = "Insufficient permissions. Apply the IAM policy from 'regioncost init' to your role/user"
	case strings.Contains(msg, "RequestExpired"):
		hint = "Request expired. Check system clock synchronization"
	case strings.Contains(msg, "Throttling"):
		hint = "API rate limit hit. Lower --rps or --concurrency and retry"
	case strings.Contains(msg, "malformed pricing data"):
		hint = "The pricing source must be a JSON object of regions. Regenerate it with 'regioncost refresh'"
	case strings.Contains(msg, "no such file or directory"):
		hint = "Generate a pricing table with 'regioncost refresh' or pass --source"
	}

	if hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// selectReporter returns the reporter and a close func for its output.
func selectReporter(format, outputFile string) (report.Reporter, func() error, error) {
	var newReporter func(io.Writer) report.Reporter
	switch format {
	case "json":
		newReporter = func(w io.Writer) report.Reporter { return &report.JSONReporter{Writer: w} }
	case "text":
		newReporter = func(w io.Writer) report.Reporter { return &report.TextReporter{Writer: w} }
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s (use text or json)", format)
	}

	if outputFile == "" {
		return newReporter(os.Stdout), func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return newReporter(f), f.Close, nil
}

func loadConfig() config.Config {
	cfg, err := config.Load(".")
	if err != nil {
		slog.Warn("Failed to load config file", "error", err)
	}
	return cfg
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// sourceOptions builds an S3 client only when the location needs one.
func sourceOptions(ctx context.Context, location, profile, region string, timeout time.Duration) (source.Options, error) {
	opts := source.Options{Timeout: timeout, Retries: 2}
	if !source.IsS3(location) {
		return opts, nil
	}
	client, err := cloud.NewClient(ctx, profile, region)
	if err != nil {
		return opts, enhanceError("initialize AWS client", err)
	}
	opts.S3 = client.NewS3Client()
	return opts, nil
}

// storeFlags are shared by commands that read or write saved records.
type storeFlags struct {
	driver string
	paths  []string
}

func (f *storeFlags) resolve(cfg config.Config) (string, []string) {
	driver := f.driver
	if driver == "" {
		driver = cfg.StoreDriver()
	}
	paths := f.paths
	if len(paths) == 0 {
		if f.driver != "" && f.driver != cfg.StoreDriver() {
			paths = config.Config{Store: config.Store{Driver: driver}}.StorePaths()
		} else {
			paths = cfg.StorePaths()
		}
	}
	return driver, paths
}

func (f *storeFlags) open(cfg config.Config) (store.Store, error) {
	driver, paths := f.resolve(cfg)
	s, err := store.Open(driver, paths)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Debug("Opened store", "driver", driver, "paths", paths)
	return s, nil
}

func newNotifier(url string, retries int) (*notify.Webhook, error) {
	if url == "" {
		return nil, nil
	}
	wh, err := notify.NewWebhook(url, notify.Options{Retries: retries})
	if err != nil {
		return nil, fmt.Errorf("configure webhook: %w", err)
	}
	return wh, nil
}
