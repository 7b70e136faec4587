package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	content := `pricing_source: s3://pricing-bucket/aws_price_data.json
s3_convention: hourly-per-tb
top: 5
format: json
timeout: 45s
profile: dev
region: ap-northeast-2
store:
  driver: sqlite
  paths:
    - /var/lib/regioncost/selections.db
server:
  addr: ":5000"
webhook:
  url: http://build.internal:8081/build-project
  retries: 2
collector:
  regions:
    - us-east-1
    - ap-northeast-2
  instance_types:
    - t3.micro
  concurrency: 2
  requests_per_second: 4.5
  output: aws_price_data.json
`
	if err := os.WriteFile(filepath.Join(dir, ".regioncost.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.PricingSource != "s3://pricing-bucket/aws_price_data.json" {
		t.Errorf("PricingSource = %q", cfg.PricingSource)
	}
	if cfg.S3Convention != "hourly-per-tb" {
		t.Errorf("S3Convention = %q, want hourly-per-tb", cfg.S3Convention)
	}
	if cfg.Top != 5 {
		t.Errorf("Top = %d, want 5", cfg.Top)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Profile != "dev" || cfg.Region != "ap-northeast-2" {
		t.Errorf("Profile/Region = %q/%q", cfg.Profile, cfg.Region)
	}
	if cfg.StoreDriver() != "sqlite" {
		t.Errorf("StoreDriver() = %q, want sqlite", cfg.StoreDriver())
	}
	if !reflect.DeepEqual(cfg.StorePaths(), []string{"/var/lib/regioncost/selections.db"}) {
		t.Errorf("StorePaths() = %v", cfg.StorePaths())
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("Server.Addr = %q, want :5000", cfg.Server.Addr)
	}
	if cfg.Webhook.URL == "" || cfg.Webhook.Retries != 2 {
		t.Errorf("Webhook = %+v", cfg.Webhook)
	}
	if len(cfg.Collector.Regions) != 2 || len(cfg.Collector.InstanceTypes) != 1 {
		t.Errorf("Collector = %+v", cfg.Collector)
	}
	if cfg.Collector.Concurrency != 2 || cfg.Collector.RequestsPerSecond != 4.5 {
		t.Errorf("Collector limits = %d/%f", cfg.Collector.Concurrency, cfg.Collector.RequestsPerSecond)
	}
	if cfg.TimeoutDuration() != 45*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 45s", cfg.TimeoutDuration())
	}
}

func TestLoadYML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".regioncost.yml"), []byte("top: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Top != 7 {
		t.Errorf("Top = %d, want 7", cfg.Top)
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PricingSource != "" {
		t.Errorf("PricingSource = %q, want empty", cfg.PricingSource)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".regioncost.yaml"), []byte(":::invalid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() should error on invalid YAML")
	}
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		timeout string
		want    time.Duration
	}{
		{"5m", 5 * time.Minute},
		{"30s", 30 * time.Second},
		{"", 0},
		{"invalid", 0},
	}
	for _, tt := range tests {
		cfg := Config{Timeout: tt.timeout}
		if got := cfg.TimeoutDuration(); got != tt.want {
			t.Errorf("TimeoutDuration(%q) = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}

func TestStoreDefaults(t *testing.T) {
	tests := []struct {
		store      Store
		wantDriver string
		wantPaths  []string
	}{
		{Store{}, "file", []string{"."}},
		{Store{Driver: "sqlite"}, "sqlite", []string{"regioncost.db"}},
		{Store{Paths: []string{"a", "b"}}, "file", []string{"a", "b"}},
	}
	for _, tt := range tests {
		cfg := Config{Store: tt.store}
		if got := cfg.StoreDriver(); got != tt.wantDriver {
			t.Errorf("StoreDriver(%+v) = %q, want %q", tt.store, got, tt.wantDriver)
		}
		if got := cfg.StorePaths(); !reflect.DeepEqual(got, tt.wantPaths) {
			t.Errorf("StorePaths(%+v) = %v, want %v", tt.store, got, tt.wantPaths)
		}
	}
}
