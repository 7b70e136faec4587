package cloud

import (
	"context"
	"testing"
)

func TestNewClientExplicitRegion(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")

	c, err := NewClient(context.Background(), "", "ap-northeast-2")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Region() != "ap-northeast-2" {
		t.Errorf("Region() = %q, want ap-northeast-2", c.Region())
	}
	if c.Config().Region != "ap-northeast-2" {
		t.Errorf("Config().Region = %q, want ap-northeast-2", c.Config().Region)
	}
	if c.NewPricingClient() == nil {
		t.Error("NewPricingClient() returned nil")
	}
	if c.NewS3Client() == nil {
		t.Error("NewS3Client() returned nil")
	}
}

func TestNewClientMissingProfile(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")

	if _, err := NewClient(context.Background(), "no-such-profile", "us-east-1"); err == nil {
		t.Error("NewClient() should fail for an unknown profile")
	}
}
