package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate sample config and IAM policy",
	Long:  `Creates a sample .regioncost.yaml config file and an IAM policy for collecting prices and reading or publishing pricing tables in S3.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files")
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath := ".regioncost.yaml"
	policyPath := "regioncost-policy.json"

	if err := writeIfNotExists(configPath, sampleConfig, initFlags.force); err != nil {
		return err
	}
	if err := writeIfNotExists(policyPath, sampleIAMPolicy, initFlags.force); err != nil {
		return err
	}

	fmt.Printf("Created %s and %s\n", configPath, policyPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit .regioncost.yaml to set the pricing source and store")
	fmt.Println("  2. Apply regioncost-policy.json to the IAM role/user that runs refresh")
	fmt.Println("  3. Run: regioncost refresh")
	fmt.Println("  4. Run: regioncost rank --ec2 2 --ec2-type t3.micro --s3 10 --rds 1")
	return nil
}

func writeIfNotExists(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Skipping %s (already exists, use --force to overwrite)\n", path)
			return nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, []byte(content), 0o644)
}

const sampleConfig = `# regioncost configuration

# Pricing table: file path, http(s) URL, or s3://bucket/key
pricing_source: aws_price_data.json

# S3 price convention: direct (price per unit as published) or
# hourly-per-tb (price / 730 hours * 1024 GB)
s3_convention: direct

# Number of cheapest regions to highlight
top: 3

# Output format: text or json
format: text

# Pricing fetch timeout
timeout: 30s

# AWS profile and region (or set AWS_PROFILE / AWS_REGION)
# profile: default
# region: ap-northeast-2

# Where ranking inputs and final selections are saved.
# file: one JSON file per record in every listed directory
# sqlite: a single database file
store:
  driver: file
  paths:
    - ./records

# HTTP API
server:
  addr: ":8080"

# Final selections are forwarded here (200 or 202 means delivered)
# webhook:
#   url: https://build.example.com/hooks/deploy
#   retries: 3

# regioncost refresh
collector:
  output: aws_price_data.json
  concurrency: 4
  requests_per_second: 5
  # regions:
  #   - us-east-1
  #   - ap-northeast-2
  # instance_types:
  #   - t3.micro
`

const sampleIAMPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "RegionCostPriceList",
      "Effect": "Allow",
      "Action": [
        "pricing:GetProducts",
        "pricing:DescribeServices",
        "pricing:GetAttributeValues"
      ],
      "Resource": "*"
    },
    {
      "Sid": "RegionCostEnabledRegions",
      "Effect": "Allow",
      "Action": [
        "ec2:DescribeRegions"
      ],
      "Resource": "*"
    },
    {
      "Sid": "RegionCostPricingTable",
      "Effect": "Allow",
      "Action": [
        "s3:GetObject",
        "s3:PutObject"
      ],
      "Resource": "arn:aws:s3:::YOUR-BUCKET/*"
    }
  ]
}
`
