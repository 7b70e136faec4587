package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds regioncost configuration loaded from .regioncost.yaml.
type Config struct {
	PricingSource string    `yaml:"pricing_source"`
	S3Convention  string    `yaml:"s3_convention"`
	Top           int       `yaml:"top"`
	Format        string    `yaml:"format"`
	Timeout       string    `yaml:"timeout"`
	Profile       string    `yaml:"profile"`
	Region        string    `yaml:"region"`
	Store         Store     `yaml:"store"`
	Server        Server    `yaml:"server"`
	Webhook       Webhook   `yaml:"webhook"`
	Collector     Collector `yaml:"collector"`
}

// Store selects the persistence sink for saved selections.
type Store struct {
	Driver string   `yaml:"driver"`
	Paths  []string `yaml:"paths"`
}

// Server configures `regioncost serve`.
type Server struct {
	Addr string `yaml:"addr"`
}

// Webhook configures delivery of final selections.
type Webhook struct {
	URL     string `yaml:"url"`
	Retries int    `yaml:"retries"`
}

// Collector configures `regioncost refresh`.
type Collector struct {
	Regions           []string `yaml:"regions"`
	InstanceTypes     []string `yaml:"instance_types"`
	Concurrency       int      `yaml:"concurrency"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Output            string   `yaml:"output"`
}

// TimeoutDuration parses the timeout string as a duration.
func (c Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// StoreDriver returns the configured store driver, defaulting to file.
func (c Config) StoreDriver() string {
	if c.Store.Driver == "" {
		return "file"
	}
	return c.Store.Driver
}

// StorePaths returns the store locations: directories for the file driver, a
// database path for sqlite.
func (c Config) StorePaths() []string {
	if len(c.Store.Paths) > 0 {
		return c.Store.Paths
	}
	if c.StoreDriver() == "sqlite" {
		return []string{"regioncost.db"}
	}
	return []string{"."}
}

// Load searches for .regioncost.yaml or .regioncost.yml in the given directory
// and returns the parsed config. Returns an empty Config if no file is found.
func Load(dir string) (Config, error) {
	candidates := []string{
		filepath.Join(dir, ".regioncost.yaml"),
		filepath.Join(dir, ".regioncost.yml"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}
