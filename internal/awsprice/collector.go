package awsprice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspricing "github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ppiankov/regioncost/internal/pricing"
)

// PricingAPI is the subset of the Price List client used by the collector.
type PricingAPI interface {
	GetProducts(ctx context.Context, params *awspricing.GetProductsInput, optFns ...func(*awspricing.Options)) (*awspricing.GetProductsOutput, error)
}

// Options configures a Collector. Zero values select the defaults.
type Options struct {
	Regions           []string
	InstanceTypes     []string
	Concurrency       int
	RequestsPerSecond float64
}

// Collector queries the Price List API and assembles a pricing table.
type Collector struct {
	client        PricingAPI
	regions       []Region
	instanceTypes []string
	concurrency   int
	limiter       *rate.Limiter
	now           func() time.Time
}

// NewCollector validates options and returns a collector.
func NewCollector(client PricingAPI, opts Options) (*Collector, error) {
	regions := DefaultRegions()
	if len(opts.Regions) > 0 {
		regions = regions[:0:0]
		for _, code := range opts.Regions {
			r, ok := LookupRegion(code)
			if !ok {
				return nil, fmt.Errorf("unknown region %q: no Price List location", code)
			}
			regions = append(regions, r)
		}
	}

	types := opts.InstanceTypes
	if len(types) == 0 {
		types = DefaultInstanceTypes
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &Collector{
		client:        client,
		regions:       regions,
		instanceTypes: append([]string(nil), types...),
		concurrency:   concurrency,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		now:           time.Now,
	}, nil
}

// Regions returns the region codes the collector will query, in order.
func (c *Collector) Regions() []string {
	out := make([]string, len(c.regions))
	for i, r := range c.regions {
		out[i] = r.Code
	}
	return out
}

type regionResult struct {
	prices   pricing.RegionPricing
	warnings []string
	lookups  int
}

// Collect queries every configured region. Failed lookups record a zero price
// and a warning; only context cancellation aborts collection. progress may be
// nil and is never called concurrently.
func (c *Collector) Collect(ctx context.Context, progress func(Progress)) (*Result, error) {
	results := make([]regionResult, len(c.regions))

	var mu sync.Mutex
	report := func(region, msg string) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		progress(Progress{Region: region, Message: msg, Timestamp: c.now()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, region := range c.regions {
		g.Go(func() error {
			report(region.Code, fmt.Sprintf("Collecting prices for %s", region.Location))
			res, err := c.collectRegion(gctx, region)
			if err != nil {
				return fmt.Errorf("collect %s: %w", region.Code, err)
			}
			results[i] = res
			report(region.Code, fmt.Sprintf("Collected %d lookups, %d warnings", res.lookups, len(res.warnings)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Table: pricing.NewTable()}
	for i, region := range c.regions {
		out.Table.Set(region.Code, results[i].prices)
		out.Warnings = append(out.Warnings, results[i].warnings...)
		out.Lookups += results[i].lookups
	}
	return out, nil
}

func (c *Collector) collectRegion(ctx context.Context, region Region) (regionResult, error) {
	var res regionResult
	res.prices.EC2 = make(map[string]float64, len(c.instanceTypes))

	lookup := func(what, serviceCode string, filters map[string]string) (float64, error) {
		res.lookups++
		price, err := c.getPrice(ctx, serviceCode, filters)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			slog.Warn("Price lookup failed", "region", region.Code, "item", what, "error", err)
			res.warnings = append(res.warnings, fmt.Sprintf("%s: %s: %v", region.Code, what, err))
			return 0, nil
		}
		return price, nil
	}

	for _, it := range c.instanceTypes {
		price, err := lookup("ec2 "+it, "AmazonEC2", map[string]string{
			"instanceType":    it,
			"location":        region.Location,
			"operatingSystem": "Linux",
			"tenancy":         "Shared",
			"capacitystatus":  "Used",
			"preInstalledSw":  "NA",
		})
		if err != nil {
			return res, err
		}
		res.prices.EC2[it] = price
	}

	price, err := lookup("rds "+RDSInstanceType, "AmazonRDS", map[string]string{
		"location":         region.Location,
		"instanceType":     RDSInstanceType,
		"databaseEngine":   RDSEngine,
		"productFamily":    "Database Instance",
		"deploymentOption": "Single-AZ",
	})
	if err != nil {
		return res, err
	}
	res.prices.RDS = price

	if region.S3UsageType == "" {
		res.warnings = append(res.warnings, fmt.Sprintf("%s: s3: no usage type known for region", region.Code))
		return res, nil
	}
	price, err = lookup("s3", "AmazonS3", map[string]string{
		"location":      region.Location,
		"productFamily": "Storage",
		"storageClass":  "General Purpose",
		"usagetype":     region.S3UsageType,
	})
	if err != nil {
		return res, err
	}
	res.prices.S3 = price

	return res, nil
}

var errNoProducts = errors.New("no matching products")

func (c *Collector) getPrice(ctx context.Context, serviceCode string, filters map[string]string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	input := &awspricing.GetProductsInput{
		ServiceCode:   aws.String(serviceCode),
		FormatVersion: aws.String("aws_v1"),
		MaxResults:    aws.Int32(1),
	}
	for _, f := range fields {
		input.Filters = append(input.Filters, pricingtypes.Filter{
			Field: aws.String(f),
			Type:  pricingtypes.FilterTypeTermMatch,
			Value: aws.String(filters[f]),
		})
	}

	out, err := c.client.GetProducts(ctx, input)
	if err != nil {
		return 0, err
	}
	if len(out.PriceList) == 0 {
		return 0, errNoProducts
	}
	return OnDemandUSD(out.PriceList[0])
}

type product struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				BeginRange   string            `json:"beginRange"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// OnDemandUSD extracts the OnDemand USD unit price from a Price List product
// document, rounded to PricePlaces. When several terms or dimensions exist,
// the first tier (beginRange 0) of the lexically smallest key is used.
func OnDemandUSD(doc string) (float64, error) {
	var p product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return 0, fmt.Errorf("decode product: %w", err)
	}
	if len(p.Terms.OnDemand) == 0 {
		return 0, errors.New("product has no OnDemand terms")
	}

	term := p.Terms.OnDemand[firstKey(p.Terms.OnDemand)]
	if len(term.PriceDimensions) == 0 {
		return 0, errors.New("OnDemand term has no price dimensions")
	}

	keys := sortedKeys(term.PriceDimensions)
	chosen := keys[0]
	for _, k := range keys {
		if br := term.PriceDimensions[k].BeginRange; br == "" || br == "0" {
			chosen = k
			break
		}
	}

	usd, ok := term.PriceDimensions[chosen].PricePerUnit["USD"]
	if !ok {
		return 0, errors.New("price dimension has no USD price")
	}
	d, err := decimal.NewFromString(usd)
	if err != nil {
		return 0, fmt.Errorf("parse USD price %q: %w", usd, err)
	}
	return d.Round(PricePlaces).InexactFloat64(), nil
}

func firstKey[V any](m map[string]V) string {
	return sortedKeys(m)[0]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
