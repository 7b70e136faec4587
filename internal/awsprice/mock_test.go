package awsprice

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspricing "github.com/aws/aws-sdk-go-v2/service/pricing"
)

// mockPricingClient implements PricingAPI for testing. Products are keyed by
// service code and location plus the instance type or usage type.
type mockPricingClient struct {
	mu       sync.Mutex
	products map[string]string
	errs     map[string]error
	calls    int
	inputs   []*awspricing.GetProductsInput
}

func newMockPricingClient() *mockPricingClient {
	return &mockPricingClient{
		products: make(map[string]string),
		errs:     make(map[string]error),
	}
}

func productKey(service, location, item string) string {
	return service + "|" + location + "|" + item
}

func productDoc(usd string) string {
	return fmt.Sprintf(`{"product":{"sku":"ABC"},"terms":{"OnDemand":{"ABC.JRTCKXETXF":{"priceDimensions":{"ABC.JRTCKXETXF.6YS6EN2CT7":{"unit":"Hrs","beginRange":"0","endRange":"Inf","pricePerUnit":{"USD":%q}}}}}}}`, usd)
}

func (m *mockPricingClient) set(service, location, item, usd string) {
	m.products[productKey(service, location, item)] = productDoc(usd)
}

func (m *mockPricingClient) GetProducts(_ context.Context, input *awspricing.GetProductsInput, _ ...func(*awspricing.Options)) (*awspricing.GetProductsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, input)

	fields := make(map[string]string)
	for _, f := range input.Filters {
		fields[aws.ToString(f.Field)] = aws.ToString(f.Value)
	}
	item := fields["instanceType"]
	if item == "" {
		item = fields["usagetype"]
	}
	key := productKey(aws.ToString(input.ServiceCode), fields["location"], item)

	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	doc, ok := m.products[key]
	if !ok {
		return &awspricing.GetProductsOutput{}, nil
	}
	return &awspricing.GetProductsOutput{PriceList: []string{doc}}, nil
}
