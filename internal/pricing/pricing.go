package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// RegionPricing holds the unit prices published for one region.
// Absent fields decode as zero and contribute nothing to a total.
type RegionPricing struct {
	EC2 map[string]float64 `json:"ec2,omitempty"`
	S3  float64            `json:"s3"`
	RDS float64            `json:"rds"`
}

// EC2Price returns the hourly price for an instance type, or 0 if the region
// does not list it.
func (p RegionPricing) EC2Price(instanceType string) (float64, bool) {
	price, ok := p.EC2[instanceType]
	return price, ok
}

// Table maps region codes to pricing records and remembers the order in which
// regions were added. JSON decoding preserves document order.
type Table struct {
	regions []string
	prices  map[string]RegionPricing
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{prices: make(map[string]RegionPricing)}
}

// Set adds or replaces a region. A replaced region keeps its original position.
func (t *Table) Set(region string, p RegionPricing) {
	if t.prices == nil {
		t.prices = make(map[string]RegionPricing)
	}
	if _, exists := t.prices[region]; !exists {
		t.regions = append(t.regions, region)
	}
	t.prices[region] = p
}

// Get returns the pricing for a region.
func (t *Table) Get(region string) (RegionPricing, bool) {
	if t == nil {
		return RegionPricing{}, false
	}
	p, ok := t.prices[region]
	return p, ok
}

// Regions returns region codes in table order.
func (t *Table) Regions() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.regions))
	copy(out, t.regions)
	return out
}

// Len returns the number of regions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.regions)
}

// Range calls fn for each region in table order until fn returns false.
func (t *Table) Range(fn func(region string, p RegionPricing) bool) {
	if t == nil {
		return
	}
	for _, r := range t.regions {
		if !fn(r, t.prices[r]) {
			return
		}
	}
}

// UnmarshalJSON decodes a JSON object of region records in document order.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return &DataError{Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return &DataError{Err: fmt.Errorf("expected a JSON object of regions, got %v", describeToken(tok))}
	}

	table := NewTable()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return &DataError{Err: err}
		}
		region, ok := tok.(string)
		if !ok {
			return &DataError{Err: fmt.Errorf("unexpected token %v", tok)}
		}

		var p RegionPricing
		if err := dec.Decode(&p); err != nil {
			return &DataError{Region: region, Err: err}
		}
		table.Set(region, p)
	}

	if _, err := dec.Token(); err != nil {
		return &DataError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &DataError{Err: errors.New("trailing data after pricing object")}
	}

	*t = *table
	return nil
}

// MarshalJSON encodes the table as a JSON object in table order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range t.regions {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.prices[r])
		if err != nil {
			return nil, fmt.Errorf("encode region %s: %w", r, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a pricing document. Malformed payloads yield a *DataError.
func Parse(data []byte) (*Table, error) {
	t := NewTable()
	if err := json.Unmarshal(data, t); err != nil {
		var de *DataError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DataError{Err: err}
	}
	return t, nil
}

// DataError reports a pricing payload that is not a well-formed table.
type DataError struct {
	Region string
	Err    error
}

func (e *DataError) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("malformed pricing data for region %s: %v", e.Region, e.Err)
	}
	return fmt.Sprintf("malformed pricing data: %v", e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case nil:
		return "null"
	case json.Delim:
		return "'" + v.String() + "'"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
