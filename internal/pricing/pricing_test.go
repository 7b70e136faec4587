package pricing

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0000001
}

func TestParsePreservesDocumentOrder(t *testing.T) {
	doc := `{
  "us-west-2": {"ec2": {"t2.micro": 0.0116}, "s3": 0.023, "rds": 0.017},
  "ap-northeast-2": {"ec2": {"t2.micro": 0.0144}, "s3": 0.025, "rds": 0.026},
  "ca-central-1": {"s3": 0.025},
  "us-east-1": {}
}`
	table, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []string{"us-west-2", "ap-northeast-2", "ca-central-1", "us-east-1"}
	if got := table.Regions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Regions() = %v, want %v", got, want)
	}
	if table.Len() != 4 {
		t.Errorf("Len() = %d, want 4", table.Len())
	}

	p, ok := table.Get("ap-northeast-2")
	if !ok {
		t.Fatal("ap-northeast-2 missing")
	}
	if price, _ := p.EC2Price("t2.micro"); !almostEqual(price, 0.0144) {
		t.Errorf("t2.micro = %f, want 0.0144", price)
	}

	ca, _ := table.Get("ca-central-1")
	if ca.EC2 != nil || ca.RDS != 0 {
		t.Errorf("absent fields should be zero, got %+v", ca)
	}
}

func TestParseDuplicateRegionKeepsFirstPosition(t *testing.T) {
	doc := `{"a": {"s3": 1}, "b": {"s3": 2}, "a": {"s3": 3}}`
	table, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := table.Regions(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Regions() = %v, want [a b]", got)
	}
	a, _ := table.Get("a")
	if a.S3 != 3 {
		t.Errorf("a.S3 = %f, want 3 (last value wins)", a.S3)
	}
}

func TestParseEmptyObject(t *testing.T) {
	table, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		region string
	}{
		{"array", `[1, 2]`, ""},
		{"null", `null`, ""},
		{"string", `"pricing"`, ""},
		{"truncated", `{"us-east-1": {"s3": 0.02}`, ""},
		{"not json", `<html>403 Forbidden</html>`, ""},
		{"bad region record", `{"us-east-1": {"s3": "cheap"}}`, "us-east-1"},
		{"bad ec2 map", `{"us-east-1": {"ec2": [0.1]}}`, "us-east-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not *DataError: %v", err, err)
			}
			if de.Region != tt.region {
				t.Errorf("Region = %q, want %q", de.Region, tt.region)
			}
			if !strings.Contains(err.Error(), "malformed pricing data") {
				t.Errorf("unexpected message: %s", err)
			}
		})
	}
}

func TestMarshalKeepsOrder(t *testing.T) {
	table := NewTable()
	table.Set("sa-east-1", RegionPricing{S3: 0.0405})
	table.Set("us-east-1", RegionPricing{S3: 0.023})

	data, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	got := string(data)
	if strings.Index(got, "sa-east-1") > strings.Index(got, "us-east-1") {
		t.Errorf("order not preserved: %s", got)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !reflect.DeepEqual(back.Regions(), table.Regions()) {
		t.Errorf("round trip order = %v, want %v", back.Regions(), table.Regions())
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if table.Len() != 0 {
		t.Error("nil table Len() should be 0")
	}
	if table.Regions() != nil {
		t.Error("nil table Regions() should be nil")
	}
	if _, ok := table.Get("us-east-1"); ok {
		t.Error("nil table Get() should miss")
	}
	table.Range(func(string, RegionPricing) bool {
		t.Error("nil table Range() should not call fn")
		return true
	})
}

func TestRangeStopsEarly(t *testing.T) {
	table := SampleTable()
	visited := 0
	table.Range(func(string, RegionPricing) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("visited = %d, want 2", visited)
	}
}

func TestParseS3Convention(t *testing.T) {
	tests := []struct {
		in      string
		want    S3Convention
		wantErr bool
	}{
		{"", S3Direct, false},
		{"direct", S3Direct, false},
		{" Hourly-Per-TB ", S3HourlyPerTB, false},
		{"monthly", "", true},
	}
	for _, tt := range tests {
		got, err := ParseS3Convention(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3Convention(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseS3Convention(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestS3UnitPrice(t *testing.T) {
	if got := S3Direct.S3UnitPrice(0.023); !almostEqual(got, 0.023) {
		t.Errorf("direct = %f, want 0.023", got)
	}
	want := 0.023 / 730 * 1024
	if got := S3HourlyPerTB.S3UnitPrice(0.023); !almostEqual(got, want) {
		t.Errorf("hourly-per-tb = %f, want %f", got, want)
	}
}

func TestSampleTable(t *testing.T) {
	table := SampleTable()
	if table.Len() == 0 {
		t.Fatal("sample table is empty")
	}
	table.Range(func(region string, p RegionPricing) bool {
		if _, ok := p.EC2Price("t2.micro"); !ok {
			t.Errorf("%s: missing t2.micro", region)
		}
		if p.S3 <= 0 || p.RDS <= 0 {
			t.Errorf("%s: non-positive s3/rds price", region)
		}
		return true
	})
}
