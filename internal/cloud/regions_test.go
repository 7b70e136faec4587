package cloud

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// mockRegionsClient implements RegionsAPI for testing.
type mockRegionsClient struct {
	regions []string
	err     error
}

func (m *mockRegionsClient) DescribeRegions(_ context.Context, _ *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range m.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func TestEnabledRegions(t *testing.T) {
	mock := &mockRegionsClient{regions: []string{"us-west-2", "ap-northeast-2", "us-east-1"}}
	got, err := EnabledRegions(context.Background(), mock)
	if err != nil {
		t.Fatalf("EnabledRegions() error: %v", err)
	}
	want := []string{"ap-northeast-2", "us-east-1", "us-west-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledRegions() = %v, want %v", got, want)
	}
}

func TestEnabledRegionsError(t *testing.T) {
	mock := &mockRegionsClient{err: errors.New("UnauthorizedOperation")}
	if _, err := EnabledRegions(context.Background(), mock); err == nil {
		t.Error("EnabledRegions() should fail")
	}
}

func TestFilterEnabled(t *testing.T) {
	got := FilterEnabled(
		[]string{"us-east-1", "ap-northeast-3", "ap-northeast-2"},
		[]string{"ap-northeast-2", "us-east-1"},
	)
	want := []string{"us-east-1", "ap-northeast-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterEnabled() = %v, want %v", got, want)
	}
	if FilterEnabled([]string{"a"}, nil) != nil {
		t.Error("FilterEnabled() with nothing enabled should be nil")
	}
}
