package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceKey(t *testing.T) {
	withARN := Resource{
		ResourceID: "i-1", ARN: "arn:aws:ec2:us-east-1:111111111111:instance/i-1",
		Service: "EC2", Type: "Instance", Region: "us-east-1", AccountID: "111111111111",
	}
	assert.Equal(t, "arn:aws:ec2:us-east-1:111111111111:instance/i-1", withARN.Key())

	withoutARN := Resource{
		ResourceID: "bucket-1", Service: "S3", Type: "Bucket",
		Region: "us-east-1", AccountID: "111111111111",
	}
	assert.Equal(t, "111111111111:S3:us-east-1:Bucket:bucket-1", withoutARN.Key())
}

func TestDedupAndConsolidationKeys(t *testing.T) {
	r := Resource{
		ResourceID: "i-1", Service: "EC2", Region: "eu-west-1", AccountID: "222222222222",
	}
	assert.Equal(t, "EC2:eu-west-1:i-1", r.DedupKey())
	assert.Equal(t, "222222222222:EC2:eu-west-1:i-1", r.ConsolidationKey())
}

func TestNormalizeInvariants(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	r := Resource{ResourceID: "fn-1", Service: "LAMBDA", Confidence: 0.8, CreatedAt: &created}
	r.Normalize()

	require.NotNil(t, r.Tags, "tags must always be a mapping")
	assert.Equal(t, GlobalRegion, r.Region, "empty region falls back to the global region")
	assert.NotEmpty(t, r.DiscoveryMethod, "provisional confidence requires a discovery method")
	assert.Equal(t, time.UTC, r.CreatedAt.Location())
}

func TestSortResourcesIsStableAndCanonical(t *testing.T) {
	records := []Resource{
		{AccountID: "2", Service: "S3", Region: "us-east-1", Type: "Bucket", ResourceID: "b"},
		{AccountID: "1", Service: "S3", Region: "us-east-1", Type: "Bucket", ResourceID: "b"},
		{AccountID: "1", Service: "EC2", Region: "us-east-1", Type: "Instance", ResourceID: "i-2"},
		{AccountID: "1", Service: "EC2", Region: "us-east-1", Type: "Instance", ResourceID: "i-1"},
		{AccountID: "1", Service: "EC2", Region: "eu-west-1", Type: "Instance", ResourceID: "i-9"},
	}
	SortResources(records)

	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key()
	}
	assert.Equal(t, []string{
		"1:EC2:eu-west-1:Instance:i-9",
		"1:EC2:us-east-1:Instance:i-1",
		"1:EC2:us-east-1:Instance:i-2",
		"1:S3:us-east-1:Bucket:b",
		"2:S3:us-east-1:Bucket:b",
	}, keys)
}
