package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

func TestDedupeRealBeatsPredicted(t *testing.T) {
	real := models.Resource{
		ResourceID: "/aws/lambda/billing", Service: "LOGS", Region: "us-east-1",
		Confidence: 0.9, DiscoveryMethod: models.DiscoveryMethodListing,
	}
	predicted := models.Resource{
		ResourceID: "/aws/lambda/billing", Service: "LOGS", Region: "us-east-1",
		Confidence: 0.95, DiscoveryMethod: models.DiscoveryMethodPrediction,
	}

	// Predicted first, real second: the real record replaces it.
	out := Dedupe([]models.Resource{predicted, real})
	require.Len(t, out, 1)
	assert.Equal(t, models.DiscoveryMethodListing, out[0].DiscoveryMethod)

	// Real first, predicted second: the real record is kept.
	out = Dedupe([]models.Resource{real, predicted})
	require.Len(t, out, 1)
	assert.Equal(t, models.DiscoveryMethodListing, out[0].DiscoveryMethod)
}

func TestDedupeHigherConfidenceWins(t *testing.T) {
	low := models.Resource{ResourceID: "i-1", Service: "EC2", Region: "us-east-1", Confidence: 0.5}
	high := models.Resource{ResourceID: "i-1", Service: "EC2", Region: "us-east-1", Confidence: 0.9}

	out := Dedupe([]models.Resource{low, high})
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Confidence)
}

func TestDedupeKeepsDistinctRegions(t *testing.T) {
	records := []models.Resource{
		{ResourceID: "i-1", Service: "EC2", Region: "us-east-1"},
		{ResourceID: "i-1", Service: "EC2", Region: "eu-west-1"},
	}
	assert.Len(t, Dedupe(records), 2)
}

func TestDedupeConsolidatedKeyedByAccount(t *testing.T) {
	records := []models.Resource{
		{ResourceID: "i-1", Service: "EC2", Region: "us-east-1", AccountID: "1"},
		{ResourceID: "i-1", Service: "EC2", Region: "us-east-1", AccountID: "2"},
		{ResourceID: "i-1", Service: "EC2", Region: "us-east-1", AccountID: "1"},
	}
	assert.Len(t, DedupeConsolidated(records), 2,
		"same id in different accounts is two records; same account folds")
}
