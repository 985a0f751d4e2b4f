package compliance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/policy"
)

func scenarioRecords() []models.Resource {
	return []models.Resource{
		{Service: "EC2", Type: "Instance", ResourceID: "i-1",
			Tags: map[string]string{"Environment": "production", "Owner": "team-a"}},
		{Service: "S3", Type: "Bucket", ResourceID: "bucket-1",
			Tags: map[string]string{"Environment": "production"}},
		{Service: "RDS", Type: "DBInstance", ResourceID: "db-1",
			Tags: map[string]string{}},
	}
}

// Single-account happy path: one compliant, one missing Owner, one
// untagged, 33.33 percent.
func TestEvaluateSummary(t *testing.T) {
	rs, err := policy.Load([]byte("required_tags: [Environment, Owner]"))
	require.NoError(t, err)

	records := scenarioRecords()
	summary := Evaluate(records, rs)

	assert.Equal(t, models.ComplianceSummary{
		Total:                3,
		Compliant:            1,
		NonCompliant:         1,
		Untagged:             1,
		CompliancePercentage: 33.33,
	}, summary)

	assert.Equal(t, models.ComplianceCompliant, records[0].ComplianceStatus)
	assert.Equal(t, models.ComplianceNonCompliant, records[1].ComplianceStatus)
	assert.Equal(t, []string{"missing:Owner"}, records[1].Violations)
	assert.Equal(t, models.ComplianceUntagged, records[2].ComplianceStatus)
}

// Identical inputs must produce byte-identical classified records and
// summary.
func TestEvaluateDeterminism(t *testing.T) {
	rs, err := policy.Load([]byte("required_tags: [Environment, Owner, CostCenter]"))
	require.NoError(t, err)

	first := scenarioRecords()
	second := scenarioRecords()

	summary1 := Evaluate(first, rs)
	summary2 := Evaluate(second, rs)

	records1, err := json.Marshal(first)
	require.NoError(t, err)
	records2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, records1, records2)

	out1, err := json.Marshal(summary1)
	require.NoError(t, err)
	out2, err := json.Marshal(summary2)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestEvaluateEmptySet(t *testing.T) {
	rs, err := policy.Load([]byte("required_tags: [Environment]"))
	require.NoError(t, err)

	summary := Evaluate(nil, rs)
	assert.Equal(t, models.ComplianceSummary{}, summary)
	assert.Zero(t, summary.CompliancePercentage)
}

func TestEvaluatePercentageRounding(t *testing.T) {
	rs, err := policy.Load([]byte("required_tags: [Owner]"))
	require.NoError(t, err)

	records := []models.Resource{
		{ResourceID: "a", Tags: map[string]string{"Owner": "x"}},
		{ResourceID: "b", Tags: map[string]string{"Owner": "x"}},
		{ResourceID: "c", Tags: map[string]string{}},
	}
	summary := Evaluate(records, rs)
	assert.InDelta(t, 66.67, summary.CompliancePercentage, 0.001)
}
