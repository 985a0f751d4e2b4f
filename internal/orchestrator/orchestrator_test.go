package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/config"
	"github.com/habhabhabs/aws-inventag/internal/credentials"
	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/shared/logger"
)

func testConfig() *config.Config {
	cfg, err := config.Parse([]byte(`
accounts:
  - account_id: "111111111111"
    name: prod
  - account_id: "222222222222"
`))
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestRunWithRecordsConsolidates(t *testing.T) {
	orch := New(testConfig(), logger.Nop(), nil)

	records := []models.Resource{
		{ResourceID: "i-2", Service: "EC2", Type: "Instance", Region: "us-east-1", AccountID: "222222222222"},
		{ResourceID: "i-1", Service: "EC2", Type: "Instance", Region: "us-east-1", AccountID: "111111111111"},
		{ResourceID: "i-1", Service: "EC2", Type: "Instance", Region: "us-east-1", AccountID: "111111111111"},
	}
	result, err := orch.RunWithRecords(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, result.Records, 2, "duplicates fold on the consolidation key")
	assert.Equal(t, "111111111111", result.Records[0].AccountID, "output is sorted")
	assert.Equal(t, "222222222222", result.Records[1].AccountID)

	for _, record := range result.Records {
		assert.NotEmpty(t, record.SourceAccountID)
		assert.NotNil(t, record.Tags)
		assert.NotEmpty(t, record.DiscoveryMethod)
	}

	assert.Equal(t, 2, result.SuccessfulAccounts)
	assert.Zero(t, result.FailedAccounts)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.PartialSuccess)
}

func TestRunWithRecordsCancelled(t *testing.T) {
	orch := New(testConfig(), logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.RunWithRecords(ctx, nil)
	assert.Error(t, err)
}

// Multi-account consolidation: records keep their source account, a
// region-level failure surfaces as a warning without failing the account.
func TestConsolidateStatistics(t *testing.T) {
	orch := New(testConfig(), logger.Nop(), nil)
	result := &models.RunResult{}

	outcomes := []accountOutcome{
		{
			stats: models.AccountStats{AccountID: "A1", State: models.AccountDone, ResourceCount: 2},
			records: []models.Resource{
				{ResourceID: "r1", Service: "EC2", Region: "us-east-1", AccountID: "A1", SourceAccountID: "A1"},
				{ResourceID: "r2", Service: "S3", Region: "us-east-1", AccountID: "A1", SourceAccountID: "A1"},
			},
		},
		{
			stats: models.AccountStats{AccountID: "A2", State: models.AccountDone, ResourceCount: 1, WarningCount: 1},
			records: []models.Resource{
				{ResourceID: "r3", Service: "EC2", Region: "eu-west-1", AccountID: "A2", SourceAccountID: "A2"},
			},
			warnings: []string{"EC2/ap-south-1: access denied for DescribeInstances"},
		},
	}
	orch.consolidate(result, outcomes)

	assert.Len(t, result.Records, 3)
	for _, record := range result.Records {
		assert.NotEmpty(t, record.SourceAccountID)
	}
	assert.Equal(t, 2, result.SuccessfulAccounts)
	assert.Zero(t, result.FailedAccounts)
	assert.GreaterOrEqual(t, len(result.Warnings), 1)
	assert.False(t, result.PartialSuccess)
}

func TestConsolidatePartialSuccess(t *testing.T) {
	orch := New(testConfig(), logger.Nop(), nil)
	result := &models.RunResult{}

	outcomes := []accountOutcome{
		{stats: models.AccountStats{AccountID: "A1", State: models.AccountDone}},
		{stats: models.AccountStats{AccountID: "A2", State: models.AccountFailed, FailureReason: "timeout"}},
	}
	orch.consolidate(result, outcomes)

	assert.Equal(t, 1, result.SuccessfulAccounts)
	assert.Equal(t, 1, result.FailedAccounts)
	assert.True(t, result.PartialSuccess)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "timeout")
}

// Every account failing still yields a valid, empty result.
func TestConsolidateAllFailed(t *testing.T) {
	orch := New(testConfig(), logger.Nop(), nil)
	result := &models.RunResult{}

	outcomes := []accountOutcome{
		{stats: models.AccountStats{AccountID: "A1", State: models.AccountFailed, FailureReason: "credential"}},
		{stats: models.AccountStats{AccountID: "A2", State: models.AccountFailed, FailureReason: "credential"}},
	}
	orch.consolidate(result, outcomes)

	assert.Empty(t, result.Records)
	assert.Equal(t, 2, result.FailedAccounts)
	assert.True(t, result.PartialSuccess, "any failed account flags the run")
	assert.Len(t, result.Warnings, 2, "every failed account is enumerated")
}

func TestAccountDisplayName(t *testing.T) {
	named := credentials.AccountConfig{AccountID: "1", Name: "prod"}
	assert.Equal(t, "prod", named.DisplayName())
	unnamed := credentials.AccountConfig{AccountID: "1"}
	assert.Equal(t, "1", unnamed.DisplayName())
}
