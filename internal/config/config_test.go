package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
accounts:
  - account_id: "111111111111"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Discovery.MaxWorkers)
	assert.Equal(t, 4, cfg.Discovery.MaxConcurrentAccounts)
	assert.Equal(t, 30*time.Minute, cfg.Discovery.AccountTimeout.Std())
	assert.Equal(t, 5, cfg.Discovery.PageCap)
	assert.Equal(t, 10.0, cfg.Discovery.RateLimit)
	assert.Equal(t, 5, cfg.Discovery.BreakerThreshold)
	assert.Equal(t, time.Minute, cfg.Discovery.BreakerCooldown.Std())
	assert.Equal(t, ".inventag/snapshots", cfg.State.Dir)
	assert.Equal(t, 90, cfg.State.RetentionDays)
	assert.Equal(t, 50, cfg.State.MaxSnapshots)
	assert.Equal(t, []string{"us-east-1"}, cfg.Regions)
}

func TestParseExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
accounts:
  - account_id: "111111111111"
    name: production
regions: [eu-west-1, eu-central-1]
services: [EC2, S3]
discovery:
  max_workers: 8
  account_timeout: 10m
  page_cap: 2
state:
  dir: /var/lib/inventag
  retention_days: 30
  max_snapshots: 10
policy_file: policy.yaml
`))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Accounts[0].Name)
	assert.Equal(t, []string{"eu-west-1", "eu-central-1"}, cfg.Regions)
	assert.Equal(t, 8, cfg.Discovery.MaxWorkers)
	assert.Equal(t, 10*time.Minute, cfg.Discovery.AccountTimeout.Std())
	assert.Equal(t, 2, cfg.Discovery.PageCap)
	assert.Equal(t, "/var/lib/inventag", cfg.State.Dir)
	assert.Equal(t, "policy.yaml", cfg.PolicyFile)
}

func TestParseDurationForms(t *testing.T) {
	// String form.
	cfg, err := Parse([]byte(`
accounts: [{account_id: "1"}]
discovery:
  account_timeout: 45m
`))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Discovery.AccountTimeout.Std())

	// Bare integer means seconds.
	cfg, err = Parse([]byte(`
accounts: [{account_id: "1"}]
discovery:
  account_timeout: 90
`))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Discovery.AccountTimeout.Std())
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("INVENTAG_TEST_ACCOUNT", "222222222222")
	cfg, err := Parse([]byte(`
accounts:
  - account_id: "${INVENTAG_TEST_ACCOUNT}"
`))
	require.NoError(t, err)
	assert.Equal(t, "222222222222", cfg.Accounts[0].AccountID)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no accounts", "regions: [us-east-1]"},
		{"missing account_id", "accounts: [{name: prod}]"},
		{"duplicate account_id", "accounts: [{account_id: \"1\"}, {account_id: \"1\"}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
