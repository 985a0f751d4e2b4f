package discovery

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// Provider-named roles are dropped, customer roles are kept.
func TestManagedFilterRoles(t *testing.T) {
	mapper := Registry()["IAM"]

	assert.True(t, IsManaged(mapper, "AWSServiceRoleForEC2", "AWSServiceRoleForEC2", nil))
	assert.False(t, IsManaged(mapper, "MyCustomRole", "MyCustomRole", nil))
}

func TestManagedFilterGlobalPrefixes(t *testing.T) {
	mapper := Registry()["EC2"]
	tests := []struct {
		id   string
		want bool
	}{
		{"aws-controltower-logs", true},
		{"AmazonProvisioned", true},
		{"amazon-cloudwatch-agent", true},
		{"default", true},
		{"Default-Environment", true},
		{"web-server-01", false},
		{"my-default-thing", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsManaged(mapper, tt.id, tt.id, nil), tt.id)
	}
}

func TestManagedFilterStructuralRules(t *testing.T) {
	iam := Registry()["IAM"]
	assert.True(t, IsManaged(iam, "SomeRole", "SomeRole",
		map[string]any{"Path": "/aws-service-role/ec2.amazonaws.com/"}))
	assert.True(t, IsManaged(iam, "SomePolicy", "SomePolicy",
		map[string]any{"Arn": "arn:aws:iam::aws:policy/ReadOnlyAccess"}))

	ec2 := Registry()["EC2"]
	assert.True(t, IsManaged(ec2, "vpc-123", "vpc-123",
		map[string]any{"IsDefault": true}))
	assert.False(t, IsManaged(ec2, "vpc-123", "vpc-123",
		map[string]any{"IsDefault": false}))
	assert.True(t, IsManaged(ec2, "sg-123", "sg-123",
		map[string]any{"GroupName": "default"}))

	route53 := Registry()["ROUTE53"]
	assert.True(t, IsManaged(route53, "10.in-addr.arpa.", "10.in-addr.arpa.", nil))

	kms := Registry()["KMS"]
	assert.True(t, IsManaged(kms, "1234", "1234",
		map[string]any{"KeyManager": "AWS"}))
}

func TestManagedFilterRespectsMapperOptOut(t *testing.T) {
	mapper := &ServiceMapper{Service: "EC2", ExcludeManaged: false}
	assert.False(t, IsManaged(mapper, "aws-owned", "aws-owned", nil))
}

// Ids carrying customer prefixes are never classified as managed,
// whatever follows the prefix.
func TestManagedFilterCustomerPrefixSafety(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	customerPrefix := gen.OneConstOf("my-", "app-", "dev-", "prod-", "test-", "company-")

	properties.Property("customer-prefixed ids survive the filter", prop.ForAll(
		func(prefix string, suffix string) bool {
			id := prefix + suffix
			for _, mapper := range Registry() {
				if IsManaged(mapper, id, id, nil) {
					return false
				}
			}
			return true
		},
		customerPrefix,
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
