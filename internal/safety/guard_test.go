package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		want      bool
	}{
		{"describe allowed", "DescribeInstances", true},
		{"list allowed", "ListBuckets", true},
		{"get allowed", "GetRestApis", true},
		{"head allowed", "HeadBucket", true},
		{"lookup allowed", "LookupEvents", true},
		{"simulate allowed", "SimulatePrincipalPolicy", true},
		{"create forbidden", "CreateBucket", false},
		{"delete forbidden", "DeleteTable", false},
		{"terminate forbidden", "TerminateInstances", false},
		{"put forbidden", "PutObject", false},
		{"modify forbidden", "ModifyDBInstance", false},
		{"run forbidden", "RunInstances", false},
		{"reboot forbidden", "RebootInstances", false},
		{"unknown verb forbidden", "TagResource", false},
		{"ambiguous forbidden", "InvokeFunction", false},
		{"empty forbidden", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadOnly(tt.operation))
		})
	}
}

func TestToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ListBuckets", "list_buckets"},
		{"DescribeDBInstances", "describe_d_b_instances"},
		{"GetRestApis", "get_rest_apis"},
		{"describe_instances", "describe_instances"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toSnake(tt.in))
	}
}

// Forbidden prefixes take precedence even when a name would also match an
// allowed prefix after mangling.
func TestForbiddenWinsOverAllowed(t *testing.T) {
	assert.False(t, IsReadOnly("DeleteListener"))
	assert.False(t, IsReadOnly("UpdateGetItem"))
}
