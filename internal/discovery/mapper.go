// Package discovery enumerates cloud resources for one account session.
// The engine drives per (service, region) units through a worker pool; the
// field mappers own service-specific extraction rules, and the managed
// filter drops provider-owned records before they reach consumers.
package discovery

import (
	"regexp"
	"sort"
	"strings"

	"github.com/habhabhabs/aws-inventag/internal/discovery/services"
)

// TagLayout identifies how a raw payload encodes tags
type TagLayout int

const (
	// TagLayoutKVList is a list of {Key, Value} pairs (EC2 style)
	TagLayoutKVList TagLayout = iota
	// TagLayoutNestedList is a list of pairs under an alternate key such
	// as TagList or TagSet (RDS, S3 style)
	TagLayoutNestedList
	// TagLayoutFlatMap is a plain string-to-string map (Lambda style)
	TagLayoutFlatMap
)

// ServiceMapper is the typed capability set for one service: which listing
// operations to try, how to pull identity fields out of raw payloads, and
// which records count as provider-managed.
type ServiceMapper struct {
	Service                 string
	ResourceTypes           []string
	Operations              []services.Operation
	NameFields              []string
	DateFields              []string
	TagLayouts              []TagLayout
	RegionDependent         bool
	RequiresRegionDetection bool
	ExcludeManaged          bool
	ManagedPatterns         []*regexp.Regexp
	// Generic marks mappers synthesized from the catalog without
	// service-specific metadata; their records score lower confidence.
	Generic bool
}

// TypeForOperation maps an operation name to the resource type it emits.
// Resource types are declared positionally against operations; unknown
// operations fall back to a singularized verb-stripped form.
func (m *ServiceMapper) TypeForOperation(operation string) string {
	for i, op := range m.Operations {
		if op.Name == operation && i < len(m.ResourceTypes) {
			return m.ResourceTypes[i]
		}
	}
	return typeFromOperationName(operation)
}

func typeFromOperationName(operation string) string {
	name := operation
	for _, verb := range []string{"Describe", "List", "Get"} {
		if strings.HasPrefix(name, verb) {
			name = name[len(verb):]
			break
		}
	}
	switch {
	case strings.HasSuffix(name, "ies"):
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1]
	default:
		return name
	}
}

func patterns(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

// Registry builds the central mapper table. It is the single source of
// truth for confidence weighting inputs and managed-resource patterns.
func Registry() map[string]*ServiceMapper {
	catalog := services.Catalog()
	table := map[string]*ServiceMapper{
		"EC2": {
			ResourceTypes:   []string{"Instance", "Vpc"},
			NameFields:      []string{"InstanceId", "VpcId"},
			DateFields:      []string{"LaunchTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"S3": {
			ResourceTypes:           []string{"Bucket"},
			NameFields:              []string{"Name"},
			DateFields:              []string{"CreationDate"},
			TagLayouts:              []TagLayout{TagLayoutNestedList},
			RegionDependent:         false,
			RequiresRegionDetection: true,
			ExcludeManaged:          true,
			ManagedPatterns:         patterns(`^aws-cloudtrail-`, `^cf-templates-`, `^elasticbeanstalk-`),
		},
		"RDS": {
			ResourceTypes:   []string{"DBInstance", "DBCluster"},
			NameFields:      []string{"DBInstanceIdentifier", "DBClusterIdentifier"},
			DateFields:      []string{"InstanceCreateTime", "ClusterCreateTime"},
			TagLayouts:      []TagLayout{TagLayoutNestedList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"LAMBDA": {
			ResourceTypes:   []string{"Function"},
			NameFields:      []string{"FunctionName"},
			DateFields:      []string{"LastModified"},
			TagLayouts:      []TagLayout{TagLayoutFlatMap},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"IAM": {
			ResourceTypes:   []string{"Role", "User"},
			NameFields:      []string{"RoleName", "UserName"},
			DateFields:      []string{"CreateDate"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: false,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^AWSServiceRole`, `^AWSReserved`, `^OrganizationAccountAccessRole$`),
		},
		"CLOUDFORMATION": {
			ResourceTypes:   []string{"Stack"},
			NameFields:      []string{"StackName"},
			DateFields:      []string{"CreationTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^StackSet-`, `^awseb-`),
		},
		"DYNAMODB": {
			ResourceTypes:   []string{"Table"},
			NameFields:      []string{"TableName"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"SNS": {
			ResourceTypes:   []string{"Topic"},
			NameFields:      []string{"TopicArn"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"SQS": {
			ResourceTypes:   []string{"Queue"},
			NameFields:      []string{"QueueUrl"},
			TagLayouts:      []TagLayout{TagLayoutFlatMap},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"ECS": {
			ResourceTypes:   []string{"Cluster"},
			NameFields:      []string{"ClusterName"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"EKS": {
			ResourceTypes:   []string{"Cluster"},
			NameFields:      []string{"Name"},
			DateFields:      []string{"CreatedAt"},
			TagLayouts:      []TagLayout{TagLayoutFlatMap},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"ELASTICACHE": {
			ResourceTypes:   []string{"CacheCluster"},
			NameFields:      []string{"CacheClusterId"},
			DateFields:      []string{"CacheClusterCreateTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"ELBV2": {
			ResourceTypes:   []string{"LoadBalancer"},
			NameFields:      []string{"LoadBalancerName"},
			DateFields:      []string{"CreatedTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"KMS": {
			ResourceTypes:   []string{"Key", "Alias"},
			NameFields:      []string{"KeyId", "AliasName"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^alias/aws/`),
		},
		"ROUTE53": {
			ResourceTypes:   []string{"HostedZone"},
			NameFields:      []string{"Id", "Name"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: false,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`in-addr\.arpa\.?$`, `ip6\.arpa\.?$`),
		},
		"CLOUDFRONT": {
			ResourceTypes:   []string{"Distribution"},
			NameFields:      []string{"Id", "DomainName"},
			DateFields:      []string{"LastModifiedTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: false,
			ExcludeManaged:  true,
		},
		"APIGATEWAY": {
			ResourceTypes:   []string{"RestApi"},
			NameFields:      []string{"Id", "Name"},
			DateFields:      []string{"CreatedDate"},
			TagLayouts:      []TagLayout{TagLayoutFlatMap},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
		"SECRETSMANAGER": {
			ResourceTypes:   []string{"Secret"},
			NameFields:      []string{"Name"},
			DateFields:      []string{"CreatedDate"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^rds!`, `^events!`),
		},
		"AUTOSCALING": {
			ResourceTypes:   []string{"AutoScalingGroup"},
			NameFields:      []string{"AutoScalingGroupName"},
			DateFields:      []string{"CreatedTime"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^eks-`),
		},
		"CLOUDWATCH": {
			ResourceTypes:   []string{"Alarm"},
			NameFields:      []string{"AlarmName"},
			DateFields:      []string{"AlarmConfigurationUpdatedTimestamp"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
			ManagedPatterns: patterns(`^TargetTracking-`),
		},
		"ECR": {
			ResourceTypes:   []string{"Repository"},
			NameFields:      []string{"RepositoryName"},
			DateFields:      []string{"CreatedAt"},
			TagLayouts:      []TagLayout{TagLayoutKVList},
			RegionDependent: true,
			ExcludeManaged:  true,
		},
	}

	for service, mapper := range table {
		mapper.Service = service
		mapper.Operations = catalog[service]
	}

	// Catalog services without explicit metadata fall through the generic
	// path: every read-only operation, generic field scan, lower confidence.
	for service, ops := range catalog {
		if _, ok := table[service]; ok {
			continue
		}
		table[service] = genericMapper(service, ops)
	}
	return table
}

// DefaultServices returns every registered service name, sorted. Used
// when a run does not restrict the service list.
func DefaultServices() []string {
	registry := Registry()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// genericFieldNames are the payload keys the generic path scans for an
// identifier, in priority order.
var genericFieldNames = []string{"Id", "Name", "Arn", "ResourceId", "ResourceName"}

// genericOperationExclusions filters out read-only operations that list
// sub-entities rather than resources.
var genericOperationExclusions = []string{"Policy", "Version", "Status", "Health", "Metrics"}

func genericMapper(service string, ops []services.Operation) *ServiceMapper {
	kept := make([]services.Operation, 0, len(ops))
	for _, op := range ops {
		if usableGenericOperation(op.Name) {
			kept = append(kept, op)
		}
	}
	// List operations are cheaper than Describe or Get; try them first.
	ordered := make([]services.Operation, 0, len(kept))
	for _, prefix := range []string{"List", "Describe", "Get"} {
		for _, op := range kept {
			if strings.HasPrefix(op.Name, prefix) {
				ordered = append(ordered, op)
			}
		}
	}
	return &ServiceMapper{
		Service:         service,
		Operations:      ordered,
		NameFields:      genericFieldNames,
		TagLayouts:      []TagLayout{TagLayoutKVList, TagLayoutNestedList, TagLayoutFlatMap},
		RegionDependent: true,
		ExcludeManaged:  true,
		Generic:         true,
	}
}

func usableGenericOperation(name string) bool {
	if !strings.HasPrefix(name, "List") && !strings.HasPrefix(name, "Describe") && !strings.HasPrefix(name, "Get") {
		return false
	}
	for _, word := range genericOperationExclusions {
		if strings.Contains(name, word) {
			return false
		}
	}
	return true
}
