package models

import (
	"fmt"
	"sort"
	"time"
)

// DiscoveryMethod describes how a resource record was obtained
type DiscoveryMethod string

const (
	DiscoveryMethodListing        DiscoveryMethod = "listing"
	DiscoveryMethodPrediction     DiscoveryMethod = "prediction"
	DiscoveryMethodEnumerateByTag DiscoveryMethod = "enumerate-by-tag"
	DiscoveryMethodInjected       DiscoveryMethod = "injected"
)

// String returns the string representation of DiscoveryMethod
func (dm DiscoveryMethod) String() string {
	return string(dm)
}

// ComplianceStatus represents the tag-policy classification of a resource
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	ComplianceUntagged     ComplianceStatus = "untagged"
)

// String returns the string representation of ComplianceStatus
func (cs ComplianceStatus) String() string {
	return string(cs)
}

// GlobalRegion is the canonical region used to issue listing calls for
// provider-global services.
const GlobalRegion = "us-east-1"

// Resource is the canonical in-memory representation of a single cloud
// resource. Records are created by discovery, mutated only by the
// orchestrator (account provenance) and the compliance evaluator
// (classification), and frozen before snapshotting.
type Resource struct {
	ResourceID        string            `json:"resource_id"`
	ARN               string            `json:"arn,omitempty"`
	Service           string            `json:"service"`
	Type              string            `json:"resource_type"`
	Region            string            `json:"region"`
	AccountID         string            `json:"account_id"`
	Name              string            `json:"name,omitempty"`
	Status            string            `json:"status,omitempty"`
	State             string            `json:"state,omitempty"`
	CreatedAt         *time.Time        `json:"created_at,omitempty"`
	ModifiedAt        *time.Time        `json:"modified_at,omitempty"`
	Tags              map[string]string `json:"tags"`
	VPCID             string            `json:"vpc_id,omitempty"`
	SubnetIDs         []string          `json:"subnet_ids,omitempty"`
	SecurityGroups    []string          `json:"security_groups,omitempty"`
	Encrypted         *bool             `json:"encrypted,omitempty"`
	PublicAccess      *bool             `json:"public_access,omitempty"`
	ParentResource    string            `json:"parent_resource,omitempty"`
	ChildResources    []string          `json:"child_resources,omitempty"`
	Dependencies      []string          `json:"dependencies,omitempty"`
	Confidence        float64           `json:"confidence_score"`
	DiscoveryMethod   DiscoveryMethod   `json:"discovery_method,omitempty"`
	ComplianceStatus  ComplianceStatus  `json:"compliance_status,omitempty"`
	Violations        []string          `json:"violations,omitempty"`
	SourceAccountID   string            `json:"source_account_id,omitempty"`
	SourceAccountName string            `json:"source_account_name,omitempty"`
	RawData           map[string]any    `json:"raw_data,omitempty"`
}

// Key returns the stable identity of the record: the ARN when the provider
// exposes one, otherwise the composite account:service:region:type:id form.
func (r *Resource) Key() string {
	if r.ARN != "" {
		return r.ARN
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", r.AccountID, r.Service, r.Region, r.Type, r.ResourceID)
}

// DedupKey identifies duplicates surfaced by multiple discovery paths
// within a single (account, service, region) scope.
func (r *Resource) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s", r.Service, r.Region, r.ResourceID)
}

// ConsolidationKey identifies duplicates across the consolidated
// multi-account output.
func (r *Resource) ConsolidationKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", r.AccountID, r.Service, r.Region, r.ResourceID)
}

// Normalize enforces the record invariants that hold after discovery:
// tags is always a mapping, region is never empty, and a provisional
// confidence always carries a discovery method.
func (r *Resource) Normalize() {
	if r.Tags == nil {
		r.Tags = map[string]string{}
	}
	if r.Region == "" {
		r.Region = GlobalRegion
	}
	if r.Confidence < 1.0 && r.DiscoveryMethod == "" {
		r.DiscoveryMethod = DiscoveryMethodListing
	}
	if r.CreatedAt != nil {
		utc := r.CreatedAt.UTC()
		r.CreatedAt = &utc
	}
	if r.ModifiedAt != nil {
		utc := r.ModifiedAt.UTC()
		r.ModifiedAt = &utc
	}
}

// SortResources orders records by the canonical run sort key:
// account, service, region, type, id. The sort is stable so concurrent
// discovery cannot influence snapshot ordering.
func SortResources(resources []Resource) {
	sort.SliceStable(resources, func(i, j int) bool {
		a, b := &resources[i], &resources[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ResourceID < b.ResourceID
	})
}
