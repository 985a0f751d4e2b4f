package models

import "time"

// ComplianceSummary aggregates classification results for a record set
type ComplianceSummary struct {
	Total                int     `json:"total"`
	Compliant            int     `json:"compliant"`
	NonCompliant         int     `json:"non_compliant"`
	Untagged             int     `json:"untagged"`
	CompliancePercentage float64 `json:"compliance_percentage"`
}

// Snapshot is an immutable, content-addressed serialization of a
// consolidated, classified record set. Two snapshots with equal checksums
// represent the same inventory.
type Snapshot struct {
	SnapshotID        string            `json:"snapshot_id"`
	CreatedAt         time.Time         `json:"created_at"`
	AccountIDs        []string          `json:"account_ids"`
	Regions           []string          `json:"regions"`
	Checksum          string            `json:"checksum"`
	Tags              map[string]string `json:"tags"`
	ComplianceSummary ComplianceSummary `json:"compliance_summary"`
	Records           []Resource        `json:"records"`
}

// SnapshotMeta is the listing view of a stored snapshot
type SnapshotMeta struct {
	SnapshotID  string    `json:"snapshot_id"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
	RecordCount int       `json:"record_count"`
	Path        string    `json:"path"`
}
