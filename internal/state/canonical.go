// Package state persists content-addressed inventory snapshots, diffs
// them, and renders changelogs. Checksums are computed over a canonical
// serialization so equal inventories hash equally regardless of run-time
// metadata or record order.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// canonicalRecords serializes a record set in canonical form: records in
// the run sort order, JSON per RFC 8785 (sorted keys, fixed number
// formatting). Timestamps are UTC by the record invariants.
func canonicalRecords(records []models.Resource) ([]byte, error) {
	sorted := make([]models.Resource, len(records))
	copy(sorted, records)
	models.SortResources(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(data)
}

// Checksum hashes the sorted record list only. Snapshot metadata, user
// tags, and ids never contribute.
func Checksum(records []models.Resource) (string, error) {
	canonical, err := canonicalRecords(records)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// RecordChecksum hashes one record in canonical form. The delta detector
// uses it to short-circuit per-field comparison.
func RecordChecksum(record models.Resource) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
