// Package compliance classifies consolidated record sets against a tag
// policy. The evaluator is deterministic: identical (records, policy)
// inputs produce byte-identical classified records and summary.
package compliance

import (
	"math"

	"github.com/habhabhabs/aws-inventag/internal/models"
	"github.com/habhabhabs/aws-inventag/internal/policy"
)

// Evaluate classifies every record in place, attaching compliance_status
// and violations, and returns the running summary. Records are processed
// in their given order; callers sort before snapshotting.
func Evaluate(records []models.Resource, rs *policy.RuleSet) models.ComplianceSummary {
	summary := models.ComplianceSummary{Total: len(records)}

	for i := range records {
		status, violations := policy.Classify(&records[i], rs)
		records[i].ComplianceStatus = status
		records[i].Violations = violations

		switch status {
		case models.ComplianceCompliant:
			summary.Compliant++
		case models.ComplianceNonCompliant:
			summary.NonCompliant++
		case models.ComplianceUntagged:
			summary.Untagged++
		}
	}

	if summary.Total > 0 {
		pct := float64(summary.Compliant) / float64(summary.Total) * 100
		summary.CompliancePercentage = math.Round(pct*100) / 100
	}
	return summary
}
