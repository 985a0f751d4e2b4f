package discovery

import (
	"github.com/habhabhabs/aws-inventag/internal/models"
)

// Dedupe folds records sharing a (service, region, resource_id) key. Real
// records always win over predicted ones; among records of the same
// method, the higher-confidence one survives, first-seen on a tie.
func Dedupe(records []models.Resource) []models.Resource {
	index := make(map[string]int, len(records))
	out := make([]models.Resource, 0, len(records))
	for _, record := range records {
		key := record.DedupKey()
		existing, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, record)
			continue
		}
		if prefer(&record, &out[existing]) {
			out[existing] = record
		}
	}
	return out
}

// DedupeConsolidated applies the cross-account second pass keyed by
// (account_id, service, region, resource_id).
func DedupeConsolidated(records []models.Resource) []models.Resource {
	index := make(map[string]int, len(records))
	out := make([]models.Resource, 0, len(records))
	for _, record := range records {
		key := record.ConsolidationKey()
		existing, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, record)
			continue
		}
		if prefer(&record, &out[existing]) {
			out[existing] = record
		}
	}
	return out
}

func prefer(candidate, incumbent *models.Resource) bool {
	candidatePredicted := candidate.DiscoveryMethod == models.DiscoveryMethodPrediction
	incumbentPredicted := incumbent.DiscoveryMethod == models.DiscoveryMethodPrediction
	if candidatePredicted != incumbentPredicted {
		return incumbentPredicted
	}
	return candidate.Confidence > incumbent.Confidence
}
