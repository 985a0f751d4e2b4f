package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// Classify evaluates one record against the rule set. It is a pure
// function: no I/O, deterministic violation ordering.
func Classify(record *models.Resource, rs *RuleSet) (models.ComplianceStatus, []string) {
	exempt := exemptKeys(record, rs)
	required := effectiveRequired(record, rs, exempt)

	if len(record.Tags) == 0 {
		// An untagged record is compliant only when every required key is
		// covered by an exemption matching it.
		if len(required) == 0 {
			return models.ComplianceCompliant, nil
		}
		return models.ComplianceUntagged, nil
	}

	var violations []string
	for _, rule := range required {
		value, present := record.Tags[rule.Key]
		if !present {
			violations = append(violations, fmt.Sprintf("missing:%s", rule.Key))
			continue
		}
		if rule.Values != nil && !rule.Values[value] {
			violations = append(violations, fmt.Sprintf("pattern:%s", rule.Key))
			continue
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
			violations = append(violations, fmt.Sprintf("pattern:%s", rule.Key))
		}
	}

	if len(violations) == 0 {
		return models.ComplianceCompliant, nil
	}
	sort.Strings(violations)
	return models.ComplianceNonCompliant, violations
}

// effectiveRequired determines the required rules for a record: the global
// set, replaced wholesale by a service override when present, minus keys
// removed by matching exemptions.
func effectiveRequired(record *models.Resource, rs *RuleSet, exempt map[string]bool) []Rule {
	source := rs.Required
	if override, ok := rs.ServiceOverrides[strings.ToUpper(record.Service)]; ok {
		source = override.Required
	}
	if len(exempt) == 0 {
		return source
	}
	required := make([]Rule, 0, len(source))
	for _, rule := range source {
		if !exempt[rule.Key] {
			required = append(required, rule)
		}
	}
	return required
}

// exemptKeys collects the tag keys removed by exemptions matching the record
func exemptKeys(record *models.Resource, rs *RuleSet) map[string]bool {
	var keys map[string]bool
	for _, ex := range rs.Exemptions {
		if !exemptionMatches(record, &ex) {
			continue
		}
		if keys == nil {
			keys = make(map[string]bool)
		}
		for key := range ex.ExemptTags {
			keys[key] = true
		}
	}
	return keys
}

func exemptionMatches(record *models.Resource, ex *Exemption) bool {
	if ex.Service != "" && ex.Service != "*" && !strings.EqualFold(ex.Service, record.Service) {
		return false
	}
	if ex.Type != "" && ex.Type != "*" && !strings.EqualFold(ex.Type, record.Type) {
		return false
	}
	if ex.IDPattern != nil && !ex.IDPattern.MatchString(record.ResourceID) {
		return false
	}
	return true
}
