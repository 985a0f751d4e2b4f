package discovery

import (
	"strings"
	"time"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// Confidence weights for presence indicators. The mapper is the single
// source of truth for this table; the sum of all weights normalizes the
// score to [0, 1].
const (
	weightID       = 2.5
	weightName     = 2.0
	weightARN      = 1.5
	weightTyped    = 1.5
	weightTags     = 1.0
	weightStatus   = 0.5
	weightCreation = 0.5
	weightVPC      = 0.5
	weightSG       = 0.5
	weightAccount  = 0.5

	weightTotal = weightID + weightName + weightARN + weightTyped +
		weightTags + weightStatus + weightCreation + weightVPC +
		weightSG + weightAccount
)

// normalizeItem turns one raw payload into a Resource record. Returns
// false when no identifier can be extracted; such items are dropped with
// a warning upstream.
func normalizeItem(payload map[string]any, mapper *ServiceMapper, operation, region, accountID string) (models.Resource, bool) {
	arn := extractARN(payload)

	id := firstStringField(payload, mapper.NameFields)
	if id == "" && arn != "" {
		id = arnResourceID(arn)
	}
	if id == "" {
		return models.Resource{}, false
	}
	id = trimResourcePrefix(mapper.Service, id)

	tags := extractTags(payload, mapper.TagLayouts)

	name := tags["Name"]
	if name == "" {
		name = firstStringField(payload, mapper.NameFields)
	}
	if name == "" {
		name = id
	}

	record := models.Resource{
		ResourceID:      id,
		ARN:             arn,
		Service:         mapper.Service,
		Type:            mapper.TypeForOperation(operation),
		Region:          extractRegion(payload, region),
		AccountID:       accountID,
		Name:            name,
		Status:          stringField(payload, "Status"),
		State:           extractState(payload),
		Tags:            tags,
		VPCID:           stringField(payload, "VpcId"),
		SubnetIDs:       stringListField(payload, "SubnetIds", "Subnets"),
		SecurityGroups:  extractSecurityGroups(payload),
		Encrypted:       boolField(payload, "Encrypted", "StorageEncrypted"),
		PublicAccess:    boolField(payload, "PubliclyAccessible", "PublicAccess"),
		DiscoveryMethod: models.DiscoveryMethodListing,
		RawData:         payload,
	}

	if ts := extractTime(payload, mapper.DateFields); ts != nil {
		record.CreatedAt = ts
	}

	record.Confidence = scoreConfidence(&record, mapper)
	record.Normalize()
	return record, true
}

func scoreConfidence(r *models.Resource, mapper *ServiceMapper) float64 {
	var score float64
	if r.ResourceID != "" {
		score += weightID
	}
	if r.Name != "" {
		score += weightName
	}
	if r.ARN != "" {
		score += weightARN
	}
	if !mapper.Generic && r.Type != "" {
		score += weightTyped
	}
	if len(r.Tags) > 0 {
		score += weightTags
	}
	if r.Status != "" || r.State != "" {
		score += weightStatus
	}
	if r.CreatedAt != nil {
		score += weightCreation
	}
	if r.VPCID != "" {
		score += weightVPC
	}
	if len(r.SecurityGroups) > 0 {
		score += weightSG
	}
	if r.AccountID != "" {
		score += weightAccount
	}
	return score / weightTotal
}

// firstStringField returns the first non-empty string among the candidate
// keys.
func firstStringField(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if v := stringField(payload, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func boolField(payload map[string]any, keys ...string) *bool {
	for _, key := range keys {
		if v, ok := payload[key].(bool); ok {
			b := v
			return &b
		}
	}
	return nil
}

func stringListField(payload map[string]any, keys ...string) []string {
	for _, key := range keys {
		list, ok := payload[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// extractARN scans for a direct ARN field. The provider is inconsistent
// about casing and prefixing, so any key ending in Arn or ARN qualifies.
func extractARN(payload map[string]any) string {
	for _, key := range []string{"Arn", "ARN"} {
		if v := stringField(payload, key); v != "" {
			return v
		}
	}
	for key, value := range payload {
		if strings.HasSuffix(key, "Arn") || strings.HasSuffix(key, "ARN") {
			if s, ok := value.(string); ok && strings.HasPrefix(s, "arn:") {
				return s
			}
		}
	}
	return ""
}

// arnResourceID returns the trailing resource identifier of an ARN
func arnResourceID(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return ""
	}
	tail := parts[5]
	if idx := strings.LastIndex(tail, "/"); idx >= 0 {
		return tail[idx+1:]
	}
	return tail
}

// trimResourcePrefix strips provider path noise from identifiers, such as
// Route53's /hostedzone/ prefix and SQS queue URLs.
func trimResourcePrefix(service, id string) string {
	switch service {
	case "ROUTE53":
		return strings.TrimPrefix(id, "/hostedzone/")
	case "SQS", "SNS":
		if idx := strings.LastIndex(id, "/"); idx >= 0 {
			return id[idx+1:]
		}
		if idx := strings.LastIndex(id, ":"); idx >= 0 {
			return id[idx+1:]
		}
	}
	return id
}

// extractRegion prefers payload hints over the region the listing was
// issued in: explicit Region, availability-zone truncation, then the
// placement block.
func extractRegion(payload map[string]any, fallback string) string {
	if v := stringField(payload, "Region"); v != "" {
		return v
	}
	if az := stringField(payload, "AvailabilityZone"); az != "" {
		return truncateAZ(az)
	}
	if placement, ok := payload["Placement"].(map[string]any); ok {
		if az := stringField(placement, "AvailabilityZone"); az != "" {
			return truncateAZ(az)
		}
	}
	return fallback
}

// truncateAZ strips the zone letter: us-east-1a becomes us-east-1
func truncateAZ(az string) string {
	if len(az) > 1 && az[len(az)-1] >= 'a' && az[len(az)-1] <= 'z' {
		return az[:len(az)-1]
	}
	return az
}

func extractState(payload map[string]any) string {
	switch v := payload["State"].(type) {
	case string:
		return v
	case map[string]any:
		// EC2 encodes state as {Code, Name}.
		return stringField(v, "Name")
	}
	return ""
}

func extractSecurityGroups(payload map[string]any) []string {
	list, ok := payload["SecurityGroups"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if id := stringField(v, "GroupId"); id != "" {
				out = append(out, id)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractTags dispatches on the mapper's declared tag layouts. Records
// with no recognizable tag block get an empty, non-nil map.
func extractTags(payload map[string]any, layouts []TagLayout) map[string]string {
	tags := map[string]string{}
	for _, layout := range layouts {
		switch layout {
		case TagLayoutKVList:
			mergeKVList(tags, payload["Tags"])
		case TagLayoutNestedList:
			mergeKVList(tags, payload["TagList"])
			mergeKVList(tags, payload["TagSet"])
		case TagLayoutFlatMap:
			if m, ok := payload["Tags"].(map[string]any); ok {
				for key, value := range m {
					if s, ok := value.(string); ok {
						tags[key] = s
					}
				}
			}
		}
	}
	return tags
}

func mergeKVList(into map[string]string, raw any) {
	list, ok := raw.([]any)
	if !ok {
		return
	}
	for _, item := range list {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := stringField(pair, "Key")
		value := stringField(pair, "Value")
		if key == "" {
			// ECS emits lower-case pair keys.
			key = stringField(pair, "key")
			value = stringField(pair, "value")
		}
		if key != "" {
			into[key] = value
		}
	}
}

func extractTime(payload map[string]any, keys []string) *time.Time {
	candidates := append([]string{}, keys...)
	candidates = append(candidates, "CreateTime", "CreationDate", "CreatedTime", "CreationTime", "CreateDate", "LaunchTime")
	for _, key := range candidates {
		s := stringField(payload, key)
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
			if ts, err := time.Parse(layout, s); err == nil {
				utc := ts.UTC()
				return &utc
			}
		}
	}
	return nil
}
