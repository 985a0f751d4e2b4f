package discovery

import (
	"strings"
)

// globalManagedPrefixes mark a record as provider-managed by its id or
// name alone, regardless of service. Customer naming conventions such as
// my-, app-, dev-, prod-, test-, company- never match any of these.
var globalManagedPrefixes = []string{
	"aws-",
	"AWS",
	"amazon-",
	"Amazon",
	"default",
	"Default",
}

// IsManaged reports whether a record is provider-owned and should be
// dropped. Lexical prefixes apply first, then per-service patterns, then
// structural rules that need payload context.
func IsManaged(mapper *ServiceMapper, id, name string, payload map[string]any) bool {
	if !mapper.ExcludeManaged {
		return false
	}
	for _, prefix := range globalManagedPrefixes {
		if strings.HasPrefix(id, prefix) || strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, pattern := range mapper.ManagedPatterns {
		if pattern.MatchString(id) || pattern.MatchString(name) {
			return true
		}
	}
	return structurallyManaged(mapper.Service, id, payload)
}

// structurallyManaged recognizes provider ownership that prefixes cannot:
// service-linked roles by path, policies in the provider-root namespace,
// and default networking primitives by payload flags.
func structurallyManaged(service, id string, payload map[string]any) bool {
	switch service {
	case "IAM":
		if path, ok := payload["Path"].(string); ok {
			if strings.HasPrefix(path, "/aws-service-role/") || strings.HasPrefix(path, "/service-role/") {
				return true
			}
		}
		if arn, ok := payload["Arn"].(string); ok && strings.HasPrefix(arn, "arn:aws:iam::aws:") {
			return true
		}
	case "EC2":
		if isDefault, ok := payload["IsDefault"].(bool); ok && isDefault {
			return true
		}
		if groupName, ok := payload["GroupName"].(string); ok && groupName == "default" {
			return true
		}
	case "KMS":
		if manager, ok := payload["KeyManager"].(string); ok && manager == "AWS" {
			return true
		}
	case "ROUTE53":
		if strings.HasSuffix(strings.TrimSuffix(id, "."), "in-addr.arpa") ||
			strings.HasSuffix(strings.TrimSuffix(id, "."), "ip6.arpa") {
			return true
		}
	}
	return false
}
