// Package safety enforces the read-only contract: every outgoing provider
// operation name is checked against a fixed lexical allow-list before the
// discovery engine is permitted to issue it.
package safety

import (
	"strings"
	"unicode"
)

// Operation name prefixes that are read-only and allowed.
var allowedPrefixes = []string{
	"describe_", "list_", "get_", "head_", "lookup_", "download_",
	"simulate_", "detect_", "test_", "validate_", "check_",
}

// Operation name prefixes that mutate state and are always forbidden.
var forbiddenPrefixes = []string{
	"create_", "delete_", "modify_", "update_", "put_", "attach_",
	"detach_", "associate_", "disassociate_", "start_", "stop_",
	"reboot_", "terminate_", "run_", "launch_", "allocate_", "release_",
	"authorize_", "revoke_", "enable_", "disable_", "register_",
	"deregister_", "import_", "export_", "copy_", "restore_", "reset_",
	"replace_", "cancel_", "accept_", "reject_",
}

// IsReadOnly reports whether the operation may be issued. Names that are
// neither clearly allowed nor clearly forbidden are treated as forbidden.
func IsReadOnly(operation string) bool {
	name := toSnake(operation)
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// toSnake converts an SDK-style operation name (ListBuckets) to the
// snake_case form the lexical rule is defined over (list_buckets).
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
