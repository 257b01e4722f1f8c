package inventory

import "strings"

// fallbackName stands in when sanitizing would produce an empty identifier,
// so a group name can never be blank.
const fallbackName = "unnamed"

// Sanitize converts a raw Foreman name into a safe group identifier:
// lowercase, with every rune outside [a-z0-9_-] replaced by an underscore.
// Idempotent, so already-sanitized names pass through unchanged.
func Sanitize(raw string) string {
	if raw == "" {
		return fallbackName
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
