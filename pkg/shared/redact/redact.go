package redact

import "strings"

var sensitiveKeys = []string{"authorization", "cookie", "access_token", "id_token", "session", "apikey", "x-api-key"}

// Headers masks sensitive values in a header map best-effort, returning a
// copy safe to log. Key comparison is case-insensitive; the original map is
// never mutated.
func Headers(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if isSensitiveKey(k) {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if k == s {
			return true
		}
	}
	return false
}
