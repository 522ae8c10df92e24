package logger

import "strings"

// RedactEmail masks an address for logging: agents and contacts are both
// identified by email.
//
//	"john.doe@example.com" → "jo***@example.com"
//	"ab@example.com"       → "***@example.com"
func RedactEmail(email string) string {
	local, host, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || strings.Contains(host, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + host
	}
	return "***@" + host
}
