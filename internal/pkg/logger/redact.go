package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "maria.lopez@example.com" → "ma***@example.com"; local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 || strings.Count(email, "@") != 1 {
		return "***@***"
	}
	local, host := email[:at], email[at+1:]
	if len(local) > 2 {
		return local[:2] + "***@" + host
	}
	return "***@" + host
}
