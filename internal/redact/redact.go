// Package redact strips credentials and personal data from strings before
// they reach a log sink. Connection strings for Postgres, Redis and AMQP,
// bearer tokens, password fields, e-mail addresses and SQL text are replaced
// with fixed placeholders.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules run in order; connection strings go first so their embedded
// passwords and hosts are consumed before the narrower rules see them.
var rules = []rule{
	{
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|pgx|rediss?|amqps?)://[^@\s/]+@`),
		CredentialPlaceholder,
	},
	{
		regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		JWTPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/]{8,}=*`),
		"Bearer " + KeyPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd|hashed_password)(\s*[=:]\s*['"]?)[^'"&\s,]{3,}`),
		CredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(jwt_secret|secret|api[_-]?key|refresh_token|token)(\s*[=:]\s*['"]?)[A-Za-z0-9_\-.~+/]{8,}`),
		KeyPlaceholder,
	},
	{
		regexp.MustCompile(`\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}`),
		CredentialPlaceholder,
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		EmailPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[^;]*?\b(FROM|INTO|SET)\b\s+\w+`),
		SQLPlaceholder,
	},
	{
		regexp.MustCompile(`(?:/[\w.-]+){3,}`),
		PathPlaceholder,
	},
}

// String returns input with every sensitive fragment replaced.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.pattern.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Error redacts err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
