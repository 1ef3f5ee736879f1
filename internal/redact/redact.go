// Package redact removes secrets from strings before they are logged or
// returned in error responses. Provider adapters, database errors and
// presigned storage URLs routinely embed credentials in their messages, so
// every error that crosses a log or API boundary is passed through Error.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules are applied in order; earlier rules see the unmodified input.
var rules = []rule{
	// user:password@ in connection strings
	{regexp.MustCompile(`(?i)\b(postgres|postgresql|redis|rediss|mysql)://[^@\s/]+@`), "${1}://" + RedactedCredentialPlaceholder + "@"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/=-]{8,}`), "${1} " + RedactionPlaceholder},
	{regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`), RedactedKeyPlaceholder},
	// presigned URL query parameters
	{regexp.MustCompile(`(?i)(X-Amz-(?:Signature|Credential|Security-Token)=)[^&\s"]+`), "${1}" + RedactionPlaceholder},
	// header style secrets
	{regexp.MustCompile(`(?i)\b(mj-api-secret|x-api-key|x-goog-api-key)(\s*[:=]\s*)[^\s,;"]+`), "${1}${2}" + RedactionPlaceholder},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?key|secret|token|password|passwd|pwd)(['"]?\s*[:=]\s*['"]?)[^'"&\s,;\[]{3,}`), "${1}${2}" + RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*()."$=]+\b(FROM|INTO|SET)\b[^;]*`), RedactedSQLPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.re.ReplaceAllString(input, r.repl)
	}
	return input
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
