package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxQueryLogLength is the default length of a statement in log fields.
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/=-]+`)

	// api_key=..., x-api-key: ...
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)(=|:\s*)[A-Za-z0-9_-]{20,}`)

	// OpenAI and Anthropic secret keys appearing bare in provider errors.
	secretKeyPattern = regexp.MustCompile(`\bsk-(?:ant-)?[A-Za-z0-9_-]{16,}`)

	// user:pass@host in oracle://, sqlserver://, postgres:// and mysql DSNs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)

	// go-sql-driver/mysql DSNs: user:pass@tcp(host:port)/db
	mysqlDSNPattern = regexp.MustCompile(`[^\s:/@]+:[^@\s]+@(tcp|unix)\(`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = mysqlDSNPattern.ReplaceAllString(sanitized, RedactedText+"@${1}(")
	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Database drivers and LLM clients both echo credentials in errors.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText applies every redaction pattern to s.
func SanitizeText(s string) string {
	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = mysqlDSNPattern.ReplaceAllString(sanitized, RedactedText+"@${1}(")
	return sanitized
}

// TruncateQuery collapses whitespace in a statement, redacts credentials and
// cuts it to maxLen bytes. maxLen <= 0 uses MaxQueryLogLength.
func TruncateQuery(query string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxQueryLogLength
	}
	collapsed := strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
	collapsed = passwordPattern.ReplaceAllString(collapsed, "${1}="+RedactedText)
	return TruncateString(collapsed, maxLen)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
