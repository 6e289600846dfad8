package llm

import (
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that may appear at the start of LLM responses.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// sqlFencePattern matches the first markdown code block, with or without a
// language tag.
var sqlFencePattern = regexp.MustCompile("(?s)```[A-Za-z-]*[ \t]*\r?\n?(.*?)```")

// ExtractSQL pulls a statement out of a completion that may contain <think>
// tags, a markdown code block or stray backticks, and removes one trailing
// semicolon. The result is still untrusted text and must be validated.
func ExtractSQL(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	if m := sqlFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	cleaned = strings.TrimSpace(strings.Trim(strings.TrimSpace(cleaned), "`"))
	cleaned = strings.TrimSuffix(cleaned, ";")
	return strings.TrimSpace(cleaned)
}
