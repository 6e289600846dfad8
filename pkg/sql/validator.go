// Package sql provides lexical safety and schema validation for generated SQL,
// template rendering and deterministic batch statement synthesis.
package sql

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// PassedReason is the verdict reason for an accepted statement.
const PassedReason = "Validation passed"

// ForbiddenKeywords may not appear as a whole word anywhere in a statement.
var ForbiddenKeywords = []string{"DELETE", "DROP", "UPDATE", "INSERT", "ALTER", "TRUNCATE", "MERGE", "GRANT", "REVOKE"}

var forbiddenRegexes = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(ForbiddenKeywords))
	for i, kw := range ForbiddenKeywords {
		out[i] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return out
}()

// Verdict is the outcome of validating one statement.
type Verdict struct {
	Passed bool
	Reason string
	Kind   apperrors.RejectionKind // empty when Passed
	Issues []string                // schema issues, empty unless Kind is schema
	SQL    string                  // trimmed statement without trailing semicolons
}

// Err returns nil for a passing verdict and a *apperrors.RejectionError otherwise.
func (v Verdict) Err() error {
	if v.Passed {
		return nil
	}
	return &apperrors.RejectionError{Kind: v.Kind, Reason: v.Reason, SQL: v.SQL}
}

// Validator certifies that a statement is a single read-only SELECT/WITH and,
// when a catalog is supplied, that its identifiers exist in that catalog.
type Validator struct {
	extractor IdentifierExtractor
}

// NewValidator returns a validator using extractor, or the lexical extractor
// when extractor is nil.
func NewValidator(extractor IdentifierExtractor) *Validator {
	if extractor == nil {
		extractor = defaultExtractor
	}
	return &Validator{extractor: extractor}
}

// Validate runs the validator with the lexical extractor.
func Validate(sqlQuery string, catalog *schema.Catalog) Verdict {
	return NewValidator(nil).Validate(sqlQuery, catalog)
}

// Validate applies the checks in order. The statement-level checks stop at the
// first failure and the schema check only runs once they all pass; schema
// issues are accumulated so the caller sees every one of them. A nil catalog
// skips the schema check.
func (v *Validator) Validate(sqlQuery string, catalog *schema.Catalog) Verdict {
	normalized := stripTrailingSemicolon(sqlQuery)

	reject := func(reason string) Verdict {
		return Verdict{Reason: reason, Kind: apperrors.RejectionSafety, SQL: normalized}
	}

	if strings.Contains(normalized, ";") {
		return reject("multiple statements detected; only a single SELECT is allowed")
	}
	if kw := FindForbiddenKeyword(normalized); kw != "" {
		return reject("forbidden keyword found: " + kw)
	}
	token := LeadingToken(normalized)
	if token == "" {
		return reject("no tokens found")
	}
	if upper := strings.ToUpper(token); upper != "SELECT" && upper != "WITH" {
		return reject("query must be SELECT or WITH; found: " + token)
	}

	if catalog != nil {
		issues := CrossValidate(v.extractor.Extract(normalized), catalog)
		if len(issues) > 0 {
			return Verdict{
				Reason: strings.Join(issues, "; "),
				Kind:   apperrors.RejectionSchema,
				Issues: issues,
				SQL:    normalized,
			}
		}
	}

	return Verdict{Passed: true, Reason: PassedReason, SQL: normalized}
}

// FindForbiddenKeyword returns the first forbidden keyword, in list order,
// that appears as a whole word in sqlQuery, or "".
func FindForbiddenKeyword(sqlQuery string) string {
	upper := strings.ToUpper(sqlQuery)
	for i, re := range forbiddenRegexes {
		if re.MatchString(upper) {
			return ForbiddenKeywords[i]
		}
	}
	return ""
}

// LeadingToken returns the first lexical token after leading whitespace: a
// run of word characters, a comment opener, or a single other character.
func LeadingToken(sqlQuery string) string {
	s := strings.TrimSpace(sqlQuery)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "--") || strings.HasPrefix(s, "/*") {
		return s[:2]
	}
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	if end == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return s[:size]
	}
	return s[:end]
}

// stripTrailingSemicolon trims the statement, removes the run of semicolons
// that ends it, and trims again. Whitespace between two semicolons is kept,
// so "SELECT 1; ;" still holds a semicolon afterwards.
func stripTrailingSemicolon(sqlQuery string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sqlQuery), ";"))
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
