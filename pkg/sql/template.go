package sql

import (
	"regexp"
)

var (
	// envVarRegex matches ${NAME} tokens, capturing a directly following dot
	// so an empty schema owner does not leave ".TABLE" behind.
	envVarRegex = regexp.MustCompile(`\$\{([A-Za-z_]\w*)\}(\.)?`)

	// placeholderRegex matches {name} placeholders; the optional leading $
	// lets callers skip ${NAME} tokens that were left unresolved.
	placeholderRegex = regexp.MustCompile(`(\$?)\{([A-Za-z_]\w*)\}`)
)

// RenderTemplate substitutes ${VAR} tokens and then {name} placeholders from
// vars. Names missing from vars are left untouched, so a {user_no} placeholder
// survives rendering and can anchor FallbackInClause later.
//
// Example:
//
//	tpl := "SELECT * FROM ${OWNER}.${TABLE} WHERE TYPE = '{member_type}'"
//	RenderTemplate(tpl, map[string]string{"OWNER": "", "TABLE": "USERS", "member_type": "GOLD"})
//	// "SELECT * FROM USERS WHERE TYPE = 'GOLD'"
func RenderTemplate(tpl string, vars map[string]string) string {
	out := envVarRegex.ReplaceAllStringFunc(tpl, func(match string) string {
		m := envVarRegex.FindStringSubmatch(match)
		val, ok := vars[m[1]]
		if !ok {
			return match
		}
		if val == "" {
			return ""
		}
		return val + m[2]
	})

	return placeholderRegex.ReplaceAllStringFunc(out, func(match string) string {
		m := placeholderRegex.FindStringSubmatch(match)
		if m[1] == "$" {
			return match
		}
		if val, ok := vars[m[2]]; ok {
			return val
		}
		return match
	})
}

// ExtractPlaceholders returns the {name} placeholders in tpl, deduplicated,
// in order of first appearance. ${VAR} tokens are not included.
//
// Example:
//
//	ExtractPlaceholders("SELECT 1 FROM ${T} WHERE a = '{x}' AND b = '{y}' OR c = '{x}'")
//	// []string{"x", "y"}
func ExtractPlaceholders(tpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRegex.FindAllStringSubmatch(tpl, -1) {
		if m[1] == "$" || seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		names = append(names, m[2])
	}
	return names
}
