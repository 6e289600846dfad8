package sql

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// anchorPattern builds the single comparison the fallback rewrites:
// <column> = '{name}', :name or @name, with optional quotes around the
// placeholder.
func anchorPattern(param string) *regexp.Regexp {
	name := regexp.QuoteMeta(param)
	return regexp.MustCompile(`(?i)([A-Za-z0-9_."]+)\s*=\s*['"]?(?:\{` + name + `\}|:` + name + `\b|@` + name + `\b)['"]?`)
}

// FallbackInClause rewrites a single-value template into a multi-value one
// without any external call.
//
// Every <column> = <placeholder> comparison for param becomes
// <column> IN (<literals>). When no such comparison exists the IN filter is
// appended as a new WHERE clause, which is only correct for templates without
// one; the result must still go through Validate before it is executed.
func FallbackInClause(template, param string, values []any) string {
	inList := FormatInList(values)
	re := anchorPattern(param)
	if re.MatchString(template) {
		return re.ReplaceAllStringFunc(template, func(match string) string {
			col := re.FindStringSubmatch(match)[1]
			return col + " IN (" + inList + ")"
		})
	}
	return strings.TrimRight(template, "; \t\n\r") + " WHERE " + param + " IN (" + inList + ")"
}

// FormatInList renders values as a comma separated literal list. An empty
// list renders as NULL so the statement stays well-formed and matches nothing.
func FormatInList(values []any) string {
	if len(values) == 0 {
		return "NULL"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatLiteral(v)
	}
	return strings.Join(parts, ", ")
}

// FormatLiteral renders one value as a SQL literal. Numbers are unquoted;
// everything else is stringified with single quotes doubled and wrapped in
// single quotes. NaN and infinities are not valid SQL numbers and are quoted.
func FormatLiteral(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n)
	case float32:
		return formatFloat(float64(n), 32)
	case float64:
		return formatFloat(n, 64)
	case json.Number:
		return n.String()
	case nil:
		return "NULL"
	case []byte:
		return quote(string(n))
	}
	return quote(fmt.Sprint(v))
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return quote(strconv.FormatFloat(f, 'f', -1, bits))
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
