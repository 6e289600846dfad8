package sql

import "strings"

// literalMarker replaces the whole of every single-quoted literal.
const literalMarker = "''"

// StripStringLiterals replaces each single-quoted literal with an empty
// literal. A doubled quote inside a literal is an escaped quote, not a
// terminator. An unterminated literal swallows the rest of the text.
func StripStringLiterals(sqlQuery string) string {
	var b strings.Builder
	b.Grow(len(sqlQuery))

	inQuote := false
	for i := 0; i < len(sqlQuery); i++ {
		ch := sqlQuery[i]
		if !inQuote {
			if ch == '\'' {
				inQuote = true
				b.WriteString(literalMarker)
				continue
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '\'' {
			if i+1 < len(sqlQuery) && sqlQuery[i+1] == '\'' {
				i++
				continue
			}
			inQuote = false
		}
	}
	return b.String()
}
