package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a value that libinjection flags as SQL injection.
type InjectionFinding struct {
	Field       string // name of the field or key the value came from
	Value       any
	Fingerprint string // libinjection fingerprint of the detected pattern
}

func (f *InjectionFinding) Error() string {
	return fmt.Sprintf("value for %s looks like SQL injection (fingerprint %s)", f.Field, f.Fingerprint)
}

// ScreenValue checks a value that will be spliced into SQL text as a literal.
//
// Only strings are checked; numbers and other non-string values cannot carry
// an injection payload. Returns nil when the value is clean.
//
// Example:
//
//	ScreenValue("member_type", "GOLD")                   // nil
//	ScreenValue("member_type", "x' OR '1'='1")          // finding, fingerprint "s&sos" or similar
func ScreenValue(field string, value any) *InjectionFinding {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(s)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{Field: field, Value: value, Fingerprint: string(fingerprint)}
}

// ScreenValues checks every value in a batch and returns the findings in
// input order. An empty result means every value is clean.
func ScreenValues(field string, values []any) []*InjectionFinding {
	var findings []*InjectionFinding
	for _, v := range values {
		if f := ScreenValue(field, v); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}
