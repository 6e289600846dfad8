package sql

import (
	"testing"
)

func TestScreenValue(t *testing.T) {
	tests := []struct {
		name            string
		value           any
		expectInjection bool
	}{
		// Clean search keys and batch values
		{name: "member type", value: "GOLD", expectInjection: false},
		{name: "email pattern", value: "%@example.com", expectInjection: false},
		{name: "numeric user number", value: 100234, expectInjection: false},
		{name: "float", value: 99.95, expectInjection: false},
		{name: "bool", value: true, expectInjection: false},
		{name: "nil", value: nil, expectInjection: false},
		{name: "empty string", value: "", expectInjection: false},
		{name: "apostrophe in name", value: "O'Brien", expectInjection: false},
		{name: "natural language", value: "SELECT the best option from the menu", expectInjection: false},

		// Payloads
		{name: "classic OR", value: "' OR '1'='1", expectInjection: true},
		{name: "stacked drop", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
		{name: "comment", value: "admin'--", expectInjection: true},
		{name: "time based", value: "1' AND SLEEP(5)--", expectInjection: true},
		{name: "bytes payload", value: []byte("' OR 1=1--"), expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := ScreenValue("member_type", tt.value)

			if !tt.expectInjection {
				if finding != nil {
					t.Errorf("expected clean value, got fingerprint %q", finding.Fingerprint)
				}
				return
			}
			if finding == nil {
				t.Fatalf("expected injection detection for %v, got nil", tt.value)
			}
			if finding.Field != "member_type" {
				t.Errorf("expected Field=member_type, got %q", finding.Field)
			}
			if finding.Fingerprint == "" {
				t.Errorf("expected non-empty fingerprint")
			}
			if finding.Error() == "" {
				t.Errorf("expected error text")
			}
		})
	}
}

func TestScreenValues(t *testing.T) {
	values := []any{1001, "GOLD", "'; DROP TABLE users--", "O'Brien", "' OR 1=1--"}

	findings := ScreenValues("user_no", values)

	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].Value != "'; DROP TABLE users--" {
		t.Errorf("expected findings in input order, got %v first", findings[0].Value)
	}
	if len(ScreenValues("user_no", []any{1, 2, "abc"})) != 0 {
		t.Errorf("expected no findings for clean batch")
	}
}
