package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputColumns(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name:     "bare columns",
			sql:      "SELECT USER_NO, MEMBER_ID, EMAIL FROM MEMBERS",
			expected: []string{"USER_NO", "MEMBER_ID", "EMAIL"},
		},
		{
			name:     "qualified and aliased",
			sql:      "SELECT m.user_no, m.email AS contact FROM APP.MEMBERS m",
			expected: []string{"USER_NO", "CONTACT"},
		},
		{
			name:     "functions with commas inside",
			sql:      "SELECT NVL(LAST_UPDATED, CREATED_DATE) AS TOUCHED, COUNT(*) n FROM MEMBERS",
			expected: []string{"TOUCHED", "N"},
		},
		{
			name:     "unaliased function",
			sql:      "SELECT MAX(ORDER_TOTAL) FROM MEMBER_ORDERS",
			expected: []string{"MAX"},
		},
		{
			name:     "literal containing FROM",
			sql:      "SELECT USER_NO, 'x FROM y' AS NOTE FROM MEMBERS",
			expected: []string{"USER_NO", "NOTE"},
		},
		{
			name:     "distinct and top",
			sql:      "SELECT DISTINCT TOP 10 MEMBER_ID FROM dbo.ORDERS",
			expected: []string{"MEMBER_ID"},
		},
		{
			name:     "case expression",
			sql:      "SELECT CASE WHEN STATUS = 'A' THEN 1 ELSE 0 END FROM MEMBERS",
			expected: []string{"CASE"},
		},
		{
			name:     "quoted identifier",
			sql:      `SELECT "USER_NO" FROM MEMBERS`,
			expected: []string{"USER_NO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, c := range OutputColumns(tt.sql) {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestOutputColumns_Undetermined(t *testing.T) {
	for _, q := range []string{
		"SELECT * FROM MEMBERS",
		"SELECT m.* FROM MEMBERS m",
		"UPDATE MEMBERS SET STATUS = 'X'",
		"",
	} {
		assert.Nil(t, OutputColumns(q), q)
	}
}

func TestMissingOutputColumns(t *testing.T) {
	q := "SELECT USER_NO, EMAIL FROM MEMBERS WHERE MEMBER_TYPE = '{member_type}'"

	assert.Equal(t, []string{"MEMBER_ID"}, MissingOutputColumns(q, "user_no", "MEMBER_ID"))
	assert.Empty(t, MissingOutputColumns(q, "USER_NO", ""))
	assert.Empty(t, MissingOutputColumns("SELECT * FROM MEMBERS", "USER_NO"))
}
