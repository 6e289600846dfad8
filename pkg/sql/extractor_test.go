package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Tables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"single table", "SELECT * FROM users", []string{"USERS"}},
		{"schema qualified", "SELECT * FROM app.users WHERE id = 1", []string{"USERS"}},
		{"quoted", `SELECT * FROM "App"."Users" u`, []string{"USERS"}},
		{"comma list", "SELECT * FROM users u, accounts a WHERE u.id = a.user_id", []string{"USERS", "ACCOUNTS"}},
		{"join", "SELECT * FROM users u JOIN accounts a ON a.user_id = u.id", []string{"USERS", "ACCOUNTS"}},
		{"multiline", "SELECT *\n  FROM\n\tusers\n  ORDER BY id", []string{"USERS"}},
		{"subquery skipped", "SELECT * FROM (SELECT id FROM users) x", []string{"USERS"}},
		{"temp table", "SELECT m.member_id FROM #members m JOIN dw.member_fact f ON f.member_id = m.member_id", []string{"#MEMBERS", "MEMBER_FACT"}},
		{"oracle dollar", "SELECT * FROM SYS.V$SESSION", []string{"V$SESSION"}},
		{"from in literal ignored", "SELECT * FROM users WHERE note = 'came from abroad'", []string{"USERS"}},
		{"duplicate", "SELECT * FROM users JOIN users u2 ON u2.id = users.id", []string{"USERS"}},
		{"trailing fetch", "SELECT * FROM users OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", []string{"USERS"}},
		{"no from", "SELECT 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := LexicalExtractor{}.Extract(tt.sql)
			assert.Equal(t, tt.want, stmt.Tables)
		})
	}
}

func TestExtract_Aliases(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want map[string]string
	}{
		{"bare alias", "SELECT u.id FROM users u", map[string]string{"U": "USERS"}},
		{"as alias", "SELECT u.id FROM app.users AS u WHERE u.id = 1", map[string]string{"U": "USERS"}},
		{"join aliases", "SELECT * FROM users u JOIN accounts a ON a.user_id = u.id", map[string]string{"U": "USERS", "A": "ACCOUNTS"}},
		{"keyword is not an alias", "SELECT * FROM users WHERE id = 1", map[string]string{}},
		{"join directly after table", "SELECT * FROM users JOIN accounts a ON a.id = users.id", map[string]string{"A": "ACCOUNTS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := LexicalExtractor{}.Extract(tt.sql)
			assert.Equal(t, tt.want, stmt.Aliases)
		})
	}
}

func TestExtract_QualifiedColumns(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []ColumnRef
	}{
		{"literal ignored", "SELECT 'a.b' FROM T", nil},
		{"escaped quote literal ignored", "SELECT 'it''s x.y' FROM T", nil},
		{"simple", "SELECT u.email FROM users u", []ColumnRef{{"U", "EMAIL"}}},
		{"multiply qualified", "SELECT app.users.email FROM app.users", []ColumnRef{{"USERS", "EMAIL"}, {"APP", "USERS"}}},
		{"quoted", `SELECT "u"."Email" FROM users u`, []ColumnRef{{"U", "EMAIL"}}},
		{"numeric literal ignored", "SELECT 1.5 FROM users", nil},
		{"deduplicated", "SELECT u.id FROM users u WHERE u.id > 0", []ColumnRef{{"U", "ID"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := LexicalExtractor{}.Extract(tt.sql)
			assert.Equal(t, tt.want, stmt.Columns)
		})
	}
}

func TestExtract_CTEs(t *testing.T) {
	stmt := LexicalExtractor{}.Extract("WITH active AS (SELECT * FROM users), recent AS (SELECT * FROM active) SELECT * FROM recent")

	assert.Equal(t, []string{"ACTIVE", "RECENT"}, stmt.CTEs)
	assert.True(t, stmt.IsCTE("RECENT"))
	assert.False(t, stmt.IsCTE("USERS"))
}

func TestNormalizeTableToken_Idempotent(t *testing.T) {
	inputs := []string{`"App"."Users"`, "dbo.member_fact", "#members", "SYS.V$SESSION", "users;", "'quoted'", "a.b.c"}
	for _, in := range inputs {
		once := NormalizeTableToken(in)
		assert.Equal(t, once, NormalizeTableToken(once), in)
	}

	stmt := LexicalExtractor{}.Extract(`SELECT * FROM "App"."Users" u JOIN dbo.member_fact f ON f.id = u.id`)
	var again []string
	for _, tbl := range stmt.Tables {
		again = append(again, NormalizeTableToken(tbl))
	}
	assert.Equal(t, stmt.Tables, again)
}

func TestStripStringLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 'a.b' FROM T", "SELECT '' FROM T"},
		{"WHERE name = 'O''Brien' AND x = 1", "WHERE name = '' AND x = 1"},
		{"SELECT '' FROM T", "SELECT '' FROM T"},
		{"SELECT 'unterminated FROM T", "SELECT ''"},
		{"no literals", "no literals"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripStringLiterals(tt.in), tt.in)
	}
}
