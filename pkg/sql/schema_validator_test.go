package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

func TestCrossValidate(t *testing.T) {
	single := schema.NewCatalog()
	single.AddTable("REAL_TABLE", map[string]string{"BAR": "NUMBER"})

	composite := schema.NewCatalog()
	composite.AddTable("DW.MEMBER_FACT", map[string]string{"MEMBER_ID": "bigint", "STATUS": "varchar"})
	composite.AddTable("DW.MEMBER_DIM", map[string]string{"MEMBER_ID": "bigint", "NAME": "varchar"})

	tests := []struct {
		name    string
		sql     string
		catalog *schema.Catalog
		want    []string
	}{
		{
			name:    "unknown column through alias",
			sql:     "SELECT a.FOO FROM REAL_TABLE a",
			catalog: single,
			want:    []string{"unknown column FOO in table REAL_TABLE"},
		},
		{
			name:    "alias of an unknown table reports the table once",
			sql:     "SELECT q.C FROM GHOST q",
			catalog: single,
			want:    []string{"unknown table referenced: GHOST"},
		},
		{
			name:    "known column through alias",
			sql:     "SELECT a.bar FROM real_table a",
			catalog: single,
		},
		{
			name:    "direct table qualifier",
			sql:     "SELECT REAL_TABLE.BAZ FROM REAL_TABLE",
			catalog: single,
			want:    []string{"unknown column BAZ in table REAL_TABLE"},
		},
		{
			name:    "composite keys match rightmost segment",
			sql:     "SELECT f.STATUS, d.NAME FROM dw.member_fact f JOIN member_dim d ON d.member_id = f.member_id",
			catalog: composite,
		},
		{
			name:    "composite key column issue reports full key",
			sql:     "SELECT f.NOPE FROM member_fact f",
			catalog: composite,
			want:    []string{"unknown column NOPE in table DW.MEMBER_FACT"},
		},
		{
			name:    "unknown table",
			sql:     "SELECT * FROM member_fact f JOIN ghosts g ON g.id = f.member_id",
			catalog: composite,
			want:    []string{"unknown table referenced: GHOSTS"},
		},
		{
			name:    "unresolved qualifier accepted",
			sql:     "SELECT z.anything FROM member_fact f",
			catalog: composite,
		},
		{
			name:    "cte name is not an unknown table",
			sql:     "WITH recent AS (SELECT member_id FROM member_fact) SELECT r.member_id FROM recent r",
			catalog: composite,
		},
		{
			name:    "duplicate issues reported once",
			sql:     "SELECT a.FOO, a.FOO FROM REAL_TABLE a WHERE a.FOO = 1",
			catalog: single,
			want:    []string{"unknown column FOO in table REAL_TABLE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := CrossValidate(LexicalExtractor{}.Extract(tt.sql), tt.catalog)
			assert.Equal(t, tt.want, issues)
		})
	}
}

func TestCrossValidate_TempTableCatalog(t *testing.T) {
	cat := schema.NewCatalog()
	cat.AddTable("DW.MEMBER_FACT", map[string]string{"MEMBER_ID": "bigint"})
	withTemp := cat.WithTable("#members", map[string]string{"MEMBER_ID": "BIGINT"})

	sql := "SELECT f.* FROM dw.member_fact f JOIN #members m ON m.member_id = f.member_id"

	assert.Equal(t, []string{"unknown table referenced: #MEMBERS"}, CrossValidate(LexicalExtractor{}.Extract(sql), cat))
	assert.Empty(t, CrossValidate(LexicalExtractor{}.Extract(sql), withTemp))
}

func TestCrossValidate_NilInputs(t *testing.T) {
	assert.Nil(t, CrossValidate(nil, schema.NewCatalog()))
	assert.Nil(t, CrossValidate(LexicalExtractor{}.Extract("SELECT * FROM x"), nil))
}
