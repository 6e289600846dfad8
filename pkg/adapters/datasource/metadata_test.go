package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleColumns() []ColumnMetadata {
	return []ColumnMetadata{
		{SchemaName: "dbo", TableName: "Members", ColumnName: "user_no", DataType: "int"},
		{SchemaName: "dbo", TableName: "Members", ColumnName: "email", DataType: "varchar"},
		{SchemaName: "dbo", TableName: "Okta_Users", ColumnName: "user_no", DataType: "int"},
		{SchemaName: "dbo", TableName: "Member_Orders", ColumnName: "member_id", DataType: "int"},
		{SchemaName: "sales", TableName: "Members", ColumnName: "region", DataType: "varchar"},
	}
}

func TestBuildCatalog_Qualified(t *testing.T) {
	cat := BuildCatalog(sampleColumns(), SchemaFilter{}, true)

	assert.Equal(t, []string{"DBO.MEMBERS", "DBO.OKTA_USERS", "DBO.MEMBER_ORDERS", "SALES.MEMBERS"}, cat.Keys())
	members, ok := cat.Table("DBO.MEMBERS")
	assert.True(t, ok)
	assert.Equal(t, []string{"EMAIL", "USER_NO"}, members.ColumnNames())
}

func TestBuildCatalog_UnqualifiedMerges(t *testing.T) {
	cat := BuildCatalog(sampleColumns(), SchemaFilter{}, false)

	assert.Equal(t, []string{"MEMBERS", "OKTA_USERS", "MEMBER_ORDERS"}, cat.Keys())
	members, _ := cat.Table("MEMBERS")
	assert.True(t, members.HasColumn("REGION"))
}

func TestBuildCatalog_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter SchemaFilter
		want   []string
	}{
		{"tables", SchemaFilter{Tables: []string{"okta_users"}}, []string{"DBO.OKTA_USERS"}},
		{"prefix", SchemaFilter{TablePrefix: "member"}, []string{"DBO.MEMBERS", "DBO.MEMBER_ORDERS", "SALES.MEMBERS"}},
		{"max tables", SchemaFilter{MaxTables: 2}, []string{"DBO.MEMBERS", "DBO.OKTA_USERS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCatalog(sampleColumns(), tt.filter, true).Keys())
		})
	}
}

func TestSchemaFilter_IsEmpty(t *testing.T) {
	assert.True(t, SchemaFilter{Schemas: []string{"dbo"}}.IsEmpty())
	assert.False(t, SchemaFilter{TablePrefix: "M"}.IsEmpty())
}
