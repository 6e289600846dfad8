package feature

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginFeature = `Feature: User login

  Scenario Outline: Registered members can sign in
    Given a <Member_Type> member
    When they sign in
    Then they see their orders

    Examples:
      | Member_Type | Channel |
      | GOLD        | web     |
      | SILVER      |         |
      |             | app     |

  Scenario: Second table is ignored
    Examples:
      | member_type |
      | BRONZE      |
`

func TestReadExamples(t *testing.T) {
	examples, err := ReadExamples(strings.NewReader(loginFeature))
	require.NoError(t, err)
	require.Len(t, examples, 3)

	assert.Equal(t, 1, examples[0].Index)
	assert.Equal(t, map[string]string{"member_type": "GOLD", "channel": "web"}, examples[0].Values)
	assert.Equal(t, "GOLD", examples[0].SearchKey())

	assert.Equal(t, "", examples[1].Values["channel"])
	assert.Equal(t, "SILVER", examples[1].SearchKey())

	assert.Equal(t, "", examples[2].SearchKey())
	assert.Equal(t, 3, examples[2].Index)
}

func TestReadExamples_NoTable(t *testing.T) {
	examples, err := ReadExamples(strings.NewReader("Feature: nothing here\n  Scenario: x\n"))
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestExample_SearchKeyWithSpacedHeader(t *testing.T) {
	doc := "Feature: f\n  Scenario Outline: s\n    Given a <Member Type>\n    Examples:\n      | Member Type |\n      | PLATINUM |\n"
	examples, err := ReadExamples(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "PLATINUM", examples[0].SearchKey())
}

func TestReadExamples_EscapedPipe(t *testing.T) {
	doc := `Feature: f
  Scenario Outline: s
    Given a <member_type> member from <channel>
    Examples:
      | member_type | channel    |
      | GOLD        | web\|app   |
`
	examples, err := ReadExamples(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "web|app", examples[0].Values["channel"])
	assert.Equal(t, "GOLD", examples[0].SearchKey())
}

func TestReadExamples_InsideRule(t *testing.T) {
	doc := `Feature: f
  Rule: members only
    Scenario Outline: s
      Given a <member_type> member
      Examples:
        | member_type |
        | SILVER      |
`
	examples, err := ReadExamples(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "SILVER", examples[0].SearchKey())
}

func TestReadExamples_InconsistentTable(t *testing.T) {
	doc := `Feature: f
  Scenario Outline: s
    Given a <member_type> member
    Examples:
      | member_type | channel |
      | GOLD        |
`
	_, err := ReadExamples(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseExamples_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.feature")
	require.NoError(t, os.WriteFile(path, []byte(loginFeature), 0644))

	examples, err := ParseExamples(path)
	require.NoError(t, err)
	assert.Len(t, examples, 3)

	_, err = ParseExamples(filepath.Join(t.TempDir(), "missing.feature"))
	assert.Error(t, err)
}
