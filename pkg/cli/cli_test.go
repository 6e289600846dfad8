package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/repositories"
	"github.com/ekaya-inc/ekaya-discovery/pkg/testhelpers"
)

const testFeature = `Feature: Member login

  Scenario Outline: a registered member signs in
    Given a <member_type> member with a verified email
    When they sign in
    Then the dashboard shows their orders

    Examples:
      | member_type | channel |
      | GOLD        | web     |
      |             | web     |
      | SILVER      | mobile  |
`

// fixtureEnv writes a config pointing both databases at the SQLite fixture
// and returns its path together with the working directory it uses.
func fixtureEnv(t *testing.T) (configPath, dir string) {
	t.Helper()
	t.Setenv("LLM_API_URL", "")
	t.Setenv("LLM_ENDPOINT", "")

	dir = t.TempDir()
	db := testhelpers.NewSQLiteFixture(t)
	featurePath := filepath.Join(dir, "login.feature")
	require.NoError(t, os.WriteFile(featurePath, []byte(testFeature), 0o644))

	cfg := fmt.Sprintf(`
log_level: error
primary:
  type: sqlite
  path: %[1]q
warehouse:
  type: sqlite
  path: %[1]q
discovery:
  desired_count: 3
  batch_size: 4
  max_batches: 10
  email_pattern: "%%@example.com"
  order_by: USER_NO
  llm_paging: false
  rules_path: %[2]q
registration:
  table: OKTA_USERS
  registered_flag_col: REGISTERED
templates:
  primary_table: MEMBERS
  active_members: "SELECT USER_NO, MEMBER_ID, EMAIL FROM ${OWNER}.${TABLE} WHERE MEMBER_TYPE = '{member_type}' AND EMAIL LIKE '{email_pattern}' ORDER BY ${ORDER_BY}"
  warehouse_query: "SELECT MEMBER_ID, ORDER_TOTAL FROM MEMBER_ORDERS WHERE MEMBER_ID = '{member_id}'"
paths:
  feature_file: %[3]q
  primary_schema: %[4]q
  warehouse_schema: %[5]q
  history: %[6]q
  primary_output: %[7]q
  warehouse_output: %[8]q
`, db,
		filepath.Join(dir, "rules.toml"),
		featurePath,
		filepath.Join(dir, "schema", "primary.json"),
		filepath.Join(dir, "schema", "warehouse.yaml"),
		filepath.Join(dir, "history.json"),
		filepath.Join(dir, "out", "primary"),
		filepath.Join(dir, "out", "warehouse"),
	)

	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return configPath, dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version", "--config", "/does/not/matter.yaml")
	require.NoError(t, err)
	assert.Equal(t, "ekaya-discovery test\n", out)
}

func TestExtractSchema(t *testing.T) {
	configPath, dir := fixtureEnv(t)

	out, err := runCLI(t, "extract-schema", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "primary: 3 tables")
	assert.Contains(t, out, "warehouse: 3 tables")

	assert.FileExists(t, filepath.Join(dir, "schema", "primary.json"))
	assert.FileExists(t, filepath.Join(dir, "schema", "warehouse.yaml"))
}

func TestTestConnection(t *testing.T) {
	configPath, _ := fixtureEnv(t)

	out, err := runCLI(t, "test-connection", "--primary", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "primary (sqlite) reachable")
	assert.NotContains(t, out, "warehouse")
}

func TestValidate(t *testing.T) {
	configPath, _ := fixtureEnv(t)
	_, err := runCLI(t, "extract-schema", "--primary", "--config", configPath)
	require.NoError(t, err)

	t.Run("passes", func(t *testing.T) {
		out, err := runCLI(t, "validate", "--config", configPath, "--sql", "SELECT USER_NO, EMAIL FROM MEMBERS WHERE STATUS = 'ACTIVE'")
		require.NoError(t, err)
		assert.Contains(t, out, "statement passed")
		assert.Contains(t, out, "columns: USER_NO, EMAIL")
	})

	t.Run("unsafe statement exits 2", func(t *testing.T) {
		out, err := runCLI(t, "validate", "--config", configPath, "DELETE", "FROM", "MEMBERS")
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(err))
		assert.Contains(t, out, "safety rejection")
	})

	t.Run("unknown column exits 2", func(t *testing.T) {
		stmtFile := filepath.Join(t.TempDir(), "q.sql")
		require.NoError(t, os.WriteFile(stmtFile, []byte("SELECT m.NICKNAME FROM MEMBERS m"), 0o644))

		out, err := runCLI(t, "validate", "--config", configPath, "--file", stmtFile)
		assert.Equal(t, 2, exitCode(err))
		assert.Contains(t, out, "schema rejection")
		assert.Contains(t, out, "NICKNAME")
	})

	t.Run("missing snapshot checks safety only", func(t *testing.T) {
		out, err := runCLI(t, "validate", "--config", configPath, "--target", "warehouse", "--sql", "SELECT * FROM ANYTHING")
		require.NoError(t, err)
		assert.Contains(t, out, "no schema snapshot")
	})

	t.Run("no statement", func(t *testing.T) {
		_, err := runCLI(t, "validate", "--config", configPath)
		assert.Error(t, err)
		assert.Equal(t, -1, exitCode(err))
	})
}

func TestRun(t *testing.T) {
	configPath, dir := fixtureEnv(t)

	out, err := runCLI(t, "run", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "example 1 (GOLD): 3/3 members")
	assert.Contains(t, out, "example 3 (SILVER): 3/3 members")
	assert.Contains(t, out, "2 processed, 2 satisfied, 1 skipped")

	assert.FileExists(t, filepath.Join(dir, "out", "primary", "candidates_example1.json"))
	assert.FileExists(t, filepath.Join(dir, "out", "primary", "candidates_example3.json"))
	results, err := filepath.Glob(filepath.Join(dir, "out", "warehouse", "warehouse_result_example*.json"))
	require.NoError(t, err)
	assert.Len(t, results, 2)

	history, err := repositories.NewHistoryRepository(filepath.Join(dir, "history.json"), zap.NewNop()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "fallback_in_list", history[0].WarehouseStrategy)
	assert.Equal(t, "web", history[0].Example["channel"])
}

func TestRun_RulesAndNoWarehouse(t *testing.T) {
	configPath, dir := fixtureEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.toml"), []byte("[gold]\ndesired_count = 1\n"), 0o644))

	out, err := runCLI(t, "run", "--config", configPath, "--no-warehouse")
	require.NoError(t, err)
	assert.Contains(t, out, "example 1 (GOLD): 1/1 members")
	assert.Contains(t, out, "warehouse lookup disabled")
	assert.NoDirExists(t, filepath.Join(dir, "out", "warehouse"))
}

func TestFetchActive(t *testing.T) {
	configPath, dir := fixtureEnv(t)

	out, err := runCLI(t, "fetch-active", "--config", configPath, "--member-type", "GOLD", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "5 rows")

	files, err := filepath.Glob(filepath.Join(dir, "out", "primary", "active_gold_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFetchActive_RejectsInjection(t *testing.T) {
	configPath, _ := fixtureEnv(t)

	_, err := runCLI(t, "fetch-active", "--config", configPath, "--member-type", "' OR 1=1--")
	assert.Equal(t, 2, exitCode(err))
}

func TestGenerate_RequiresEndpoint(t *testing.T) {
	configPath, _ := fixtureEnv(t)

	_, err := runCLI(t, "generate", "--config", configPath, "members who never ordered")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM endpoint")
}

func TestUnknownTarget(t *testing.T) {
	configPath, _ := fixtureEnv(t)

	_, err := runCLI(t, "validate", "--config", configPath, "--target", "ledger", "--sql", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}
