// Package config loads the discovery tool's settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

// Default SQL templates, used when the config file does not provide them.
const (
	DefaultActiveMembersTemplate = "SELECT USER_NO, MEMBER_ID, EMAIL, MEMBER_TYPE FROM ${OWNER}.${TABLE} " +
		"WHERE MEMBER_TYPE = '{member_type}' AND EMAIL LIKE '{email_pattern}' ORDER BY ${ORDER_BY}"
	DefaultRegisteredMembersTemplate = "SELECT USER_NO FROM ${OKTA_OWNER}.${OKTA_TABLE} " +
		"WHERE ${OKTA_REGISTERED_FLAG_COL} = '${OKTA_REGISTERED_FLAG_VALUE}' AND USER_NO = '{user_no}'"
)

// Config holds all configuration for ekaya-discovery.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	LLM LLMConfig `yaml:"llm" env-prefix:"LLM_"`

	// Primary is the member source (Oracle in production).
	Primary DatasourceConfig `yaml:"primary" env-prefix:"ORACLE_"`

	// Warehouse holds the per-member records looked up for chosen candidates.
	Warehouse DatasourceConfig `yaml:"warehouse" env-prefix:"DWH_"`

	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Registration RegistrationConfig `yaml:"registration"`
	Templates    TemplatesConfig    `yaml:"templates"`
	Paths        PathsConfig        `yaml:"paths"`
}

// LLMConfig configures the generation endpoint.
type LLMConfig struct {
	Provider       string  `yaml:"provider" env:"PROVIDER" env-default:"auto"`
	Endpoint       string  `yaml:"endpoint" env:"API_URL,ENDPOINT"`
	Model          string  `yaml:"model" env:"MODEL" env-default:"gpt-4o-mini"`
	APIKey         string  `yaml:"-" env:"API_KEY"` // Secret - not in YAML
	MaxTokens      int     `yaml:"max_tokens" env:"MAX_TOKENS" env-default:"1024"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"TIMEOUT_SECONDS" env-default:"60"`
	Temperature    float64 `yaml:"temperature" env:"TEMPERATURE" env-default:"0"`

	// Prices in USD per million tokens, for per-run cost accounting.
	InputPricePerMillion  float64 `yaml:"input_price_per_million" env:"INPUT_PRICE_PER_MILLION" env-default:"0.15"`
	OutputPricePerMillion float64 `yaml:"output_price_per_million" env:"OUTPUT_PRICE_PER_MILLION" env-default:"0.60"`

	// TranscriptDir, when set, receives one file per prompt and response.
	TranscriptDir string `yaml:"transcript_dir" env:"TRANSCRIPT_DIR"`
}

// Enabled reports whether an endpoint is configured. Without one every
// generation step uses its deterministic fallback.
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Timeout returns the per-call bound.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatasourceConfig is one database connection. Which fields matter depends
// on Type; Options passes anything adapter-specific straight through.
type DatasourceConfig struct {
	Type     string `yaml:"type" env:"TYPE"`
	DSN      string `yaml:"dsn" env:"DSN"`
	Host     string `yaml:"host" env:"HOST,SERVER"`
	Port     int    `yaml:"port" env:"PORT"`
	Database string `yaml:"database" env:"DATABASE,SERVICE"`
	User     string `yaml:"user" env:"USER,USERNAME"`
	Password string `yaml:"-" env:"PASSWORD"` // Secret - not in YAML
	Owner    string `yaml:"owner" env:"OWNER"`
	Path     string `yaml:"path" env:"PATH"` // sqlite file

	SSLMode                string `yaml:"ssl_mode" env:"SSL_MODE"`
	Encrypt                string `yaml:"encrypt" env:"ENCRYPT"`
	TrustServerCertificate string `yaml:"trust_server_certificate" env:"TRUST_SERVER_CERTIFICATE"`

	// Schema extraction filter
	Schemas     []string `yaml:"schemas" env:"SCHEMAS" env-separator:","`
	Tables      []string `yaml:"tables" env:"TABLES" env-separator:","`
	TablePrefix string   `yaml:"table_prefix" env:"TABLE_PREFIX"`
	MaxTables   int      `yaml:"max_tables" env:"MAX_TABLES"`

	Options map[string]string `yaml:"options"`
}

// AdapterOptions returns the generic option map handed to datasource.Open.
// Empty fields are omitted so adapter defaults apply.
func (c DatasourceConfig) AdapterOptions() map[string]any {
	opts := make(map[string]any, len(c.Options)+10)
	for k, v := range c.Options {
		opts[k] = v
	}
	set := func(key, value string) {
		if value != "" {
			opts[key] = value
		}
	}
	set("dsn", c.DSN)
	set("host", ResolveHostForDocker(c.Host))
	set("database", c.Database)
	set("user", c.User)
	set("password", c.Password)
	set("owner", c.Owner)
	set("path", c.Path)
	set("ssl_mode", c.SSLMode)
	set("encrypt", c.Encrypt)
	set("trust_server_certificate", c.TrustServerCertificate)
	if c.Port > 0 {
		opts["port"] = c.Port
	}
	return opts
}

// SchemaFilter returns the extraction filter.
func (c DatasourceConfig) SchemaFilter() datasource.SchemaFilter {
	schemas := c.Schemas
	if len(schemas) == 0 && c.Owner != "" {
		schemas = []string{c.Owner}
	}
	return datasource.SchemaFilter{
		Schemas:     schemas,
		Tables:      c.Tables,
		TablePrefix: c.TablePrefix,
		MaxTables:   c.MaxTables,
	}
}

// DiscoveryConfig holds the adaptive batch loop settings.
type DiscoveryConfig struct {
	DesiredCount int    `yaml:"desired_count" env:"DESIRED_COUNT" env-default:"20"`
	BatchSize    int    `yaml:"batch_size" env:"BATCH_SIZE" env-default:"200"`
	MaxBatches   int    `yaml:"max_batches" env:"MAX_BATCHES" env-default:"10"`
	EmailPattern string `yaml:"email_pattern" env:"EMAIL_PATTERN" env-default:"%@keyword.com%"`
	OrderBy      string `yaml:"order_by" env:"ORDER_BY_COLUMN" env-default:"NVL(LAST_UPDATED, CREATED_DATE) DESC"`

	// IdentityKey is the candidate column checked for membership;
	// JoinKey is the column carried to the warehouse.
	IdentityKey string `yaml:"identity_key" env:"IDENTITY_KEY" env-default:"USER_NO"`
	JoinKey     string `yaml:"join_key" env:"JOIN_KEY" env-default:"MEMBER_ID"`

	LLMPaging   bool   `yaml:"llm_paging" env:"LLM_PAGING" env-default:"true"`
	Concurrency int    `yaml:"concurrency" env:"DISCOVERY_CONCURRENCY" env-default:"1"`
	RulesPath   string `yaml:"rules_path" env:"RULES_PATH" env-default:"rules.toml"`
}

// RegistrationConfig locates the registration (membership) table.
type RegistrationConfig struct {
	Owner     string `yaml:"owner" env:"OKTA_OWNER"`
	Table     string `yaml:"table" env:"OKTA_TABLE" env-default:"OKTA_USERS"`
	FlagCol   string `yaml:"registered_flag_col" env:"OKTA_REGISTERED_FLAG_COL" env-default:"REGISTERED_FLAG"`
	FlagValue string `yaml:"registered_flag_value" env:"OKTA_REGISTERED_FLAG_VALUE" env-default:"Y"`
}

// TemplatesConfig holds the SQL templates and their ${VAR} substitutions.
type TemplatesConfig struct {
	SchemaOwner  string `yaml:"schema_owner" env:"SCHEMA_OWNER"`
	PrimaryTable string `yaml:"primary_table" env:"ORACLE_TABLE" env-default:"MEMBER_MASTER"`

	ActiveMembers     string `yaml:"active_members"`
	RegisteredMembers string `yaml:"registered_members"`
	WarehouseQuery    string `yaml:"warehouse_query"`

	ExampleQueries ExampleQueries `yaml:"example_queries"`
}

// ExampleQueries are few-shot statements included in generation prompts.
type ExampleQueries struct {
	Primary   []string `yaml:"primary"`
	Warehouse []string `yaml:"warehouse"`
}

// Vars returns the ${VAR} substitutions shared by every template.
func (c *Config) Vars() map[string]string {
	return map[string]string{
		"OWNER":                      c.Templates.SchemaOwner,
		"TABLE":                      c.Templates.PrimaryTable,
		"OKTA_OWNER":                 c.Registration.Owner,
		"OKTA_TABLE":                 c.Registration.Table,
		"OKTA_REGISTERED_FLAG_COL":   c.Registration.FlagCol,
		"OKTA_REGISTERED_FLAG_VALUE": c.Registration.FlagValue,
	}
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	FeatureFile        string `yaml:"feature_file" env:"FEATURE_PATH" env-default:"features/user_login.feature"`
	PrimarySchema      string `yaml:"primary_schema" env:"ORACLE_SCHEMA_PATH" env-default:"schema/oracle_schema.json"`
	WarehouseSchema    string `yaml:"warehouse_schema" env:"DWH_SCHEMA_PATH" env-default:"schema/dwh_schema.json"`
	History            string `yaml:"history" env:"HISTORY_PATH" env-default:"history/query_history.json"`
	PrimaryOutputDir   string `yaml:"primary_output" env:"OUTPUT_ORACLE" env-default:"output/oracle"`
	WarehouseOutputDir string `yaml:"warehouse_output" env:"OUTPUT_DWH" env-default:"output/dwh"`
}

// Load reads configuration from path with environment variable overrides.
// An empty path means DefaultPath. When the file does not exist only the
// environment (and defaults) are used. The version is set on the result.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values that differ between sections sharing a type.
func (c *Config) applyDefaults() {
	if c.Primary.Type == "" {
		c.Primary.Type = "oracle"
	}
	if c.Warehouse.Type == "" {
		c.Warehouse.Type = "mssql"
	}
	if strings.TrimSpace(c.Templates.ActiveMembers) == "" {
		c.Templates.ActiveMembers = DefaultActiveMembersTemplate
	}
	if strings.TrimSpace(c.Templates.RegisteredMembers) == "" {
		c.Templates.RegisteredMembers = DefaultRegisteredMembersTemplate
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Discovery.DesiredCount <= 0 {
		problems = append(problems, "desired_count must be positive")
	}
	if c.Discovery.BatchSize <= 0 {
		problems = append(problems, "batch_size must be positive")
	}
	if c.Discovery.MaxBatches <= 0 {
		problems = append(problems, "max_batches must be positive")
	}
	if c.Discovery.Concurrency <= 0 {
		problems = append(problems, "concurrency must be positive")
	}
	if strings.TrimSpace(c.Discovery.IdentityKey) == "" {
		problems = append(problems, "identity_key is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "", "auto", "openai", "anthropic":
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.TimeoutSeconds < 0 {
		problems = append(problems, "llm timeout_seconds must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
