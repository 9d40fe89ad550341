package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/testutil"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leaplineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "", "")
	flags.String("default-schema", "", "")
	flags.StringSlice("storage-prefixes", nil, "")
	flags.String("state", "", "")
	flags.StringP("output", "o", "", "")
	flags.Int("concurrency", 0, "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

// =============================================================================
// Loading
// =============================================================================

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDialect, cfg.Dialect)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Empty(t, cfg.StoragePrefixes)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
dialect: snowflake
default_schema: public
storage_prefixes:
  - s3://
  - r2://
state_path: state/runs.db
concurrency: 4
output: json
`)

	// config is found from a subdirectory
	sub := filepath.Join(dir, "sql", "etl")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)

	assert.Equal(t, resolvedDir, gotRoot)
	assert.Equal(t, "snowflake", cfg.Dialect)
	assert.Equal(t, "public", cfg.DefaultSchema)
	assert.Equal(t, []string{"s3://", "r2://"}, cfg.StoragePrefixes)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "state", "runs.db"), cfg.StatePath)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, filepath.Base(path), filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeConfig(t, dir, "dialect: snowflake\ndefault_schema: from_file\noutput: yaml\n")

	t.Setenv("LEAPLINEAGE_DEFAULT_SCHEMA", "from_env")
	t.Setenv("LEAPLINEAGE_OUTPUT", "markdown")
	t.Setenv("LEAPLINEAGE_STORAGE_PREFIXES", "s3://,r2://")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--output", "text", "--state", "custom.db"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "snowflake", cfg.Dialect, "file overrides default")
	assert.Equal(t, "from_env", cfg.DefaultSchema, "env overrides file")
	assert.Equal(t, "text", cfg.OutputFormat, "flag overrides env")
	assert.Equal(t, []string{"s3://", "r2://"}, cfg.StoragePrefixes, "comma lists from env")
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, "custom.db", filepath.Base(cfg.StatePath))
}

func TestLoadConfigUnchangedFlagsIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeConfig(t, dir, "dialect: duckdb\n")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Dialect)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"unknown dialect", "dialect: oracle\n", "unknown dialect"},
		{"unknown output", "output: xml\n", "unknown output format"},
		{"negative concurrency", "concurrency: -1\n", "concurrency must not be negative"},
		{"bad prefix", "storage_prefixes: [s3]\n", "must look like scheme://"},
		{"malformed yaml", "dialect: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			path := writeConfig(t, dir, tt.content)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// =============================================================================
// Derived options
// =============================================================================

func TestLineageOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Dialect = "postgres"
	cfg.DefaultSchema = "public"
	cfg.StoragePrefixes = []string{"r2://"}

	opts, err := cfg.LineageOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Dialect)
	assert.Equal(t, "postgres", opts.Dialect.Name)
	assert.Equal(t, "public", opts.DefaultSchema)
	assert.Equal(t, []string{"r2://"}, opts.StoragePrefixes)

	cfg.Concurrency = 3
	aopts, err := cfg.AnalyzerOptions()
	require.NoError(t, err)
	assert.Equal(t, 3, aopts.Concurrency)

	cfg.Dialect = "nope"
	_, err = cfg.LineageOptions()
	assert.Error(t, err)
	_, err = cfg.AnalyzerOptions()
	assert.Error(t, err)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
