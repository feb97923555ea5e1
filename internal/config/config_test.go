package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "bbc_census.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "data", cfg.Census.InputDir)
	assert.Equal(t, "bbc_combined_{year}.txt", cfg.Census.CombinedPattern)
	assert.Equal(t, 1988, cfg.Census.StartYear)
	assert.Equal(t, 1995, cfg.Census.EndYear)
	assert.Equal(t, 1, cfg.Census.Concurrency)
	assert.Empty(t, cfg.Census.RulesPath)
	assert.Equal(t, "output", cfg.Export.Dir)
	assert.Equal(t, []string{"csv"}, cfg.Export.Formats)
	assert.Equal(t, "tesseract", cfg.OCR.Provider)
	assert.Equal(t, 350, cfg.OCR.Density)
	assert.Equal(t, "0x0+0+330", cfg.OCR.Crop)

	assert.Len(t, cfg.Census.PageStarts, 8)
	assert.Equal(t, 4, cfg.Census.PageStart(1988))
	assert.Equal(t, 7, cfg.Census.PageStart(1993))
	assert.Equal(t, 6, cfg.Census.PageStart(1995))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: census.db
log:
  level: debug
  format: console
census:
  start_year: 1990
  end_year: 1992
  concurrency: 3
  page_starts:
    "1990": 5
export:
  formats: [csv, xlsx]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "census.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []int{1990, 1991, 1992}, cfg.Census.Years())
	assert.Equal(t, 3, cfg.Census.Concurrency)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Export.Formats)
	// An explicit map replaces the defaults entirely.
	assert.Equal(t, 5, cfg.Census.PageStart(1990))
	assert.Equal(t, 1, cfg.Census.PageStart(1988))
	// Defaults still apply for unset values
	assert.Equal(t, "data", cfg.Census.InputDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BBC_STORE_DRIVER", "postgres")
	t.Setenv("BBC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("BBC_CENSUS_START_YEAR", "1993")
	t.Setenv("BBC_CENSUS_INPUT_DIR", "/srv/bbc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1993, cfg.Census.StartYear)
	assert.Equal(t, "/srv/bbc", cfg.Census.InputDir)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("census: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{1988}, CensusConfig{StartYear: 1988, EndYear: 1988}.Years())
	assert.Nil(t, CensusConfig{StartYear: 1990, EndYear: 1989}.Years())
}

func TestPageStartYears(t *testing.T) {
	c := CensusConfig{PageStarts: map[string]int{"1991": 7, "1988": 4, "bogus": 2}}
	assert.Equal(t, []int{1988, 1991}, c.PageStartYears())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Census.StartYear = 1988
	cfg.Census.EndYear = 1995
	cfg.Census.Concurrency = 1
	cfg.Export.Formats = []string{"csv"}
	cfg.Store.Driver = "none"
	cfg.Store.SQLitePath = "bbc_census.db"
	cfg.OCR.Density = 350
	return cfg
}

func TestValidateExtract_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("extract"))
}

func TestValidateExtract_CollectsProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Census.StartYear = 1996
	cfg.Export.Formats = []string{"csv", "pdf"}
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census.start_year 1996 is after census.end_year 1995")
	assert.Contains(t, err.Error(), `unknown format "pdf"`)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateExtract_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "mysql"`)
}

func TestValidateMigrate_NeedsStore(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")

	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidatePrepare_Density(t *testing.T) {
	cfg := validDefaults()
	cfg.OCR.Density = 0

	err := cfg.Validate("prepare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.density must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Census.Concurrency = 0
	err := cfg.Validate("link")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census.concurrency must be between 1 and 16")

	cfg.Census.Concurrency = 17
	assert.Error(t, cfg.Validate("link"))

	cfg.Census.Concurrency = 16
	assert.NoError(t, cfg.Validate("link"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_YearWindow(t *testing.T) {
	cfg := validDefaults()
	cfg.Census.StartYear = 1800
	cfg.Census.EndYear = 99999

	err := cfg.Validate("link")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census year 1800 is outside 1900-2100")
	assert.Contains(t, err.Error(), "census year 99999 is outside 1900-2100")
}
