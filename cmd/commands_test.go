package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bbc-census/internal/normalize"
	"github.com/sells-group/bbc-census/internal/store"
)

func TestPrepareCmd_RunE(t *testing.T) {
	cfg = testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Census.InputDir, 0o755))
	for i, body := range []string{"front matter\n", "1. SITE A\n", "2. SITE B\n"} {
		name := filepath.Join(cfg.Census.InputDir, "BBC1990-"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte(body), 0o644))
	}

	prepareCmd.SetContext(context.Background())
	defer prepareCmd.SetContext(nil)

	require.NoError(t, prepareCmd.RunE(prepareCmd, nil))

	data, err := os.ReadFile(filepath.Join(cfg.Census.InputDir, "bbc_combined_1990.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1. SITE A\n2. SITE B\n", string(data))
}

func TestPrepareCmd_RunE_NoPages(t *testing.T) {
	cfg = testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Census.InputDir, 0o755))

	prepareCmd.SetContext(context.Background())
	defer prepareCmd.SetContext(nil)

	err := prepareCmd.RunE(prepareCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare 1990")
}

func TestLinkCmd_RunE(t *testing.T) {
	cfg = testConfig(t)
	writeVolume(t, cfg, 1990, volume1990)

	linkCmd.SetContext(context.Background())
	defer linkCmd.SetContext(nil)

	require.NoError(t, linkCmd.RunE(linkCmd, nil))

	data, err := os.ReadFile(filepath.Join(cfg.Export.Dir, linksCSV))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "site_id,year,site_name,latitude,longitude,link_id,link_key", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "11990,1990,UPLAND OAK FOREST,"))

	assert.FileExists(t, filepath.Join(cfg.Export.Dir, ambiguitiesCSV))
}

func TestRulesCheckCmd_Default(t *testing.T) {
	cfg = testConfig(t)
	rs, err := normalize.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	rulesCheckCmd.SetOut(&buf)
	defer rulesCheckCmd.SetOut(nil)

	require.NoError(t, rulesCheckCmd.RunE(rulesCheckCmd, nil))
	assert.Equal(t, fmt.Sprintf("%d rules OK\n", rs.Len()), buf.String())
}

func TestRulesCheckCmd_InvalidFile(t *testing.T) {
	cfg = testConfig(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("normalize:\n  rules:\n    - match: \"l\"\n      replace: \"ll\"\n"), 0o644))
	cfg.Census.RulesPath = path

	err := rulesCheckCmd.RunE(rulesCheckCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains its own match")
}

func TestRulesListCmd(t *testing.T) {
	cfg = testConfig(t)

	var buf bytes.Buffer
	rulesListCmd.SetOut(&buf)
	defer rulesListCmd.SetOut(nil)

	require.NoError(t, rulesListCmd.RunE(rulesListCmd, nil))
	assert.Contains(t, buf.String(), "MATCH")
	assert.Contains(t, buf.String(), `"Cemus"`)
}

func TestFormatRules_QuotesWhitespace(t *testing.T) {
	var buf bytes.Buffer
	formatRules(&buf, []normalize.Rule{{Match: "Cov-\nerage", Replace: "Coverage", Note: "hyphenated label"}})
	assert.Contains(t, buf.String(), `"Cov-\nerage"`)
	assert.Contains(t, buf.String(), "hyphenated label")
}

func TestMigrateCmd_RunE_NoStore(t *testing.T) {
	cfg = testConfig(t)

	migrateCmd.SetContext(context.Background())
	defer migrateCmd.SetContext(nil)

	err := migrateCmd.RunE(migrateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestMigrateCmd_RunE_SQLite(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "sqlite"

	migrateCmd.SetContext(context.Background())
	defer migrateCmd.SetContext(nil)

	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
	assert.FileExists(t, cfg.Store.SQLitePath)
}

func TestRunsShowCmd(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "sqlite"

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	run, err := st.StartRun(ctx, []int{1990})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	runsShowCmd.SetContext(ctx)
	defer runsShowCmd.SetContext(nil)

	require.NoError(t, runsShowCmd.RunE(runsShowCmd, []string{run.ID}))

	err = runsShowCmd.RunE(runsShowCmd, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestRunsShowCmd_NoStore(t *testing.T) {
	cfg = testConfig(t)

	runsShowCmd.SetContext(context.Background())
	defer runsShowCmd.SetContext(nil)

	err := runsShowCmd.RunE(runsShowCmd, []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store configured")
}
