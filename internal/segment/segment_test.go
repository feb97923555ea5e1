package segment

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func scan(t *testing.T, text string) []RawBlock {
	t.Helper()
	blocks, err := Scan(context.Background(), strings.NewReader(text), 1990)
	require.NoError(t, err)
	return blocks
}

func TestScan_TwoSites(t *testing.T) {
	text := "Front matter that is ignored.\n" +
		"Location: not a site yet\n" +
		"1. MIXED HARDWOOD FOREST\n" +
		"Some preamble about the plot.\n" +
		"Location: 41°4'N, 76°7’W.\n" +
		"Size: 8.1 ha.\n" +
		"\n" +
		"Census: Blue Jay, 2.0.\n" +
		"2. OLD FIELD\n" +
		"Site Number: 2.\n" +
		"Location: 40°44'N, 75°50’W.\n" +
		"Total: 3 species; 4.0 territories (10/km²).\n"

	blocks := scan(t, text)
	require.Len(t, blocks, 2)

	assert.Equal(t, 1, blocks[0].SiteNum)
	assert.Equal(t, "MIXED HARDWOOD FOREST", blocks[0].SiteName)
	assert.Equal(t, 3, blocks[0].Line)
	assert.Equal(t, "Location: 41°4'N, 76°7’W.\nSize: 8.1 ha.\nCensus: Blue Jay, 2.0.\n", blocks[0].Text)

	// Location restarts accumulation after Site Number. The last site is
	// finalized at end of input.
	assert.Equal(t, 2, blocks[1].SiteNum)
	assert.Equal(t, "OLD FIELD", blocks[1].SiteName)
	assert.Equal(t, "Location: 40°44'N, 75°50’W.\nTotal: 3 species; 4.0 territories (10/km²).\n", blocks[1].Text)
}

func TestScan_NHeadersNBlocks(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&sb, "%d. SITE NAME\n", i)
		if i%3 != 0 {
			sb.WriteString("Location: somewhere\n")
		}
	}

	blocks := scan(t, sb.String())
	require.Len(t, blocks, 12)
	for i, b := range blocks {
		assert.Equal(t, i+1, b.SiteNum)
		if (i+1)%3 == 0 {
			assert.Empty(t, b.Text, "site %d never reached a block start", b.SiteNum)
		} else {
			assert.Equal(t, "Location: somewhere\n", b.Text)
		}
	}
}

func TestScan_NoTrailingNewline(t *testing.T) {
	blocks := scan(t, "7. GRASSLAND\nLocation: x\nRemarks: last line")
	require.Len(t, blocks, 1)
	assert.Equal(t, "Location: x\nRemarks: last line", blocks[0].Text)
}

func TestScan_BlankLinesDoNotEndRecording(t *testing.T) {
	blocks := scan(t, "3. SWAMP\nLocation: a\n\n   \nEdge: b\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, "Location: a\nEdge: b\n", blocks[0].Text)
}

func TestScan_RepeatedBlockStartRestarts(t *testing.T) {
	blocks := scan(t, "4. BOG\nLocation: first\nSize: 1 ha.\nLocation: second\nSize: 2 ha.\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, "Location: second\nSize: 2 ha.\n", blocks[0].Text)
}

func TestScan_DuplicateSiteNumbersKept(t *testing.T) {
	blocks := scan(t, "5. ONE\nLocation: a\n5. TWO\nLocation: b\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "ONE", blocks[0].SiteName)
	assert.Equal(t, "TWO", blocks[1].SiteName)
}

func TestScan_HeaderShapes(t *testing.T) {
	tests := []struct {
		line   string
		header bool
	}{
		{"12. UPLAND OAK—HICKORY FOREST\n", true},
		{"9. SCRUB-SHRUB WETLAND\n", true},
		{"123. TOO MANY DIGITS\n", false},
		{"12. Mixed case\n", false},
		{"12.NO SPACE\n", false},
		{" 12. LEADING SPACE\n", false},
		{"12. A\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.line), func(t *testing.T) {
			blocks := scan(t, tt.line+"Location: x\n")
			if tt.header {
				assert.Len(t, blocks, 1)
			} else {
				assert.Empty(t, blocks)
			}
		})
	}
}

func TestScan_Empty(t *testing.T) {
	assert.Empty(t, scan(t, ""))
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text := strings.Repeat("filler line\n", 2048)
	_, err := Scan(ctx, strings.NewReader(text), 1990)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment: scan cancelled")
}

func TestScan_LogsSiteHeaders(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	scan(t, "1. BEECH MAPLE FOREST\nLocation: a\n2. MARSH\n")

	entries := logs.FilterMessage("site header").All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, int64(1990), ctx["year"])
	assert.Equal(t, int64(1), ctx["site_num"])
	assert.Equal(t, "BEECH MAPLE FOREST", ctx["site_name"])
	assert.Equal(t, "segment", ctx["component"])
}
