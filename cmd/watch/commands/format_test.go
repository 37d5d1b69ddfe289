package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-watch/internal/contracts"
)

func TestPrintPick(t *testing.T) {
	p := contracts.Pick{
		RunID:            "run-1",
		Ticker:           "ABCD",
		Rank:             2,
		ExplanationText:  "Low float\nRisk: dilution",
		PriceAtSelection: decimal.RequireFromString("4.5"),
		Timestamp:        time.Date(2026, 10, 16, 8, 45, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	printPick(&buf, p, false)
	assert.Equal(t, "  2026-10-16 08:45:00  #2  ABCD    $4.50  run=run-1\n", buf.String())

	buf.Reset()
	printPick(&buf, p, true)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "      Risk: dilution", lines[2])
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	printHeader(&buf, "Selection policy")
	printField(&buf, "Hash", "abc123")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, separatorWidth, len([]rune(lines[0])))
	assert.Equal(t, "  Selection policy", lines[1])
	assert.Equal(t, "  Hash   : abc123", lines[3])
}
