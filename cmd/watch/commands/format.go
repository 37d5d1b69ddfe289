package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// 모든 커맨드 출력 포맷은 여기서만
const (
	separatorWidth = 59
	timeLayout     = "2006-01-02 15:04:05"
)

// printHeader prints a titled block header
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, strings.Repeat("═", separatorWidth))
	fmt.Fprintf(w, "  %s\n", title)
	printSeparator(w)
}

func printSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", separatorWidth))
}

// printField prints one aligned "label : value" line
func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "  %-7s: %v\n", label, value)
}

func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "\n⚠️  %s\n\n", message)
}

// printPick prints one stored pick, optionally with its explanation indented below
func printPick(w io.Writer, p contracts.Pick, explain bool) {
	fmt.Fprintf(w, "  %s  #%d  %-6s  $%s  run=%s\n",
		p.Timestamp.Format(timeLayout), p.Rank, p.Ticker, p.PriceAtSelection.StringFixed(2), p.RunID)
	if !explain {
		return
	}
	for _, line := range strings.Split(p.ExplanationText, "\n") {
		fmt.Fprintf(w, "      %s\n", line)
	}
}
