package advisor

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

// maxPromptHeadlines caps headline titles per candidate
const maxPromptHeadlines = 5

const systemPrompt = `You are a US small-cap momentum desk assistant.
You pick at most %d tickers to watch today from the candidate table you are given, and nothing else.
Return ONLY a JSON object, no prose and no code fences, with this exact shape:
{"picks":["T1","T2"],"reasons":[{"ticker":"T1","bullets":["..."]}],"risk":"one sentence"}
Rules:
- picks must come from the table, best first, at most %d entries
- never pick a ticker whose float is below %s shares
- prefer low float (<= %s shares) and small cap (<= %s market cap)
- 2 to 4 short bullets per pick citing the numbers in the table`

// Prompt is one rendered advisor request
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the ranked table into system and user prompts
func BuildPrompt(table []contracts.ScoredCandidate, winner contracts.IndustryWinner, policy *strategyconfig.Config, topN int) Prompt {
	system := fmt.Sprintf(systemPrompt,
		topN, topN,
		Compact(&policy.Filter.MinFloat),
		Compact(&policy.Preference.LowFloatCeiling),
		Compact(&policy.Preference.SmallCapCeiling),
	)

	var b strings.Builder
	if winner.Label != "" {
		fmt.Fprintf(&b, "Leading group today: %s (%d candidates: %s)\n", winner.Label, winner.Count, strings.Join(winner.Members, ", "))
	}
	fmt.Fprintf(&b, "Candidates in ranked order (%d):\n", len(table))

	for i, c := range table {
		fmt.Fprintf(&b, "%d. %s\n", i+1, featureLine(c, policy))
		for j, h := range c.Headlines {
			if j == maxPromptHeadlines {
				break
			}
			fmt.Fprintf(&b, "   - %q\n", h)
		}
	}
	fmt.Fprintf(&b, "Pick up to %d.", topN)

	return Prompt{System: system, User: b.String()}
}

// featureLine is the compact one-line summary of a candidate
func featureLine(c contracts.ScoredCandidate, policy *strategyconfig.Config) string {
	parts := []string{
		c.Ticker,
		"px " + price(c.Price),
		"chg " + Percent(c.ChangePct),
		"cap " + Compact(c.MarketCap),
		"float " + Compact(c.Float),
		"vol " + Compact(c.Volume),
		"avgVol " + Compact(c.AvgVolume),
		"relVol " + ratio(c.RelVol),
		"$vol " + Compact(c.DollarVolume),
		"emp " + Compact(c.Employees),
		"margin " + Margin(c.ProfitMarginTTM),
		fmt.Sprintf("%s/%s/%s", orNA(c.Sector), orNA(c.Industry), orNA(c.Country)),
		fmt.Sprintf("news +%d/-%d", c.HeadlinePos, c.HeadlineNeg),
	}

	if c.HasData() {
		parts = append(parts, fmt.Sprintf("pm range %s vol %s vwap %s up %s score %s",
			Percent(c.PMRangePct), Compact(c.PMVolume), price(c.PMVWAP), Percent(c.PMUpMinutePct), ratio(c.PMScore)))
	} else {
		parts = append(parts, "pm n/a")
	}

	var flags []string
	if c.Float != nil && *c.Float <= policy.Preference.LowFloatCeiling {
		flags = append(flags, "low-float")
	}
	if c.MarketCap != nil && *c.MarketCap <= policy.Preference.SmallCapCeiling {
		flags = append(flags, "small-cap")
	}
	if c.TiltMatch {
		flags = append(flags, "leading-group")
	}
	if c.GeoBias < 0 {
		flags = append(flags, "flagged-country")
	}
	if len(flags) > 0 {
		parts = append(parts, "flags "+strings.Join(flags, ","))
	}

	return strings.Join(parts, " | ")
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func price(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Percent renders a signed percentage, n/a when unknown
func Percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

// Margin renders a fractional margin (0.12 = 12%)
func Margin(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func ratio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Compact renders large numbers as 1.2K / 3.4M / 5.6B
func Compact(v *float64) string {
	if v == nil {
		return "n/a"
	}
	x := *v
	abs := math.Abs(x)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", x/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", x/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", x/1e3)
	default:
		return fmt.Sprintf("%.0f", x)
	}
}
