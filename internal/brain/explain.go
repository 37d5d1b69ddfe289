package brain

import (
	"fmt"
	"strings"

	"github.com/wonny/aegis-watch/internal/advisor"
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/policy"
)

// pickBullets returns the advisor bullets, or computed ones when the slot
// did not come from the advisor or the advisor gave none
func pickBullets(slot policy.Slot, rec advisor.Recommendation, substitutedFor string) []string {
	if b := rec.Bullets(slot.Ticker); len(b) > 0 {
		return b
	}

	c := slot.Candidate
	var bullets []string
	switch slot.Source {
	case policy.SourceSubstitute:
		bullets = append(bullets, fmt.Sprintf("Replaces %s under the float/preference policy", substitutedFor))
	case policy.SourceBackfill:
		bullets = append(bullets, fmt.Sprintf("Backfilled at rank %d of the ranked table", c.Rank))
	}

	if c.RelVol != nil {
		bullets = append(bullets, fmt.Sprintf("Relative volume %.1fx", *c.RelVol))
	}
	if c.DollarVolume != nil {
		bullets = append(bullets, "Dollar volume $"+advisor.Compact(c.DollarVolume))
	}
	if c.Float != nil {
		bullets = append(bullets, "Float "+advisor.Compact(c.Float))
	}
	return bullets
}

// explanation assembles the persisted explanation text for one pick
func explanation(slot policy.Slot, bullets []string, risk string, winner contracts.IndustryWinner) string {
	c := slot.Candidate
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)", c.Ticker, slot.Source)
	if c.Name != "" {
		fmt.Fprintf(&b, " %s", c.Name)
	}
	b.WriteString("\n")

	for _, bullet := range bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}

	metrics := []string{
		"RelVol " + ratioX(c.RelVol),
		"$Vol " + advisor.Compact(c.DollarVolume),
		"Float " + advisor.Compact(c.Float),
		"Employees " + advisor.Compact(c.Employees),
		"Margin " + advisor.Margin(c.ProfitMarginTTM),
		fmt.Sprintf("Headlines +%d/-%d", c.HeadlinePos, c.HeadlineNeg),
	}
	b.WriteString(strings.Join(metrics, " | "))
	b.WriteString("\n")

	if c.HasData() {
		fmt.Fprintf(&b, "Premarket: range %s, volume %s, VWAP %s, up-minutes %s\n",
			advisor.Percent(c.PMRangePct), advisor.Compact(c.PMVolume), priceOrNA(c.PMVWAP), advisor.Percent(c.PMUpMinutePct))
	}

	if c.TiltMatch {
		fmt.Fprintf(&b, "Tilt: member of today's leading group %s\n", winner.Label)
	}
	switch {
	case c.GeoBias < 0:
		fmt.Fprintf(&b, "Geo: flagged country %s\n", c.Country)
	case c.GeoBias > 0:
		fmt.Fprintf(&b, "Geo: domestic listing %s\n", c.Country)
	}

	if risk != "" {
		fmt.Fprintf(&b, "Risk: %s\n", risk)
	}

	return strings.TrimRight(b.String(), "\n")
}

func ratioX(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1fx", *v)
}

func priceOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
