package selection

import (
	"sort"
	"strings"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
)

// UnknownGroup labels candidates with neither industry nor sector
const UnknownGroup = "Unknown"

var countryCodes = map[string]string{
	"UNITED STATES":            "US",
	"UNITED STATES OF AMERICA": "US",
	"USA":                      "US",
	"CHINA":                    "CN",
	"HONG KONG":                "HK",
	"CANADA":                   "CA",
	"ISRAEL":                   "IL",
	"UNITED KINGDOM":           "GB",
	"UK":                       "GB",
	"SINGAPORE":                "SG",
	"TAIWAN":                   "TW",
	"JAPAN":                    "JP",
	"MALAYSIA":                 "MY",
	"CAYMAN ISLANDS":           "KY",
	"BRITISH VIRGIN ISLANDS":   "VG",
	"NETHERLANDS":              "NL",
	"GERMANY":                  "DE",
	"AUSTRALIA":                "AU",
}

// CountryCode maps a country name or code to ISO alpha-2, "" when unknown
func CountryCode(country string) string {
	upper := strings.ToUpper(strings.TrimSpace(country))
	if code, ok := countryCodes[upper]; ok {
		return code
	}
	if len(upper) == 2 {
		return upper
	}
	return ""
}

// GroupLabel is industry, else sector, else Unknown
func GroupLabel(c contracts.EnrichedCandidate) string {
	if s := strings.TrimSpace(c.Industry); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Sector); s != "" {
		return s
	}
	return UnknownGroup
}

// IndustryWinnerOf picks the modal group; Unknown only wins when nothing
// is labeled. Ties go to the smaller label.
func IndustryWinnerOf(cands []contracts.EnrichedCandidate) contracts.IndustryWinner {
	groups := make(map[string][]string)
	for _, c := range cands {
		label := GroupLabel(c)
		groups[label] = append(groups[label], c.Ticker)
	}

	if len(groups) > 1 {
		delete(groups, UnknownGroup)
	}
	if len(groups) == 0 {
		return contracts.IndustryWinner{Label: UnknownGroup, Members: []string{}}
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	winner := labels[0]
	for _, label := range labels[1:] {
		if len(groups[label]) > len(groups[winner]) {
			winner = label
		}
	}

	return contracts.IndustryWinner{
		Label:   winner,
		Count:   len(groups[winner]),
		Members: groups[winner],
	}
}

// Tilt applies the industry and geography nudges
// 보조 신호: 하드 필터/모멘텀을 뒤집지 않는 작은 가감점
type Tilt struct {
	config strategyconfig.Tilt
}

// NewTilt creates a new tilt
func NewTilt(config strategyconfig.Tilt) *Tilt {
	return &Tilt{config: config}
}

// Flagged reports a domicile in the configured foreign set
func (t *Tilt) Flagged(country string) bool {
	code := CountryCode(country)
	if code == "" {
		return false
	}
	for _, f := range t.config.FlaggedCountries {
		if strings.EqualFold(f, code) {
			return true
		}
	}
	return false
}

// Apply sets tilt and geo fields and recomputes SoftPrefAdj in place
func (t *Tilt) Apply(scored []contracts.ScoredCandidate, winner contracts.IndustryWinner) {
	for i := range scored {
		c := &scored[i]

		c.TiltMatch = winner.Label != UnknownGroup && GroupLabel(c.EnrichedCandidate) == winner.Label
		c.TiltBonus = 0
		if c.TiltMatch {
			c.TiltBonus = t.config.IndustryBonus
		}

		c.GeoBias = 0
		switch {
		case t.Flagged(c.Country):
			c.GeoBias = -t.config.ForeignPenalty
		case CountryCode(c.Country) != "" && strings.EqualFold(CountryCode(c.Country), t.config.DomesticCountry):
			c.GeoBias = t.config.DomesticBonus
		}

		c.SoftPrefAdj = Clamp01(c.SoftPref + c.TiltBonus + c.GeoBias)
	}
}
