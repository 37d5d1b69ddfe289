package advisor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/wonny/aegis-watch/internal/normalize"
)

// Provenance tags how a recommendation was recovered from advisor text
type Provenance string

const (
	ProvenanceStrict    Provenance = "strict"
	ProvenanceRecovered Provenance = "recovered"
	ProvenanceFailed    Provenance = "failed"
)

// Parser stage names, in chain order
const (
	StageJSON         = "json"
	StageRepairedJSON = "repaired_json"
	StageQuotedArray  = "quoted_array"
	StageTokenScan    = "token_scan"
	StageNone         = "none"
)

// tokenScanLimit is the number of tickers the last-resort scan keeps
const tokenScanLimit = 2

// Recommendation is the advisor proposal after parsing
// Downstream code only reads Picks; the rest is diagnostics and explanation text
type Recommendation struct {
	Picks      []string            `json:"picks"`
	Reasons    map[string][]string `json:"reasons"`
	Risk       string              `json:"risk"`
	Provenance Provenance          `json:"provenance"`
	Stage      string              `json:"stage"`
}

// Bullets returns the advisor bullets for ticker
func (r Recommendation) Bullets(ticker string) []string {
	return r.Reasons[ticker]
}

var (
	codeFence     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	quotedArray   = regexp.MustCompile(`\[\s*"[A-Za-z][A-Za-z0-9.\-]{0,9}"(?:\s*,\s*"[A-Za-z][A-Za-z0-9.\-]{0,9}")*\s*\]`)
	quotedTicker  = regexp.MustCompile(`"([A-Za-z][A-Za-z0-9.\-]{0,9})"`)
	tickerToken   = regexp.MustCompile(`\b[A-Z]{1,5}(?:\.[A-Z])?\b`)
	picksProperty = regexp.MustCompile(`(?i)"picks"\s*:\s*(\[[^\]]*\])`)
)

// stopwords are uppercase tokens that are never tickers
var stopwords = map[string]bool{
	"A": true, "I": true, "AN": true, "AND": true, "OR": true, "THE": true,
	"TO": true, "OF": true, "IN": true, "ON": true, "AT": true, "BY": true,
	"IS": true, "IT": true, "BE": true, "AS": true, "IF": true, "NO": true,
	"JSON": true, "PICKS": true, "PICK": true, "RISK": true, "NOTE": true,
	"BUY": true, "SELL": true, "HOLD": true, "WATCH": true, "TOP": true,
	"USD": true, "US": true, "CEO": true, "FDA": true, "SEC": true,
	"ETF": true, "OTC": true, "IPO": true, "EPS": true, "VWAP": true,
	"PM": true, "AM": true, "ET": true, "EST": true, "EDT": true,
	"NA": true, "N": true, "TBD": true, "OK": true, "HIGH": true, "LOW": true,
}

// payload is the structured output shape requested from the advisor
type payload struct {
	Picks   []string        `json:"picks"`
	Reasons json.RawMessage `json:"reasons"`
	Risk    string          `json:"risk"`
}

type reasonItem struct {
	Ticker  string   `json:"ticker"`
	Bullets []string `json:"bullets"`
}

type stage struct {
	name       string
	provenance Provenance
	parse      func(raw string, known map[string]bool) (Recommendation, bool)
}

var chain = []stage{
	{StageJSON, ProvenanceStrict, parseStrict},
	{StageRepairedJSON, ProvenanceRecovered, parseRepaired},
	{StageQuotedArray, ProvenanceRecovered, parseQuotedArray},
	{StageTokenScan, ProvenanceRecovered, parseTokenScan},
}

// Parse runs the parser chain over raw advisor text.
// known is the candidate table; when non-empty the token scan only accepts its tickers.
func Parse(raw string, known []string) Recommendation {
	knownSet := make(map[string]bool, len(known))
	for _, t := range known {
		knownSet[t] = true
	}

	if strings.TrimSpace(raw) != "" {
		for _, st := range chain {
			rec, ok := st.parse(raw, knownSet)
			if !ok {
				continue
			}
			rec.Provenance = st.provenance
			rec.Stage = st.name
			return rec
		}
	}

	return Recommendation{
		Picks:      []string{},
		Reasons:    map[string][]string{},
		Provenance: ProvenanceFailed,
		Stage:      StageNone,
	}
}

// extractJSON strips code fences and surrounding prose
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return s
}

func parseStrict(raw string, _ map[string]bool) (Recommendation, bool) {
	s := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return decode(s)
}

func parseRepaired(raw string, _ map[string]bool) (Recommendation, bool) {
	candidate := extractJSON(raw)
	if !strings.HasPrefix(candidate, "{") {
		return Recommendation{}, false
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return Recommendation{}, false
	}
	return decode(repaired)
}

func decode(s string) (Recommendation, bool) {
	var p payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Recommendation{}, false
	}

	picks := canonical(p.Picks)
	if len(picks) == 0 {
		return Recommendation{}, false
	}

	return Recommendation{
		Picks:   picks,
		Reasons: decodeReasons(p.Reasons),
		Risk:    strings.TrimSpace(p.Risk),
	}, true
}

// decodeReasons accepts [{ticker, bullets}], {ticker: [bullets]} or {ticker: "text"}
func decodeReasons(raw json.RawMessage) map[string][]string {
	reasons := make(map[string][]string)
	if len(raw) == 0 {
		return reasons
	}

	var items []reasonItem
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, it := range items {
			if t := normalize.Ticker(it.Ticker); t != "" {
				reasons[t] = append(reasons[t], cleanBullets(it.Bullets)...)
			}
		}
		return reasons
	}

	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err == nil {
		for k, v := range lists {
			if t := normalize.Ticker(k); t != "" {
				reasons[t] = cleanBullets(v)
			}
		}
		return reasons
	}

	var texts map[string]string
	if err := json.Unmarshal(raw, &texts); err == nil {
		for k, v := range texts {
			if t := normalize.Ticker(k); t != "" {
				reasons[t] = cleanBullets([]string{v})
			}
		}
	}
	return reasons
}

func cleanBullets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseQuotedArray(raw string, _ map[string]bool) (Recommendation, bool) {
	var array string
	if m := picksProperty.FindStringSubmatch(raw); m != nil {
		array = m[1]
	} else {
		array = quotedArray.FindString(raw)
	}
	if array == "" {
		return Recommendation{}, false
	}

	var tickers []string
	for _, m := range quotedTicker.FindAllStringSubmatch(array, -1) {
		tickers = append(tickers, m[1])
	}

	picks := canonical(tickers)
	if len(picks) == 0 {
		return Recommendation{}, false
	}
	return Recommendation{Picks: picks, Reasons: map[string][]string{}}, true
}

func parseTokenScan(raw string, known map[string]bool) (Recommendation, bool) {
	var tickers []string
	seen := make(map[string]bool)

	for _, tok := range tickerToken.FindAllString(raw, -1) {
		if seen[tok] {
			continue
		}
		if len(known) > 0 {
			if !known[tok] {
				continue
			}
		} else if stopwords[tok] {
			continue
		}
		seen[tok] = true
		tickers = append(tickers, tok)
		if len(tickers) == tokenScanLimit {
			break
		}
	}

	if len(tickers) == 0 {
		return Recommendation{}, false
	}
	return Recommendation{Picks: tickers, Reasons: map[string][]string{}}, true
}

// canonical upper-cases, validates and de-duplicates tickers keeping order
func canonical(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, raw := range tickers {
		t := normalize.Ticker(raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
