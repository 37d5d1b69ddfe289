// Package normalize converts raw top-gainer rows into canonical candidates.
// It makes no network calls.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wonny/aegis-watch/internal/contracts"
)

// Field aliases accepted from upstream screeners, first match wins
var (
	tickerKeys    = []string{"ticker", "symbol", "Ticker", "Symbol"}
	nameKeys      = []string{"name", "companyName", "Name"}
	priceKeys     = []string{"price", "lastPrice", "last"}
	changeKeys    = []string{"changePct", "changesPercentage", "changePercent", "change_pct"}
	marketCapKeys = []string{"marketCap", "mktCap", "market_cap"}
	floatKeys     = []string{"float", "sharesOutstanding", "floatShares", "shares_float"}
	volumeKeys    = []string{"volume", "vol"}
	employeeKeys  = []string{"employees", "fullTimeEmployees"}
)

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

var magnitudes = map[string]float64{
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
	"T": 1e12,
}

// Result is the normalizer output
type Result struct {
	Candidates []contracts.RawCandidate
	Skipped    int // rows without a usable ticker or duplicates
	Truncated  int // rows beyond maxRows
}

// Normalize converts up to maxRows rows into canonical candidates.
// Unparsable numbers stay nil. Duplicate tickers keep the first occurrence.
func Normalize(rows []map[string]interface{}, maxRows int) Result {
	res := Result{Candidates: make([]contracts.RawCandidate, 0, min(len(rows), maxRows))}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		if len(res.Candidates) >= maxRows {
			res.Truncated = len(rows) - i
			break
		}

		ticker := Ticker(firstString(row, tickerKeys))
		if ticker == "" || seen[ticker] {
			res.Skipped++
			continue
		}
		seen[ticker] = true

		res.Candidates = append(res.Candidates, normalizeRow(ticker, row))
	}

	return res
}

// Ticker canonicalizes a symbol, returning "" when it is not ticker-shaped
func Ticker(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "$")
	if !tickerPattern.MatchString(t) {
		return ""
	}
	return t
}

func normalizeRow(ticker string, row map[string]interface{}) contracts.RawCandidate {
	c := contracts.RawCandidate{
		Ticker:    ticker,
		Name:      strings.TrimSpace(firstString(row, nameKeys)),
		Price:     positive(firstNumber(row, priceKeys)),
		ChangePct: firstNumber(row, changeKeys),
		MarketCap: positive(firstNumber(row, marketCapKeys)),
		Float:     positive(firstNumber(row, floatKeys)),
		Volume:    nonNegative(firstNumber(row, volumeKeys)),
		Employees: nonNegative(firstNumber(row, employeeKeys)),
	}
	Derive(&c)
	return c
}

// Derive recomputes dollarVolume and relVolFloat from known inputs
func Derive(c *contracts.RawCandidate) {
	c.DollarVolume = nil
	c.RelVolFloat = nil

	if c.Price != nil && c.Volume != nil {
		c.DollarVolume = contracts.Float64(*c.Price * *c.Volume)
	}
	if c.Volume != nil && c.Float != nil && *c.Float > 0 {
		c.RelVolFloat = contracts.Float64(*c.Volume / *c.Float)
	}
}

func firstString(row map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			switch s := v.(type) {
			case string:
				return s
			case json.Number:
				return s.String()
			}
		}
	}
	return ""
}

func firstNumber(row map[string]interface{}, keys []string) *float64 {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return Number(v)
		}
	}
	return nil
}

// Number parses a loosely typed JSON value into a finite float, nil when unknown
func Number(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		return parseString(n)
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseString accepts "1,234.5", "$4.20", "+35.2%", "12.5M"
func parseString(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "$", "", "%", "", "+", "").Replace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "null") {
		return nil
	}

	mult := 1.0
	if m, ok := magnitudes[strings.ToUpper(s[len(s)-1:])]; ok && len(s) > 1 {
		mult = m
		s = s[:len(s)-1]
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f *= mult
	return &f
}

func positive(p *float64) *float64 {
	if p == nil || *p <= 0 {
		return nil
	}
	return p
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}
