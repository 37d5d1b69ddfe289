package selection

import (
	"strings"

	"github.com/wonny/aegis-watch/internal/contracts"
)

var (
	fundIssuers  = []string{"PROSHARES", "DIREXION", "ISHARES", "SPDR", "VANGUARD", "INVESCO QQQ", "GRANITESHARES", "T-REX", "DEFIANCE", "TRADR"}
	fundTokens   = map[string]bool{"ETF": true, "ETN": true, "FUND": true, "2X": true, "3X": true, "-2X": true, "-3X": true}
	otcExchanges = []string{"OTC", "PNK", "PINK", "GREY", "EXPERT MARKET"}
)

// DetectETF reports ETF/ETN venue from profile flags, falling back to name
// and industry heuristics
func DetectETF(profile *contracts.Profile, name, industry string) bool {
	if profile != nil && (profile.IsETF || profile.IsFund) {
		return true
	}

	upperName := strings.ToUpper(name)
	for _, token := range strings.Fields(upperName) {
		if fundTokens[token] {
			return true
		}
	}
	for _, issuer := range fundIssuers {
		if strings.Contains(upperName, issuer) {
			return true
		}
	}

	upperIndustry := strings.ToUpper(industry)
	return strings.Contains(upperIndustry, "EXCHANGE TRADED") || strings.Contains(upperIndustry, "ETF")
}

// DetectOTC reports an over-the-counter listing
// 거래소 정보가 없으면 5글자 F/Y 접미 (해외 보통주/ADR) 규칙으로 추정
func DetectOTC(exchange, ticker string) bool {
	upper := strings.ToUpper(exchange)
	if upper != "" {
		for _, otc := range otcExchanges {
			if strings.Contains(upper, otc) {
				return true
			}
		}
		return false
	}

	if len(ticker) == 5 {
		last := ticker[4]
		return last == 'F' || last == 'Y'
	}
	return false
}
