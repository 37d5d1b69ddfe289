package selection

import (
	"strings"
	"unicode"
)

var positiveWords = map[string]bool{
	"approval": true, "approved": true, "approves": true, "clearance": true,
	"beat": true, "beats": true, "surge": true, "surges": true, "soar": true,
	"soars": true, "jump": true, "jumps": true, "rally": true, "rallies": true,
	"record": true, "partnership": true, "contract": true, "awarded": true,
	"upgrade": true, "upgraded": true, "breakthrough": true, "positive": true,
	"acquire": true, "acquisition": true, "wins": true, "launch": true,
	"launches": true, "expands": true, "agreement": true, "milestone": true,
}

var negativeWords = map[string]bool{
	"offering": true, "dilution": true, "dilutive": true, "downgrade": true,
	"downgraded": true, "miss": true, "misses": true, "lawsuit": true,
	"investigation": true, "probe": true, "plunge": true, "plunges": true,
	"falls": true, "tumbles": true, "delisting": true, "delist": true,
	"bankruptcy": true, "halt": true, "halted": true, "recall": true,
	"warning": true, "fraud": true, "loss": true, "losses": true,
	"default": true, "subpoena": true, "resigns": true, "deficiency": true,
}

var (
	positivePhrases = []string{"raises guidance", "fda approval", "price target raised"}
	negativePhrases = []string{"reverse split", "going concern", "public offering", "price target cut"}
)

// CountSentiment counts headlines with positive and negative keywords
// 한 헤드라인이 양쪽 모두에 잡힐 수 있음
func CountSentiment(titles []string) (pos, neg int) {
	for _, title := range titles {
		lower := strings.ToLower(title)
		words := strings.FieldsFunc(lower, func(r rune) bool {
			return !unicode.IsLetter(r) && r != '-'
		})

		if hasWord(words, positiveWords) || hasPhrase(lower, positivePhrases) {
			pos++
		}
		if hasWord(words, negativeWords) || hasPhrase(lower, negativePhrases) {
			neg++
		}
	}
	return pos, neg
}

func hasWord(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

func hasPhrase(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
