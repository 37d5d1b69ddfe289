package contracts

// RawCandidate is one canonical top-gainer row
// nil numeric fields mean "unknown" and must never be read as zero
// ⭐ SSOT: 후보 종목 기본 레코드
type RawCandidate struct {
	Ticker    string   `json:"ticker"`
	Name      string   `json:"name,omitempty"`
	Price     *float64 `json:"price"`
	ChangePct *float64 `json:"changePct"`
	MarketCap *float64 `json:"marketCap"`
	Float     *float64 `json:"float"`
	Volume    *float64 `json:"volume"`
	Employees *float64 `json:"employees"`

	// Derived
	DollarVolume *float64 `json:"dollarVolume"`
	RelVolFloat  *float64 `json:"relVolFloat"`
}

// EnrichedCandidate adds gateway lookups to a raw row
type EnrichedCandidate struct {
	RawCandidate

	AvgVolume       *float64 `json:"avgVolume"`
	RelVol          *float64 `json:"relVol"`
	ProfitMarginTTM *float64 `json:"profitMarginTTM"`
	Sector          string   `json:"sector,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	Country         string   `json:"country,omitempty"`
	Exchange        string   `json:"exchange,omitempty"`
	IsETF           bool     `json:"isEtf"`
	IsOTC           bool     `json:"isOtc"`
	HeadlinePos     int      `json:"headlinePos"`
	HeadlineNeg     int      `json:"headlineNeg"`
	Headlines       []string `json:"headlines,omitempty"`
}

// ScoredCandidate carries soft preference, tilt and premarket fields
type ScoredCandidate struct {
	EnrichedCandidate
	PremarketMetrics

	SoftPref    float64 `json:"softPref"`
	SoftPrefAdj float64 `json:"softPrefAdj"`
	TiltMatch   bool    `json:"tiltMatch"`
	TiltBonus   float64 `json:"tiltBonus"`
	GeoBias     float64 `json:"geoBias"`
	Rank        int     `json:"rank"`
}

// IndustryWinner is the modal industry/sector label of the day's candidates
type IndustryWinner struct {
	Label   string   `json:"label"`
	Count   int      `json:"count"`
	Members []string `json:"members"`
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}

// Value returns the pointed value or 0 for unknown
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
