package contracts

import "time"

// PremarketMetrics summarises the morning bar window for one symbol
// 모든 필드 nil = 데이터 없음 (provider 실패 포함)
type PremarketMetrics struct {
	PMHigh        *float64 `json:"pmHigh"`
	PMLow         *float64 `json:"pmLow"`
	PMRangePct    *float64 `json:"pmRangePct"`
	PMVolume      *float64 `json:"pmVolume"`
	PMVWAP        *float64 `json:"pmVWAP"`
	PMUpMinutePct *float64 `json:"pmUpMinutePct"`
	PMScore       *float64 `json:"pmScore"`
}

// HasData reports whether bar-derived metrics are present
func (m PremarketMetrics) HasData() bool {
	return m.PMVolume != nil
}

// Bar is one OHLCV bar from the premarket bars provider
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
	VWAP      float64   `json:"vw"`
}
