package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pick is a persisted final selection
// ⭐ SSOT: 저장되는 최종 선정 레코드
type Pick struct {
	ID               string          `json:"id"`
	RunID            string          `json:"runId"`
	Ticker           string          `json:"ticker"`
	Rank             int             `json:"rank"`
	Reasons          []string        `json:"reasons"`
	ExplanationText  string          `json:"explanationText"`
	PriceAtSelection decimal.Decimal `json:"priceAtSelection"`
	Timestamp        time.Time       `json:"timestamp"`
}
